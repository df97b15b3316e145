// Package shutdown coordinates process termination for meshbbs-server.
//
// A Handler waits for SIGINT or SIGTERM and runs the registered shutdown
// hooks in reverse order under one timeout. SIGHUP runs the reload hooks
// instead and keeps waiting.
package shutdown
