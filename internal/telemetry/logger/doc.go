// Package logger builds the process *slog.Logger for meshbbs-server.
//
// Every logger built here shares one level, so a configuration reload can
// raise or lower verbosity without rebuilding handlers. Attribute values are
// passed through redaction first: mail and bulletin bodies, channel keys and
// anything that looks like a secret never reach the log.
package logger
