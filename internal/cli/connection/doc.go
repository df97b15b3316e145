// Package connection is the meshbbs-cli HTTP client for a running node's
// admin endpoints (/health and /admin/v1/status).
package connection
