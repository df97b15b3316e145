// Package httpserver provides the admin HTTP endpoint of meshbbs-server.
//
// Endpoints:
//
//   - GET /health: liveness
//   - GET /metrics: Prometheus exposition
//   - GET /admin/v1/status: node status as JSON
//
// Every route runs behind Recover and RequestID. The admin route also gets
// AccessLog, the optional AllowList and a per-address rate limit. Errors are
// domain.DomainError values; the code decides the HTTP status.
package httpserver
