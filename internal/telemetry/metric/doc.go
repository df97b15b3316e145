// Package metric provides Prometheus metrics for MeshBBS.
//
// A Registry owns its own prometheus.Registry and exposes it at /metrics
// through Handler. All recording methods are safe on a nil *Registry so
// components can run without metrics in tests.
package metric
