package httpserver

import (
	"log/slog"
	"net/http"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Version is reported by /health.
	Version string

	// Status produces the /admin/v1/status body.
	Status StatusFunc

	// Metrics serves /metrics. Nil disables the route.
	Metrics http.Handler

	Logger *slog.Logger

	// AdminAllowList is the IP/CIDR allowlist for admin API (empty = no restriction).
	AdminAllowList []string

	// AdminRateLimit is the per-IP admin request rate (requests/second, 0 = unlimited).
	AdminRateLimit int
}

// DefaultAdminRateLimit is the per-IP admin rate used by meshbbs-server.
const DefaultAdminRateLimit = 10

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(cfg *RouterConfig) http.Handler {
	if cfg == nil {
		cfg = &RouterConfig{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	mux.Handle("GET /health", Chain(healthHandler(cfg.Version), RequestID(), Recover(logger)))

	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", Chain(cfg.Metrics, RequestID(), Recover(logger)))
	}

	admin := []Middleware{RequestID(), Recover(logger), AccessLog(logger)}
	if len(cfg.AdminAllowList) > 0 {
		admin = append(admin, AllowList(cfg.AdminAllowList, logger))
	}
	if cfg.AdminRateLimit > 0 {
		admin = append(admin, RateLimit(cfg.AdminRateLimit))
	}
	mux.Handle("GET /admin/v1/status", Chain(statusHandler(cfg.Status), admin...))

	return mux
}
