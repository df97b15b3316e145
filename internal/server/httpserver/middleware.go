package httpserver

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/yndnr/meshbbs-go/internal/core/domain"
)

var (
	errTooManyRequests = domain.NewDomainError("BBS-SYS-4290", "too many requests")
	errAddrNotAllowed  = domain.NewDomainError("BBS-ADMIN-4031", "address not in admin allowlist")
	errInternal        = domain.NewDomainError("BBS-SYS-5000", "internal server error")
	errNoStatus        = domain.NewDomainError("BBS-SYS-5030", "status unavailable")
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares so that the first one listed sees the request
// first.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

type requestInfoKey struct{}

// requestInfo is stored once per request by RequestID.
type requestInfo struct {
	id    string
	start time.Time
}

func withRequestInfo(ctx context.Context, id string, start time.Time) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, requestInfo{id: id, start: start})
}

func requestInfoFrom(ctx context.Context) (requestInfo, bool) {
	info, ok := ctx.Value(requestInfoKey{}).(requestInfo)
	return info, ok
}

// RequestIDFrom returns the request id assigned by RequestID, or "".
func RequestIDFrom(ctx context.Context) string {
	info, _ := requestInfoFrom(ctx)
	return info.id
}

// RequestID tags each request with an id, reusing X-Request-ID when the
// caller sent one. Generated ids are "req-" followed by a ULID.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if id == "" {
				id = newRequestID()
			}
			w.Header().Set("X-Request-ID", id)
			next.ServeHTTP(w, r.WithContext(withRequestInfo(r.Context(), id, time.Now())))
		})
	}
}

// newRequestID returns "req-" and a lowercase ULID. ulid.Make draws from a
// process-wide monotonic source and cannot fail.
func newRequestID() string {
	return "req-" + strings.ToLower(ulid.Make().String())
}

// clientLimiter hands out one token bucket per client address.
type clientLimiter struct {
	rps int

	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

func (c *clientLimiter) allow(addr string) bool {
	c.mu.Lock()
	b, ok := c.buckets[addr]
	if !ok {
		b = rate.NewLimiter(rate.Limit(c.rps), c.rps)
		c.buckets[addr] = b
	}
	c.mu.Unlock()
	return b.Allow()
}

// RateLimit caps each client address at rps requests per second, with a
// burst of the same size.
func RateLimit(rps int) Middleware {
	limiter := &clientLimiter{rps: rps, buckets: make(map[string]*rate.Limiter)}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.allow(clientAddr(r)) {
				w.Header().Set("Retry-After", "1")
				writeError(w, errTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AccessLog writes one line per request. The level follows the status class.
func AccessLog(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			info, ok := requestInfoFrom(r.Context())
			var elapsed time.Duration
			if ok {
				elapsed = time.Since(info.start)
			}

			level, msg := slog.LevelInfo, "admin request"
			switch {
			case rec.status >= 500:
				level, msg = slog.LevelError, "admin request failed"
			case rec.status >= 400:
				level, msg = slog.LevelWarn, "admin request rejected"
			}
			logger.Log(r.Context(), level, msg,
				"request_id", info.id,
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration_ms", elapsed.Milliseconds(),
				"client", clientAddr(r),
			)
		})
	}
}

// Recover turns a handler panic into a BBS-SYS-5000 response.
func Recover(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					logger.Error("admin handler panicked",
						"request_id", RequestIDFrom(r.Context()),
						"path", r.URL.Path,
						"panic", v,
					)
					writeError(w, errInternal)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// ParseAllowList turns IP and CIDR entries into prefixes. A bare address
// becomes a single-host prefix. Entries that parse as neither are returned
// in bad.
func ParseAllowList(entries []string) (prefixes []netip.Prefix, bad []string) {
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if p, err := netip.ParsePrefix(e); err == nil {
			prefixes = append(prefixes, p.Masked())
			continue
		}
		if a, err := netip.ParseAddr(e); err == nil {
			prefixes = append(prefixes, netip.PrefixFrom(a, a.BitLen()))
			continue
		}
		bad = append(bad, e)
	}
	return prefixes, bad
}

// AllowList refuses requests whose client address falls outside entries.
// With no usable entries every request passes.
func AllowList(entries []string, logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	prefixes, bad := ParseAllowList(entries)
	for _, e := range bad {
		logger.Warn("ignoring admin allowlist entry", "entry", e)
	}

	allowed := func(addr string) bool {
		a, err := netip.ParseAddr(addr)
		if err != nil {
			return false
		}
		a = a.Unmap()
		for _, p := range prefixes {
			if p.Contains(a) {
				return true
			}
		}
		return false
	}

	return func(next http.Handler) http.Handler {
		if len(prefixes) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			addr := clientAddr(r)
			if !allowed(addr) {
				logger.Warn("admin request refused", "client", addr, "path", r.URL.Path)
				writeError(w, errAddrNotAllowed)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// clientAddr prefers proxy headers over the socket peer.
func clientAddr(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
