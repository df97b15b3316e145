package httpserver

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/oklog/ulid/v2"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequestID(t *testing.T) {
	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if RequestIDFrom(r.Context()) == "" {
			t.Error("expected request ID in context")
		}
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("generates request ID when not provided", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

		requestID := rec.Header().Get("X-Request-ID")
		if !strings.HasPrefix(requestID, "req-") || len(requestID) != 4+26 {
			t.Errorf("unexpected request ID %q", requestID)
		}
		if _, err := ulid.ParseStrict(strings.TrimPrefix(requestID, "req-")); err != nil {
			t.Errorf("request ID suffix is not a ULID: %v", err)
		}
	})

	t.Run("ids differ per request", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 50; i++ {
			id := newRequestID()
			if seen[id] {
				t.Fatalf("duplicate request ID %q", id)
			}
			seen[id] = true
		}
	})

	t.Run("preserves existing request ID", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/health", nil)
		req.Header.Set("X-Request-ID", "existing-id-123")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if got := rec.Header().Get("X-Request-ID"); got != "existing-id-123" {
			t.Errorf("expected 'existing-id-123', got %s", got)
		}
	})
}

func TestChain(t *testing.T) {
	var order []int
	mark := func(n int) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, n)
				next.ServeHTTP(w, r)
			})
		}
	}

	handler := Chain(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		order = append(order, 4)
	}), mark(1), mark(2), mark(3))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	want := []int{1, 2, 3, 4}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order = %v, want %v", order, want)
			break
		}
	}
}

func TestAllowList(t *testing.T) {
	tests := []struct {
		name      string
		allowList []string
		remote    string
		want      int
	}{
		{"empty list allows all", nil, "203.0.113.9:1234", http.StatusOK},
		{"single ip allowed", []string{"192.168.1.5"}, "192.168.1.5:1234", http.StatusOK},
		{"single ip denied", []string{"192.168.1.5"}, "192.168.1.6:1234", http.StatusForbidden},
		{"cidr allowed", []string{"10.0.0.0/8"}, "10.20.30.40:1", http.StatusOK},
		{"unmasked cidr", []string{"10.1.2.3/16"}, "10.1.200.1:1", http.StatusOK},
		{"ipv6 loopback", []string{"::1"}, "[::1]:8080", http.StatusOK},
		{"invalid entries skipped", []string{"nonsense", "127.0.0.1"}, "127.0.0.1:1", http.StatusOK},
		{"only invalid entries", []string{"nonsense"}, "192.0.2.1:1", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := AllowList(tt.allowList, quietLogger())(okHandler())
			req := httptest.NewRequest("GET", "/admin/v1/status", nil)
			req.RemoteAddr = tt.remote
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestAllowList_ErrorBody(t *testing.T) {
	handler := AllowList([]string{"10.0.0.1"}, quietLogger())(okHandler())
	req := httptest.NewRequest("GET", "/admin/v1/status", nil)
	req.RemoteAddr = "192.0.2.1:1"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Error-Code"); got != "BBS-ADMIN-4031" {
		t.Errorf("X-Error-Code = %q", got)
	}
	if !strings.Contains(rec.Body.String(), `"code":"BBS-ADMIN-4031"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestParseAllowList(t *testing.T) {
	prefixes, bad := ParseAllowList([]string{"192.168.1.5", " 10.0.0.0/8 ", "fd00::/8", "host.example"})
	if len(prefixes) != 3 {
		t.Fatalf("prefixes = %v", prefixes)
	}
	if prefixes[0].Bits() != 32 {
		t.Errorf("bare address bits = %d, want 32", prefixes[0].Bits())
	}
	if len(bad) != 1 || bad[0] != "host.example" {
		t.Errorf("bad = %v", bad)
	}
}

func TestRateLimit(t *testing.T) {
	handler := RateLimit(2)(okHandler())

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest("GET", "/admin/v1/status", nil)
		req.RemoteAddr = "192.0.2.1:5000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v", codes)
	}

	// another client has its own bucket
	req := httptest.NewRequest("GET", "/admin/v1/status", nil)
	req.RemoteAddr = "192.0.2.2:5000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("second client status = %d", rec.Code)
	}
}

func TestRecover(t *testing.T) {
	handler := Recover(quietLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("test panic")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rec.Code)
	}
	if rec.Header().Get("X-Error-Code") != "BBS-SYS-5000" {
		t.Errorf("X-Error-Code = %q", rec.Header().Get("X-Error-Code"))
	}
}

func TestAccessLog(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{http.StatusOK, "level=INFO msg=\"admin request\""},
		{http.StatusBadRequest, "admin request rejected"},
		{http.StatusInternalServerError, "admin request failed"},
	}

	for _, tt := range tests {
		var buf strings.Builder
		handler := Chain(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tt.status)
		}), RequestID(), AccessLog(slog.New(slog.NewTextHandler(&buf, nil))))

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/admin/v1/status", nil))

		if !strings.Contains(buf.String(), tt.want) {
			t.Errorf("status %d: log %q missing %q", tt.status, buf.String(), tt.want)
		}
		if !strings.Contains(buf.String(), "request_id=req-") {
			t.Errorf("log %q missing request id", buf.String())
		}
	}
}

func TestClientAddr(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]string
		remote string
		want   string
	}{
		{"remote addr", nil, "192.0.2.7:4000", "192.0.2.7"},
		{"forwarded for", map[string]string{"X-Forwarded-For": "198.51.100.1, 10.0.0.1"}, "10.0.0.1:1", "198.51.100.1"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.2"}, "10.0.0.1:1", "198.51.100.2"},
		{"no port", nil, "192.0.2.8", "192.0.2.8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			if got := clientAddr(req); got != tt.want {
				t.Errorf("clientAddr = %q, want %q", got, tt.want)
			}
		})
	}
}
