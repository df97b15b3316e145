package connection

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewHTTPClient(t *testing.T) {
	tests := []struct {
		name   string
		server string
		want   string
	}{
		{"with http prefix", "http://localhost:5080", "http://localhost:5080"},
		{"with https prefix", "https://bbs.example.org", "https://bbs.example.org"},
		{"without prefix", "127.0.0.1:5080", "http://127.0.0.1:5080"},
		{"trailing slash", "http://localhost:5080/", "http://localhost:5080"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewHTTPClient(tt.server, 0)
			if client.BaseURL() != tt.want {
				t.Errorf("BaseURL() = %q, want %q", client.BaseURL(), tt.want)
			}
			if client.client.Timeout != DefaultTimeout {
				t.Errorf("Timeout = %v, want %v", client.client.Timeout, DefaultTimeout)
			}
		})
	}
}

func TestHTTPClient_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %q, want GET", r.Method)
		}
		if !strings.HasPrefix(r.Header.Get("User-Agent"), "meshbbs-cli/") {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		if r.URL.Path != "/admin/v1/status" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, time.Second)
	resp, err := client.Get(context.Background(), "/admin/v1/status")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestHTTPClient_GetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"Mesh BBS","handled":3}`))
	}))
	defer server.Close()

	var got struct {
		Name    string `json:"name"`
		Handled int    `json:"handled"`
	}
	if err := NewHTTPClient(server.URL, 0).GetJSON(context.Background(), "/admin/v1/status", &got); err != nil {
		t.Fatalf("GetJSON failed: %v", err)
	}
	if got.Name != "Mesh BBS" || got.Handled != 3 {
		t.Errorf("got %+v", got)
	}
}

func TestHTTPClient_GetJSON_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	err := NewHTTPClient(url, time.Second).GetJSON(context.Background(), "/health", nil)
	if err == nil {
		t.Fatal("expected an error for a closed server")
	}
	if !strings.Contains(err.Error(), "/health") {
		t.Errorf("error should name the path, got %q", err)
	}
}

func TestParseResponse_Error(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode string
		wantMsg  string
	}{
		{
			name:     "structured error",
			status:   http.StatusForbidden,
			body:     `{"code":"BBS-ADMIN-4031","message":"address not allowed"}`,
			wantCode: "BBS-ADMIN-4031",
			wantMsg:  "[BBS-ADMIN-4031] address not allowed",
		},
		{
			name:    "plain error",
			status:  http.StatusInternalServerError,
			body:    `not json`,
			wantMsg: "status 500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			resp, err := http.Get(server.URL)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			err = ParseResponse(resp, nil)

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error = %v, want *APIError", err)
			}
			if apiErr.Status != tt.status || apiErr.Code != tt.wantCode {
				t.Errorf("APIError = %+v", apiErr)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want to contain %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestParseResponse_NilTarget(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":"ignored"}`))
	}))
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if err := ParseResponse(resp, nil); err != nil {
		t.Errorf("ParseResponse with nil target should not error: %v", err)
	}
}
