package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/yndnr/meshbbs-go/internal/core/domain"
)

// StatusFunc reports the node status for /admin/v1/status. The value is
// encoded as JSON.
type StatusFunc func() any

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func healthHandler(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Version: version})
	}
}

func statusHandler(status StatusFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if status == nil {
			writeError(w, errNoStatus)
			return
		}
		writeJSON(w, http.StatusOK, status())
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError answers with the status derived from the error code and a
// {code, message} body. The code is repeated in X-Error-Code.
func writeError(w http.ResponseWriter, err *domain.DomainError) {
	msg := err.Message
	if err.Details != "" {
		msg += ": " + err.Details
	}
	w.Header().Set("X-Error-Code", err.Code)
	writeJSON(w, err.HTTPStatus(), errorResponse{Code: err.Code, Message: msg})
}
