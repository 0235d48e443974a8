package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/ledgerforge/ledgerd/internal/apperr"
)

// problem is the RFC-7807-like error envelope (spec.md §6).
type problem struct {
	Type      string         `json:"type"`
	Status    int            `json:"status"`
	Title     string         `json:"title"`
	Detail    string         `json:"detail"`
	Instance  string         `json:"instance"`
	TraceID   string         `json:"traceId,omitempty"`
	Retryable *bool          `json:"retryable,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
}

var kindToType = map[apperr.Kind]string{
	apperr.KindValidation:         "BAD_REQUEST",
	apperr.KindUnauthorized:       "UNAUTHORIZED",
	apperr.KindForbidden:          "FORBIDDEN",
	apperr.KindNotFound:           "NOT_FOUND",
	apperr.KindConflict:           "CONFLICT",
	apperr.KindTooManyRequests:    "TOO_MANY_REQUESTS",
	apperr.KindInternal:           "INTERNAL_SERVER_ERROR",
	apperr.KindServiceUnavailable: "SERVICE_UNAVAILABLE",
}

var kindToStatus = map[apperr.Kind]int{
	apperr.KindValidation:         http.StatusBadRequest,
	apperr.KindUnauthorized:       http.StatusUnauthorized,
	apperr.KindForbidden:          http.StatusForbidden,
	apperr.KindNotFound:           http.StatusNotFound,
	apperr.KindConflict:           http.StatusConflict,
	apperr.KindTooManyRequests:    http.StatusTooManyRequests,
	apperr.KindInternal:           http.StatusInternalServerError,
	apperr.KindServiceUnavailable: http.StatusServiceUnavailable,
}

// writeError maps err to its HTTP status and writes the problem
// envelope. Unrecognized error kinds are never silently swallowed;
// they are surfaced as 500 Internal.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperr.As(err)
	if !ok {
		appErr = apperr.Internal("unexpected error", err)
	}

	status, ok := kindToStatus[appErr.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	problemType, ok := kindToType[appErr.Kind]
	if !ok {
		problemType = "INTERNAL_SERVER_ERROR"
	}

	p := problem{
		Type:     problemType,
		Status:   status,
		Title:    http.StatusText(status),
		Detail:   appErr.Message,
		Instance: r.URL.Path,
		TraceID:  middleware.GetReqID(r.Context()),
	}
	if appErr.Kind == apperr.KindConflict || appErr.Kind == apperr.KindServiceUnavailable {
		retryable := appErr.Retryable
		p.Retryable = &retryable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(p)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
