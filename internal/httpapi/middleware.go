package httpapi

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ledgerforge/ledgerd/internal/apperr"
	"github.com/ledgerforge/ledgerd/internal/auth"
	"github.com/ledgerforge/ledgerd/internal/logger"
	"golang.org/x/time/rate"
)

// Recovery returns a panic recovery middleware.
func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error("panic recovered",
						"error", fmt.Sprintf("%v", rec),
						"path", r.URL.Path,
						"method", r.Method,
						"stack", string(debug.Stack()),
					)
					writeError(w, r, apperr.Internal("internal server error", nil))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger returns a structured request logging middleware.
func RequestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			reqID := chimiddleware.GetReqID(r.Context())

			defer func() {
				status := ww.Status()
				attrs := []any{
					"method", r.Method,
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"status", status,
					"bytes", ww.BytesWritten(),
					"duration_ms", time.Since(start).Milliseconds(),
					"request_id", reqID,
				}
				switch {
				case status >= 500:
					log.Error("http request", attrs...)
				case status >= 400:
					log.Warn("http request", attrs...)
				default:
					log.Info("http request", attrs...)
				}
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// CORS returns a CORS middleware handler.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

// RateLimiter is a per-organization token-bucket limiter (spec.md §6's
// 429 TooManyRequests). Unlike a per-IP limiter it keys on the
// authenticated tenant, since a single organization's burst should not
// be conflated with another sharing a NAT gateway.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	r        rate.Limit
	b        int
}

func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		r:        rate.Limit(requestsPerSecond),
		b:        burst,
	}
}

func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	l, ok := rl.limiters[key]
	if !ok {
		l = rate.NewLimiter(rl.r, rl.b)
		rl.limiters[key] = l
	}
	return l
}

// Middleware must run after Auth so the organization ID is available;
// it falls back to the remote address for unauthenticated requests.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.RemoteAddr
		if orgID, ok := auth.OrganizationIDFromContext(r.Context()); ok {
			key = orgID
		}
		if !rl.limiterFor(key).Allow() {
			writeError(w, r, apperr.TooManyRequests("rate limit exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Auth verifies the bearer token and places the organization ID and
// scopes into the request context. It must run before any handler and
// before RateLimiter's organization-keyed bucket lookup.
func Auth(verifier *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
				writeError(w, r, apperr.Unauthorized("missing or malformed authorization header"))
				return
			}

			claims, err := verifier.Verify(header[len(prefix):])
			if err != nil {
				writeError(w, r, apperr.Unauthorized("invalid or expired token"))
				return
			}

			ctx := auth.WithOrganizationID(r.Context(), claims.Subject)
			ctx = auth.WithScopes(ctx, claims.Scope)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireScope returns a middleware rejecting requests whose token does
// not carry permission p (spec.md §6 permission list).
func RequireScope(p auth.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scopes, _ := auth.ScopesFromContext(r.Context())
			for _, s := range scopes {
				if s == string(p) {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, r, apperr.Forbidden("token lacks required permission: "+string(p)))
		})
	}
}
