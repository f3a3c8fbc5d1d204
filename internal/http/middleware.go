package http

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
)

// Middleware defines the standard signature for an HTTP middleware.
type Middleware func(http.Handler) http.Handler

// Chain combines multiple middlewares into a single handler.
// The middlewares are applied in the order they are passed.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// contextKey is a custom type to avoid key collisions in context.
type contextKey string

const (
	dryRunKey     contextKey = "dryRun"
	privilegedKey contextKey = "privileged"
)

// paramsMiddleware handles common query parameters like 'verbose' and 'dry_run'.
func paramsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.With("method", r.Method, "path", r.URL.Path)
		// 'verbose' lowers the level of this request's logger only.
		if r.URL.Query().Get("verbose") == "true" {
			logger.SetLevel(log.DebugLevel)
		}
		logger.Info("incoming request")

		isDryRun := r.URL.Query().Get("dry_run") == "true"
		ctx := log.WithContext(r.Context(), logger)
		ctx = context.WithValue(ctx, dryRunKey, isDryRun)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// privilegeMiddleware decides whether the caller carries the admin bearer
// token. It never rejects; handlers read the decision from the context.
func privilegeMiddleware(adminToken string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bearer, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			privileged := tokenMatches(bearer, adminToken)
			ctx := context.WithValue(r.Context(), privilegedKey, privileged)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requireAdmin rejects callers that privilegeMiddleware did not mark as privileged.
func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isPrivilegedFromContext(r) {
			log.FromContext(r.Context()).Warn("Rejected unprivileged admin request")
			writeJSON(w, http.StatusForbidden, errorResponse{Error: "admin token required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// tokenMatches compares in constant time. An unset expected token matches nothing.
func tokenMatches(got, want string) bool {
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// isDryRunFromContext is a helper to safely retrieve the dry_run flag from the request context.
func isDryRunFromContext(r *http.Request) bool {
	dryRun, ok := r.Context().Value(dryRunKey).(bool)
	return ok && dryRun
}

func isPrivilegedFromContext(r *http.Request) bool {
	privileged, ok := r.Context().Value(privilegedKey).(bool)
	return ok && privileged
}
