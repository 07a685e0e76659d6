package middleware

import (
	"context"
	"net/http"
	"strings"

	"stocktrack-api/internal/model"
	"stocktrack-api/internal/service"
	"stocktrack-api/pkg/apierror"
)

// SessionKey is the key for storing session data in request context.
const SessionKey contextKey = "session"

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Sessions *service.SessionService
}

// NewAuthMiddleware creates an authentication middleware with injected
// dependencies. Requests present a session token via X-Token or a
// Bearer Authorization header; the resolved session (user id, email,
// role) is stored in the request context.
func NewAuthMiddleware(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Sessions == nil {
				writeError(w, apierror.ServiceUnavailable("session store unavailable"))
				return
			}

			token := r.Header.Get("X-Token")
			if token == "" {
				auth := r.Header.Get("Authorization")
				if strings.HasPrefix(auth, "Bearer ") {
					token = strings.TrimPrefix(auth, "Bearer ")
				}
			}
			if token == "" {
				writeError(w, apierror.Unauthorized("Authentication required. Use X-Token or Authorization header."))
				return
			}

			session, err := cfg.Sessions.ValidateToken(r.Context(), token)
			if err != nil {
				writeError(w, apierror.Unauthorized("Invalid or expired session"))
				return
			}

			ctx := context.WithValue(r.Context(), SessionKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin gates a route group to admin sessions. Must run after the
// auth middleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := GetSession(r.Context())
		if session == nil {
			writeError(w, apierror.Unauthorized(""))
			return
		}
		if session.Role != model.RoleAdmin {
			writeError(w, apierror.Forbidden("You do not have permission to perform this action"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetSession retrieves session data from request context.
func GetSession(ctx context.Context) *model.SessionData {
	if data, ok := ctx.Value(SessionKey).(*model.SessionData); ok {
		return data
	}
	return nil
}

// writeError writes an API error response.
func writeError(w http.ResponseWriter, err *apierror.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode)
	w.Write(err.ToJSON())
}
