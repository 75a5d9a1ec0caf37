// Package middleware provides HTTP middleware for the ticket server.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/aawaaz/ticket-server/internal/errors"
	"github.com/aawaaz/ticket-server/internal/lifecycle"
	"github.com/aawaaz/ticket-server/internal/ratelimit"
	"github.com/aawaaz/ticket-server/internal/store"
)

type contextKey struct{ name string }

var actorKey = &contextKey{"actor"}

// StructuredLogger returns a middleware that logs HTTP requests with zap
func StructuredLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap response writer to capture status code
			ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(ww, r)

			logger.Info("HTTP Request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.statusCode),
				zap.Duration("latency", time.Since(start)),
				zap.String("request_id", chimw.GetReqID(r.Context())),
			)
		})
	}
}

// SecurityHeaders sets conservative response headers on every request.
func SecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer")
			next.ServeHTTP(w, r)
		})
	}
}

// Authenticate validates the HS256 session token, resolves the caller's role
// and stores the resulting Actor in the request context. The token may come
// from the Authorization header or, for EventSource clients that cannot set
// headers, the access_token query parameter.
func Authenticate(secret string, roles store.RoleDirectory, logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := bearerToken(r)
			if tokenStr == "" {
				writeError(w, apperrors.NewUnauthorizedError("authorization required"))
				return
			}

			token, err := jwt.ParseWithClaims(tokenStr, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
				return []byte(secret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !token.Valid {
				writeError(w, apperrors.NewUnauthorizedError("invalid or expired token"))
				return
			}

			subject, err := token.Claims.GetSubject()
			if err != nil {
				writeError(w, apperrors.NewUnauthorizedError("invalid or expired token"))
				return
			}
			userID, err := uuid.Parse(subject)
			if err != nil {
				writeError(w, apperrors.NewUnauthorizedError("token subject is not a user id"))
				return
			}

			role, err := roles.RoleOf(r.Context(), userID)
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, apperrors.NewAuthorizationError("your account has no role assigned"))
				return
			}
			if err != nil {
				logger.Errorw("Role lookup failed", "user_id", userID, "error", err)
				writeError(w, apperrors.NewTransientError("could not verify your session, please try again", err))
				return
			}

			ctx := WithActor(r.Context(), lifecycle.Actor{UserID: userID, Role: role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects callers whose Actor does not have role.
func RequireRole(role lifecycle.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			a, ok := ActorFrom(r.Context())
			if !ok {
				writeError(w, apperrors.NewUnauthorizedError("authorization required"))
				return
			}
			if a.Role != role {
				writeError(w, apperrors.NewAuthorizationError(role.String()+" access required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit throttles requests per client address. A limiter failure lets
// the request through.
func RateLimit(limiter ratelimit.Limiter, logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientAddr(r)
			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.Warnw("Rate limiter unavailable", "error", err)
				allowed = true
			}
			if !allowed {
				w.Header().Set("Retry-After", "60")
				writeError(w, &apperrors.AppError{
					Type:    apperrors.ErrorTypeTransient,
					Message: "too many requests, slow down",
					Code:    http.StatusTooManyRequests,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithActor returns a copy of ctx carrying a.
func WithActor(ctx context.Context, a lifecycle.Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}

// ActorFrom returns the authenticated Actor, if any.
func ActorFrom(ctx context.Context) (lifecycle.Actor, bool) {
	a, ok := ctx.Value(actorKey).(lifecycle.Actor)
	return a, ok
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
			return strings.TrimSpace(h[7:])
		}
		return ""
	}
	return r.URL.Query().Get("access_token")
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeError renders the same error envelope the handlers use.
func writeError(w http.ResponseWriter, e *apperrors.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Code)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{
			"type":    string(e.Type),
			"title":   e.Title(),
			"message": e.Message,
		},
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush lets streaming handlers flush through the wrapper.
func (w *responseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
