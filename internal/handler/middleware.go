package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/hiroki-koketsu/todo-workflow/internal/auth"
	"github.com/hiroki-koketsu/todo-workflow/internal/model"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// Authenticate resolves the bearer token to an active user and stores it
// in the request context for the handlers.
func Authenticate(verifier *auth.TokenVerifier, users auth.UserLookup, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			header := r.Header.Get("Authorization")
			if header == "" {
				writeError(w, model.ErrUnauthenticated)
				return
			}
			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
				writeError(w, model.ErrInvalidToken)
				return
			}

			user, err := verifier.Authenticate(ctx, users, token)
			if err != nil {
				if status, _, _ := errorResponse(err); status == http.StatusInternalServerError {
					logger.ErrorContext(ctx, "failed to authenticate", slog.Any("error", err))
				} else {
					logger.WarnContext(ctx, "rejected token", slog.Any("error", err))
				}
				writeError(w, err)
				return
			}

			trace.SpanFromContext(ctx).SetAttributes(
				attribute.Int64("enduser.id", user.ID),
				attribute.String("enduser.role", user.Role.String()),
			)
			next.ServeHTTP(w, r.WithContext(auth.WithActor(ctx, user)))
		})
	}
}

// RateLimit throttles requests with a single token bucket shared by all clients.
func RateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				respondError(w, http.StatusTooManyRequests, model.KeyDetail, "Request was throttled.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
