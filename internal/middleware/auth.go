package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/s1natex/tasktracker-api/internal/auth"
	"github.com/s1natex/tasktracker-api/internal/envelope"
)

const (
	msgNoToken     = "Not authorized, no token"
	msgTokenFailed = "Not authorized, token failed"
)

// CallerResolver turns a bearer token into the identity it was issued to.
type CallerResolver interface {
	ResolveCaller(ctx context.Context, token string) (auth.Identity, error)
}

type AuthConfig struct {
	Resolver CallerResolver
	Logger   *slog.Logger
}

// AuthMiddleware requires "Authorization: Bearer <token>" and stores the resolved
// caller with auth.WithCaller. Only token failures answer 401; a resolver that
// cannot reach its store answers 500.
func AuthMiddleware(cfg AuthConfig) func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				unauthorized(w, r, msgNoToken)
				return
			}

			id, err := cfg.Resolver.ResolveCaller(r.Context(), token)
			switch {
			case err == nil:
			case isTokenError(err):
				logger.Warn("auth_token_rejected",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				unauthorized(w, r, msgTokenFailed)
				return
			default:
				logger.Error("auth_resolve_failed",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				envelope.Fail(w, r, http.StatusInternalServerError, "Server error while authorizing request")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithCaller(r.Context(), id)))
		})
	}
}

func isTokenError(err error) bool {
	return errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrExpiredToken)
}

func bearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	token := strings.TrimPrefix(authz, "Bearer ")
	if token == authz {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="tasks"`)
	envelope.Fail(w, r, http.StatusUnauthorized, msg)
}
