package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/s1natex/tasktracker-api/internal/envelope"
)

// RegisterRoutes mounts the public /auth endpoints.
func RegisterRoutes(r chi.Router, svc *Service, logger *slog.Logger) {
	r.Post("/auth/register", register(svc, logger))
	r.Post("/auth/login", login(svc, logger))
}

func register(svc *Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in RegisterInput
		if err := envelope.Decode(w, r, &in); err != nil {
			envelope.Fail(w, r, http.StatusBadRequest, err.Error())
			return
		}

		sess, err := svc.Register(r.Context(), in)
		if err != nil {
			if msg, ok := envelope.ValidationMessage(err); ok {
				envelope.Fail(w, r, http.StatusBadRequest, msg)
				return
			}
			if errors.Is(err, ErrUserExists) {
				envelope.Fail(w, r, http.StatusBadRequest, "User already exists")
				return
			}
			logger.Error("user_register_failed", slog.String("error", err.Error()))
			envelope.Fail(w, r, http.StatusInternalServerError, "Server error while registering user")
			return
		}
		envelope.OK(w, r, http.StatusCreated, sess, "User registered successfully")
	}
}

func login(svc *Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in LoginInput
		if err := envelope.Decode(w, r, &in); err != nil {
			envelope.Fail(w, r, http.StatusBadRequest, err.Error())
			return
		}

		sess, err := svc.Login(r.Context(), in)
		if err != nil {
			if msg, ok := envelope.ValidationMessage(err); ok {
				envelope.Fail(w, r, http.StatusBadRequest, msg)
				return
			}
			if errors.Is(err, ErrInvalidCredentials) {
				envelope.Fail(w, r, http.StatusUnauthorized, "Invalid email or password")
				return
			}
			logger.Error("user_login_failed", slog.String("error", err.Error()))
			envelope.Fail(w, r, http.StatusInternalServerError, "Server error while logging in")
			return
		}
		envelope.OK(w, r, http.StatusOK, sess, "Logged in successfully")
	}
}

// MeHandler returns the authenticated caller's profile. It must run behind the auth middleware.
func MeHandler(svc *Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := CallerFrom(r.Context())
		if !ok {
			envelope.Fail(w, r, http.StatusUnauthorized, "Not authorized, no token")
			return
		}
		u, err := svc.Me(r.Context(), caller.UserID)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				envelope.Fail(w, r, http.StatusNotFound, "User not found")
				return
			}
			logger.Error("user_fetch_failed", slog.String("user_id", caller.UserID), slog.String("error", err.Error()))
			envelope.Fail(w, r, http.StatusInternalServerError, "Server error while fetching user")
			return
		}
		envelope.OK(w, r, http.StatusOK, u, "")
	}
}
