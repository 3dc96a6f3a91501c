package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/s1natex/tasktracker-api/internal/auth"
	"github.com/s1natex/tasktracker-api/internal/config"
	"github.com/s1natex/tasktracker-api/internal/envelope"
	"github.com/s1natex/tasktracker-api/internal/middleware"
	"github.com/s1natex/tasktracker-api/internal/tasks"
	"github.com/s1natex/tasktracker-api/internal/telemetry"
)

func main() {
	envFile := flag.String("env", ".env", "optional dotenv file")
	flag.Parse()

	if err := run(*envFile); err != nil {
		slog.Error("server_error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(envFile string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger) // for third-party packages that use slog
	if cfg.InsecureSecret() {
		logger.Warn("jwt_secret_default", slog.String("hint", "set JWT_SECRET"))
	}

	ctx := context.Background()
	shutdownTracing, err := telemetry.Setup(ctx, cfg.TracingExporter, cfg.ServiceName)
	if err != nil {
		return err
	}

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(cfg, st, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.RequestTimeout,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		logger.Info("server_listen", slog.String("addr", cfg.Addr), slog.String("store", string(cfg.StoreDriver)))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
	}()

	// SIGINT/SIGTERM drain the server first, then release the store and flush spans.
	wait := gfshutdown.GracefulShutdown(ctx, cfg.ShutdownTimeout, map[string]gfshutdown.Operation{
		"http-server": func(ctx context.Context) error {
			logger.Info("server_shutdown", slog.Duration("timeout", cfg.ShutdownTimeout))
			err := srv.Shutdown(ctx)
			st.close()
			if tErr := shutdownTracing(ctx); tErr != nil {
				logger.Warn("tracing_shutdown_failed", slog.String("error", tErr.Error()))
			}
			return err
		},
	})

	select {
	case err := <-srvErr:
		st.close()
		_ = shutdownTracing(ctx)
		return err
	case code := <-wait:
		if code != 0 {
			return fmt.Errorf("shutdown finished with exit code %d", code)
		}
		logger.Info("server_stopped")
		return nil
	}
}

// newRouter wires the health and metrics endpoints, auth and task routes, and the
// middleware stack.
func newRouter(cfg config.Config, st *stores, logger *slog.Logger) *chi.Mux {
	tokens := auth.NewTokenManager(auth.TokenConfig{
		Secret: cfg.JWTSecret,
		TTL:    cfg.JWTTTL,
		Issuer: cfg.JWTIssuer,
	})
	authSvc := auth.NewService(st.users, auth.NewPasswordHasher(cfg.BcryptCost), tokens)
	taskSvc := tasks.NewService(st.tasks)

	r := chi.NewRouter()

	// ---- Middleware stack (order matters a bit) ----
	// RequestID first so downstream can include it (logger, traces)
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.TracingMiddleware)
	r.Use(middleware.MetricsMiddleware)
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.RateLimitMiddleware(middleware.NewLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)))
	r.Use(chimw.Timeout(cfg.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Trace-Id", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300, // 5 minutes
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		envelope.Fail(w, r, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		envelope.Fail(w, r, http.StatusMethodNotAllowed, "Method not allowed")
	})

	// ---- Routes ----
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := st.ping(r.Context()); err != nil {
			logger.Error("health_store_failed", slog.String("error", err.Error()))
			envelope.Write(w, r, http.StatusServiceUnavailable, envelope.Envelope{
				Success: false,
				Data:    map[string]string{"status": "unavailable"},
				Message: "Store unavailable",
			})
			return
		}
		envelope.OK(w, r, http.StatusOK, map[string]string{"status": "ok"}, "")
	})
	r.Method(http.MethodGet, "/metrics", middleware.MetricsHandler())

	auth.RegisterRoutes(r, authSvc, logger)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(middleware.AuthConfig{Resolver: authSvc, Logger: logger}))
		r.Get("/auth/me", auth.MeHandler(authSvc, logger))
		tasks.RegisterRoutes(r, taskSvc, logger)
	})

	return r
}

func newLogger(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler)
}
