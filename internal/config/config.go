package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type StoreDriver string

const (
	StoreMemory   StoreDriver = "memory"
	StoreSQLite   StoreDriver = "sqlite"
	StorePostgres StoreDriver = "postgres"
)

type TracingExporter string

const (
	TracingNone   TracingExporter = "none"
	TracingStdout TracingExporter = "stdout"
	TracingOTLP   TracingExporter = "otlp"
)

const defaultJWTSecret = "change-me-in-production"

type Config struct {
	Addr            string
	LogLevel        slog.Level
	StoreDriver     StoreDriver
	SQLitePath      string
	DatabaseURL     string
	JWTSecret       string
	JWTTTL          time.Duration
	JWTIssuer       string
	BcryptCost      int
	RateLimitRPS    float64
	RateLimitBurst  int
	CORSOrigins     []string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	TracingExporter TracingExporter
	ServiceName     string
}

func Default() Config {
	return Config{
		Addr:            ":8080",
		LogLevel:        slog.LevelInfo,
		StoreDriver:     StoreSQLite,
		SQLitePath:      "data/tasks.db",
		JWTSecret:       defaultJWTSecret,
		JWTTTL:          30 * 24 * time.Hour,
		JWTIssuer:       "tasktracker-api",
		BcryptCost:      12,
		RateLimitRPS:    0,
		RateLimitBurst:  20,
		CORSOrigins:     []string{"*"},
		RequestTimeout:  15 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		TracingExporter: TracingNone,
		ServiceName:     "tasktracker-api",
	}
}

// Load reads envFile (if non-empty and present) into the process environment and
// then builds a Config from it. Variables already set in the environment win.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an environment lookup function.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	var errs []error
	if v, ok := get("ADDR"); ok {
		cfg.Addr = v
	} else if v, ok := get("PORT"); ok {
		cfg.Addr = ":" + v
	}
	if v, ok := get("LOG_LEVEL"); ok {
		cfg.LogLevel = ParseLevel(v)
	}
	if v, ok := get("STORE_DRIVER"); ok {
		cfg.StoreDriver = StoreDriver(strings.ToLower(v))
	}
	if v, ok := get("SQLITE_PATH"); ok {
		cfg.SQLitePath = v
	}
	if v, ok := get("DATABASE_URL"); ok {
		cfg.DatabaseURL = v
	}
	if v, ok := get("JWT_SECRET"); ok {
		cfg.JWTSecret = v
	}
	if v, ok := get("JWT_ISSUER"); ok {
		cfg.JWTIssuer = v
	}
	if v, ok := get("OTEL_SERVICE_NAME"); ok {
		cfg.ServiceName = v
	}
	if v, ok := get("TRACING_EXPORTER"); ok {
		cfg.TracingExporter = TracingExporter(strings.ToLower(v))
	}
	if v, ok := get("CORS_ORIGINS"); ok {
		cfg.CORSOrigins = splitList(v)
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"JWT_TTL", &cfg.JWTTTL},
		{"REQUEST_TIMEOUT", &cfg.RequestTimeout},
		{"SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout},
	}
	for _, d := range durations {
		v, ok := get(d.key)
		if !ok {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.key, err))
			continue
		}
		*d.dst = parsed
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"BCRYPT_COST", &cfg.BcryptCost},
		{"RATE_LIMIT_BURST", &cfg.RateLimitBurst},
	}
	for _, i := range ints {
		v, ok := get(i.key)
		if !ok {
			continue
		}
		parsed, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", i.key, err))
			continue
		}
		*i.dst = parsed
	}

	if v, ok := get("RATE_LIMIT_RPS"); ok {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("RATE_LIMIT_RPS: %w", err))
		} else {
			cfg.RateLimitRPS = parsed
		}
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	switch c.StoreDriver {
	case StoreMemory:
	case StoreSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite store"))
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}
	switch c.TracingExporter {
	case TracingNone, TracingStdout, TracingOTLP:
	default:
		errs = append(errs, fmt.Errorf("unknown TRACING_EXPORTER %q", c.TracingExporter))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET must not be empty"))
	}
	if c.JWTTTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be positive"))
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost))
	}
	return errors.Join(errs...)
}

// InsecureSecret reports whether the JWT secret is still the built-in default.
func (c Config) InsecureSecret() bool { return c.JWTSecret == defaultJWTSecret }

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
