package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/s1natex/tasktracker-api/internal/auth"
	"github.com/s1natex/tasktracker-api/internal/config"
	"github.com/s1natex/tasktracker-api/internal/storage"
	"github.com/s1natex/tasktracker-api/internal/tasks"
)

// stores bundles the repositories of one backing store with its lifecycle hooks.
type stores struct {
	users auth.UserRepository
	tasks tasks.Repository
	ping  func(context.Context) error
	close func()
}

func memoryStores() *stores {
	return &stores{
		users: auth.NewInMemoryUserRepo(),
		tasks: tasks.NewInMemoryRepo(),
		ping:  func(context.Context) error { return nil },
		close: func() {},
	}
}

// openStores opens and migrates the store selected by cfg.StoreDriver.
func openStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (*stores, error) {
	switch cfg.StoreDriver {
	case config.StoreMemory:
		logger.Warn("store_memory", slog.String("note", "data is lost on restart"))
		return memoryStores(), nil

	case config.StoreSQLite:
		dsn, err := storage.SQLiteFileDSN(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("sqlite dsn: %w", err)
		}
		db, err := storage.OpenSQLite(dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		if err := storage.MigrateSQLite(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		logger.Info("store_open", slog.String("driver", string(cfg.StoreDriver)), slog.String("path", cfg.SQLitePath))
		return &stores{
			users: auth.NewSQLiteUserRepo(db),
			tasks: tasks.NewSQLiteRepo(db),
			ping:  db.PingContext,
			close: func() { _ = db.Close() },
		}, nil

	case config.StorePostgres:
		pool, err := storage.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := storage.MigratePostgres(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		logger.Info("store_open", slog.String("driver", string(cfg.StoreDriver)))
		return &stores{
			users: auth.NewPostgresUserRepo(pool),
			tasks: tasks.NewPostgresRepo(pool),
			ping:  pool.Ping,
			close: pool.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
