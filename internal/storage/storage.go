// Package storage opens the PostStore selected by configuration.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hypergopher/blogdesk"
	"github.com/hypergopher/blogdesk/bboltstore"
	"github.com/hypergopher/blogdesk/bunstore"
	"github.com/hypergopher/blogdesk/internal/config"
	"github.com/hypergopher/blogdesk/sqlitestore"
)

// Open builds and initialises the store for cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (blogdesk.PostStore, error) {
	store, err := build(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := store.Init(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("init %s store: %w", cfg.Driver, err)
	}

	logger.Info("post store ready", slog.String("driver", cfg.Driver))
	return store, nil
}

func build(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (blogdesk.PostStore, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return blogdesk.NewMemoryPostStore(), nil

	case config.DriverSQLite:
		if err := ensureDir(filepath.Dir(cfg.DSN)); err != nil {
			return nil, err
		}
		db, err := sqlitestore.OpenDB(cfg.DSN)
		if err != nil {
			return nil, err
		}
		return sqlitestore.NewSQLiteStore(db, cfg.DSN, "posts"), nil

	case config.DriverBolt:
		return bboltstore.New(cfg.DataDir, logger.With(slog.String("store", "bolt"))), nil

	case config.DriverBun:
		if cfg.Dialect == config.DialectSQLite {
			if err := ensureDir(cfg.DataDir); err != nil {
				return nil, err
			}
		}
		db, err := bunstore.OpenDB(ctx, cfg.Dialect, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return bunstore.New(db), nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func ensureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	return nil
}
