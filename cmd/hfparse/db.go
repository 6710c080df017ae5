package main

import (
	"context"
	"fmt"
	"strings"

	"hfparse/internal/config"
	"hfparse/internal/store"
	"hfparse/internal/store/postgres"
	"hfparse/internal/store/sqlite"
)

// openDB opens the turn log named by the configured DSN and makes sure its
// schema exists.
func openDB(ctx context.Context, cfg *config.ProjectConfig) (store.Store, error) {
	dsn := cfg.Database.DSN
	var (
		db  store.Store
		err error
	)
	switch {
	case dsn == "":
		return nil, fmt.Errorf("database.dsn is not configured")
	case strings.HasPrefix(dsn, "sqlite://"):
		var c *sqlite.Client
		c, err = sqlite.Open(ctx, dsn, cfg.Resolve("."))
		if err == nil {
			db = c
		}
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		var c *postgres.Client
		c, err = postgres.New(ctx, dsn)
		if err == nil {
			db = c
		}
	default:
		return nil, fmt.Errorf("unsupported database DSN scheme: %s", dsn)
	}
	if err != nil {
		return nil, err
	}

	if err := db.EnsureSchema(ctx); err != nil {
		db.Close(ctx)
		return nil, err
	}
	return db, nil
}
