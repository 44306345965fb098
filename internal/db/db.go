// Package db opens the document store selected by STORE_DRIVER.
package db

import (
	"context"
	"fmt"

	"github.com/geocoder89/eventform/internal/config"
	"github.com/geocoder89/eventform/internal/docstore"
	"github.com/geocoder89/eventform/internal/docstore/memory"
	"github.com/geocoder89/eventform/internal/docstore/postgres"
	"github.com/geocoder89/eventform/internal/docstore/sqlite"
	"github.com/geocoder89/eventform/internal/docstore/surreal"
)

func Open(ctx context.Context, cfg config.Config) (docstore.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory, "":
		return memory.New(), nil

	case config.DriverPostgres:
		s, err := postgres.Open(ctx, cfg.DBURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return s, nil

	case config.DriverSQLite:
		s, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return s, nil

	case config.DriverSurreal:
		s, err := surreal.Open(ctx, surreal.Config{
			Host:      cfg.Surreal.Host,
			Port:      cfg.Surreal.Port,
			User:      cfg.Surreal.User,
			Password:  cfg.Surreal.Password,
			Namespace: cfg.Surreal.Namespace,
			Database:  cfg.Surreal.Database,
		})
		if err != nil {
			return nil, fmt.Errorf("open surreal store: %w", err)
		}
		return s, nil

	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}
