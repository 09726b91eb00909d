// Package app holds the bootstrap shared by the server and the admin CLI.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/movie-ticketing/internal/booking"
	"github.com/iliyamo/movie-ticketing/internal/config"
	"github.com/iliyamo/movie-ticketing/internal/database"
	"github.com/iliyamo/movie-ticketing/internal/handler"
	"github.com/iliyamo/movie-ticketing/internal/repository"
)

// Store is everything a storage driver provides.
type Store interface {
	booking.LedgerStore
	booking.Inventory
	booking.Reader
	handler.Catalog
}

// Backend is an opened storage driver.
type Backend struct {
	Store Store
	// DB is nil for the memory driver.
	DB *sql.DB
}

// Ping checks the backend; the memory driver is always up.
func (b *Backend) Ping(ctx context.Context) error {
	if b.DB == nil {
		return nil
	}
	return b.DB.PingContext(ctx)
}

// Close releases the database pool.
func (b *Backend) Close() error {
	if b.DB == nil {
		return nil
	}
	return b.DB.Close()
}

// OpenBackend opens the driver selected by cfg.StorageDriver, applying
// migrations and the seed when configured.
func OpenBackend(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (*Backend, error) {
	var b Backend
	switch cfg.StorageDriver {
	case config.DriverMemory:
		b.Store = repository.NewMemoryStore(nil)
	case config.DriverMySQL:
		db, err := database.Open(ctx, database.Options{
			User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort,
			Name: cfg.DBName, MaxConns: cfg.DBMaxConns,
		})
		if err != nil {
			return nil, err
		}
		if cfg.DBAutoMigrate {
			if err := database.RunMigrations(ctx, db, log); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
		b.DB = db
		b.Store = repository.NewSQLStore(db)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
	log.WithField("driver", cfg.StorageDriver).Info("storage ready")

	if cfg.DBSeed {
		if err := database.Seed(ctx, b.Store, time.Now(), log); err != nil {
			_ = b.Close()
			return nil, err
		}
	}
	return &b, nil
}
