// Package store is the durable, relational half of the signal pipeline:
// Tickers, Subscriptions, UserPolicies, Signals, and Decisions, backed by
// Postgres through GORM, split into one typed repository per domain.
package store

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ashwnn/forward-factor/domain"
)

// DB holds the GORM connection and provides access to the underlying
// instance for repository construction.
type DB struct {
	gdb *gorm.DB
}

// Connect opens a Postgres connection through GORM.
func Connect(dsn string) (*DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &DB{gdb: gdb}, nil
}

// AutoMigrate creates/updates the five durable tables and their indexes,
// including the unique constraint on signals.dedupe_key required for
// race-free signal creation.
func (d *DB) AutoMigrate() error {
	return d.gdb.AutoMigrate(
		&domain.Ticker{},
		&domain.Subscription{},
		&domain.UserPolicy{},
		&domain.Signal{},
		&domain.Decision{},
	)
}

// Close releases the underlying connection pool.
func (d *DB) Close() error {
	sqlDB, err := d.gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping verifies the connection is alive, used by the /health endpoint.
func (d *DB) Ping(ctx context.Context) error {
	sqlDB, err := d.gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
