// Package db opens the relationship store and carries its embedded schema
// migrations.
package db

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	maxOpenConns    = 10
	connMaxIdleTime = 5 * time.Minute
	pingTimeout     = 5 * time.Second
)

// Open connects to the relationship store at dsn and verifies the
// connection before handing it out. The caller owns the handle and must
// Close it on shutdown.
func Open(dsn string) (*sql.DB, error) {
	store, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	store.SetMaxOpenConns(maxOpenConns)
	store.SetConnMaxIdleTime(connMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := store.PingContext(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}
