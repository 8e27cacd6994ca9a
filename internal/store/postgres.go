// Package store provides storage backends for RecipeBot.
//
// This file implements a PostgreSQL-backed favorites store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 10
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 5
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

var postgresQueries = sqlQueries{
	selectAll:  `SELECT user_id, recipe_id, rating FROM favorites`,
	selectUser: `SELECT recipe_id, rating FROM favorites WHERE user_id = $1 ORDER BY rating DESC, recipe_id ASC`,
	exists:     `SELECT 1 FROM favorites WHERE user_id = $1 AND recipe_id = $2`,
	addIgnore: `INSERT INTO favorites (user_id, recipe_id, rating, created_at, updated_at)
		VALUES ($1, $2, 0, $3, $4) ON CONFLICT (user_id, recipe_id) DO NOTHING`,
	upsertRate: `INSERT INTO favorites (user_id, recipe_id, rating, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, recipe_id) DO UPDATE SET rating = EXCLUDED.rating, updated_at = EXCLUDED.updated_at`,
	deleteAll: `DELETE FROM favorites`,
	insert:    `INSERT INTO favorites (user_id, recipe_id, rating, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
}

type PostgresStore struct {
	sqlFavorites
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		db.Close()
		return nil, err
	}
	slog.Debug("Postgres ping successful")

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{sqlFavorites{db: db, q: postgresQueries, name: "PostgresStore"}}, nil
}
