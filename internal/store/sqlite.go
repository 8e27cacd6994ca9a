// Package store provides storage backends for RecipeBot.
//
// This file implements an SQLite-backed favorites store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

var sqliteQueries = sqlQueries{
	selectAll:  `SELECT user_id, recipe_id, rating FROM favorites`,
	selectUser: `SELECT recipe_id, rating FROM favorites WHERE user_id = ? ORDER BY rating DESC, recipe_id ASC`,
	exists:     `SELECT 1 FROM favorites WHERE user_id = ? AND recipe_id = ?`,
	addIgnore: `INSERT INTO favorites (user_id, recipe_id, rating, created_at, updated_at)
		VALUES (?, ?, 0, ?, ?) ON CONFLICT (user_id, recipe_id) DO NOTHING`,
	upsertRate: `INSERT INTO favorites (user_id, recipe_id, rating, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, recipe_id) DO UPDATE SET rating = excluded.rating, updated_at = excluded.updated_at`,
	deleteAll: `DELETE FROM favorites`,
	insert:    `INSERT INTO favorites (user_id, recipe_id, rating, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
}

type SQLiteStore struct {
	sqlFavorites
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	// Apply options
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	slog.Debug("SQLite database directory verified/created", "dir", dir)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	// one writer at a time avoids SQLITE_BUSY between concurrent upserts
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		db.Close()
		return nil, err
	}

	slog.Debug("Running SQLite migrations")
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{sqlFavorites{db: db, q: sqliteQueries, name: "SQLiteStore"}}, nil
}
