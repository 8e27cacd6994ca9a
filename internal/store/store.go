// Package store provides storage backends for RecipeBot favorites.
//
// It includes a JSON file store (the default), SQLite and PostgreSQL stores,
// and an in-memory store for tests.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BTreeMap/RecipeBot/internal/models"
)

// DSN types recognised by DetectDSNType.
const (
	DSNTypeJSON     = "json"
	DSNTypeSQLite   = "sqlite"
	DSNTypePostgres = "postgres"
	DSNTypeMemory   = "memory"
)

// ErrPersist marks a failed write of the favorites storage.
// Read failures never produce it; callers check it with errors.Is.
var ErrPersist = errors.New("favorites not persisted")

// FavoritesStore is the keyed, persistent mapping from user to favorited recipes.
type FavoritesStore interface {
	// Load returns the full favorites mapping.
	Load(ctx context.Context) (models.Favorites, error)
	// Save overwrites the storage with the given mapping.
	Save(ctx context.Context, favs models.Favorites) error
	// AddFavorite saves a recipe with rating 0 unless it is already saved.
	AddFavorite(ctx context.Context, userID, recipeID string) error
	// Rate sets the rating of a recipe, favoriting it if needed.
	// It reports whether the recipe was already a favorite.
	Rate(ctx context.Context, userID, recipeID string, stars int) (existed bool, err error)
	// ListFavorites returns the user's favorites by rating descending.
	ListFavorites(ctx context.Context, userID string) ([]models.FavoriteItem, error)
	// Close releases underlying resources.
	Close() error
}

// Opts holds configuration options for the stores.
type Opts struct {
	DSN string // file path for JSON and SQLite, connection string for Postgres
}

// Option defines a configuration option for a store.
type Option func(*Opts)

// WithJSONPath sets the path of the favorites JSON file.
func WithJSONPath(path string) Option {
	return func(o *Opts) {
		o.DSN = path
	}
}

// WithSQLiteDSN sets the SQLite database path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// DetectDSNType reports which backend a DSN refers to.
// Postgres URLs and key/value strings are "postgres", "memory" is the in-memory store,
// paths ending in .json are the JSON file store and anything else is SQLite.
func DetectDSNType(dsn string) string {
	trimmed := strings.TrimSpace(dsn)
	lower := strings.ToLower(trimmed)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"), strings.Contains(lower, "host="):
		return DSNTypePostgres
	case lower == DSNTypeMemory:
		return DSNTypeMemory
	case strings.HasSuffix(lower, ".json"):
		return DSNTypeJSON
	default:
		return DSNTypeSQLite
	}
}

// Open creates the store matching the DSN.
func Open(dsn string) (FavoritesStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("favorites DSN not set")
	}
	dsnType := DetectDSNType(dsn)
	slog.Debug("store.Open: selecting favorites backend", "dsn_type", dsnType)
	switch dsnType {
	case DSNTypePostgres:
		return NewPostgresStore(WithPostgresDSN(dsn))
	case DSNTypeMemory:
		return NewInMemoryStore(), nil
	case DSNTypeJSON:
		return NewJSONFileStore(WithJSONPath(dsn))
	default:
		return NewSQLiteStore(WithSQLiteDSN(dsn))
	}
}

func persistError(err error) error {
	return fmt.Errorf("%w: %w", ErrPersist, err)
}
