// Package store provides storage backends for RecipeBot.
//
// This file implements the favorites store over a single JSON document.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/BTreeMap/RecipeBot/internal/models"
)

// Constants for the JSON file store
const (
	// DefaultDirPermissions defines the default permissions for storage directories
	DefaultDirPermissions = 0755
	// DefaultFilePermissions defines the permissions of the favorites file
	DefaultFilePermissions = 0644
	// DefaultJSONFileName is the favorites file name used inside the state directory
	DefaultJSONFileName = "favorites.json"
)

// JSONFileStore persists favorites as {user_id: {recipe_id: {rating: n}}}.
// The file is read at the start of every operation and rewritten at the end of
// every mutation; nothing is cached in between.
type JSONFileStore struct {
	path string
	// mu serialises load-modify-save cycles so concurrent handlers cannot drop each other's writes
	mu sync.Mutex
}

// NewJSONFileStore creates a JSON file store. The file itself is created on first save.
func NewJSONFileStore(opts ...Option) (*JSONFileStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewJSONFileStore invoked", "path", cfg.DSN)

	if cfg.DSN == "" {
		slog.Error("JSONFileStore path not set")
		return nil, fmt.Errorf("favorites file path not set")
	}

	dir := filepath.Dir(cfg.DSN)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create favorites directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create favorites directory: %w", err)
	}

	return &JSONFileStore{path: cfg.DSN}, nil
}

// Path returns the location of the favorites file.
func (s *JSONFileStore) Path() string {
	return s.path
}

// Load reads the favorites file. A missing or corrupt file yields an empty mapping
// and no error, so a broken file never blocks the bot.
func (s *JSONFileStore) Load(ctx context.Context) (models.Favorites, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(), nil
}

// Save overwrites the favorites file atomically.
func (s *JSONFileStore) Save(ctx context.Context, favs models.Favorites) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(favs)
}

func (s *JSONFileStore) AddFavorite(ctx context.Context, userID, recipeID string) error {
	if err := models.ValidateKey(userID, recipeID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	favs := s.load()
	if !favs.AddFavorite(userID, recipeID) {
		slog.Debug("JSONFileStore AddFavorite already saved", "userID", userID, "recipeID", recipeID)
		return nil
	}
	if err := s.save(favs); err != nil {
		return err
	}
	slog.Debug("JSONFileStore AddFavorite succeeded", "userID", userID, "recipeID", recipeID)
	return nil
}

func (s *JSONFileStore) Rate(ctx context.Context, userID, recipeID string, stars int) (bool, error) {
	if err := models.ValidateKey(userID, recipeID); err != nil {
		return false, err
	}
	if err := models.ValidateStars(stars); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	favs := s.load()
	existed := favs.Rate(userID, recipeID, stars)
	if err := s.save(favs); err != nil {
		return existed, err
	}
	slog.Debug("JSONFileStore Rate succeeded", "userID", userID, "recipeID", recipeID, "stars", stars, "existed", existed)
	return existed, nil
}

func (s *JSONFileStore) ListFavorites(ctx context.Context, userID string) ([]models.FavoriteItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load().List(userID), nil
}

func (s *JSONFileStore) Close() error {
	return nil
}

// load must be called with s.mu held.
func (s *JSONFileStore) load() models.Favorites {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Debug("JSONFileStore favorites file not found, starting empty", "path", s.path)
		} else {
			slog.Warn("JSONFileStore failed to read favorites, starting empty", "error", err, "path", s.path)
		}
		return models.Favorites{}
	}

	favs := models.Favorites{}
	if err := json.Unmarshal(data, &favs); err != nil {
		slog.Warn("JSONFileStore favorites file is corrupt, starting empty", "error", err, "path", s.path)
		return models.Favorites{}
	}
	// null documents and null users decode to nil maps
	if favs == nil {
		favs = models.Favorites{}
	}
	for user, entries := range favs {
		if entries == nil {
			favs[user] = make(map[string]models.FavoriteEntry)
		}
	}
	return favs
}

// save must be called with s.mu held. The new content is written to a temporary file
// in the same directory and renamed over the old one.
func (s *JSONFileStore) save(favs models.Favorites) error {
	data, err := json.Marshal(favs)
	if err != nil {
		slog.Error("JSONFileStore marshal failed", "error", err)
		return persistError(fmt.Errorf("marshal favorites: %w", err))
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		slog.Error("JSONFileStore failed to create temp file", "error", err, "dir", dir)
		return persistError(fmt.Errorf("create temp file: %w", err))
	}
	tmpName := tmp.Name()
	cleanup := func() {
		if rmErr := os.Remove(tmpName); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			slog.Warn("JSONFileStore failed to remove temp file", "error", rmErr, "path", tmpName)
		}
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		slog.Error("JSONFileStore write failed", "error", err, "path", tmpName)
		return persistError(fmt.Errorf("write temp file: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		slog.Error("JSONFileStore sync failed", "error", err, "path", tmpName)
		return persistError(fmt.Errorf("sync temp file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		slog.Error("JSONFileStore close failed", "error", err, "path", tmpName)
		return persistError(fmt.Errorf("close temp file: %w", err))
	}
	if err := os.Chmod(tmpName, DefaultFilePermissions); err != nil {
		slog.Warn("JSONFileStore chmod failed", "error", err, "path", tmpName)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		slog.Error("JSONFileStore rename failed", "error", err, "from", tmpName, "to", s.path)
		return persistError(fmt.Errorf("replace favorites file: %w", err))
	}

	slog.Debug("JSONFileStore saved favorites", "path", s.path, "users", len(favs))
	return nil
}
