package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/BTreeMap/RecipeBot/internal/models"
)

// sqlQueries holds the dialect-specific statements of a SQL favorites backend.
type sqlQueries struct {
	selectAll  string
	selectUser string
	exists     string
	addIgnore  string
	upsertRate string
	deleteAll  string
	insert     string
}

// sqlFavorites implements FavoritesStore on top of database/sql.
// Mutations are single statements or short transactions, so no process lock is needed.
type sqlFavorites struct {
	db   *sql.DB
	q    sqlQueries
	name string // backend name used in log messages
}

func (s *sqlFavorites) Load(ctx context.Context) (models.Favorites, error) {
	rows, err := s.db.QueryContext(ctx, s.q.selectAll)
	if err != nil {
		slog.Error(s.name+" Load query failed", "error", err)
		return nil, fmt.Errorf("failed to query favorites: %w", err)
	}
	defer rows.Close()

	favs := models.Favorites{}
	for rows.Next() {
		var userID, recipeID string
		var rating int
		if err := rows.Scan(&userID, &recipeID, &rating); err != nil {
			slog.Error(s.name+" Load scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan favorite row: %w", err)
		}
		favs.User(userID)[recipeID] = models.FavoriteEntry{Rating: rating}
	}
	if err := rows.Err(); err != nil {
		slog.Error(s.name+" Load rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate favorite rows: %w", err)
	}
	slog.Debug(s.name+" Load succeeded", "users", len(favs))
	return favs, nil
}

func (s *sqlFavorites) Save(ctx context.Context, favs models.Favorites) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error(s.name+" Save begin failed", "error", err)
		return persistError(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.q.deleteAll); err != nil {
		slog.Error(s.name+" Save delete failed", "error", err)
		return persistError(err)
	}
	now := time.Now()
	for userID, entries := range favs {
		for recipeID, entry := range entries {
			if _, err := tx.ExecContext(ctx, s.q.insert, userID, recipeID, entry.Rating, now, now); err != nil {
				slog.Error(s.name+" Save insert failed", "error", err, "userID", userID, "recipeID", recipeID)
				return persistError(err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		slog.Error(s.name+" Save commit failed", "error", err)
		return persistError(err)
	}
	slog.Debug(s.name+" Save succeeded", "users", len(favs))
	return nil
}

func (s *sqlFavorites) AddFavorite(ctx context.Context, userID, recipeID string) error {
	if err := models.ValidateKey(userID, recipeID); err != nil {
		return err
	}
	now := time.Now()
	if _, err := s.db.ExecContext(ctx, s.q.addIgnore, userID, recipeID, now, now); err != nil {
		slog.Error(s.name+" AddFavorite failed", "error", err, "userID", userID, "recipeID", recipeID)
		return persistError(err)
	}
	slog.Debug(s.name+" AddFavorite succeeded", "userID", userID, "recipeID", recipeID)
	return nil
}

func (s *sqlFavorites) Rate(ctx context.Context, userID, recipeID string, stars int) (bool, error) {
	if err := models.ValidateKey(userID, recipeID); err != nil {
		return false, err
	}
	if err := models.ValidateStars(stars); err != nil {
		return false, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error(s.name+" Rate begin failed", "error", err)
		return false, persistError(err)
	}
	defer tx.Rollback()

	existed := true
	var one int
	err = tx.QueryRowContext(ctx, s.q.exists, userID, recipeID).Scan(&one)
	if err == sql.ErrNoRows {
		existed = false
	} else if err != nil {
		slog.Error(s.name+" Rate lookup failed", "error", err, "userID", userID, "recipeID", recipeID)
		return false, fmt.Errorf("failed to look up favorite: %w", err)
	}

	now := time.Now()
	if _, err := tx.ExecContext(ctx, s.q.upsertRate, userID, recipeID, stars, now, now); err != nil {
		slog.Error(s.name+" Rate upsert failed", "error", err, "userID", userID, "recipeID", recipeID)
		return existed, persistError(err)
	}
	if err := tx.Commit(); err != nil {
		slog.Error(s.name+" Rate commit failed", "error", err)
		return existed, persistError(err)
	}
	slog.Debug(s.name+" Rate succeeded", "userID", userID, "recipeID", recipeID, "stars", stars, "existed", existed)
	return existed, nil
}

func (s *sqlFavorites) ListFavorites(ctx context.Context, userID string) ([]models.FavoriteItem, error) {
	rows, err := s.db.QueryContext(ctx, s.q.selectUser, userID)
	if err != nil {
		slog.Error(s.name+" ListFavorites query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query favorites for %s: %w", userID, err)
	}
	defer rows.Close()

	items := []models.FavoriteItem{}
	for rows.Next() {
		var item models.FavoriteItem
		if err := rows.Scan(&item.RecipeID, &item.Rating); err != nil {
			slog.Error(s.name+" ListFavorites scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan favorite row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		slog.Error(s.name+" ListFavorites rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate favorite rows: %w", err)
	}
	// the ORDER BY already matches; sorting keeps the tie order identical across backends
	models.SortFavorites(items)
	slog.Debug(s.name+" ListFavorites succeeded", "userID", userID, "count", len(items))
	return items, nil
}

// Close closes the database connection.
func (s *sqlFavorites) Close() error {
	slog.Debug("Closing " + s.name + " database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close "+s.name+" database", "error", err)
	}
	return err
}

// clear deletes all favorites (for tests).
func (s *sqlFavorites) clear() error {
	_, err := s.db.Exec(s.q.deleteAll)
	return err
}
