package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/BTreeMap/RecipeBot/internal/store"
)

// DefaultBackupTimeout bounds a single favorites snapshot.
const DefaultBackupTimeout = 30 * time.Second

// backupTimeFormat names snapshot files; it sorts chronologically.
const backupTimeFormat = "20060102T150405Z"

// BackupFavorites writes a JSON snapshot of src into dir and returns the file path.
// Snapshots use the same document layout as the JSON favorites store, so a
// snapshot can be used directly as FAVORITES_DSN.
func BackupFavorites(ctx context.Context, src store.FavoritesStore, dir string, now time.Time) (string, error) {
	favs, err := src.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load favorites for backup: %w", err)
	}
	path := filepath.Join(dir, "favorites-"+now.UTC().Format(backupTimeFormat)+".json")
	dst, err := store.NewJSONFileStore(store.WithJSONPath(path))
	if err != nil {
		return "", err
	}
	defer dst.Close()
	if err := dst.Save(ctx, favs); err != nil {
		return "", err
	}
	slog.Info("Favorites backup written", "path", path, "users", len(favs))
	return path, nil
}

// ScheduleBackup registers a favorites snapshot job on s.
func ScheduleBackup(s *Scheduler, expr string, src store.FavoritesStore, dir string) error {
	return s.AddJob(expr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), DefaultBackupTimeout)
		defer cancel()
		if _, err := BackupFavorites(ctx, src, dir, time.Now()); err != nil {
			slog.Error("Scheduled favorites backup failed", "error", err, "dir", dir)
		}
	})
}
