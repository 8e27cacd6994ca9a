package store

import (
	"context"
	"sync"

	"github.com/BTreeMap/RecipeBot/internal/models"
)

// InMemoryStore keeps favorites in process memory. Every operation works on a copy
// so callers never share the stored maps.
type InMemoryStore struct {
	mu   sync.Mutex
	favs models.Favorites
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{favs: models.Favorites{}}
}

func (s *InMemoryStore) Load(ctx context.Context) (models.Favorites, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneFavorites(s.favs), nil
}

func (s *InMemoryStore) Save(ctx context.Context, favs models.Favorites) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.favs = cloneFavorites(favs)
	return nil
}

func (s *InMemoryStore) AddFavorite(ctx context.Context, userID, recipeID string) error {
	if err := models.ValidateKey(userID, recipeID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.favs.AddFavorite(userID, recipeID)
	return nil
}

func (s *InMemoryStore) Rate(ctx context.Context, userID, recipeID string, stars int) (bool, error) {
	if err := models.ValidateKey(userID, recipeID); err != nil {
		return false, err
	}
	if err := models.ValidateStars(stars); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.favs.Rate(userID, recipeID, stars), nil
}

func (s *InMemoryStore) ListFavorites(ctx context.Context, userID string) ([]models.FavoriteItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.favs.List(userID), nil
}

func (s *InMemoryStore) Close() error {
	return nil
}

func cloneFavorites(favs models.Favorites) models.Favorites {
	out := make(models.Favorites, len(favs))
	for user, entries := range favs {
		inner := make(map[string]models.FavoriteEntry, len(entries))
		for id, entry := range entries {
			inner[id] = entry
		}
		out[user] = inner
	}
	return out
}
