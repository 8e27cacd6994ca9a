// Package testutil provides common test utilities and helpers for RecipeBot tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/BTreeMap/RecipeBot/internal/catalog"
	"github.com/BTreeMap/RecipeBot/internal/models"
	"github.com/BTreeMap/RecipeBot/internal/store"
)

// TB is the subset of testing.TB used by the assertion helpers.
type TB interface {
	Helper()
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
}

// SampleRecipes returns a small fixed set of recipes used across tests.
func SampleRecipes() []models.Recipe {
	return []models.Recipe{
		{
			ID:           "53065",
			Name:         "Sushi",
			Category:     "Seafood",
			Area:         "Japanese",
			Thumbnail:    "https://www.themealdb.com/images/media/meals/g046bb1663960946.jpg",
			Instructions: "Cook the rice. Roll with fish.",
			Video:        "https://www.youtube.com/watch?v=ub68OxEypaY",
		},
		{
			ID:           "52771",
			Name:         "Spicy Arrabiata Penne",
			Category:     "Vegetarian",
			Area:         "Italian",
			Thumbnail:    "https://www.themealdb.com/images/media/meals/ustsqw1468250014.jpg",
			Instructions: "Bring a large pot of water to a boil.",
		},
		{
			ID:        "52982",
			Name:      "Spaghetti alla Carbonara",
			Category:  "Pasta",
			Area:      "Italian",
			Thumbnail: "https://www.themealdb.com/images/media/meals/llcbn01574260722.jpg",
		},
	}
}

// FakeCatalog is an in-memory catalog.Catalog. Search matches names by
// case-insensitive substring and returns recipes in insertion order.
type FakeCatalog struct {
	mu        sync.Mutex
	recipes   []models.Recipe
	SearchErr error
	LookupErr error
	Searches  []string
	Lookups   []string
}

var _ catalog.Catalog = (*FakeCatalog)(nil)

// NewFakeCatalog creates a FakeCatalog holding the given recipes.
func NewFakeCatalog(recipes ...models.Recipe) *FakeCatalog {
	return &FakeCatalog{recipes: recipes}
}

func (f *FakeCatalog) Search(ctx context.Context, name string) ([]models.Recipe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Searches = append(f.Searches, name)
	if f.SearchErr != nil {
		return nil, f.SearchErr
	}
	needle := strings.ToLower(name)
	found := []models.Recipe{}
	for _, r := range f.recipes {
		if strings.Contains(strings.ToLower(r.Name), needle) {
			found = append(found, r)
		}
	}
	return found, nil
}

func (f *FakeCatalog) Lookup(ctx context.Context, id string) (*models.Recipe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Lookups = append(f.Lookups, id)
	if f.LookupErr != nil {
		return nil, f.LookupErr
	}
	for _, r := range f.recipes {
		if r.ID == id {
			r := r
			return &r, nil
		}
	}
	return nil, catalog.ErrNotFound
}

// SearchCount returns how many searches were made.
func (f *FakeCatalog) SearchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Searches)
}

// RecordingSender records every message it is asked to send.
type RecordingSender struct {
	mu       sync.Mutex
	messages []models.Message
	Err      error
}

func (s *RecordingSender) Send(ctx context.Context, msg models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return s.Err
}

// Messages returns a copy of the recorded messages.
func (s *RecordingSender) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Message(nil), s.messages...)
}

// Reset forgets the recorded messages.
func (s *RecordingSender) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
}

// Texts returns the text of every recorded message.
func Texts(msgs []models.Message) []string {
	texts := make([]string, len(msgs))
	for i, m := range msgs {
		texts[i] = m.Text
	}
	return texts
}

// CountButtons returns the number of inline buttons across msgs.
func CountButtons(msgs []models.Message) int {
	n := 0
	for _, m := range msgs {
		for _, row := range m.Buttons {
			n += len(row)
		}
	}
	return n
}

// SeedFavorites stores favorites for a user, rating each recipe with the given stars (0 = unrated).
func SeedFavorites(t TB, st store.FavoritesStore, userID string, ratings map[string]int) {
	t.Helper()
	ctx := context.Background()
	for recipeID, stars := range ratings {
		if err := st.AddFavorite(ctx, userID, recipeID); err != nil {
			t.Fatalf("failed to add favorite %s: %v", recipeID, err)
		}
		if stars == models.RatingUnrated {
			continue
		}
		if _, err := st.Rate(ctx, userID, recipeID, stars); err != nil {
			t.Fatalf("failed to rate favorite %s: %v", recipeID, err)
		}
	}
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t TB, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// AssertJSONResponse decodes JSON response and validates the status field.
func AssertJSONResponse(t TB, rr *httptest.ResponseRecorder, expectedStatus string) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
		return nil
	}

	if status, ok := response["status"].(string); ok {
		if status != expectedStatus {
			t.Errorf("expected status '%s', got '%s'", expectedStatus, status)
		}
	} else {
		t.Errorf("response missing or invalid 'status' field")
	}

	return response
}

// CreateHTTPRequest creates an HTTP request with optional JSON body for testing.
func CreateHTTPRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		t.Fatalf("failed to create HTTP request: %v", err)
	}
	return req
}
