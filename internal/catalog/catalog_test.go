package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BTreeMap/RecipeBot/internal/models"
)

const arrabiataJSON = `{"meals":[{"idMeal":"52771","strMeal":"Spicy Arrabiata Penne","strCategory":"Vegetarian","strArea":"Italian","strMealThumb":"https://img/arrabiata.jpg","strInstructions":"Bring a large pot of water to a boil. ","strYoutube":"https://www.youtube.com/watch?v=1IszT_guI08","strTags":"Pasta,Curry"}]}`

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(WithBaseURL(srv.URL+"/"), WithTimeout(time.Second))
}

func TestClient_Search(t *testing.T) {
	var gotPath, gotQuery string
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("s")
		fmt.Fprint(w, arrabiataJSON)
	})

	recipes, err := c.Search(context.Background(), "  arrabiata ")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if gotPath != "/search.php" || gotQuery != "arrabiata" {
		t.Errorf("unexpected request path=%q query=%q", gotPath, gotQuery)
	}
	if len(recipes) != 1 {
		t.Fatalf("expected 1 recipe, got %d", len(recipes))
	}
	r := recipes[0]
	if r.ID != "52771" || r.Name != "Spicy Arrabiata Penne" || r.Area != "Italian" {
		t.Errorf("unexpected recipe: %+v", r)
	}
	if r.Instructions != "Bring a large pot of water to a boil." {
		t.Errorf("instructions not trimmed: %q", r.Instructions)
	}
	if r.Video == "" || r.Thumbnail == "" {
		t.Errorf("expected video and thumbnail, got %+v", r)
	}
}

func TestClient_SearchNoResults(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"meals":null}`)
	})
	recipes, err := c.Search(context.Background(), "zzzznotreal")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(recipes) != 0 {
		t.Errorf("expected no recipes, got %+v", recipes)
	}
}

func TestClient_SearchEmptyQuery(t *testing.T) {
	called := false
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	if _, err := c.Search(context.Background(), "   "); !errors.Is(err, models.ErrEmptyQuery) {
		t.Errorf("expected ErrEmptyQuery, got %v", err)
	}
	if called {
		t.Error("empty query must not reach the catalog")
	}
}

func TestClient_Lookup(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/lookup.php" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("i") == "52771" {
			fmt.Fprint(w, arrabiataJSON)
			return
		}
		fmt.Fprint(w, `{"meals":null}`)
	})

	recipe, err := c.Lookup(context.Background(), "52771")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if recipe.Name != "Spicy Arrabiata Penne" {
		t.Errorf("unexpected recipe %+v", recipe)
	}

	if _, err := c.Lookup(context.Background(), "1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestClient_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}},
		{"bad json", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `<html>maintenance</html>`)
		}},
		{"timeout", func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			c := NewClient(WithBaseURL(srv.URL), WithTimeout(100*time.Millisecond))

			if _, err := c.Search(context.Background(), "pasta"); !errors.Is(err, ErrUnavailable) {
				t.Errorf("Search expected ErrUnavailable, got %v", err)
			}
			_, err := c.Lookup(context.Background(), "52771")
			if !errors.Is(err, ErrUnavailable) {
				t.Errorf("Lookup expected ErrUnavailable, got %v", err)
			}
			if errors.Is(err, ErrNotFound) {
				t.Error("failures must be distinct from not found")
			}
		})
	}
}
