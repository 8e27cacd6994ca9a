package models

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestFavoritesAddIsIdempotent(t *testing.T) {
	f := Favorites{}
	if !f.AddFavorite("42", "53065") {
		t.Fatal("first AddFavorite should change the mapping")
	}
	f.Rate("42", "53065", 4)
	if f.AddFavorite("42", "53065") {
		t.Error("second AddFavorite should be a no-op")
	}
	if got := f["42"]["53065"].Rating; got != 4 {
		t.Errorf("rating reset by AddFavorite: got %d, want 4", got)
	}
}

func TestFavoritesRateReportsExisting(t *testing.T) {
	f := Favorites{}
	if f.Rate("1", "r", 3) {
		t.Error("Rate on a new recipe should report not existing")
	}
	if !f.Rate("1", "r", 5) {
		t.Error("Rate on a saved recipe should report existing")
	}
	if got := f["1"]["r"].Rating; got != 5 {
		t.Errorf("expected last write to win, got %d", got)
	}
}

func TestFavoriteEntryKeepsUnknownFields(t *testing.T) {
	var f Favorites
	if err := json.Unmarshal([]byte(`{"7":{"100":{"rating":3,"note":"grandma","tags":["soup"]}}}`), &f); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if f.Rate("7", "100", 5) != true {
		t.Error("Rate should report the existing entry")
	}
	data, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	want := `{"7":{"100":{"note":"grandma","rating":5,"tags":["soup"]}}}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestFavoriteEntryPlainShape(t *testing.T) {
	data, err := json.Marshal(Favorites{"42": {"53065": {Rating: 0}}})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `{"42":{"53065":{"rating":0}}}` {
		t.Errorf("unexpected shape %s", data)
	}

	var e FavoriteEntry
	if err := json.Unmarshal([]byte(`{"rating":"five"}`), &e); err == nil {
		t.Error("expected error for non-numeric rating")
	}
}

func TestFavoritesListOrder(t *testing.T) {
	f := Favorites{"u": {
		"b": {Rating: 3},
		"a": {Rating: 3},
		"c": {Rating: 5},
		"d": {Rating: 0},
	}}
	want := []string{"c", "a", "b", "d"}
	for i := 0; i < 3; i++ {
		items := f.List("u")
		if len(items) != len(want) {
			t.Fatalf("expected %d items, got %d", len(want), len(items))
		}
		for j, id := range want {
			if items[j].RecipeID != id {
				t.Errorf("run %d position %d: got %s, want %s", i, j, items[j].RecipeID, id)
			}
		}
	}
	if items := f.List("nobody"); len(items) != 0 {
		t.Errorf("expected empty list for unknown user, got %v", items)
	}
}

func TestValidateStars(t *testing.T) {
	tests := []struct {
		stars int
		ok    bool
	}{
		{0, false}, {1, true}, {3, true}, {5, true}, {6, false}, {-1, false},
	}
	for _, tt := range tests {
		err := ValidateStars(tt.stars)
		if tt.ok && err != nil {
			t.Errorf("ValidateStars(%d) unexpected error: %v", tt.stars, err)
		}
		if !tt.ok && !errors.Is(err, ErrInvalidRating) {
			t.Errorf("ValidateStars(%d) expected ErrInvalidRating, got %v", tt.stars, err)
		}
	}
}

func TestNewPhotoMessageTruncatesCaption(t *testing.T) {
	long := strings.Repeat("щ", MaxCaptionLength+10)
	m := NewPhotoMessage("1", "http://img", long)
	if n := len([]rune(m.Text)); n != MaxCaptionLength {
		t.Errorf("caption length = %d runes, want %d", n, MaxCaptionLength)
	}
}

func TestNewEventsCarryIDs(t *testing.T) {
	a := NewTextEvent("1", "1", "hi")
	b := NewCallbackEvent("1", "1", "cb", "desc_1")
	if a.ID == "" || b.ID == "" || a.ID == b.ID {
		t.Errorf("expected distinct non-empty ids, got %q and %q", a.ID, b.ID)
	}
	if b.Kind != EventCallback || b.Data != "desc_1" {
		t.Errorf("unexpected callback event: %+v", b)
	}
}
