// Package models defines the core data structures for RecipeBot.
//
// It includes recipes sourced from the catalog, the per-user favorites mapping,
// and the API response envelope shared across modules.
package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"sort"
)

// Rating bounds for favorites.
const (
	// RatingUnrated is the rating a recipe gets when it is favorited without stars.
	RatingUnrated = 0
	// MinStars is the lowest rating a user can give.
	MinStars = 1
	// MaxStars is the highest rating a user can give.
	MaxStars = 5
)

// Error variables for better error handling and testability
var (
	ErrEmptyUserID   = errors.New("user id cannot be empty")
	ErrEmptyRecipeID = errors.New("recipe id cannot be empty")
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
	ErrEmptyQuery    = errors.New("search query cannot be empty")
)

// Recipe is a dish record sourced from the external catalog. It is never cached locally.
type Recipe struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Category     string `json:"category,omitempty"`
	Area         string `json:"area,omitempty"`
	Thumbnail    string `json:"thumbnail,omitempty"`
	Instructions string `json:"instructions,omitempty"`
	Video        string `json:"video,omitempty"`
}

// ratingKey is the JSON key of FavoriteEntry.Rating.
const ratingKey = "rating"

// FavoriteEntry is a user's saved recipe. Unknown JSON fields are kept as-is
// and written back, so files written by newer versions survive a rewrite.
type FavoriteEntry struct {
	Rating int `json:"rating"`
	extra  map[string]json.RawMessage
}

// UnmarshalJSON decodes the rating and keeps every other field.
func (e *FavoriteEntry) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var rating int
	if raw, ok := fields[ratingKey]; ok {
		if err := json.Unmarshal(raw, &rating); err != nil {
			return err
		}
		delete(fields, ratingKey)
	}
	e.Rating = rating
	e.extra = nil
	if len(fields) > 0 {
		e.extra = fields
	}
	return nil
}

// MarshalJSON writes the rating together with the preserved unknown fields.
func (e FavoriteEntry) MarshalJSON() ([]byte, error) {
	if len(e.extra) == 0 {
		return json.Marshal(struct {
			Rating int `json:"rating"`
		}{e.Rating})
	}
	fields := make(map[string]json.RawMessage, len(e.extra)+1)
	for k, v := range e.extra {
		fields[k] = v
	}
	rating, err := json.Marshal(e.Rating)
	if err != nil {
		return nil, err
	}
	fields[ratingKey] = rating
	return json.Marshal(fields)
}

// Favorites maps user id -> recipe id -> entry.
type Favorites map[string]map[string]FavoriteEntry

// FavoriteItem is one entry of a user's favorites list.
type FavoriteItem struct {
	RecipeID string `json:"recipe_id"`
	Rating   int    `json:"rating"`
}

// ValidateStars checks a rating given by a user.
func ValidateStars(stars int) error {
	if stars < MinStars || stars > MaxStars {
		return ErrInvalidRating
	}
	return nil
}

// ValidateKey checks the user and recipe identifiers of a favorites operation.
func ValidateKey(userID, recipeID string) error {
	if userID == "" {
		return ErrEmptyUserID
	}
	if recipeID == "" {
		return ErrEmptyRecipeID
	}
	return nil
}

// User returns the favorites of a single user, creating the inner map if needed.
func (f Favorites) User(userID string) map[string]FavoriteEntry {
	entries, ok := f[userID]
	if !ok {
		entries = make(map[string]FavoriteEntry)
		f[userID] = entries
	}
	return entries
}

// AddFavorite inserts an unrated entry if the recipe is not yet saved.
// It reports whether the mapping changed.
func (f Favorites) AddFavorite(userID, recipeID string) bool {
	entries := f.User(userID)
	if _, exists := entries[recipeID]; exists {
		return false
	}
	entries[recipeID] = FavoriteEntry{Rating: RatingUnrated}
	return true
}

// Rate sets the rating of a recipe, creating the entry if needed.
// It reports whether the recipe was already a favorite.
func (f Favorites) Rate(userID, recipeID string, stars int) bool {
	entries := f.User(userID)
	entry, existed := entries[recipeID]
	entry.Rating = stars
	entries[recipeID] = entry
	return existed
}

// List returns a user's favorites sorted by rating descending, ties by recipe id.
func (f Favorites) List(userID string) []FavoriteItem {
	entries := f[userID]
	items := make([]FavoriteItem, 0, len(entries))
	for id, entry := range entries {
		items = append(items, FavoriteItem{RecipeID: id, Rating: entry.Rating})
	}
	SortFavorites(items)
	return items
}

// SortFavorites orders items by rating descending, then recipe id ascending.
func SortFavorites(items []FavoriteItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Rating != items[j].Rating {
			return items[i].Rating > items[j].Rating
		}
		return items[i].RecipeID < items[j].RecipeID
	})
}

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
)

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`            // status of the API response
	Message string      `json:"message,omitempty"` // optional message for error responses or additional info
	Result  interface{} `json:"result,omitempty"`  // optional result data for successful responses
}

// APIResponseBuilder provides a fluent interface for building API responses.
type APIResponseBuilder struct {
	response APIResponse
}

// NewAPIResponseBuilder creates a new APIResponseBuilder instance.
func NewAPIResponseBuilder() *APIResponseBuilder {
	return &APIResponseBuilder{
		response: APIResponse{},
	}
}

// WithStatus sets the status of the API response.
func (b *APIResponseBuilder) WithStatus(status APIStatus) *APIResponseBuilder {
	b.response.Status = string(status)
	return b
}

// WithMessage sets the message of the API response.
func (b *APIResponseBuilder) WithMessage(message string) *APIResponseBuilder {
	b.response.Message = message
	return b
}

// WithResult sets the result data of the API response.
func (b *APIResponseBuilder) WithResult(result interface{}) *APIResponseBuilder {
	b.response.Result = result
	return b
}

// Build constructs and returns the final APIResponse.
func (b *APIResponseBuilder) Build() APIResponse {
	return b.response
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithResult(result).
		Build()
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusError).
		WithMessage(message).
		Build()
}
