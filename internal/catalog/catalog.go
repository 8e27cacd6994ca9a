// Package catalog provides a thin client for the TheMealDB recipe API.
//
// It exposes search by dish name and lookup by recipe id. Network, status and
// decode failures are reported as ErrUnavailable, distinct from empty results.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/BTreeMap/RecipeBot/internal/models"
)

// Constants for catalog client configuration
const (
	// DefaultBaseURL is the public TheMealDB v1 endpoint with the test key
	DefaultBaseURL = "https://www.themealdb.com/api/json/v1/1"
	// DefaultTimeout bounds every catalog request
	DefaultTimeout = 10 * time.Second
	// maxResponseBytes caps how much of a response body is read
	maxResponseBytes = 4 << 20
)

var (
	// ErrNotFound is returned by Lookup for an unknown recipe id.
	ErrNotFound = errors.New("recipe not found")
	// ErrUnavailable wraps network, timeout, non-2xx and decode failures.
	ErrUnavailable = errors.New("recipe catalog unavailable")
)

// Catalog is the recipe source used by the dialogue controller.
type Catalog interface {
	Search(ctx context.Context, name string) ([]models.Recipe, error)
	Lookup(ctx context.Context, id string) (*models.Recipe, error)
}

// Opts holds configuration options for the catalog client.
type Opts struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Option defines a configuration option for the catalog client.
type Option func(*Opts)

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) Option {
	return func(o *Opts) {
		o.BaseURL = baseURL
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Opts) {
		o.Timeout = d
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Opts) {
		o.HTTPClient = c
	}
}

// Client talks to TheMealDB.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
}

// NewClient creates a catalog client, applying any provided options.
func NewClient(opts ...Option) *Client {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	slog.Debug("catalog.NewClient configured", "base_url", cfg.BaseURL, "timeout", cfg.Timeout)
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		http:    cfg.HTTPClient,
	}
}

// meal mirrors the fields of a TheMealDB meal object that the bot uses.
type meal struct {
	ID           string `json:"idMeal"`
	Name         string `json:"strMeal"`
	Category     string `json:"strCategory"`
	Area         string `json:"strArea"`
	Thumbnail    string `json:"strMealThumb"`
	Instructions string `json:"strInstructions"`
	Youtube      string `json:"strYoutube"`
}

type mealsResponse struct {
	Meals []meal `json:"meals"`
}

func (m meal) toRecipe() models.Recipe {
	return models.Recipe{
		ID:           m.ID,
		Name:         m.Name,
		Category:     m.Category,
		Area:         m.Area,
		Thumbnail:    m.Thumbnail,
		Instructions: strings.TrimSpace(m.Instructions),
		Video:        strings.TrimSpace(m.Youtube),
	}
}

// Search returns recipes whose name matches. No results is an empty slice and no error.
func (c *Client) Search(ctx context.Context, name string) ([]models.Recipe, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.ErrEmptyQuery
	}

	resp, err := c.get(ctx, "search.php", url.Values{"s": {name}})
	if err != nil {
		return nil, err
	}

	recipes := make([]models.Recipe, 0, len(resp.Meals))
	for _, m := range resp.Meals {
		if m.ID == "" {
			continue
		}
		recipes = append(recipes, m.toRecipe())
	}
	slog.Debug("catalog Search succeeded", "query", name, "count", len(recipes))
	return recipes, nil
}

// Lookup fetches a recipe by id. Unknown ids return ErrNotFound.
func (c *Client) Lookup(ctx context.Context, id string) (*models.Recipe, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, models.ErrEmptyRecipeID
	}

	resp, err := c.get(ctx, "lookup.php", url.Values{"i": {id}})
	if err != nil {
		return nil, err
	}
	if len(resp.Meals) == 0 || resp.Meals[0].ID == "" {
		slog.Debug("catalog Lookup not found", "id", id)
		return nil, ErrNotFound
	}

	recipe := resp.Meals[0].toRecipe()
	slog.Debug("catalog Lookup succeeded", "id", id, "name", recipe.Name)
	return &recipe, nil
}

func (c *Client) get(ctx context.Context, endpoint string, query url.Values) (*mealsResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reqURL := c.baseURL + "/" + endpoint + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		slog.Error("catalog request failed", "error", err, "endpoint", endpoint)
		return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		slog.Error("catalog read body failed", "error", err, "endpoint", endpoint)
		return nil, fmt.Errorf("%w: read %s response: %w", ErrUnavailable, endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Error("catalog returned non-2xx status", "status", resp.StatusCode, "endpoint", endpoint)
		return nil, fmt.Errorf("%w: %s returned status %d", ErrUnavailable, endpoint, resp.StatusCode)
	}

	var decoded mealsResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		slog.Error("catalog decode failed", "error", err, "endpoint", endpoint)
		return nil, fmt.Errorf("%w: decode %s response: %w", ErrUnavailable, endpoint, err)
	}
	return &decoded, nil
}
