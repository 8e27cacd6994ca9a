// Package bot implements the RecipeBot dialogue: it turns inbound events into
// outbound messages using the recipe catalog, the favorites store and the
// conversation tracker.
package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/BTreeMap/RecipeBot/internal/catalog"
	"github.com/BTreeMap/RecipeBot/internal/conversation"
	"github.com/BTreeMap/RecipeBot/internal/locales"
	"github.com/BTreeMap/RecipeBot/internal/models"
	"github.com/BTreeMap/RecipeBot/internal/store"
)

// DefaultMaxResults limits how many search results are shown.
const DefaultMaxResults = 5

// Command names handled by the controller.
const (
	CommandStart = "start"
	CommandHelp  = "help"
)

// Opts holds configuration options for the Controller.
type Opts struct {
	Texts      *locales.Texts
	MaxResults int
}

// Option defines a configuration option for the Controller.
type Option func(*Opts)

// WithTexts sets the localized texts.
func WithTexts(t *locales.Texts) Option {
	return func(o *Opts) {
		o.Texts = t
	}
}

// WithMaxResults sets the number of search results shown.
func WithMaxResults(n int) Option {
	return func(o *Opts) {
		o.MaxResults = n
	}
}

// route is one row of the precedence table. match may have side effects
// (the pending-query route consumes the tracker flag), so routes are tried
// strictly in order and the first match wins.
type route struct {
	name   string
	match  func(c *Controller, ev models.Event) bool
	handle func(c *Controller, ctx context.Context, ev models.Event) []models.Message
}

var routes = []route{
	{"greeting", (*Controller).isGreeting, (*Controller).handleGreeting},
	{"start", isCommand(CommandStart), (*Controller).handleStart},
	{"help", isCommand(CommandHelp), (*Controller).handleHelp},
	{"search_button", (*Controller).isSearchButton, (*Controller).handleSearchButton},
	{"search_query", (*Controller).consumesSearch, (*Controller).handleSearchQuery},
	{"favorites", (*Controller).isFavorites, (*Controller).handleFavorites},
	{"find", (*Controller).isFind, (*Controller).handleFind},
	{"callback", isKind(models.EventCallback), (*Controller).handleCallback},
}

// Controller decides the response to each inbound event.
type Controller struct {
	catalog    catalog.Catalog
	store      store.FavoritesStore
	tracker    *conversation.Tracker
	texts      *locales.Texts
	maxResults int
}

// NewController creates a Controller.
func NewController(cat catalog.Catalog, st store.FavoritesStore, tracker *conversation.Tracker, opts ...Option) *Controller {
	cfg := Opts{MaxResults: DefaultMaxResults}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Texts == nil {
		cfg.Texts = locales.Get(locales.DefaultLang)
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	if tracker == nil {
		tracker = conversation.NewTracker()
	}
	return &Controller{
		catalog:    cat,
		store:      st,
		tracker:    tracker,
		texts:      cfg.Texts,
		maxResults: cfg.MaxResults,
	}
}

// Texts returns the texts the controller replies with.
func (c *Controller) Texts() *locales.Texts {
	return c.texts
}

// Handle returns the messages to send in reply to ev, in order.
// Events that match no route produce no messages.
func (c *Controller) Handle(ctx context.Context, ev models.Event) []models.Message {
	for _, r := range routes {
		if r.match(c, ev) {
			slog.Debug("Controller Handle matched", "route", r.name, "eventID", ev.ID, "userID", ev.UserID)
			return r.handle(c, ctx, ev)
		}
	}
	slog.Debug("Controller Handle ignored event", "eventID", ev.ID, "kind", ev.Kind, "userID", ev.UserID)
	return nil
}

// Menu returns the main menu message with the persistent keyboard.
func (c *Controller) Menu(chatID string) models.Message {
	return c.menuWithText(chatID, c.texts.Menu)
}

// ErrorReply is the reply for an event whose handling failed unexpectedly.
func (c *Controller) ErrorReply(ev models.Event) []models.Message {
	var msgs []models.Message
	if ev.Kind == models.EventCallback {
		msgs = append(msgs, models.NewCallbackAnswer(ev.ChatID, ev.CallbackID, c.texts.Error))
	} else {
		msgs = append(msgs, models.NewTextMessage(ev.ChatID, c.texts.Error))
	}
	return append(msgs, c.Menu(ev.ChatID))
}

func (c *Controller) menuWithText(chatID, text string) models.Message {
	return models.NewTextMessage(chatID, text).
		WithKeyboard([]string{c.texts.Buttons.Search, c.texts.Buttons.Favorites})
}

func isKind(kind models.EventKind) func(*Controller, models.Event) bool {
	return func(_ *Controller, ev models.Event) bool {
		return ev.Kind == kind
	}
}

func isCommand(name string) func(*Controller, models.Event) bool {
	return func(_ *Controller, ev models.Event) bool {
		return ev.Kind == models.EventCommand && strings.EqualFold(ev.Command, name)
	}
}

func (c *Controller) isGreeting(ev models.Event) bool {
	return ev.Kind == models.EventText && strings.EqualFold(strings.TrimSpace(ev.Text), c.texts.Greeting)
}

func (c *Controller) isSearchButton(ev models.Event) bool {
	return ev.Kind == models.EventText && ev.Text == c.texts.Buttons.Search
}

func (c *Controller) consumesSearch(ev models.Event) bool {
	return ev.Kind == models.EventText && c.tracker.TryConsumeSearch(ev.UserID)
}

func (c *Controller) isFavorites(ev models.Event) bool {
	switch ev.Kind {
	case models.EventText:
		return ev.Text == c.texts.Buttons.Favorites
	case models.EventCommand:
		return c.texts.IsFavorites(ev.Command)
	}
	return false
}

func (c *Controller) isFind(ev models.Event) bool {
	return ev.Kind == models.EventCommand && c.texts.IsFind(ev.Command)
}

func (c *Controller) handleGreeting(_ context.Context, ev models.Event) []models.Message {
	return []models.Message{models.NewTextMessage(ev.ChatID, c.texts.GreetingReply)}
}

func (c *Controller) handleStart(_ context.Context, ev models.Event) []models.Message {
	return []models.Message{c.menuWithText(ev.ChatID, c.texts.Welcome)}
}

func (c *Controller) handleHelp(_ context.Context, ev models.Event) []models.Message {
	return []models.Message{c.menuWithText(ev.ChatID, c.texts.Help)}
}

func (c *Controller) handleSearchButton(_ context.Context, ev models.Event) []models.Message {
	c.tracker.BeginSearch(ev.UserID)
	return []models.Message{models.NewTextMessage(ev.ChatID, c.texts.Search.Ask)}
}

// handleSearchQuery runs a search from free text; each result gets a "details" button.
func (c *Controller) handleSearchQuery(ctx context.Context, ev models.Event) []models.Message {
	query := strings.TrimSpace(ev.Text)
	if query == "" {
		return []models.Message{models.NewTextMessage(ev.ChatID, c.texts.Search.Empty)}
	}
	recipes, failure := c.search(ctx, ev, query)
	if failure != nil {
		return failure
	}
	msgs := make([]models.Message, 0, len(recipes))
	for _, r := range recipes {
		msgs = append(msgs, c.recipeCard(ev.ChatID, r, r.Name, models.Button{
			Label: c.texts.Buttons.Details,
			Data:  Action{Verb: VerbDetails, RecipeID: r.ID}.Payload(),
		}))
	}
	slog.Info("Controller search completed", "userID", ev.UserID, "query", query, "results", len(recipes))
	return msgs
}

// handleFind runs a search from the find command; each result is shown in full once.
func (c *Controller) handleFind(ctx context.Context, ev models.Event) []models.Message {
	query := strings.TrimSpace(ev.Text)
	if query == "" {
		return []models.Message{models.NewTextMessage(ev.ChatID, c.texts.Search.Usage)}
	}
	recipes, failure := c.search(ctx, ev, query)
	if failure != nil {
		return failure
	}
	var msgs []models.Message
	for _, r := range recipes {
		msgs = append(msgs, c.recipeMessages(ev.ChatID, r)...)
	}
	slog.Info("Controller find completed", "userID", ev.UserID, "query", query, "results", len(recipes))
	return msgs
}

// search returns the first maxResults recipes, or the reply to send instead.
func (c *Controller) search(ctx context.Context, ev models.Event, query string) ([]models.Recipe, []models.Message) {
	recipes, err := c.catalog.Search(ctx, query)
	if err != nil {
		slog.Error("Controller search failed", "error", err, "userID", ev.UserID, "query", query)
		return nil, []models.Message{models.NewTextMessage(ev.ChatID, c.texts.Search.Failed), c.Menu(ev.ChatID)}
	}
	if len(recipes) == 0 {
		slog.Info("Controller search found nothing", "userID", ev.UserID, "query", query)
		return nil, []models.Message{models.NewTextMessage(ev.ChatID, c.texts.Search.NothingFound)}
	}
	if len(recipes) > c.maxResults {
		recipes = recipes[:c.maxResults]
	}
	return recipes, nil
}

// handleFavorites lists the user's favorites; recipes that fail to load are skipped.
func (c *Controller) handleFavorites(ctx context.Context, ev models.Event) []models.Message {
	items, err := c.store.ListFavorites(ctx, ev.UserID)
	if err != nil {
		slog.Error("Controller ListFavorites failed", "error", err, "userID", ev.UserID)
		return []models.Message{models.NewTextMessage(ev.ChatID, c.texts.Favorites.Failed), c.Menu(ev.ChatID)}
	}
	if len(items) == 0 {
		return []models.Message{models.NewTextMessage(ev.ChatID, c.texts.Favorites.Empty)}
	}

	rows := make([][]models.Button, 0, len(items))
	for _, item := range items {
		recipe, err := c.catalog.Lookup(ctx, item.RecipeID)
		if err != nil {
			slog.Warn("Controller favorite lookup failed, skipping", "error", err, "userID", ev.UserID, "recipeID", item.RecipeID)
			continue
		}
		rows = append(rows, []models.Button{{
			Label: fmt.Sprintf(c.texts.Buttons.Favorite, recipe.Name, item.Rating),
			Data:  Action{Verb: VerbFavShow, RecipeID: item.RecipeID}.Payload(),
		}})
	}
	slog.Info("Controller favorites listed", "userID", ev.UserID, "count", len(items), "shown", len(rows))
	return []models.Message{models.NewTextMessage(ev.ChatID, c.texts.Favorites.Header).WithButtons(rows...)}
}

func (c *Controller) handleCallback(ctx context.Context, ev models.Event) []models.Message {
	action, ok, err := ParseAction(ev.Data)
	if !ok {
		slog.Debug("Controller unknown callback ignored", "data", ev.Data, "userID", ev.UserID)
		return []models.Message{models.NewCallbackAnswer(ev.ChatID, ev.CallbackID, "")}
	}
	if err != nil {
		slog.Warn("Controller invalid callback payload", "error", err, "data", ev.Data, "userID", ev.UserID)
		return []models.Message{models.NewCallbackAnswer(ev.ChatID, ev.CallbackID, c.texts.Favorites.InvalidRating)}
	}

	switch action.Verb {
	case VerbDetails, VerbFavShow:
		return c.showRecipe(ctx, ev, action.RecipeID)
	case VerbFavorite:
		return c.addFavorite(ctx, ev, action.RecipeID)
	case VerbRate:
		return c.rate(ctx, ev, action.RecipeID, action.Stars)
	}
	return []models.Message{models.NewCallbackAnswer(ev.ChatID, ev.CallbackID, "")}
}

func (c *Controller) showRecipe(ctx context.Context, ev models.Event, recipeID string) []models.Message {
	recipe, err := c.catalog.Lookup(ctx, recipeID)
	if err != nil {
		notice := c.texts.Recipe.ShowFailed
		if errors.Is(err, catalog.ErrNotFound) {
			notice = c.texts.Recipe.LoadFailed
		}
		slog.Error("Controller recipe lookup failed", "error", err, "userID", ev.UserID, "recipeID", recipeID)
		return []models.Message{models.NewCallbackAnswer(ev.ChatID, ev.CallbackID, notice), c.Menu(ev.ChatID)}
	}
	msgs := c.recipeMessages(ev.ChatID, *recipe)
	return append(msgs, models.NewCallbackAnswer(ev.ChatID, ev.CallbackID, ""))
}

func (c *Controller) addFavorite(ctx context.Context, ev models.Event, recipeID string) []models.Message {
	if err := c.store.AddFavorite(ctx, ev.UserID, recipeID); err != nil {
		slog.Error("Controller AddFavorite failed", "error", err, "userID", ev.UserID, "recipeID", recipeID)
		return []models.Message{models.NewCallbackAnswer(ev.ChatID, ev.CallbackID, c.storeFailure(err, c.texts.Favorites.AddFailed)), c.Menu(ev.ChatID)}
	}
	slog.Info("Controller favorite added", "userID", ev.UserID, "recipeID", recipeID)
	return []models.Message{models.NewCallbackAnswer(ev.ChatID, ev.CallbackID, c.texts.Favorites.Added), c.Menu(ev.ChatID)}
}

func (c *Controller) rate(ctx context.Context, ev models.Event, recipeID string, stars int) []models.Message {
	existed, err := c.store.Rate(ctx, ev.UserID, recipeID, stars)
	if err != nil {
		slog.Error("Controller Rate failed", "error", err, "userID", ev.UserID, "recipeID", recipeID, "stars", stars)
		return []models.Message{models.NewCallbackAnswer(ev.ChatID, ev.CallbackID, c.storeFailure(err, c.texts.Favorites.RateFailed)), c.Menu(ev.ChatID)}
	}
	notice := c.texts.Favorites.AddedAndRated
	if existed {
		notice = fmt.Sprintf(c.texts.Favorites.Rated, stars)
	}
	slog.Info("Controller recipe rated", "userID", ev.UserID, "recipeID", recipeID, "stars", stars, "existed", existed)
	return []models.Message{models.NewCallbackAnswer(ev.ChatID, ev.CallbackID, notice), c.Menu(ev.ChatID)}
}

// storeFailure picks the notice for a failed store mutation.
func (c *Controller) storeFailure(err error, fallback string) string {
	switch {
	case errors.Is(err, store.ErrPersist):
		return c.texts.Favorites.NotSaved
	case errors.Is(err, models.ErrInvalidRating):
		return c.texts.Favorites.InvalidRating
	default:
		return fallback
	}
}

// recipeMessages renders a full recipe: photo with name and favorite button,
// instructions, optional video link and the rating prompt.
func (c *Controller) recipeMessages(chatID string, r models.Recipe) []models.Message {
	caption := boldCaption(r.Name)
	msgs := []models.Message{
		c.recipeCard(chatID, r, caption, models.Button{
			Label: c.texts.Buttons.AddFavorite,
			Data:  Action{Verb: VerbFavorite, RecipeID: r.ID}.Payload(),
		}).AsHTML(),
	}
	if strings.TrimSpace(r.Instructions) != "" {
		msgs = append(msgs, models.NewTextMessage(chatID, r.Instructions))
	}
	if r.Video != "" {
		msgs = append(msgs, models.NewTextMessage(chatID, fmt.Sprintf(c.texts.Recipe.Video, r.Video)))
	}
	stars := make([]models.Button, 0, models.MaxStars)
	for i := models.MinStars; i <= models.MaxStars; i++ {
		stars = append(stars, models.Button{
			Label: fmt.Sprintf(c.texts.Buttons.Rate, i),
			Data:  Action{Verb: VerbRate, RecipeID: r.ID, Stars: i}.Payload(),
		})
	}
	msgs = append(msgs, models.NewTextMessage(chatID, c.texts.Recipe.RatePrompt).WithButtons(stars))
	return msgs
}

// boldCaption wraps the escaped name in <b> tags, dropping trailing runes of the
// name so the caption fits MaxCaptionLength without splitting an entity or the closing tag.
func boldCaption(name string) string {
	const open, closing = "<b>", "</b>"
	budget := models.MaxCaptionLength - utf8.RuneCountInString(open+closing)
	var b strings.Builder
	b.WriteString(open)
	for _, r := range name {
		escaped := html.EscapeString(string(r))
		n := utf8.RuneCountInString(escaped)
		if n > budget {
			break
		}
		budget -= n
		b.WriteString(escaped)
	}
	b.WriteString(closing)
	return b.String()
}

// recipeCard is a photo of the recipe, or a text message when it has no thumbnail.
func (c *Controller) recipeCard(chatID string, r models.Recipe, caption string, button models.Button) models.Message {
	var msg models.Message
	if r.Thumbnail != "" {
		msg = models.NewPhotoMessage(chatID, r.Thumbnail, caption)
	} else {
		msg = models.NewTextMessage(chatID, caption)
	}
	return msg.WithButtons([]models.Button{button})
}
