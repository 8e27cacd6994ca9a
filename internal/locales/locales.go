// Package locales holds the user-facing texts of RecipeBot, embedded from locales.json.
package locales

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// DefaultLang is used when the requested language is unknown.
const DefaultLang = "en"

//go:embed locales.json
var localesJSON []byte

// Texts contains every string the bot sends for one language.
type Texts struct {
	Greeting      string   `json:"greeting"`
	GreetingReply string   `json:"greeting_reply"`
	Welcome       string   `json:"welcome"`
	Menu          string   `json:"menu"`
	Error         string   `json:"error"`
	Help          string   `json:"help"`
	Buttons       Buttons  `json:"buttons"`
	Search        Search   `json:"search"`
	Recipe        Recipe   `json:"recipe"`
	Favorites     Favs     `json:"favorites"`
	Commands      Commands `json:"commands"`
}

type Buttons struct {
	Search      string `json:"search"`
	Favorites   string `json:"favorites"`
	Details     string `json:"details"`
	AddFavorite string `json:"add_favorite"`
	Rate        string `json:"rate"`     // format: stars
	Favorite    string `json:"favorite"` // format: name, rating
}

type Search struct {
	Ask          string `json:"ask"`
	Empty        string `json:"empty"`
	Usage        string `json:"usage"`
	NothingFound string `json:"nothing_found"`
	Failed       string `json:"failed"`
}

type Recipe struct {
	Video      string `json:"video"` // format: url
	RatePrompt string `json:"rate_prompt"`
	LoadFailed string `json:"load_failed"`
	ShowFailed string `json:"show_failed"`
}

type Favs struct {
	Header        string `json:"header"`
	Empty         string `json:"empty"`
	Failed        string `json:"failed"`
	Added         string `json:"added"`
	AddFailed     string `json:"add_failed"`
	Rated         string `json:"rated"` // format: stars
	AddedAndRated string `json:"added_and_rated"`
	RateFailed    string `json:"rate_failed"`
	InvalidRating string `json:"invalid_rating"`
	NotSaved      string `json:"not_saved"`
}

// Commands lists the accepted names of each command, without the slash.
type Commands struct {
	Find      []string `json:"find"`
	Favorites []string `json:"favorites"`
}

var all map[string]*Texts

func init() {
	if err := json.Unmarshal(localesJSON, &all); err != nil {
		panic(fmt.Sprintf("failed to parse embedded locales.json: %v", err))
	}
	if _, ok := all[DefaultLang]; !ok {
		panic("embedded locales.json has no default language")
	}
}

// Get returns the texts for lang, falling back to DefaultLang.
func Get(lang string) *Texts {
	if t, ok := all[strings.ToLower(strings.TrimSpace(lang))]; ok {
		return t
	}
	if lang != "" {
		slog.Warn("locales.Get: unknown language, using default", "lang", lang, "default", DefaultLang)
	}
	return all[DefaultLang]
}

// Languages returns the available language codes.
func Languages() []string {
	langs := make([]string, 0, len(all))
	for lang := range all {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// IsFind reports whether command is one of the find command names.
func (t *Texts) IsFind(command string) bool {
	return contains(t.Commands.Find, command)
}

// IsFavorites reports whether command is one of the favorites command names.
func (t *Texts) IsFavorites(command string) bool {
	return contains(t.Commands.Favorites, command)
}

func contains(names []string, command string) bool {
	command = strings.ToLower(command)
	for _, name := range names {
		if name == command {
			return true
		}
	}
	return false
}
