package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/BTreeMap/RecipeBot/internal/models"
)

// Verb is the prefix of a callback payload.
type Verb string

const (
	VerbDetails  Verb = "desc"
	VerbFavorite Verb = "fav"
	VerbRate     Verb = "rate"
	VerbFavShow  Verb = "favshow"
)

// Action is a parsed callback payload of the form "<verb>_<id>" or "rate_<id>_<stars>".
type Action struct {
	Verb     Verb
	RecipeID string
	Stars    int
}

// Payload renders the action back into its callback payload.
func (a Action) Payload() string {
	if a.Verb == VerbRate {
		return fmt.Sprintf("%s_%s_%d", a.Verb, a.RecipeID, a.Stars)
	}
	return string(a.Verb) + "_" + a.RecipeID
}

// ParseAction parses a callback payload. ok is false for unknown verbs and
// payloads without a recipe id; err is set for a rate payload whose stars
// are not an integer between 1 and 5.
func ParseAction(data string) (a Action, ok bool, err error) {
	verb, rest, found := strings.Cut(data, "_")
	if !found || rest == "" {
		return Action{}, false, nil
	}
	a.Verb = Verb(verb)
	switch a.Verb {
	case VerbDetails, VerbFavorite, VerbFavShow:
		a.RecipeID = rest
		return a, true, nil
	case VerbRate:
		i := strings.LastIndex(rest, "_")
		if i <= 0 {
			return a, true, fmt.Errorf("rate payload %q has no stars: %w", data, models.ErrInvalidRating)
		}
		a.RecipeID = rest[:i]
		stars, convErr := strconv.Atoi(rest[i+1:])
		if convErr != nil {
			return a, true, fmt.Errorf("rate payload %q: %w", data, models.ErrInvalidRating)
		}
		if err := models.ValidateStars(stars); err != nil {
			return a, true, err
		}
		a.Stars = stars
		return a, true, nil
	default:
		return Action{}, false, nil
	}
}
