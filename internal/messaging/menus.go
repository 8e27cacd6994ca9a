package messaging

import (
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BTreeMap/RecipeBot/internal/models"
	"github.com/patrickmn/go-cache"
)

// DefaultMenuTTL is how long numbered options stay answerable.
const DefaultMenuTTL = 30 * time.Minute

type optionKind int

const (
	optionCallback optionKind = iota
	optionText
)

type option struct {
	kind  optionKind
	value string
}

// menu is the list of options shown to one chat. It is sealed by the next
// inbound message; the following outbound burst then starts a new list.
type menu struct {
	options []option
	sealed  bool
}

// OptionMenus renders buttons as numbered lines for text-only platforms and
// maps a numeric reply back to the button it stands for.
type OptionMenus struct {
	mu    sync.Mutex
	menus *cache.Cache
}

// NewOptionMenus creates an OptionMenus whose options expire after ttl.
func NewOptionMenus(ttl time.Duration) *OptionMenus {
	if ttl <= 0 {
		ttl = DefaultMenuTTL
	}
	return &OptionMenus{menus: cache.New(ttl, 2*ttl)}
}

// Render returns the plain text for msg with its buttons and keyboard
// appended as numbered options, and remembers the options for msg.ChatID.
// Numbering continues across messages sent before the chat's next reply.
func (m *OptionMenus) Render(msg models.Message) string {
	body := PlainText(msg)
	if len(msg.Buttons) == 0 && len(msg.Keyboard) == 0 {
		return body
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cur := m.current(msg.ChatID)
	var lines []string
	add := func(kind optionKind, label, value string) {
		cur.options = append(cur.options, option{kind: kind, value: value})
		lines = append(lines, fmt.Sprintf("%d. %s", len(cur.options), label))
	}
	for _, row := range msg.Buttons {
		for _, b := range row {
			add(optionCallback, b.Label, b.Data)
		}
	}
	for _, row := range msg.Keyboard {
		for _, label := range row {
			add(optionText, label, label)
		}
	}
	m.menus.SetDefault(msg.ChatID, cur)

	if body == "" {
		return strings.Join(lines, "\n")
	}
	return body + "\n\n" + strings.Join(lines, "\n")
}

// current must be called with m.mu held.
func (m *OptionMenus) current(chatID string) *menu {
	if v, ok := m.menus.Get(chatID); ok {
		if cur := v.(*menu); !cur.sealed {
			return cur
		}
	}
	return &menu{}
}

// Resolve turns an inbound text into an event. A number matching a listed
// option becomes that option's callback or keyboard text; anything else is
// parsed with ParseText.
func (m *OptionMenus) Resolve(userID, chatID, text string) models.Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.menus.Get(chatID)
	if !ok {
		return ParseText(userID, chatID, text)
	}
	cur := v.(*menu)
	cur.sealed = true

	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n < 1 || n > len(cur.options) {
		return ParseText(userID, chatID, text)
	}
	opt := cur.options[n-1]
	slog.Debug("OptionMenus resolved numeric reply", "chatID", chatID, "option", n)
	if opt.kind == optionCallback {
		return models.NewCallbackEvent(userID, chatID, "", opt.value)
	}
	return models.NewTextEvent(userID, chatID, opt.value)
}

var htmlBold = strings.NewReplacer("<b>", "*", "</b>", "*")

// PlainText returns the message text with HTML bold turned into WhatsApp bold.
func PlainText(msg models.Message) string {
	if !msg.HTML {
		return msg.Text
	}
	return html.UnescapeString(htmlBold.Replace(msg.Text))
}
