package models

// MessageKind tags the shape of an outbound message.
type MessageKind string

const (
	// MessageText is a plain text message.
	MessageText MessageKind = "text"
	// MessagePhoto is an image with a caption.
	MessagePhoto MessageKind = "photo"
	// MessageCallbackAnswer acknowledges a button press, optionally with a short notice.
	MessageCallbackAnswer MessageKind = "callback_answer"
)

// MaxCaptionLength is the longest photo caption transports accept.
const MaxCaptionLength = 1024

// Button is an inline action attached to a message.
type Button struct {
	Label string `json:"label"`
	Data  string `json:"data"`
}

// Message is an outbound message produced by the dialogue controller.
type Message struct {
	Kind       MessageKind `json:"kind"`
	ChatID     string      `json:"chat_id,omitempty"`
	Text       string      `json:"text,omitempty"` // body, caption or callback notice
	PhotoURL   string      `json:"photo_url,omitempty"`
	HTML       bool        `json:"html,omitempty"`
	Buttons    [][]Button  `json:"buttons,omitempty"`  // inline buttons, one slice per row
	Keyboard   [][]string  `json:"keyboard,omitempty"` // persistent reply keyboard
	CallbackID string      `json:"callback_id,omitempty"`
}

// NewTextMessage creates a plain text message.
func NewTextMessage(chatID, text string) Message {
	return Message{Kind: MessageText, ChatID: chatID, Text: text}
}

// NewPhotoMessage creates a photo message; the caption is truncated to MaxCaptionLength runes.
func NewPhotoMessage(chatID, photoURL, caption string) Message {
	return Message{Kind: MessagePhoto, ChatID: chatID, PhotoURL: photoURL, Text: TruncateRunes(caption, MaxCaptionLength)}
}

// NewCallbackAnswer acknowledges the callback with the given id. Platforms
// without callback notices deliver a non-empty text to chatID instead.
func NewCallbackAnswer(chatID, callbackID, text string) Message {
	return Message{Kind: MessageCallbackAnswer, ChatID: chatID, CallbackID: callbackID, Text: text}
}

// WithButtons returns a copy of m with inline buttons attached.
func (m Message) WithButtons(rows ...[]Button) Message {
	m.Buttons = rows
	return m
}

// WithKeyboard returns a copy of m with a reply keyboard attached.
func (m Message) WithKeyboard(rows ...[]string) Message {
	m.Keyboard = rows
	return m
}

// AsHTML marks the message text as HTML formatted.
func (m Message) AsHTML() Message {
	m.HTML = true
	return m
}

// TruncateRunes cuts s to at most n runes.
func TruncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
