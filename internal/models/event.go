package models

import (
	"time"

	"github.com/google/uuid"
)

// EventKind tags the shape of an inbound event.
type EventKind string

const (
	// EventText is a plain text message, including reply keyboard presses.
	EventText EventKind = "text"
	// EventCommand is a slash command such as /start.
	EventCommand EventKind = "command"
	// EventCallback is an inline button press carrying an opaque payload.
	EventCallback EventKind = "callback"
)

// Event is an inbound user event delivered by a messaging transport.
type Event struct {
	ID         string    `json:"id"`
	Kind       EventKind `json:"kind"`
	UserID     string    `json:"user_id"`
	ChatID     string    `json:"chat_id"`
	Text       string    `json:"text,omitempty"`    // message text, or command arguments
	Command    string    `json:"command,omitempty"` // command name without the leading slash
	CallbackID string    `json:"callback_id,omitempty"`
	Data       string    `json:"data,omitempty"` // callback payload
	Time       int64     `json:"time"`
}

func newEvent(kind EventKind, userID, chatID string) Event {
	return Event{
		ID:     uuid.NewString(),
		Kind:   kind,
		UserID: userID,
		ChatID: chatID,
		Time:   time.Now().Unix(),
	}
}

// NewTextEvent creates a text message event.
func NewTextEvent(userID, chatID, text string) Event {
	e := newEvent(EventText, userID, chatID)
	e.Text = text
	return e
}

// NewCommandEvent creates a command event; args is the text following the command.
func NewCommandEvent(userID, chatID, command, args string) Event {
	e := newEvent(EventCommand, userID, chatID)
	e.Command = command
	e.Text = args
	return e
}

// NewCallbackEvent creates a button press event.
func NewCallbackEvent(userID, chatID, callbackID, data string) Event {
	e := newEvent(EventCallback, userID, chatID)
	e.CallbackID = callbackID
	e.Data = data
	return e
}
