// Package messaging connects RecipeBot to chat platforms. Each Service turns
// platform updates into models.Event values and delivers models.Message values.
package messaging

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/BTreeMap/RecipeBot/internal/models"
)

// Constants for messaging service configuration
const (
	// DefaultChannelBufferSize defines the buffer size of the inbound event channel
	DefaultChannelBufferSize = 100
	// DefaultChannelTimeout bounds how long an inbound event waits for a full channel
	DefaultChannelTimeout = 1 * time.Second
)

// ErrServiceStopped is returned when sending through a stopped service.
var ErrServiceStopped = errors.New("messaging service stopped")

// Service defines a pluggable chat transport.
type Service interface {
	// Send delivers an outbound message.
	Send(ctx context.Context, msg models.Message) error

	// Start begins background processing (e.g., polling for updates).
	Start(ctx context.Context) error

	// Stop stops background processing and closes the event channel.
	Stop() error

	// Events returns the channel of inbound user events.
	Events() <-chan models.Event
}

// eventStream is the inbound channel shared by all services. Emitting after
// close is a logged no-op, never a panic.
type eventStream struct {
	name     string
	events   chan models.Event
	mu       sync.RWMutex
	stopped  bool
	done     chan struct{} // closed first on close, releasing blocked emitWait calls
	doneOnce sync.Once
}

func newEventStream(name string) *eventStream {
	return &eventStream{
		name:   name,
		events: make(chan models.Event, DefaultChannelBufferSize),
		done:   make(chan struct{}),
	}
}

func (s *eventStream) emit(ev models.Event) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stopped {
		slog.Warn(s.name+" dropping inbound event (service stopped)", "userID", ev.UserID, "kind", ev.Kind)
		return false
	}
	select {
	case s.events <- ev:
		slog.Debug(s.name+" inbound event forwarded", "eventID", ev.ID, "userID", ev.UserID, "kind", ev.Kind)
		return true
	case <-time.After(DefaultChannelTimeout):
		slog.Error(s.name+" events channel full, dropping inbound event",
			"eventID", ev.ID, "userID", ev.UserID, "kind", ev.Kind, "timeout", DefaultChannelTimeout)
		return false
	}
}

// emitWait blocks until ev is queued, ctx is done or the stream is closed.
// Pollers use it so a slow dispatcher applies backpressure instead of losing input.
func (s *eventStream) emitWait(ctx context.Context, ev models.Event) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stopped {
		slog.Warn(s.name+" dropping inbound event (service stopped)", "userID", ev.UserID, "kind", ev.Kind)
		return false
	}
	select {
	case s.events <- ev:
		slog.Debug(s.name+" inbound event forwarded", "eventID", ev.ID, "userID", ev.UserID, "kind", ev.Kind)
		return true
	case <-ctx.Done():
		slog.Warn(s.name+" inbound event not queued before shutdown", "eventID", ev.ID, "userID", ev.UserID, "error", ctx.Err())
		return false
	case <-s.done:
		slog.Warn(s.name+" inbound event not queued, service stopping", "eventID", ev.ID, "userID", ev.UserID)
		return false
	}
}

// close reports whether this call stopped the stream.
func (s *eventStream) close() bool {
	s.doneOnce.Do(func() { close(s.done) })
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.stopped = true
	close(s.events)
	return true
}

func (s *eventStream) isStopped() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stopped
}

// ParseText turns message text into a command event when it starts with a
// slash ("/find pasta", "/start@RecipeBot") and into a text event otherwise.
func ParseText(userID, chatID, text string) models.Event {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) > 1 && trimmed[0] == '/' {
		head, args, _ := strings.Cut(trimmed[1:], " ")
		command, _, _ := strings.Cut(head, "@")
		if command != "" {
			return models.NewCommandEvent(userID, chatID, command, strings.TrimSpace(args))
		}
	}
	return models.NewTextEvent(userID, chatID, text)
}
