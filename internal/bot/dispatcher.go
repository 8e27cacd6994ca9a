package bot

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/BTreeMap/RecipeBot/internal/models"
)

// Sender delivers outbound messages to the messaging platform.
type Sender interface {
	Send(ctx context.Context, msg models.Message) error
}

// Dispatcher feeds inbound events to the Controller one at a time and sends the replies.
type Dispatcher struct {
	controller *Controller
	sender     Sender
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(controller *Controller, sender Sender) *Dispatcher {
	return &Dispatcher{controller: controller, sender: sender}
}

// Run handles events until the channel is closed or ctx is done.
// Each event is handled to completion before the next is read.
func (d *Dispatcher) Run(ctx context.Context, events <-chan models.Event) error {
	slog.Info("Dispatcher Run started")
	for {
		select {
		case <-ctx.Done():
			slog.Info("Dispatcher Run stopping", "reason", ctx.Err())
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				slog.Info("Dispatcher Run: event channel closed")
				return nil
			}
			d.Dispatch(ctx, ev)
		}
	}
}

// Dispatch handles a single event and sends its replies in order.
// A send failure is logged and does not stop the remaining replies.
func (d *Dispatcher) Dispatch(ctx context.Context, ev models.Event) {
	msgs := d.handle(ctx, ev)
	for i, msg := range msgs {
		if err := d.sender.Send(ctx, msg); err != nil {
			slog.Error("Dispatcher send failed", "error", err, "eventID", ev.ID, "kind", msg.Kind, "index", i)
		}
	}
}

// handle runs the controller and turns a panic into the generic error reply.
func (d *Dispatcher) handle(ctx context.Context, ev models.Event) (msgs []models.Message) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Dispatcher recovered from panic", "error", fmt.Sprint(r), "eventID", ev.ID, "userID", ev.UserID, "stack", string(debug.Stack()))
			msgs = d.controller.ErrorReply(ev)
		}
	}()
	return d.controller.Handle(ctx, ev)
}
