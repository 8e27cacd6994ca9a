package messaging

import (
	"context"
	"log/slog"

	"github.com/BTreeMap/RecipeBot/internal/models"
	"github.com/BTreeMap/RecipeBot/internal/whatsapp"
	"go.mau.fi/whatsmeow/types/events"
)

// WhatsAppService implements Service using the Whatsmeow-based whatsapp client.
// Buttons are rendered as numbered options and photos as links.
type WhatsAppService struct {
	client   whatsapp.WhatsAppSender
	waClient *whatsapp.Client // set when the client can deliver events
	menus    *OptionMenus
	stream   *eventStream
}

// NewWhatsAppService creates a new WhatsAppService wrapping the given WhatsAppSender.
func NewWhatsAppService(client whatsapp.WhatsAppSender, menus *OptionMenus) *WhatsAppService {
	if menus == nil {
		menus = NewOptionMenus(DefaultMenuTTL)
	}
	service := &WhatsAppService{
		client: client,
		menus:  menus,
		stream: newEventStream("WhatsAppService"),
	}
	if waClient, ok := client.(*whatsapp.Client); ok {
		service.waClient = waClient
		slog.Debug("WhatsAppService created with full client for event handling")
	} else {
		slog.Debug("WhatsAppService created with interface client (likely mock)")
	}
	return service
}

// Start registers the whatsmeow event handler until ctx is done.
func (s *WhatsAppService) Start(ctx context.Context) error {
	if s.waClient == nil || s.waClient.GetClient() == nil {
		slog.Debug("WhatsAppService no full client available, skipping event handling (likely mock)")
		return nil
	}
	wa := s.waClient.GetClient()
	id := wa.AddEventHandler(func(evt interface{}) {
		switch v := evt.(type) {
		case *events.Message:
			s.handleIncomingMessage(v)
		case *events.Connected:
			slog.Info("WhatsAppService connected")
		case *events.Disconnected:
			slog.Warn("WhatsAppService disconnected")
		}
	})
	go func() {
		<-ctx.Done()
		wa.RemoveEventHandler(id)
		slog.Debug("WhatsAppService event handler removed")
	}()
	slog.Info("WhatsAppService event handler registered")
	return nil
}

// Stop closes the event channel.
func (s *WhatsAppService) Stop() error {
	if s.stream.close() {
		slog.Info("WhatsAppService stopped and channel closed")
	}
	return nil
}

// Events returns the channel of inbound events.
func (s *WhatsAppService) Events() <-chan models.Event {
	return s.stream.events
}

// Send renders msg as text and sends it to msg.ChatID (a phone number).
// Callback answers become a short text message, or nothing when empty.
func (s *WhatsAppService) Send(ctx context.Context, msg models.Message) error {
	if s.stream.isStopped() {
		return ErrServiceStopped
	}
	var body string
	switch msg.Kind {
	case models.MessageCallbackAnswer:
		if msg.Text == "" || msg.ChatID == "" {
			return nil
		}
		body = msg.Text
	case models.MessagePhoto:
		withLink := msg
		withLink.Text = msg.Text + "\n" + msg.PhotoURL
		body = s.menus.Render(withLink)
	default:
		body = s.menus.Render(msg)
	}
	if err := s.client.SendMessage(ctx, msg.ChatID, body); err != nil {
		slog.Error("WhatsAppService Send error", "error", err, "to", msg.ChatID)
		return err
	}
	slog.Debug("WhatsAppService message sent", "to", msg.ChatID, "kind", msg.Kind)
	return nil
}

// handleIncomingMessage turns a direct text message into an event.
func (s *WhatsAppService) handleIncomingMessage(evt *events.Message) {
	if evt.Message == nil || evt.Info.IsFromMe || evt.Info.IsGroup {
		return
	}

	var text string
	if evt.Message.Conversation != nil {
		text = *evt.Message.Conversation
	} else if evt.Message.ExtendedTextMessage != nil && evt.Message.ExtendedTextMessage.Text != nil {
		text = *evt.Message.ExtendedTextMessage.Text
	} else {
		slog.Debug("WhatsAppService ignoring non-text message", "from", evt.Info.Sender.String())
		return
	}

	user := evt.Info.Sender.User
	s.stream.emit(s.menus.Resolve(user, user, text))
}
