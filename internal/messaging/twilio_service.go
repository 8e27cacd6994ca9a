package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/BTreeMap/RecipeBot/internal/models"
	"github.com/BTreeMap/RecipeBot/internal/twiliowhatsapp"
	twilioclient "github.com/twilio/twilio-go/client"
)

// emptyTwiML acknowledges a webhook without replying through Twilio.
const emptyTwiML = `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`

// TwilioSignatureHeader carries Twilio's request signature.
const TwilioSignatureHeader = "X-Twilio-Signature"

// TwilioOption configures a TwilioService.
type TwilioOption func(*TwilioService)

// WithSignatureValidation rejects webhook requests whose X-Twilio-Signature does not
// match authToken. webhookURL is the public URL configured in Twilio; when empty it is
// rebuilt from the request (Host, X-Forwarded-Proto).
func WithSignatureValidation(authToken, webhookURL string) TwilioOption {
	return func(s *TwilioService) {
		v := twilioclient.NewRequestValidator(authToken)
		s.validator = &v
		s.webhookURL = webhookURL
	}
}

// TwilioService implements Service using the Twilio API. Inbound messages
// arrive through WebhookHandler; photos are sent as media messages.
type TwilioService struct {
	client     twiliowhatsapp.Sender // real Twilio client or MockClient
	menus      *OptionMenus
	stream     *eventStream
	validator  *twilioclient.RequestValidator
	webhookURL string
}

// NewTwilioService creates a TwilioService.
func NewTwilioService(sender twiliowhatsapp.Sender, menus *OptionMenus, opts ...TwilioOption) *TwilioService {
	if menus == nil {
		menus = NewOptionMenus(DefaultMenuTTL)
	}
	s := &TwilioService{
		client: sender,
		menus:  menus,
		stream: newEventStream("TwilioService"),
	}
	for _, opt := range opts {
		opt(s)
	}
	slog.Debug("TwilioService created", "signature_validation", s.validator != nil, "webhook_url_set", s.webhookURL != "")
	return s
}

// Start is a no-op; inbound messages are pushed by the webhook.
func (s *TwilioService) Start(ctx context.Context) error {
	return nil
}

// Stop closes the event channel.
func (s *TwilioService) Stop() error {
	if s.stream.close() {
		slog.Info("TwilioService stopped and channel closed")
	}
	return nil
}

// Events returns the channel of inbound events.
func (s *TwilioService) Events() <-chan models.Event {
	return s.stream.events
}

// Send renders msg as text and sends it to msg.ChatID (an E.164 number).
func (s *TwilioService) Send(ctx context.Context, msg models.Message) error {
	if s.stream.isStopped() {
		return ErrServiceStopped
	}
	var err error
	switch msg.Kind {
	case models.MessageCallbackAnswer:
		if msg.Text == "" || msg.ChatID == "" {
			return nil
		}
		err = s.client.SendMessage(ctx, msg.ChatID, msg.Text)
	case models.MessagePhoto:
		err = s.client.SendMedia(ctx, msg.ChatID, s.menus.Render(msg), msg.PhotoURL)
	default:
		err = s.client.SendMessage(ctx, msg.ChatID, s.menus.Render(msg))
	}
	if err != nil {
		slog.Error("TwilioService Send error", "error", err, "to", msg.ChatID)
		return err
	}
	return nil
}

// WebhookHandler handles inbound Twilio webhook requests and emits them as events.
func (s *TwilioService) WebhookHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		slog.Error("Failed to parse Twilio webhook form", "error", err)
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	if !s.validSignature(r) {
		slog.Warn("Twilio webhook signature rejected", "remote", r.RemoteAddr)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	from := twiliowhatsapp.Number(r.FormValue("From"))
	body := r.FormValue("Body")
	if from == "" || body == "" {
		slog.Warn("Twilio webhook missing fields", "from_set", from != "", "body_set", body != "")
		http.Error(w, "Missing required fields", http.StatusBadRequest)
		return
	}
	if s.stream.isStopped() {
		http.Error(w, ErrServiceStopped.Error(), http.StatusServiceUnavailable)
		return
	}

	slog.Debug("Inbound WhatsApp message from Twilio", "from", from, "body_length", len(body))
	s.stream.emit(s.menus.Resolve(from, from, body))

	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, emptyTwiML)
}

func (s *TwilioService) validSignature(r *http.Request) bool {
	if s.validator == nil {
		return true
	}
	signature := r.Header.Get(TwilioSignatureHeader)
	if signature == "" {
		return false
	}
	params := make(map[string]string, len(r.PostForm))
	for key, values := range r.PostForm {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	return s.validator.Validate(s.signedURL(r), params, signature)
}

// signedURL is the URL Twilio signed the request for.
func (s *TwilioService) signedURL(r *http.Request) string {
	if s.webhookURL != "" {
		return s.webhookURL
	}
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}
