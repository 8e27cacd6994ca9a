package messaging

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/BTreeMap/RecipeBot/internal/models"
	"github.com/BTreeMap/RecipeBot/internal/whatsapp"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
)

// Ensure the services implement Service
func TestServicesImplementService(t *testing.T) {
	var _ Service = (*WhatsAppService)(nil)
	var _ Service = (*TwilioService)(nil)
	var _ Service = (*TelegramService)(nil)
}

func incoming(from, text string) *events.Message {
	jid := types.NewJID(from, whatsapp.JIDSuffix)
	return &events.Message{
		Info: types.MessageInfo{
			MessageSource: types.MessageSource{Chat: jid, Sender: jid},
		},
		Message: &waE2E.Message{Conversation: &text},
	}
}

func receive(t *testing.T, ch <-chan models.Event) models.Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	default:
		t.Fatal("expected an event, got none")
		return models.Event{}
	}
}

func TestWhatsAppService_SendRendersOptions(t *testing.T) {
	mockClient := whatsapp.NewMockClient()
	svc := NewWhatsAppService(mockClient, nil)
	ctx := context.Background()

	photo := models.NewPhotoMessage("15551234567", "https://img/sushi.jpg", "<b>Sushi</b>").AsHTML().
		WithButtons([]models.Button{{Label: "Add to favorites", Data: "fav_53065"}})
	if err := svc.Send(ctx, photo); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}

	sent := mockClient.Sent()
	if len(sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(sent))
	}
	body := sent[0].Body
	for _, want := range []string{"*Sushi*", "https://img/sushi.jpg", "1. Add to favorites"} {
		if !strings.Contains(body, want) {
			t.Errorf("body %q missing %q", body, want)
		}
	}
}

func TestWhatsAppService_CallbackAnswers(t *testing.T) {
	mockClient := whatsapp.NewMockClient()
	svc := NewWhatsAppService(mockClient, nil)
	ctx := context.Background()

	if err := svc.Send(ctx, models.NewCallbackAnswer("15551234567", "", "")); err != nil {
		t.Fatalf("empty answer returned error: %v", err)
	}
	if err := svc.Send(ctx, models.NewCallbackAnswer("15551234567", "", "Added to favorites!")); err != nil {
		t.Fatalf("answer returned error: %v", err)
	}
	sent := mockClient.Sent()
	if len(sent) != 1 || sent[0].Body != "Added to favorites!" {
		t.Errorf("expected only the non-empty answer, got %+v", sent)
	}
}

func TestWhatsAppService_IncomingNumberResolvesCallback(t *testing.T) {
	svc := NewWhatsAppService(whatsapp.NewMockClient(), nil)
	ctx := context.Background()

	rating := models.NewTextMessage("15551234567", "Rate this recipe:").WithButtons([]models.Button{
		{Label: "1 ⭐", Data: "rate_53065_1"},
		{Label: "2 ⭐", Data: "rate_53065_2"},
	})
	if err := svc.Send(ctx, rating); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}

	svc.handleIncomingMessage(incoming("15551234567", " 2 "))
	ev := receive(t, svc.Events())
	if ev.Kind != models.EventCallback || ev.Data != "rate_53065_2" || ev.UserID != "15551234567" || ev.ChatID != "15551234567" {
		t.Errorf("unexpected event %+v", ev)
	}

	svc.handleIncomingMessage(incoming("15551234567", "/find pasta"))
	ev = receive(t, svc.Events())
	if ev.Kind != models.EventCommand || ev.Command != "find" || ev.Text != "pasta" {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestWhatsAppService_IgnoresOwnAndGroupMessages(t *testing.T) {
	svc := NewWhatsAppService(whatsapp.NewMockClient(), nil)

	own := incoming("1", "hello")
	own.Info.IsFromMe = true
	group := incoming("2", "hello")
	group.Info.IsGroup = true
	svc.handleIncomingMessage(own)
	svc.handleIncomingMessage(group)
	svc.handleIncomingMessage(&events.Message{})

	select {
	case ev := <-svc.Events():
		t.Errorf("unexpected event %+v", ev)
	default:
	}
}

func TestWhatsAppService_StartStop(t *testing.T) {
	svc := NewWhatsAppService(whatsapp.NewMockClient(), nil)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if err := svc.Stop(); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
	if err := svc.Stop(); err != nil {
		t.Fatalf("second Stop returned error: %v", err)
	}
	if _, ok := <-svc.Events(); ok {
		t.Error("expected events channel to be closed")
	}
	err := svc.Send(context.Background(), models.NewTextMessage("1", "hi"))
	if !errors.Is(err, ErrServiceStopped) {
		t.Errorf("Send after Stop error = %v, want ErrServiceStopped", err)
	}
	// emitting after stop is a no-op
	svc.handleIncomingMessage(incoming("1", "hello"))
}
