package twiliowhatsapp

import (
	"context"
	"testing"
)

func TestMockClient_SendMessage(t *testing.T) {
	ctx := context.Background()
	mock := NewMockClient()

	if err := mock.SendMessage(ctx, "+12345", "Hello Test"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.SendMedia(ctx, "+12345", "Sushi", "https://example.com/sushi.jpg"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sent := mock.Sent()
	if len(sent) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(sent))
	}
	if sent[0].Body != "Hello Test" || sent[0].MediaURL != "" {
		t.Errorf("unexpected first message %+v", sent[0])
	}
	if sent[1].MediaURL != "https://example.com/sushi.jpg" {
		t.Errorf("expected media URL, got %+v", sent[1])
	}
}

func TestAddressAndNumber(t *testing.T) {
	if got := Address("+15551234567"); got != "whatsapp:+15551234567" {
		t.Errorf("Address = %q", got)
	}
	if got := Address("whatsapp:+15551234567"); got != "whatsapp:+15551234567" {
		t.Errorf("Address should not double the prefix, got %q", got)
	}
	if got := Number("whatsapp:+15551234567"); got != "+15551234567" {
		t.Errorf("Number = %q", got)
	}
}

func TestNewClientRequiresCredentials(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")
	t.Setenv("TWILIO_FROM_NUMBER", "")

	if _, err := NewClient(); err == nil {
		t.Error("expected error without credentials")
	}
	if _, err := NewClient(WithAccountSID("AC123"), WithAuthToken("tok")); err == nil {
		t.Error("expected error without a from number")
	}
	c, err := NewClient(WithAccountSID("AC123"), WithAuthToken("tok"), WithFromWhats("+15550000000"))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if c.fromWhats != "whatsapp:+15550000000" {
		t.Errorf("fromWhats = %q", c.fromWhats)
	}
}

func TestNewClientFromEnv(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "AC999")
	t.Setenv("TWILIO_AUTH_TOKEN", "secret")
	t.Setenv("TWILIO_FROM_NUMBER", "whatsapp:+15551112222")

	c, err := NewClient()
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if c.fromWhats != "whatsapp:+15551112222" {
		t.Errorf("fromWhats = %q", c.fromWhats)
	}
}
