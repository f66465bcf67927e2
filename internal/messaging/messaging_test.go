package messaging

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/venai/copilot/internal/models"
	"github.com/venai/copilot/internal/store"
	"github.com/venai/copilot/internal/twiliowhatsapp"
	"github.com/venai/copilot/internal/whatsapp"
)

func TestValidateAndCanonicalizeRecipient(t *testing.T) {
	tests := []struct {
		name      string
		recipient string
		want      string
		wantErr   bool
	}{
		{name: "plain number", recipient: "5511999999999", want: "5511999999999"},
		{name: "formatted number", recipient: "+55 (11) 99999-9999", want: "5511999999999"},
		{name: "whatsapp prefix", recipient: "whatsapp:+5511999999999", want: "5511999999999"},
		{name: "empty", recipient: "", wantErr: true},
		{name: "no digits", recipient: "abc", wantErr: true},
		{name: "too short", recipient: "12345", wantErr: true},
	}

	waService := NewWhatsAppService(whatsapp.NewMockClient())
	twilioService := NewTwilioService(twiliowhatsapp.NewMockClient())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, svc := range []Service{waService, twilioService} {
				got, err := svc.ValidateAndCanonicalizeRecipient(tt.recipient)
				if tt.wantErr {
					if err == nil {
						t.Errorf("expected error for %q", tt.recipient)
					}
					continue
				}
				if err != nil {
					t.Errorf("unexpected error for %q: %v", tt.recipient, err)
					continue
				}
				if got != tt.want {
					t.Errorf("canonicalized %q to %q, want %q", tt.recipient, got, tt.want)
				}
			}
		})
	}
}

func TestTwilioServiceSendMessageCanonicalizes(t *testing.T) {
	mock := twiliowhatsapp.NewMockClient()
	s := NewTwilioService(mock)

	if err := s.SendMessage(context.Background(), "+55 11 99999-9999", "olá"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mock.SentMessages) != 1 || mock.SentMessages[0].To != "5511999999999" {
		t.Errorf("unexpected sent messages: %+v", mock.SentMessages)
	}
}

func TestTwilioServiceSendAfterStop(t *testing.T) {
	s := NewTwilioService(twiliowhatsapp.NewMockClient())
	if err := s.Stop(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.SendMessage(context.Background(), "5511999999999", "olá"); err != models.ErrServiceStopped {
		t.Errorf("expected ErrServiceStopped, got %v", err)
	}
}

func TestTwilioWebhookHandlerEmitsMessage(t *testing.T) {
	s := NewTwilioService(twiliowhatsapp.NewMockClient())

	form := url.Values{}
	form.Set("From", "whatsapp:+5511988887777")
	form.Set("Body", "Qual o preço do plano Pro?")
	form.Set("MessageSid", "SM123")
	form.Set("ProfileName", "Ana")

	req := httptest.NewRequest(http.MethodPost, "/webhook/twilio", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	s.TwilioWebhookHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	select {
	case msg := <-s.Messages():
		if msg.ID != "SM123" {
			t.Errorf("expected message ID SM123, got %q", msg.ID)
		}
		if msg.ContactID != "5511988887777" {
			t.Errorf("expected contact 5511988887777, got %q", msg.ContactID)
		}
		if msg.Sender != models.SenderCustomer {
			t.Errorf("expected customer sender, got %q", msg.Sender)
		}
		if msg.PushName != "Ana" {
			t.Errorf("expected push name Ana, got %q", msg.PushName)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a message on the channel")
	}
}

func TestTwilioWebhookHandlerRejectsMissingFields(t *testing.T) {
	s := NewTwilioService(twiliowhatsapp.NewMockClient())

	form := url.Values{}
	form.Set("From", "whatsapp:+5511988887777")

	req := httptest.NewRequest(http.MethodPost, "/webhook/twilio", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	s.TwilioWebhookHandler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
}

// stubService is a minimal Service feeding a fixed channel to the ingestor.
type stubService struct {
	messages chan models.Message
}

func (s *stubService) ValidateAndCanonicalizeRecipient(r string) (string, error) { return r, nil }
func (s *stubService) SendMessage(ctx context.Context, to, body string) error    { return nil }
func (s *stubService) Start(ctx context.Context) error                           { return nil }
func (s *stubService) Stop() error                                               { return nil }
func (s *stubService) Messages() <-chan models.Message                           { return s.messages }

func TestIngestorPersistsMessages(t *testing.T) {
	svc := &stubService{messages: make(chan models.Message, 3)}
	st := store.NewInMemoryStore()
	ingestor := NewIngestor(svc, st)

	done := make(chan struct{})
	go func() {
		defer close(done)
		ingestor.Run(context.Background())
	}()

	svc.messages <- models.Message{ID: "m1", ContactID: "contact", Sender: models.SenderCustomer, Content: "Bom dia", Timestamp: 1}
	// Invalid message must be skipped, not stall the loop.
	svc.messages <- models.Message{ID: "m2", ContactID: "contact", Sender: "robot", Content: "x", Timestamp: 2}
	svc.messages <- models.Message{ID: "m3", ContactID: "contact", Sender: models.SenderSalesperson, Content: "Olá!", Timestamp: 3}
	close(svc.messages)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ingestor did not stop after channel close")
	}

	history, err := st.GetMessages("contact")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 persisted messages, got %d", len(history))
	}
	if history[0].ID != "m1" || history[1].ID != "m3" {
		t.Errorf("unexpected persisted messages: %+v", history)
	}
}
