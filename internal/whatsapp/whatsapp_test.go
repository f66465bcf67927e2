package whatsapp

import (
	"context"
	"testing"

	"go.mau.fi/whatsmeow/proto/waE2E"
	"google.golang.org/protobuf/proto"
)

func TestExtractMessageText(t *testing.T) {
	tests := []struct {
		name string
		msg  *waE2E.Message
		want string
	}{
		{
			name: "nil message",
			msg:  nil,
			want: "",
		},
		{
			name: "plain conversation",
			msg:  &waE2E.Message{Conversation: proto.String("Qual o preço do plano Pro?")},
			want: "Qual o preço do plano Pro?",
		},
		{
			name: "extended text message",
			msg: &waE2E.Message{
				ExtendedTextMessage: &waE2E.ExtendedTextMessage{Text: proto.String("Pode me enviar a proposta?")},
			},
			want: "Pode me enviar a proposta?",
		},
		{
			name: "template message with hydrated content",
			msg: &waE2E.Message{
				TemplateMessage: &waE2E.TemplateMessage{
					HydratedTemplate: &waE2E.TemplateMessage_HydratedFourRowTemplate{
						HydratedContentText: proto.String("Confirme sua reunião"),
					},
				},
			},
			want: "Confirme sua reunião",
		},
		{
			name: "image caption",
			msg: &waE2E.Message{
				ImageMessage: &waE2E.ImageMessage{Caption: proto.String("Segue o print do erro")},
			},
			want: "Segue o print do erro",
		},
		{
			name: "video caption",
			msg: &waE2E.Message{
				VideoMessage: &waE2E.VideoMessage{Caption: proto.String("Vídeo da demonstração")},
			},
			want: "Vídeo da demonstração",
		},
		{
			name: "audio message has no text",
			msg:  &waE2E.Message{AudioMessage: &waE2E.AudioMessage{}},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractMessageText(tt.msg); got != tt.want {
				t.Errorf("ExtractMessageText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMockClientSendMessage(t *testing.T) {
	m := NewMockClient()
	if err := m.SendMessage(context.Background(), "5511999999999", "olá"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
