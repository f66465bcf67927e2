package whatsapp

import (
	"go.mau.fi/whatsmeow/proto/waE2E"
)

// ExtractMessageText pulls the human-readable text out of an incoming
// WhatsApp message. Plain conversations and extended text carry their
// text directly; template messages carry it in the hydrated content;
// image and video messages contribute their caption. Returns the empty
// string for message kinds without text (stickers, audio, documents).
func ExtractMessageText(msg *waE2E.Message) string {
	if msg == nil {
		return ""
	}
	if text := msg.GetConversation(); text != "" {
		return text
	}
	if ext := msg.GetExtendedTextMessage(); ext != nil {
		if text := ext.GetText(); text != "" {
			return text
		}
	}
	if tpl := msg.GetTemplateMessage(); tpl != nil {
		if hydrated := tpl.GetHydratedTemplate(); hydrated != nil {
			if text := hydrated.GetHydratedContentText(); text != "" {
				return text
			}
		}
	}
	if img := msg.GetImageMessage(); img != nil {
		if caption := img.GetCaption(); caption != "" {
			return caption
		}
	}
	if vid := msg.GetVideoMessage(); vid != nil {
		if caption := vid.GetCaption(); caption != "" {
			return caption
		}
	}
	return ""
}
