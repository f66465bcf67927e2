// Package messaging provides pluggable WhatsApp message transport.
//
// Two providers implement the Service interface: a Whatsmeow-based
// client listening to live WhatsApp events, and a Twilio-based client
// fed by inbound webhooks. Both emit incoming conversation messages on
// a channel that the ingestor drains into the store.
package messaging

import (
	"context"
	"regexp"
	"time"

	"github.com/venai/copilot/internal/models"
)

// Constants for messaging service configuration
const (
	// DefaultChannelBufferSize defines the default buffer size for the message channel
	DefaultChannelBufferSize = 100
	// DefaultChannelTimeout defines the default timeout for non-blocking channel operations
	DefaultChannelTimeout = 1 * time.Second
)

// phoneNumberRegex strips everything that is not a digit when
// canonicalizing recipients.
var phoneNumberRegex = regexp.MustCompile(`[^0-9]`)

// Service defines a pluggable message delivery abstraction.
type Service interface {
	// ValidateAndCanonicalizeRecipient validates and canonicalizes a recipient
	// identifier. Each provider implements its own rules.
	ValidateAndCanonicalizeRecipient(recipient string) (string, error)

	// SendMessage sends a message to a recipient.
	SendMessage(ctx context.Context, to string, body string) error

	// Start begins any background processing (e.g., event handling).
	Start(ctx context.Context) error

	// Stop stops background processing and cleans up resources.
	Stop() error

	// Messages returns a channel of incoming conversation messages.
	Messages() <-chan models.Message
}
