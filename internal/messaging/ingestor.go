package messaging

import (
	"context"
	"log/slog"

	"github.com/venai/copilot/internal/models"
	"github.com/venai/copilot/internal/store"
)

// Ingestor drains incoming messages from a Service into the store so
// every conversation is complete when a suggestion request arrives.
type Ingestor struct {
	service Service
	store   store.Store
}

// NewIngestor creates an ingestor over the given service and store.
func NewIngestor(service Service, st store.Store) *Ingestor {
	return &Ingestor{service: service, store: st}
}

// Run consumes messages until the channel closes or the context is
// cancelled. Persistence failures are logged and skipped; a single bad
// message must not stall ingestion.
func (i *Ingestor) Run(ctx context.Context) {
	slog.Debug("Ingestor started")
	for {
		select {
		case <-ctx.Done():
			slog.Debug("Ingestor stopping due to context cancellation")
			return
		case msg, ok := <-i.service.Messages():
			if !ok {
				slog.Debug("Ingestor stopping, message channel closed")
				return
			}
			i.persist(msg)
		}
	}
}

func (i *Ingestor) persist(msg models.Message) {
	if err := i.store.AddMessage(msg); err != nil {
		slog.Error("Ingestor failed to persist message", "error", err, "contact_id", msg.ContactID, "message_id", msg.ID)
		return
	}
	slog.Debug("Ingestor persisted message", "contact_id", msg.ContactID, "message_id", msg.ID, "sender", msg.Sender)
}
