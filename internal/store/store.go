// Package store provides storage backends for conversation messages.
//
// It includes an in-memory store for tests and development plus
// SQLite and PostgreSQL backed stores selected by DSN. Messages are
// immutable once written: duplicate inserts by message ID are ignored.
package store

import (
	"sort"
	"strings"
	"sync"

	"github.com/venai/copilot/internal/models"
)

// Store defines the conversation persistence operations.
type Store interface {
	// AddMessage appends a message; inserts with an already-stored ID are no-ops.
	AddMessage(msg models.Message) error

	// GetMessages returns the full history of one conversation in
	// chronological order.
	GetMessages(contactID string) ([]models.Message, error)

	// ListConversations returns per-contact summaries ordered by most
	// recent activity, paginated by skip/limit. A limit <= 0 means no limit.
	ListConversations(skip, limit int) ([]models.ConversationSummary, error)

	// DeleteConversation removes all messages of one contact.
	DeleteConversation(contactID string) error

	// DeleteAllConversations wipes every stored message.
	DeleteAllConversations() error

	// Close releases the underlying resources.
	Close() error
}

// Opts holds configuration options for store implementations.
type Opts struct {
	DSN string
}

// Option defines a configuration option for store implementations.
type Option func(*Opts)

// WithDSN sets the database DSN.
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType reports which SQL driver a DSN belongs to: "postgres"
// for PostgreSQL URLs or key-value DSNs, "sqlite3" otherwise.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite3"
}

// InMemoryStore is a mutex-guarded in-memory store keyed by contact ID.
type InMemoryStore struct {
	mu       sync.RWMutex
	byID     map[string]bool
	messages map[string][]models.Message
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:     make(map[string]bool),
		messages: make(map[string][]models.Message),
	}
}

// AddMessage stores a message, ignoring duplicates by ID.
func (s *InMemoryStore) AddMessage(msg models.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.byID[msg.ID] {
		return nil
	}
	s.byID[msg.ID] = true
	s.messages[msg.ContactID] = append(s.messages[msg.ContactID], msg)
	return nil
}

// GetMessages returns a chronological copy of one conversation.
func (s *InMemoryStore) GetMessages(contactID string) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := make([]models.Message, len(s.messages[contactID]))
	copy(history, s.messages[contactID])
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].Timestamp < history[j].Timestamp
	})
	return history, nil
}

// ListConversations returns summaries ordered by most recent activity.
func (s *InMemoryStore) ListConversations(skip, limit int) ([]models.ConversationSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]models.ConversationSummary, 0, len(s.messages))
	for contactID, history := range s.messages {
		last := history[0]
		pushName := last.PushName
		for _, msg := range history[1:] {
			if msg.Timestamp >= last.Timestamp {
				last = msg
			}
			if msg.PushName != "" {
				pushName = msg.PushName
			}
		}
		summaries = append(summaries, models.ConversationSummary{
			ContactID:     contactID,
			PushName:      pushName,
			LastMessage:   last.Content,
			LastTimestamp: last.Timestamp,
			MessageCount:  len(history),
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].LastTimestamp != summaries[j].LastTimestamp {
			return summaries[i].LastTimestamp > summaries[j].LastTimestamp
		}
		return summaries[i].ContactID < summaries[j].ContactID
	})
	return paginate(summaries, skip, limit), nil
}

// DeleteConversation removes all messages of one contact.
func (s *InMemoryStore) DeleteConversation(contactID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, msg := range s.messages[contactID] {
		delete(s.byID, msg.ID)
	}
	delete(s.messages, contactID)
	return nil
}

// DeleteAllConversations wipes the store.
func (s *InMemoryStore) DeleteAllConversations() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID = make(map[string]bool)
	s.messages = make(map[string][]models.Message)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error { return nil }

func paginate(summaries []models.ConversationSummary, skip, limit int) []models.ConversationSummary {
	if skip < 0 {
		skip = 0
	}
	if skip >= len(summaries) {
		return []models.ConversationSummary{}
	}
	summaries = summaries[skip:]
	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries
}
