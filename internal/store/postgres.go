// Package store provides storage backends for conversation messages.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "embed"

	_ "github.com/lib/pq"

	"github.com/venai/copilot/internal/models"
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// listConversationsQueryPostgres mirrors listConversationsQuery with
// PostgreSQL placeholders. A NULL limit means no limit.
const listConversationsQueryPostgres = `
	SELECT contact_id, push_name, content, timestamp, message_count FROM (
		SELECT contact_id, push_name, content, timestamp,
		       ROW_NUMBER() OVER (PARTITION BY contact_id ORDER BY timestamp DESC, id DESC) AS rn,
		       COUNT(*) OVER (PARTITION BY contact_id) AS message_count
		FROM messages
	) latest
	WHERE rn = 1
	ORDER BY timestamp DESC
	LIMIT $1 OFFSET $2`

// PostgresStore persists messages in a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL store with the given DSN.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		slog.Error("PostgresStore failed to open connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("PostgresStore ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("PostgresStore failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("PostgresStore ready")
	return &PostgresStore{db: db}, nil
}

// AddMessage inserts a message, ignoring duplicates by ID.
func (s *PostgresStore) AddMessage(msg models.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	_, err := s.db.Exec(
		`INSERT INTO messages (id, contact_id, sender, content, timestamp, push_name, instance_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO NOTHING`,
		msg.ID, msg.ContactID, string(msg.Sender), msg.Content, msg.Timestamp, msg.PushName, msg.InstanceID)
	if err != nil {
		slog.Error("PostgresStore AddMessage failed", "error", err, "contact_id", msg.ContactID)
		return fmt.Errorf("failed to insert message %s: %w", msg.ID, err)
	}
	slog.Debug("PostgresStore AddMessage succeeded", "contact_id", msg.ContactID, "message_id", msg.ID)
	return nil
}

// GetMessages returns the conversation of one contact in chronological order.
func (s *PostgresStore) GetMessages(contactID string) ([]models.Message, error) {
	rows, err := s.db.Query(
		`SELECT id, contact_id, sender, content, timestamp, push_name, instance_id
		 FROM messages WHERE contact_id = $1 ORDER BY timestamp ASC`, contactID)
	if err != nil {
		slog.Error("PostgresStore GetMessages query failed", "error", err, "contact_id", contactID)
		return nil, fmt.Errorf("failed to query messages for %s: %w", contactID, err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

// ListConversations returns per-contact summaries ordered by most recent
// activity.
func (s *PostgresStore) ListConversations(skip, limit int) ([]models.ConversationSummary, error) {
	if skip < 0 {
		skip = 0
	}
	var limitArg interface{}
	if limit > 0 {
		limitArg = limit
	}
	rows, err := s.db.Query(listConversationsQueryPostgres, limitArg, skip)
	if err != nil {
		slog.Error("PostgresStore ListConversations query failed", "error", err)
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()
	return scanConversationSummaries(rows)
}

// DeleteConversation removes all messages of one contact.
func (s *PostgresStore) DeleteConversation(contactID string) error {
	_, err := s.db.Exec(`DELETE FROM messages WHERE contact_id = $1`, contactID)
	if err != nil {
		slog.Error("PostgresStore DeleteConversation failed", "error", err, "contact_id", contactID)
		return fmt.Errorf("failed to delete conversation %s: %w", contactID, err)
	}
	slog.Debug("PostgresStore DeleteConversation succeeded", "contact_id", contactID)
	return nil
}

// DeleteAllConversations wipes every stored message.
func (s *PostgresStore) DeleteAllConversations() error {
	_, err := s.db.Exec(`DELETE FROM messages`)
	if err != nil {
		slog.Error("PostgresStore DeleteAllConversations failed", "error", err)
		return fmt.Errorf("failed to delete conversations: %w", err)
	}
	slog.Info("PostgresStore DeleteAllConversations succeeded")
	return nil
}

// Close closes the PostgreSQL database connection.
func (s *PostgresStore) Close() error {
	err := s.db.Close()
	if err != nil {
		slog.Error("PostgresStore failed to close database", "error", err)
	}
	return err
}
