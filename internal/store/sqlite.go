// Package store provides storage backends for conversation messages.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"

	"github.com/venai/copilot/internal/models"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists messages in an SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN is a file path to the database file; missing directories are
// created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(cfg.DSN)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("SQLiteStore failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		slog.Error("SQLiteStore failed to open connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLiteStore ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("SQLiteStore failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLiteStore ready", "dsn", cfg.DSN)
	return &SQLiteStore{db: db}, nil
}

// AddMessage inserts a message, ignoring duplicates by ID.
func (s *SQLiteStore) AddMessage(msg models.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO messages (id, contact_id, sender, content, timestamp, push_name, instance_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.ContactID, string(msg.Sender), msg.Content, msg.Timestamp, msg.PushName, msg.InstanceID)
	if err != nil {
		slog.Error("SQLiteStore AddMessage failed", "error", err, "contact_id", msg.ContactID)
		return fmt.Errorf("failed to insert message %s: %w", msg.ID, err)
	}
	slog.Debug("SQLiteStore AddMessage succeeded", "contact_id", msg.ContactID, "message_id", msg.ID)
	return nil
}

// GetMessages returns the conversation of one contact in chronological order.
func (s *SQLiteStore) GetMessages(contactID string) ([]models.Message, error) {
	rows, err := s.db.Query(
		`SELECT id, contact_id, sender, content, timestamp, push_name, instance_id
		 FROM messages WHERE contact_id = ? ORDER BY timestamp ASC`, contactID)
	if err != nil {
		slog.Error("SQLiteStore GetMessages query failed", "error", err, "contact_id", contactID)
		return nil, fmt.Errorf("failed to query messages for %s: %w", contactID, err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

// ListConversations returns per-contact summaries ordered by most recent
// activity.
func (s *SQLiteStore) ListConversations(skip, limit int) ([]models.ConversationSummary, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(listConversationsQuery, limit, skip)
	if err != nil {
		slog.Error("SQLiteStore ListConversations query failed", "error", err)
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()
	return scanConversationSummaries(rows)
}

// DeleteConversation removes all messages of one contact.
func (s *SQLiteStore) DeleteConversation(contactID string) error {
	_, err := s.db.Exec(`DELETE FROM messages WHERE contact_id = ?`, contactID)
	if err != nil {
		slog.Error("SQLiteStore DeleteConversation failed", "error", err, "contact_id", contactID)
		return fmt.Errorf("failed to delete conversation %s: %w", contactID, err)
	}
	slog.Debug("SQLiteStore DeleteConversation succeeded", "contact_id", contactID)
	return nil
}

// DeleteAllConversations wipes every stored message.
func (s *SQLiteStore) DeleteAllConversations() error {
	_, err := s.db.Exec(`DELETE FROM messages`)
	if err != nil {
		slog.Error("SQLiteStore DeleteAllConversations failed", "error", err)
		return fmt.Errorf("failed to delete conversations: %w", err)
	}
	slog.Info("SQLiteStore DeleteAllConversations succeeded")
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	err := s.db.Close()
	if err != nil {
		slog.Error("SQLiteStore failed to close database", "error", err)
	}
	return err
}
