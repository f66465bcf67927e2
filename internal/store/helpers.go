package store

import (
	"database/sql"
	"fmt"

	"github.com/venai/copilot/internal/models"
)

// listConversationsQuery picks the latest message per contact with a
// window function, which both SQLite and PostgreSQL support. Parameters:
// limit (or -1 for none), offset.
const listConversationsQuery = `
	SELECT contact_id, push_name, content, timestamp, message_count FROM (
		SELECT contact_id, push_name, content, timestamp,
		       ROW_NUMBER() OVER (PARTITION BY contact_id ORDER BY timestamp DESC, id DESC) AS rn,
		       COUNT(*) OVER (PARTITION BY contact_id) AS message_count
		FROM messages
	) latest
	WHERE rn = 1
	ORDER BY timestamp DESC
	LIMIT ? OFFSET ?`

// scanMessages drains message rows into a slice.
func scanMessages(rows *sql.Rows) ([]models.Message, error) {
	var messages []models.Message
	for rows.Next() {
		var m models.Message
		var sender string
		if err := rows.Scan(&m.ID, &m.ContactID, &sender, &m.Content, &m.Timestamp, &m.PushName, &m.InstanceID); err != nil {
			return nil, fmt.Errorf("scan message failed: %w", err)
		}
		m.Sender = models.Sender(sender)
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate message rows: %w", err)
	}
	return messages, nil
}

// scanConversationSummaries drains summary rows into a slice.
func scanConversationSummaries(rows *sql.Rows) ([]models.ConversationSummary, error) {
	summaries := []models.ConversationSummary{}
	for rows.Next() {
		var c models.ConversationSummary
		if err := rows.Scan(&c.ContactID, &c.PushName, &c.LastMessage, &c.LastTimestamp, &c.MessageCount); err != nil {
			return nil, fmt.Errorf("scan conversation summary failed: %w", err)
		}
		summaries = append(summaries, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate conversation rows: %w", err)
	}
	return summaries, nil
}
