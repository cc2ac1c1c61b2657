package store

import "time"

// Message is a message the relay delivered.
type Message struct {
	ID              int64
	ConversationKey string
	MessageID       string
	Sender          string
	Recipient       string
	Body            string
	CreatedAt       int64
}

// AppendMessage stores m unless a message with the same MessageID exists.
// It reports whether a row was inserted.
func (db *DB) AppendMessage(m *Message) (bool, error) {
	if m.CreatedAt == 0 {
		m.CreatedAt = time.Now().UnixMilli()
	}
	res, err := db.Exec(`
		INSERT OR IGNORE INTO messages (conversation_key, message_id, sender, recipient, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.ConversationKey, m.MessageID, m.Sender, m.Recipient, m.Body, m.CreatedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// HasMessage reports whether a message with the given id was stored.
func (db *DB) HasMessage(messageID string) (bool, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM messages WHERE message_id = ?`, messageID).Scan(&n)
	return n > 0, err
}

// ListMessages returns the most recent messages of a conversation in
// chronological order. limit <= 0 returns all of them.
func (db *DB) ListMessages(conversationKey string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.Query(`
		SELECT id, conversation_key, message_id, sender, recipient, body, created_at
		FROM (
			SELECT * FROM messages
			WHERE conversation_key = ?
			ORDER BY id DESC
			LIMIT ?
		)
		ORDER BY id ASC`, conversationKey, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationKey, &m.MessageID, &m.Sender, &m.Recipient, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
