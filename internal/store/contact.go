package store

import (
	"fmt"
	"time"
)

// Contact is an entry of an owner's directory.
type Contact struct {
	Owner           string
	Contact         string
	ConversationKey string
	CreatedAt       int64
}

// CreateOrFetchContact returns owner's contact entry for contact, creating
// it (and the pair's conversation) when missing. Calling it again returns the
// same entry.
func (db *DB) CreateOrFetchContact(owner, contact, hint string) (*Contact, bool, error) {
	key, _, err := db.EnsureConversation(owner, contact, hint)
	if err != nil {
		return nil, false, err
	}
	res, err := db.Exec(`
		INSERT OR IGNORE INTO contacts (owner, contact, conversation_key, created_at)
		VALUES (?, ?, ?, ?)`,
		owner, contact, key, time.Now().UnixMilli())
	if err != nil {
		return nil, false, fmt.Errorf("insert contact: %w", err)
	}
	n, _ := res.RowsAffected()

	var c Contact
	err = db.QueryRow(`
		SELECT owner, contact, conversation_key, created_at
		FROM contacts WHERE owner = ? AND contact = ?`, owner, contact).
		Scan(&c.Owner, &c.Contact, &c.ConversationKey, &c.CreatedAt)
	if err != nil {
		return nil, false, fmt.Errorf("read contact: %w", err)
	}
	return &c, n == 1, nil
}

// ListContacts returns owner's contacts in creation order.
func (db *DB) ListContacts(owner string) ([]Contact, error) {
	rows, err := db.Query(`
		SELECT owner, contact, conversation_key, created_at
		FROM contacts
		WHERE owner = ?
		ORDER BY id`, owner)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.Owner, &c.Contact, &c.ConversationKey, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
