package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// pair orders two identities so that (a, b) and (b, a) address the same row.
func pair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// EnsureConversation returns the key of the conversation between a and b,
// creating it when the pair has none. A non-empty hint is adopted as the key
// of a new conversation unless another pair already uses it; otherwise a
// random UUID is assigned.
func (db *DB) EnsureConversation(a, b, hint string) (key string, created bool, err error) {
	pa, pb := pair(a, b)
	if key, err := db.conversationKey(pa, pb); err != nil || key != "" {
		return key, false, err
	}

	candidates := []string{uuid.NewString()}
	if hint != "" {
		candidates = []string{hint, uuid.NewString()}
	}
	now := time.Now().UnixMilli()
	for _, candidate := range candidates {
		res, err := db.Exec(`INSERT OR IGNORE INTO conversations (key, party_a, party_b, created_at) VALUES (?, ?, ?, ?)`,
			candidate, pa, pb, now)
		if err != nil {
			return "", false, fmt.Errorf("insert conversation: %w", err)
		}
		n, _ := res.RowsAffected()
		key, err := db.conversationKey(pa, pb)
		if err != nil {
			return "", false, err
		}
		if key != "" {
			return key, n == 1 && key == candidate, nil
		}
	}
	return "", false, fmt.Errorf("no conversation key available for %s/%s", pa, pb)
}

func (db *DB) conversationKey(pa, pb string) (string, error) {
	var key string
	err := db.QueryRow(`SELECT key FROM conversations WHERE party_a = ? AND party_b = ?`, pa, pb).Scan(&key)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup conversation: %w", err)
	}
	return key, nil
}
