package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the relay's SQLite database: conversations, directory contacts
// and delivered messages.
type DB struct {
	*sql.DB
}

// Open creates a new SQLite connection with WAL mode and recommended pragmas.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &DB{db}, nil
}

// Stats holds row counts.
type Stats struct {
	Conversations int64
	Contacts      int64
	Messages      int64
}

// Stats returns row counts of every table.
func (db *DB) Stats() (Stats, error) {
	var s Stats
	err := db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM conversations),
			(SELECT COUNT(*) FROM contacts),
			(SELECT COUNT(*) FROM messages)`).
		Scan(&s.Conversations, &s.Contacts, &s.Messages)
	return s, err
}
