// Package store persists chat sessions in SQLite so a conversation can
// be resumed across runs with --session-id.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"duckchat/internal/session"
)

// Store is the SQLite-backed session repository.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			start_time DATETIME,
			model TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT,
			role TEXT,
			content TEXT,
			timestamp DATETIME,
			FOREIGN KEY(session_id) REFERENCES sessions(id)
		);`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}

	return &Store{db: db}, nil
}

// Save upserts the session and rewrites its message log.
func (s *Store) Save(sess session.Session, msgs []session.Message) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"INSERT OR REPLACE INTO sessions (id, start_time, model) VALUES (?, ?, ?)",
		sess.ID, sess.StartTime, sess.Model,
	)
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM messages WHERE session_id = ?", sess.ID); err != nil {
		return fmt.Errorf("clearing messages: %w", err)
	}

	for _, msg := range msgs {
		_, err := tx.Exec(
			"INSERT INTO messages (session_id, role, content, timestamp) VALUES (?, ?, ?, ?)",
			sess.ID, string(msg.Role), msg.Content, msg.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("saving message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Load returns the session metadata and its messages in order.
func (s *Store) Load(id string) (session.Session, []session.Message, error) {
	var sess session.Session
	var startTime time.Time

	err := s.db.QueryRow("SELECT id, start_time, model FROM sessions WHERE id = ?", id).
		Scan(&sess.ID, &startTime, &sess.Model)
	if err != nil {
		return session.Session{}, nil, fmt.Errorf("session not found: %w", err)
	}
	sess.StartTime = startTime

	rows, err := s.db.Query(
		"SELECT role, content, timestamp FROM messages WHERE session_id = ? ORDER BY id",
		id,
	)
	if err != nil {
		return session.Session{}, nil, fmt.Errorf("loading messages: %w", err)
	}
	defer rows.Close()

	var msgs []session.Message
	for rows.Next() {
		var msg session.Message
		var role string
		if err := rows.Scan(&role, &msg.Content, &msg.Timestamp); err != nil {
			return session.Session{}, nil, fmt.Errorf("scanning message: %w", err)
		}
		msg.Role = session.Role(role)
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return session.Session{}, nil, fmt.Errorf("iterating messages: %w", err)
	}

	return sess, msgs, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
