package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"studio/internal/domain"
)

// Store journals conversation transcripts and generation task outcomes in a
// local SQLite database so the studio survives restarts with its history
// intact.
type Store struct {
	db *sql.DB
}

// Message is one persisted transcript entry.
type Message struct {
	ID        int64
	SessionID string
	Role      string
	Content   string
	CreatedAt time.Time
}

// TaskEvent is one persisted task status observation.
type TaskEvent struct {
	ID        int64
	TaskID    string
	Status    domain.TaskStatus
	Progress  int
	Stage     string
	ResultURL string
	Error     string
	CreatedAt time.Time
}

// Open creates or opens the database at path, creating parent directories as
// needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("history: create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) migrate() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id)`,
		`CREATE TABLE IF NOT EXISTS task_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			task_id TEXT NOT NULL,
			status TEXT NOT NULL,
			progress INTEGER NOT NULL DEFAULT 0,
			stage TEXT,
			result_url TEXT,
			error TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_task_events_task ON task_events(task_id)`,
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("history: migrate: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// AppendMessage records one transcript entry for a session.
func (s *Store) AppendMessage(sessionID, role, content string) error {
	_, err := s.db.Exec(
		"INSERT INTO messages (session_id, role, content) VALUES (?, ?, ?)",
		sessionID, role, content,
	)
	if err != nil {
		return fmt.Errorf("history: append message: %w", err)
	}
	return nil
}

// RecordTaskEvent journals one observed task snapshot.
func (s *Store) RecordTaskEvent(task domain.GenerationTask) error {
	_, err := s.db.Exec(
		"INSERT INTO task_events (task_id, status, progress, stage, result_url, error) VALUES (?, ?, ?, ?, ?, ?)",
		task.TaskID, string(task.Status), task.Progress, task.Stage, task.ResultURL, task.Error,
	)
	if err != nil {
		return fmt.Errorf("history: record task event: %w", err)
	}
	return nil
}

// Transcript returns messages for a session, oldest first. A positive limit
// caps the result; zero or negative returns the whole transcript.
func (s *Store) Transcript(sessionID string, limit int) ([]Message, error) {
	query := "SELECT id, session_id, role, content, created_at FROM messages WHERE session_id = ? ORDER BY id ASC"
	args := []any{sessionID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("history: load transcript: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("history: scan message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// TaskHistory returns the recorded observations for one task, oldest first.
func (s *Store) TaskHistory(taskID string) ([]TaskEvent, error) {
	rows, err := s.db.Query(
		"SELECT id, task_id, status, progress, stage, result_url, error, created_at FROM task_events WHERE task_id = ? ORDER BY id ASC",
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("history: load task history: %w", err)
	}
	defer rows.Close()

	var out []TaskEvent
	for rows.Next() {
		var e TaskEvent
		var status string
		if err := rows.Scan(&e.ID, &e.TaskID, &status, &e.Progress, &e.Stage, &e.ResultURL, &e.Error, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("history: scan task event: %w", err)
		}
		e.Status = domain.TaskStatus(status)
		out = append(out, e)
	}
	return out, rows.Err()
}
