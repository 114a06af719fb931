package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

type SQLiteTranscriptStore struct {
	db *sql.DB
}

var _ TranscriptStore = &SQLiteTranscriptStore{}

// SQLiteDSNForFile builds the DSN for a transcript archive file.
func SQLiteDSNForFile(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.New("sqlite transcript store: empty path")
	}
	return fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path), nil
}

func NewSQLiteTranscriptStore(dsn string) (*SQLiteTranscriptStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("sqlite transcript store: empty dsn")
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	s := &SQLiteTranscriptStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteTranscriptStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteTranscriptStore) migrate() error {
	if s == nil || s.db == nil {
		return errors.New("sqlite transcript store: db is nil")
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS transcripts (
			session_id TEXT NOT NULL,
			turn_id TEXT NOT NULL,
			user_message TEXT NOT NULL DEFAULT '',
			final_response TEXT NOT NULL DEFAULT '',
			completed_at_ms INTEGER NOT NULL,
			PRIMARY KEY (session_id, turn_id)
		);`,
		`CREATE INDEX IF NOT EXISTS transcripts_by_session ON transcripts(session_id, completed_at_ms DESC);`,
	}
	for _, st := range stmts {
		if _, err := s.db.Exec(st); err != nil {
			return errors.Wrap(err, "sqlite transcript store: migrate")
		}
	}
	return nil
}

func (s *SQLiteTranscriptStore) Save(ctx context.Context, t Transcript) error {
	if s == nil || s.db == nil {
		return errors.New("sqlite transcript store: db is nil")
	}
	if strings.TrimSpace(t.SessionID) == "" || strings.TrimSpace(t.TurnID) == "" {
		return errors.New("sqlite transcript store: session and turn ids are required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transcripts (session_id, turn_id, user_message, final_response, completed_at_ms)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(session_id, turn_id) DO UPDATE SET
			user_message = excluded.user_message,
			final_response = excluded.final_response,
			completed_at_ms = excluded.completed_at_ms
	`, t.SessionID, t.TurnID, t.UserMessage, t.FinalResponse, t.CompletedAtMs)
	return errors.Wrap(err, "sqlite transcript store: save")
}

func (s *SQLiteTranscriptStore) List(ctx context.Context, q Query) ([]Transcript, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("sqlite transcript store: db is nil")
	}
	where := []string{"1=1"}
	args := []any{}
	if q.SessionID != "" {
		where = append(where, "session_id = ?")
		args = append(args, q.SessionID)
	}
	if q.SinceMs > 0 {
		where = append(where, "completed_at_ms >= ?")
		args = append(args, q.SinceMs)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, turn_id, user_message, final_response, completed_at_ms
		FROM transcripts
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY completed_at_ms DESC
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite transcript store: list")
	}
	defer func() { _ = rows.Close() }()

	out := []Transcript{}
	for rows.Next() {
		var t Transcript
		if err := rows.Scan(&t.SessionID, &t.TurnID, &t.UserMessage, &t.FinalResponse, &t.CompletedAtMs); err != nil {
			return nil, errors.Wrap(err, "sqlite transcript store: scan")
		}
		out = append(out, t)
	}
	return out, errors.Wrap(rows.Err(), "sqlite transcript store: rows")
}
