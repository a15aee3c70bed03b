package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/loqalabs/loqa-ime/internal/config"
	_ "modernc.org/sqlite"
)

// Entry is one recorded dictation attempt.
type Entry struct {
	CaptureID  string    `json:"capture_id"`
	Serial     uint32    `json:"serial"`
	Stage      string    `json:"stage"`
	Text       string    `json:"text"`
	Error      string    `json:"error,omitempty"`
	Engine     string    `json:"engine"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Store keeps dictation history in SQLite. In ephemeral mode nothing is written.
type Store struct {
	db    *sql.DB
	cfg   config.HistoryConfig
	log   *slog.Logger
	clock func() time.Time
}

// Open initializes the store according to config.
func Open(ctx context.Context, cfg config.HistoryConfig, log *slog.Logger) (*Store, error) {
	if cfg.RetentionMode == "ephemeral" {
		return &Store{cfg: cfg, log: log, clock: time.Now}, nil
	}

	dir := filepath.Dir(cfg.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(2000)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, cfg: cfg, log: log, clock: time.Now}

	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if cfg.VacuumOnStart {
		if _, err := db.ExecContext(ctx, "VACUUM"); err != nil {
			log.Warn("history vacuum failed", slog.String("error", err.Error()))
		}
	}

	if err := s.Prune(ctx); err != nil {
		log.Warn("history prune on start failed", slog.String("error", err.Error()))
	}

	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS dictations (
    capture_id TEXT PRIMARY KEY,
    serial INTEGER NOT NULL,
    stage TEXT NOT NULL,
    text TEXT,
    error TEXT,
    engine TEXT,
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_dictations_started ON dictations(started_at);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// Persistent reports whether entries are written to disk.
func (s *Store) Persistent() bool {
	return s.db != nil
}

// Close releases underlying resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append writes an entry. Duplicate capture ids are rejected.
func (s *Store) Append(ctx context.Context, e Entry) error {
	if s.db == nil {
		return nil
	}
	if e.StartedAt.IsZero() {
		e.StartedAt = s.clock()
	}
	if e.FinishedAt.IsZero() {
		e.FinishedAt = e.StartedAt
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dictations(capture_id, serial, stage, text, error, engine, started_at, finished_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		e.CaptureID, int64(e.Serial), e.Stage, e.Text, e.Error, e.Engine, e.StartedAt.UTC(), e.FinishedAt.UTC())
	return err
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT capture_id, serial, stage, text, error, engine, started_at, finished_at
		 FROM dictations ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var serial int64
		var text, errText, engine sql.NullString
		if err := rows.Scan(&e.CaptureID, &serial, &e.Stage, &text, &errText, &engine, &e.StartedAt, &e.FinishedAt); err != nil {
			return nil, err
		}
		e.Serial = uint32(serial)
		e.Text, e.Error, e.Engine = text.String, errText.String, engine.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune applies retention_days and max_entries. Runs on open.
func (s *Store) Prune(ctx context.Context) (err error) {
	if s.db == nil {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if s.cfg.RetentionDays > 0 {
		cutoff := s.clock().Add(-time.Duration(s.cfg.RetentionDays) * 24 * time.Hour)
		if _, err = tx.ExecContext(ctx, `DELETE FROM dictations WHERE started_at < ?`, cutoff.UTC()); err != nil {
			return err
		}
	}
	if s.cfg.MaxEntries > 0 {
		_, err = tx.ExecContext(ctx, `DELETE FROM dictations WHERE capture_id IN (
			SELECT capture_id FROM dictations ORDER BY started_at DESC LIMIT -1 OFFSET ?
		)`, s.cfg.MaxEntries)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Clear removes every entry. Session retention calls it on shutdown.
func (s *Store) Clear(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM dictations`)
	return err
}

// Shutdown applies end-of-process retention and closes the store.
func (s *Store) Shutdown(ctx context.Context) error {
	if s.cfg.RetentionMode == "session" {
		if err := s.Clear(ctx); err != nil {
			s.log.Warn("history clear failed", slog.String("error", err.Error()))
		}
	}
	return s.Close()
}
