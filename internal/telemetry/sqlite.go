package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS grading_events (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	exercise_id         TEXT    NOT NULL,
	strategy            TEXT    NOT NULL,
	was_correct         INTEGER NOT NULL,
	fallback_used       INTEGER NOT NULL,
	fallback_reason     TEXT    NOT NULL DEFAULT '',
	matched_alternative TEXT    NOT NULL DEFAULT '',
	answer_hash         TEXT    NOT NULL,
	recorded_at         DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_grading_events_exercise ON grading_events(exercise_id);`

// SQLiteSink persists grading events in a local SQLite file, suitable for
// single-node deployments.
type SQLiteSink struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the telemetry database with WAL mode and a
// single writer connection.
func OpenSQLite(path string) (*SQLiteSink, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create grading_events: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

func (s *SQLiteSink) Record(ctx context.Context, rec Record) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO grading_events
		 (exercise_id, strategy, was_correct, fallback_used, fallback_reason, matched_alternative, answer_hash, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ExerciseID, string(rec.Strategy), rec.WasCorrect, rec.FallbackUsed,
		rec.FallbackReason, rec.MatchedAlternative, rec.HashedAnswer, rec.Timestamp)
	if err != nil {
		return fmt.Errorf("insert grading event: %w", err)
	}
	return nil
}

func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
