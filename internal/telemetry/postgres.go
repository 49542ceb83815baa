package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS grading_events (
	id                  BIGSERIAL PRIMARY KEY,
	exercise_id         TEXT        NOT NULL,
	strategy            TEXT        NOT NULL,
	was_correct         BOOLEAN     NOT NULL,
	fallback_used       BOOLEAN     NOT NULL,
	fallback_reason     TEXT        NOT NULL DEFAULT '',
	matched_alternative TEXT        NOT NULL DEFAULT '',
	answer_hash         TEXT        NOT NULL,
	recorded_at         TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_grading_events_exercise ON grading_events(exercise_id)`

// PostgresSink persists grading events in PostgreSQL for multi-node
// deployments.
type PostgresSink struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to the given DSN and ensures the events table.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresSink, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create grading_events: %w", err)
	}
	return &PostgresSink{pool: pool}, nil
}

func (s *PostgresSink) Record(ctx context.Context, rec Record) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO grading_events
		 (exercise_id, strategy, was_correct, fallback_used, fallback_reason, matched_alternative, answer_hash, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ExerciseID, string(rec.Strategy), rec.WasCorrect, rec.FallbackUsed,
		rec.FallbackReason, rec.MatchedAlternative, rec.HashedAnswer, rec.Timestamp)
	if err != nil {
		return fmt.Errorf("insert grading event: %w", err)
	}
	return nil
}

func (s *PostgresSink) Close() error {
	s.pool.Close()
	return nil
}
