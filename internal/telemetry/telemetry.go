// Package telemetry records grading outcomes for later analysis of exercise
// quality. Recording is advisory: the grading path never waits on it and
// never fails because of it.
package telemetry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/practalearn/grader/internal/domain"
)

// Record is one grading event. The submitted answer is stored only as a
// hash, so telemetry can deduplicate common wrong answers without retaining
// learner-written text.
type Record struct {
	ExerciseID         string
	Strategy           domain.Method
	WasCorrect         bool
	FallbackUsed       bool
	FallbackReason     string
	MatchedAlternative string
	HashedAnswer       string
	Timestamp          time.Time
}

// Sink persists grading records.
type Sink interface {
	Record(ctx context.Context, rec Record) error
	Close() error
}

// HashAnswer returns the hex SHA-256 of an answer text.
func HashAnswer(answer string) string {
	sum := sha256.Sum256([]byte(answer))
	return hex.EncodeToString(sum[:])
}

// SlogSink writes records to structured logs. It is the default sink when no
// storage backend is configured.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink creates a sink over a logger.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

func (s *SlogSink) Record(ctx context.Context, rec Record) error {
	s.logger.InfoContext(ctx, "grading recorded",
		"exercise", rec.ExerciseID,
		"strategy", rec.Strategy,
		"correct", rec.WasCorrect,
		"fallback", rec.FallbackUsed,
		"fallback_reason", rec.FallbackReason,
		"matched_alternative", rec.MatchedAlternative != "",
		"answer_hash", rec.HashedAnswer,
	)
	return nil
}

func (s *SlogSink) Close() error { return nil }

// NopSink discards records.
type NopSink struct{}

func (NopSink) Record(ctx context.Context, rec Record) error { return nil }

func (NopSink) Close() error { return nil }
