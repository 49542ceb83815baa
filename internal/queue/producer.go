package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Producer publishes submissions and verdicts.
type Producer struct {
	conn *Connection
}

// NewProducer creates a new queue producer.
func NewProducer(conn *Connection) *Producer {
	return &Producer{conn: conn}
}

// PublishSubmission publishes a grading job to the submissions queue.
func (p *Producer) PublishSubmission(ctx context.Context, job *SubmissionJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}

	if err := p.conn.PublishJSON(ctx, SubmissionQueueName, job); err != nil {
		return fmt.Errorf("failed to publish submission: %w", err)
	}

	slog.Info("published submission",
		"job_id", job.ID,
		"exercise_id", job.ExerciseID,
	)

	return nil
}

// PublishVerdict publishes a grading verdict to the verdicts queue.
func (p *Producer) PublishVerdict(ctx context.Context, verdict *VerdictMessage) error {
	if verdict.CompletedAt.IsZero() {
		verdict.CompletedAt = time.Now()
	}

	if err := p.conn.PublishJSON(ctx, VerdictQueueName, verdict); err != nil {
		return fmt.Errorf("failed to publish verdict: %w", err)
	}

	slog.Info("published verdict",
		"job_id", verdict.JobID,
		"status", verdict.Status,
		"correct", verdict.IsCorrect,
		"duration", verdict.Duration,
	)

	return nil
}
