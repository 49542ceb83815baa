package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// JobHandler grades one submission.
type JobHandler func(ctx context.Context, job *SubmissionJob) (*VerdictMessage, error)

// Consumer consumes submission jobs from the queue.
type Consumer struct {
	conn       *Connection
	handler    JobHandler
	producer   *Producer
	workers    int
	prefetch   int
	jobTimeout time.Duration
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// ConsumerConfig holds consumer configuration.
type ConsumerConfig struct {
	Workers    int           // Number of concurrent workers
	Prefetch   int           // Prefetch count per worker
	JobTimeout time.Duration // Per-job grading deadline
}

// DefaultConsumerConfig returns sensible defaults.
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		Workers:    3,
		Prefetch:   1, // Process one at a time per worker for fairness
		JobTimeout: 30 * time.Second,
	}
}

// NewConsumer creates a new queue consumer.
func NewConsumer(conn *Connection, handler JobHandler, cfg ConsumerConfig) *Consumer {
	if cfg.Workers <= 0 {
		cfg.Workers = 3
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 1
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 30 * time.Second
	}

	return &Consumer{
		conn:       conn,
		handler:    handler,
		producer:   NewProducer(conn),
		workers:    cfg.Workers,
		prefetch:   cfg.Prefetch,
		jobTimeout: cfg.JobTimeout,
	}
}

// Start begins consuming messages.
func (c *Consumer) Start(ctx context.Context) error {
	ctx, c.cancelFunc = context.WithCancel(ctx)

	ch := c.conn.Channel()

	// Set QoS (prefetch)
	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := ch.Consume(
		SubmissionQueueName,
		"",    // consumer tag (auto-generated)
		false, // auto-ack (manual ack for reliability)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	slog.Info("starting submission consumer", "workers", c.workers, "prefetch", c.prefetch)

	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go c.worker(ctx, i, msgs)
	}

	return nil
}

// worker processes messages from the queue.
func (c *Consumer) worker(ctx context.Context, id int, msgs <-chan amqp.Delivery) {
	defer c.wg.Done()

	slog.Info("worker started", "worker_id", id)

	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopping", "worker_id", id)
			return

		case msg, ok := <-msgs:
			if !ok {
				slog.Info("message channel closed", "worker_id", id)
				return
			}

			c.processMessage(ctx, id, msg)
		}
	}
}

// processMessage handles a single message.
func (c *Consumer) processMessage(ctx context.Context, workerID int, msg amqp.Delivery) {
	start := time.Now()

	var job SubmissionJob
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		slog.Error("failed to unmarshal submission",
			"worker_id", workerID,
			"error", err,
		)
		// Reject without requeue for malformed messages
		_ = msg.Reject(false)
		return
	}

	slog.Info("grading submission",
		"worker_id", workerID,
		"job_id", job.ID,
		"exercise_id", job.ExerciseID,
	)

	jobCtx, cancel := context.WithTimeout(ctx, c.jobTimeout)
	defer cancel()

	verdict, err := c.handler(jobCtx, &job)
	duration := time.Since(start)

	if err != nil {
		slog.Error("grading failed",
			"worker_id", workerID,
			"job_id", job.ID,
			"error", err,
			"duration", duration,
		)

		verdict = &VerdictMessage{
			JobID:       job.ID,
			ExerciseID:  job.ExerciseID,
			Status:      "failed",
			Error:       err.Error(),
			Duration:    duration,
			CompletedAt: time.Now(),
		}
	} else {
		verdict.JobID = job.ID
		verdict.ExerciseID = job.ExerciseID
		verdict.Duration = duration
		verdict.CompletedAt = time.Now()
		if verdict.Status == "" {
			verdict.Status = "completed"
		}

		slog.Info("submission graded",
			"worker_id", workerID,
			"job_id", job.ID,
			"correct", verdict.IsCorrect,
			"method", verdict.Method,
			"duration", duration,
		)
	}

	if err := c.producer.PublishVerdict(ctx, verdict); err != nil {
		slog.Error("failed to publish verdict",
			"worker_id", workerID,
			"job_id", job.ID,
			"error", err,
		)
	}

	if err := msg.Ack(false); err != nil {
		slog.Error("failed to ack message",
			"worker_id", workerID,
			"job_id", job.ID,
			"error", err,
		)
	}
}

// Stop gracefully stops the consumer.
func (c *Consumer) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
	c.wg.Wait()
	slog.Info("consumer stopped")
}

// VerdictConsumer consumes verdicts, for the app side to hand results back
// to waiting clients.
type VerdictConsumer struct {
	conn       *Connection
	handlers   map[string]VerdictHandler
	handlersMu sync.RWMutex
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// VerdictHandler handles the verdict for a specific job.
type VerdictHandler func(verdict *VerdictMessage)

// NewVerdictConsumer creates a verdict consumer.
func NewVerdictConsumer(conn *Connection) *VerdictConsumer {
	return &VerdictConsumer{
		conn:     conn,
		handlers: make(map[string]VerdictHandler),
	}
}

// Subscribe registers a handler for the verdict of a specific job.
func (vc *VerdictConsumer) Subscribe(jobID string, handler VerdictHandler) {
	vc.handlersMu.Lock()
	defer vc.handlersMu.Unlock()
	vc.handlers[jobID] = handler
}

// Unsubscribe removes a handler.
func (vc *VerdictConsumer) Unsubscribe(jobID string) {
	vc.handlersMu.Lock()
	defer vc.handlersMu.Unlock()
	delete(vc.handlers, jobID)
}

// Start begins consuming verdicts.
func (vc *VerdictConsumer) Start(ctx context.Context) error {
	ctx, vc.cancelFunc = context.WithCancel(ctx)

	ch := vc.conn.Channel()

	msgs, err := ch.Consume(
		VerdictQueueName,
		"",    // consumer tag
		true,  // auto-ack (verdict delivery is fire-and-forget)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to start verdict consumer: %w", err)
	}

	vc.wg.Add(1)
	go vc.consume(ctx, msgs)

	return nil
}

func (vc *VerdictConsumer) consume(ctx context.Context, msgs <-chan amqp.Delivery) {
	defer vc.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}

			var verdict VerdictMessage
			if err := json.Unmarshal(msg.Body, &verdict); err != nil {
				slog.Error("failed to unmarshal verdict", "error", err)
				continue
			}

			vc.handlersMu.RLock()
			handler, ok := vc.handlers[verdict.JobID.String()]
			vc.handlersMu.RUnlock()

			if ok {
				handler(&verdict)
			}
		}
	}
}

// Stop stops the verdict consumer.
func (vc *VerdictConsumer) Stop() {
	if vc.cancelFunc != nil {
		vc.cancelFunc()
	}
	vc.wg.Wait()
}
