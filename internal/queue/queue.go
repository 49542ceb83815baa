// Package queue connects the grading worker to RabbitMQ. Submissions arrive
// on one queue, verdicts go out on another.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Queue names
const (
	SubmissionQueueName = "grader.submissions"
	VerdictQueueName    = "grader.verdicts"
)

// SubmissionJob is one answer waiting to be graded.
type SubmissionJob struct {
	ID          uuid.UUID `json:"id"`
	ExerciseID  string    `json:"exercise_id"`
	Answer      string    `json:"answer"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// VerdictMessage carries the grading outcome back to the app.
type VerdictMessage struct {
	JobID               uuid.UUID     `json:"job_id"`
	ExerciseID          string        `json:"exercise_id"`
	Status              string        `json:"status"` // completed, failed
	IsCorrect           bool          `json:"is_correct"`
	Method              string        `json:"method,omitempty"`
	FallbackUsed        bool          `json:"fallback_used,omitempty"`
	FallbackReason      string        `json:"fallback_reason,omitempty"`
	UsedTargetConstruct *bool         `json:"used_target_construct,omitempty"`
	CoachingFeedback    string        `json:"coaching_feedback,omitempty"`
	MatchedAlternative  string        `json:"matched_alternative,omitempty"`
	Error               string        `json:"error,omitempty"`
	Duration            time.Duration `json:"duration"`
	CompletedAt         time.Time     `json:"completed_at"`
}

// Connection wraps the AMQP connection with reconnection support.
type Connection struct {
	url        string
	conn       *amqp.Connection
	channel    *amqp.Channel
	mu         sync.RWMutex
	closed     bool
	reconnects int
}

// NewConnection creates a new RabbitMQ connection and declares the queues.
func NewConnection(url string) (*Connection, error) {
	c := &Connection{url: url}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Connection) connect() error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.channel = channel
	c.mu.Unlock()

	if err := c.declareQueues(); err != nil {
		return err
	}

	go c.handleReconnect()

	slog.Info("connected to RabbitMQ", "url", sanitizeURL(c.url))
	return nil
}

func (c *Connection) declareQueues() error {
	c.mu.RLock()
	ch := c.channel
	c.mu.RUnlock()

	_, err := ch.QueueDeclare(
		SubmissionQueueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		amqp.Table{
			"x-message-ttl": int32(300000), // drop submissions older than 5 minutes
		},
	)
	if err != nil {
		return fmt.Errorf("failed to declare submissions queue: %w", err)
	}

	_, err = ch.QueueDeclare(
		VerdictQueueName,
		true,
		false,
		false,
		false,
		amqp.Table{
			"x-message-ttl": int32(60000), // verdicts are stale after a minute
		},
	)
	if err != nil {
		return fmt.Errorf("failed to declare verdicts queue: %w", err)
	}

	return nil
}

// handleReconnect listens for connection close and attempts to reconnect.
func (c *Connection) handleReconnect() {
	notifyClose := c.conn.NotifyClose(make(chan *amqp.Error, 1))

	err := <-notifyClose
	if err == nil {
		return // normal close
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	slog.Warn("RabbitMQ connection closed, attempting to reconnect",
		"error", err,
		"reconnects", c.reconnects,
	)

	// Exponential backoff
	for i := 0; i < 10; i++ {
		c.reconnects++
		backoff := time.Duration(1<<i) * time.Second
		if backoff > 30*time.Second {
			backoff = 30 * time.Second
		}
		time.Sleep(backoff)

		if err := c.connect(); err != nil {
			slog.Error("reconnection failed", "error", err, "attempt", i+1)
			continue
		}

		slog.Info("reconnected to RabbitMQ", "attempts", i+1)
		return
	}

	slog.Error("failed to reconnect to RabbitMQ after 10 attempts")
}

// Channel returns the current channel (thread-safe).
func (c *Connection) Channel() *amqp.Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channel
}

// Close closes the connection.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true

	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected checks if the connection is active.
func (c *Connection) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && !c.conn.IsClosed()
}

// PublishJSON publishes a JSON message to a queue.
func (c *Connection) PublishJSON(ctx context.Context, queue string, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	c.mu.RLock()
	ch := c.channel
	c.mu.RUnlock()

	return ch.PublishWithContext(
		ctx,
		"",    // exchange
		queue, // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

// sanitizeURL removes password from URL for logging
func sanitizeURL(url string) string {
	// Simple sanitization - just show host
	if len(url) > 20 {
		return url[:20] + "..."
	}
	return url
}
