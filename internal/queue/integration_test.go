//go:build integration

package queue_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"

	"github.com/practalearn/grader/internal/queue"
)

// setupRabbitMQ creates a RabbitMQ container for testing
func setupRabbitMQ(t *testing.T) (string, func()) {
	ctx := context.Background()

	container, err := rabbitmq.Run(ctx, "rabbitmq:3.12-management")
	if err != nil {
		t.Fatalf("failed to start RabbitMQ container: %v", err)
	}

	amqpURL, err := container.AmqpURL(ctx)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("failed to get AMQP URL: %v", err)
	}

	cleanup := func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return amqpURL, cleanup
}

func TestIntegration_Connection_ConnectAndClose(t *testing.T) {
	amqpURL, cleanup := setupRabbitMQ(t)
	defer cleanup()

	conn, err := queue.NewConnection(amqpURL)
	if err != nil {
		t.Fatalf("failed to create connection: %v", err)
	}

	if !conn.IsConnected() {
		t.Error("expected connection to be active")
	}

	if err := conn.Close(); err != nil {
		t.Errorf("failed to close connection: %v", err)
	}
}

func TestIntegration_Connection_InvalidURL(t *testing.T) {
	_, err := queue.NewConnection("amqp://invalid:5672")
	if err == nil {
		t.Error("expected error for invalid URL")
	}
}

func TestIntegration_Producer_PublishSubmission(t *testing.T) {
	amqpURL, cleanup := setupRabbitMQ(t)
	defer cleanup()

	conn, err := queue.NewConnection(amqpURL)
	if err != nil {
		t.Fatalf("failed to create connection: %v", err)
	}
	defer conn.Close()

	producer := queue.NewProducer(conn)

	job := &queue.SubmissionJob{
		ID:         uuid.New(),
		ExerciseID: "py-slice-001",
		Answer:     "first_three = items[:3]",
	}
	if err := producer.PublishSubmission(context.Background(), job); err != nil {
		t.Fatalf("failed to publish submission: %v", err)
	}
	if job.SubmittedAt.IsZero() {
		t.Error("SubmittedAt not stamped on publish")
	}
}

func TestIntegration_ConsumeAndVerdict(t *testing.T) {
	amqpURL, cleanup := setupRabbitMQ(t)
	defer cleanup()

	conn, err := queue.NewConnection(amqpURL)
	if err != nil {
		t.Fatalf("failed to create connection: %v", err)
	}
	defer conn.Close()

	handler := func(ctx context.Context, job *queue.SubmissionJob) (*queue.VerdictMessage, error) {
		return &queue.VerdictMessage{
			IsCorrect: job.Answer == "x = 1",
			Method:    "exact",
		}, nil
	}

	consumer := queue.NewConsumer(conn, handler, queue.DefaultConsumerConfig())
	if err := consumer.Start(context.Background()); err != nil {
		t.Fatalf("failed to start consumer: %v", err)
	}
	defer consumer.Stop()

	verdicts := queue.NewVerdictConsumer(conn)
	if err := verdicts.Start(context.Background()); err != nil {
		t.Fatalf("failed to start verdict consumer: %v", err)
	}
	defer verdicts.Stop()

	job := &queue.SubmissionJob{ID: uuid.New(), ExerciseID: "ex-1", Answer: "x = 1"}

	var mu sync.Mutex
	var got *queue.VerdictMessage
	done := make(chan struct{})
	verdicts.Subscribe(job.ID.String(), func(v *queue.VerdictMessage) {
		mu.Lock()
		got = v
		mu.Unlock()
		close(done)
	})
	defer verdicts.Unsubscribe(job.ID.String())

	producer := queue.NewProducer(conn)
	if err := producer.PublishSubmission(context.Background(), job); err != nil {
		t.Fatalf("failed to publish submission: %v", err)
	}

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("no verdict arrived within 10s")
	}

	mu.Lock()
	defer mu.Unlock()
	if !got.IsCorrect || got.Status != "completed" {
		t.Errorf("verdict = %+v; want correct completed", got)
	}
	if got.ExerciseID != "ex-1" {
		t.Errorf("ExerciseID = %q; want ex-1", got.ExerciseID)
	}
}

func TestIntegration_HandlerErrorProducesFailedVerdict(t *testing.T) {
	amqpURL, cleanup := setupRabbitMQ(t)
	defer cleanup()

	conn, err := queue.NewConnection(amqpURL)
	if err != nil {
		t.Fatalf("failed to create connection: %v", err)
	}
	defer conn.Close()

	handler := func(ctx context.Context, job *queue.SubmissionJob) (*queue.VerdictMessage, error) {
		return nil, context.DeadlineExceeded
	}

	consumer := queue.NewConsumer(conn, handler, queue.DefaultConsumerConfig())
	if err := consumer.Start(context.Background()); err != nil {
		t.Fatalf("failed to start consumer: %v", err)
	}
	defer consumer.Stop()

	verdicts := queue.NewVerdictConsumer(conn)
	if err := verdicts.Start(context.Background()); err != nil {
		t.Fatalf("failed to start verdict consumer: %v", err)
	}
	defer verdicts.Stop()

	job := &queue.SubmissionJob{ID: uuid.New(), ExerciseID: "ex-err", Answer: "whatever"}

	done := make(chan *queue.VerdictMessage, 1)
	verdicts.Subscribe(job.ID.String(), func(v *queue.VerdictMessage) {
		done <- v
	})
	defer verdicts.Unsubscribe(job.ID.String())

	if err := queue.NewProducer(conn).PublishSubmission(context.Background(), job); err != nil {
		t.Fatalf("failed to publish submission: %v", err)
	}

	select {
	case v := <-done:
		if v.Status != "failed" || v.Error == "" {
			t.Errorf("verdict = %+v; want failed with error text", v)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("no verdict arrived within 10s")
	}
}
