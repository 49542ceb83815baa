package telemetry

import (
	"context"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"
)

// ResilientSink wraps a storage sink with retry and a circuit breaker so a
// flaky database slows telemetry down instead of flooding logs with write
// errors. Records dropped while the breaker is open are lost; telemetry is
// advisory data.
type ResilientSink struct {
	sink    Sink
	breaker circuitbreaker.CircuitBreaker[struct{}]
	retrier retry.Retry[struct{}]
	logger  *slog.Logger
}

// NewResilientSink wraps sink with the default resilience policy.
func NewResilientSink(sink Sink, logger *slog.Logger) *ResilientSink {
	if logger == nil {
		logger = slog.Default()
	}
	rs := &ResilientSink{sink: sink, logger: logger}

	rs.breaker = circuitbreaker.New[struct{}](circuitbreaker.Config{
		MaxRequests: 2,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(from, to circuitbreaker.State) {
			rs.logger.Warn("telemetry circuit breaker state change",
				"from", from.String(), "to", to.String())
		},
	})

	rs.retrier = retry.New[struct{}](retry.Config{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      2 * time.Second,
		Multiplier:    2.0,
		BackoffPolicy: retry.BackoffExponential,
		Jitter:        true,
	})

	return rs
}

func (s *ResilientSink) Record(ctx context.Context, rec Record) error {
	_, err := s.breaker.Execute(ctx, func(ctx context.Context) (struct{}, error) {
		return s.retrier.Do(ctx, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.sink.Record(ctx, rec)
		})
	})
	return err
}

func (s *ResilientSink) Close() error {
	return s.sink.Close()
}
