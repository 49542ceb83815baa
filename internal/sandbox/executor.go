package sandbox

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Executor serializes executions against one backend worker. The worker is
// started lazily, killed whenever it times out or misbehaves, and respawned
// on the next execution, so a runaway submission can never wedge grading.
type Executor struct {
	mu      sync.Mutex
	backend Backend
	timeout time.Duration
	logger  *slog.Logger
	ready   bool
}

// NewExecutor wraps a backend. A zero timeout selects DefaultTimeout.
func NewExecutor(backend Backend, timeout time.Duration, logger *slog.Logger) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{backend: backend, timeout: timeout, logger: logger}
}

// Execute runs code and always returns a classified Result.
func (e *Executor) Execute(ctx context.Context, code string) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.ready {
		if err := e.backend.Start(ctx); err != nil {
			e.logger.Error("sandbox worker failed to start", "error", err)
			return Result{Kind: FailureInfra, Error: err.Error()}
		}
		e.ready = true
	}

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	res, err := e.backend.Run(runCtx, code)
	if err != nil {
		// The worker is in an unknown state; kill it and respawn lazily.
		_ = e.backend.Kill()
		e.ready = false

		if errors.Is(err, context.DeadlineExceeded) {
			e.logger.Warn("sandbox execution timed out", "timeout", e.timeout)
			return Result{Kind: FailureTimeout, Error: "execution timed out", Duration: time.Since(start)}
		}
		e.logger.Error("sandbox execution failed", "error", err)
		return Result{Kind: FailureInfra, Error: err.Error(), Duration: time.Since(start)}
	}
	return *res
}

// Close kills the worker if one is running.
func (e *Executor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.ready {
		return nil
	}
	e.ready = false
	return e.backend.Kill()
}
