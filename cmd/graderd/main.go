// graderd is the queue-driven grading worker. It consumes submissions from
// RabbitMQ, grades them, and publishes verdicts.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/practalearn/grader/internal/config"
	"github.com/practalearn/grader/internal/construct"
	"github.com/practalearn/grader/internal/exercise"
	"github.com/practalearn/grader/internal/grading"
	"github.com/practalearn/grader/internal/queue"
	"github.com/practalearn/grader/internal/runtime"
	"github.com/practalearn/grader/internal/sandbox"
	"github.com/practalearn/grader/internal/strategy"
	"github.com/practalearn/grader/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	setupLogging(cfg.Debug)

	registry, err := loadExercises(cfg.ExercisesPath)
	if err != nil {
		return fmt.Errorf("load exercises: %w", err)
	}
	slog.Info("exercises loaded", "count", registry.Len(), "path", cfg.ExercisesPath)

	grader, closeAll, err := buildGrader(cfg)
	if err != nil {
		return err
	}
	defer closeAll()

	conn, err := queue.NewConnection(cfg.RabbitMQURL)
	if err != nil {
		return fmt.Errorf("connect queue: %w", err)
	}
	defer conn.Close()

	handler := func(ctx context.Context, job *queue.SubmissionJob) (*queue.VerdictMessage, error) {
		ex, err := registry.Get(job.ExerciseID)
		if err != nil {
			return nil, err
		}
		res := grader.Grade(ctx, ex, job.Answer)
		return &queue.VerdictMessage{
			IsCorrect:           res.IsCorrect,
			Method:              string(res.Method),
			FallbackUsed:        res.FallbackUsed,
			FallbackReason:      res.FallbackReason,
			UsedTargetConstruct: res.UsedTargetConstruct,
			CoachingFeedback:    res.CoachingFeedback,
			MatchedAlternative:  res.MatchedAlternative,
		}, nil
	}

	consumer := queue.NewConsumer(conn, handler, queue.ConsumerConfig{
		Workers:    cfg.Workers,
		JobTimeout: 30 * time.Second,
	})
	if err := consumer.Start(context.Background()); err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("received signal, shutting down", "signal", sig.String())

	consumer.Stop()
	slog.Info("worker stopped")
	return nil
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

func loadExercises(path string) (*exercise.Registry, error) {
	exercises, err := exercise.NewLoader(path).LoadAll()
	if err != nil {
		return nil, err
	}
	registry := exercise.NewRegistry()
	if err := registry.Replace(exercises); err != nil {
		return nil, err
	}
	return registry, nil
}

// buildGrader wires runtimes, sandbox, and telemetry from config. The
// returned func closes everything it opened.
func buildGrader(cfg *config.Config) (*grading.Grader, func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	timeout := time.Duration(cfg.SandboxTimeoutMs) * time.Millisecond

	pyExec, nodeExec, err := buildExecutors(cfg, timeout)
	if err != nil {
		return nil, nil, err
	}
	if pyExec != nil {
		closers = append(closers, func() { pyExec.Close() })
	}
	if nodeExec != nil {
		closers = append(closers, func() { nodeExec.Close() })
	}

	runtimes := runtime.NewRegistry()
	runtimes.Register(runtime.NewPython(pyExec))
	runtimes.Register(runtime.NewJavaScript(nodeExec))

	sink, err := buildSink(cfg)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	closers = append(closers, func() { sink.Close() })

	grader := grading.New(
		strategy.NewRouter(runtimes, slog.Default()),
		construct.NewDetector(),
		sink,
		slog.Default(),
	)
	return grader, closeAll, nil
}

func buildExecutors(cfg *config.Config, timeout time.Duration) (pyExec, nodeExec *sandbox.Executor, err error) {
	switch cfg.SandboxBackend {
	case "docker":
		docker, err := sandbox.NewDockerBackend(sandbox.Config{
			Image:    cfg.SandboxImage,
			Command:  []string{"python3"},
			MemoryMB: cfg.SandboxMemoryMB,
			CPULimit: cfg.SandboxCPULimit,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("docker sandbox: %w", err)
		}
		// JavaScript prediction runs through the process backend even in
		// docker mode; only Python submissions reach the container.
		pyExec = sandbox.NewExecutor(docker, timeout, slog.Default())
		nodeExec = sandbox.NewExecutor(sandbox.NewNodeProcessBackend(cfg.NodeBin), timeout, slog.Default())
	default:
		pyExec = sandbox.NewExecutor(sandbox.NewPythonProcessBackend(cfg.PythonBin), timeout, slog.Default())
		nodeExec = sandbox.NewExecutor(sandbox.NewNodeProcessBackend(cfg.NodeBin), timeout, slog.Default())
	}
	return pyExec, nodeExec, nil
}

func buildSink(cfg *config.Config) (telemetry.Sink, error) {
	switch {
	case cfg.TelemetryDSN == "":
		return telemetry.NewSlogSink(slog.Default()), nil
	case cfg.TelemetryIsPostgres():
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		pg, err := telemetry.OpenPostgres(ctx, cfg.TelemetryDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres telemetry: %w", err)
		}
		return telemetry.NewResilientSink(pg, slog.Default()), nil
	default:
		db, err := telemetry.OpenSQLite(cfg.TelemetryDSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite telemetry: %w", err)
		}
		return telemetry.NewResilientSink(db, slog.Default()), nil
	}
}
