package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/practalearn/grader/internal/config"
	"github.com/practalearn/grader/internal/construct"
	"github.com/practalearn/grader/internal/exercise"
	"github.com/practalearn/grader/internal/grading"
	"github.com/practalearn/grader/internal/runtime"
	"github.com/practalearn/grader/internal/sandbox"
	"github.com/practalearn/grader/internal/strategy"
)

// buildLocalGrader wires a grader with process-backed sandboxes for CLI use.
// Telemetry stays off; the CLI is for authoring and debugging, not learners.
func buildLocalGrader(cfg *config.Config) (*grading.Grader, func()) {
	timeout := time.Duration(cfg.SandboxTimeoutMs) * time.Millisecond
	logger := slog.Default()

	pyExec := sandbox.NewExecutor(sandbox.NewPythonProcessBackend(cfg.PythonBin), timeout, logger)
	nodeExec := sandbox.NewExecutor(sandbox.NewNodeProcessBackend(cfg.NodeBin), timeout, logger)

	runtimes := runtime.NewRegistry()
	runtimes.Register(runtime.NewPython(pyExec))
	runtimes.Register(runtime.NewJavaScript(nodeExec))

	grader := grading.New(strategy.NewRouter(runtimes, logger), construct.NewDetector(), nil, logger)
	cleanup := func() {
		pyExec.Close()
		nodeExec.Close()
	}
	return grader, cleanup
}

func loadRegistry(cfg *config.Config) (*exercise.Registry, error) {
	exercises, err := exercise.NewLoader(cfg.ExercisesPath).LoadAll()
	if err != nil {
		return nil, err
	}
	registry := exercise.NewRegistry()
	if err := registry.Replace(exercises); err != nil {
		return nil, err
	}
	return registry, nil
}

func cmdGrade(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: grader grade <exercise-id> [answer]")
	}
	exerciseID := args[0]

	answer, err := readArgOrStdin(args[1:])
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	registry, err := loadRegistry(cfg)
	if err != nil {
		return err
	}
	ex, err := registry.Get(exerciseID)
	if err != nil {
		return err
	}

	grader, cleanup := buildLocalGrader(cfg)
	defer cleanup()

	res := grader.Grade(context.Background(), ex, answer)

	if res.IsCorrect {
		fmt.Println("✓ correct")
	} else {
		fmt.Println("✗ incorrect")
	}
	fmt.Printf("  method: %s\n", res.Method)
	if res.FallbackUsed {
		fmt.Printf("  fallback: %s\n", res.FallbackReason)
	}
	if res.MatchedAlternative != "" {
		fmt.Printf("  matched alternative: %s\n", res.MatchedAlternative)
	}
	if res.UsedTargetConstruct != nil {
		fmt.Printf("  used target construct: %v\n", *res.UsedTargetConstruct)
	}
	if res.CoachingFeedback != "" {
		fmt.Printf("  coaching: %s\n", res.CoachingFeedback)
	}
	return nil
}

func cmdExercises(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	registry, err := loadRegistry(cfg)
	if err != nil {
		return err
	}
	for _, id := range registry.IDs() {
		fmt.Println(id)
	}
	return nil
}
