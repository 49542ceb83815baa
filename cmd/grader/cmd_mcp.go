package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/practalearn/grader/internal/config"
	"github.com/practalearn/grader/internal/construct"
	mcpserver "github.com/practalearn/grader/internal/mcp"
	"github.com/practalearn/grader/internal/sandbox"
)

// cmdMCP starts the MCP server on stdio for editor integration.
func cmdMCP() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	registry, err := loadRegistry(cfg)
	if err != nil {
		return err
	}

	grader, cleanup := buildLocalGrader(cfg)
	defer cleanup()

	timeout := time.Duration(cfg.SandboxTimeoutMs) * time.Millisecond
	executor := sandbox.NewExecutor(sandbox.NewPythonProcessBackend(cfg.PythonBin), timeout, slog.Default())
	defer executor.Close()

	mcpSrv := mcpserver.NewServer(mcpserver.Config{
		Grader:   grader,
		Registry: registry,
		Detector: construct.NewDetector(),
		Executor: executor,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	return mcpSrv.ServeStdio(ctx)
}
