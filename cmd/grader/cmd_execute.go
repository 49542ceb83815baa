package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/practalearn/grader/internal/config"
	"github.com/practalearn/grader/internal/sandbox"
)

func cmdExecute(args []string) error {
	code, err := readArgOrStdin(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	timeout := time.Duration(cfg.SandboxTimeoutMs) * time.Millisecond
	exec := sandbox.NewExecutor(sandbox.NewPythonProcessBackend(cfg.PythonBin), timeout, slog.Default())
	defer exec.Close()

	res := exec.Execute(context.Background(), code)
	if res.Success {
		fmt.Print(res.Output)
		if res.Output != "" && res.Output[len(res.Output)-1] != '\n' {
			fmt.Println()
		}
		return nil
	}

	fmt.Fprintln(os.Stderr, res.Error)
	os.Exit(1)
	return nil
}
