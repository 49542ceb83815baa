package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/practalearn/grader/internal/config"
)

// cmdDoctor checks the interpreters and optional Docker daemon the sandbox
// backends depend on.
func cmdDoctor() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ok := true

	if path, err := exec.LookPath(cfg.PythonBin); err == nil {
		fmt.Printf("✓ python:   %s\n", path)
	} else {
		fmt.Printf("✗ python:   %s not found (Python grading and execution unavailable)\n", cfg.PythonBin)
		ok = false
	}

	if path, err := exec.LookPath(cfg.NodeBin); err == nil {
		fmt.Printf("✓ node:     %s\n", path)
	} else {
		fmt.Printf("✗ node:     %s not found (JavaScript execution unavailable)\n", cfg.NodeBin)
	}

	if err := checkDocker(); err == nil {
		fmt.Println("✓ docker:   daemon running")
	} else {
		fmt.Printf("- docker:   %v (only needed for SANDBOX_BACKEND=docker)\n", err)
	}

	if info, err := os.Stat(cfg.ExercisesPath); err == nil && info.IsDir() {
		fmt.Printf("✓ content:  %s\n", cfg.ExercisesPath)
	} else {
		fmt.Printf("✗ content:  %s missing\n", cfg.ExercisesPath)
		ok = false
	}

	if !ok {
		return fmt.Errorf("some checks failed")
	}
	return nil
}

func checkDocker() error {
	if _, err := exec.LookPath("docker"); err != nil {
		return fmt.Errorf("docker not found in PATH")
	}

	cmd := exec.Command("docker", "info")
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("docker daemon not running")
	}

	return nil
}
