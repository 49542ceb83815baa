// Package sandbox executes untrusted submission code in an isolated worker
// and classifies failures so callers can tell a wrong answer from a broken
// sandbox.
package sandbox

import (
	"errors"
	"strings"
	"time"
)

// FailureKind classifies why an execution produced no usable verdict.
type FailureKind string

const (
	// FailureUser means the submitted code itself failed: an exception, a
	// syntax error, a nonzero exit. The submission is gradable as wrong.
	FailureUser FailureKind = "user"
	// FailureInfra means the sandbox could not run the code at all.
	FailureInfra FailureKind = "infra"
	// FailureTimeout means the code ran past its deadline.
	FailureTimeout FailureKind = "timeout"
)

// Result holds the outcome of one execution.
type Result struct {
	Success  bool
	Output   string // captured stdout
	Error    string // diagnostic text when Success is false
	Kind     FailureKind
	Duration time.Duration
}

// Config holds worker creation parameters for the container backend.
type Config struct {
	Image    string
	Command  []string // interpreter argv prefix, the source filename is appended
	MemoryMB int
	CPULimit float64
}

// DefaultConfig returns the defaults for a Python sandbox.
func DefaultConfig() Config {
	return Config{
		Image:    "python:3.12-alpine",
		Command:  []string{"python3"},
		MemoryMB: 128,
		CPULimit: 0.5,
	}
}

// DefaultTimeout bounds a single execution.
const DefaultTimeout = 5 * time.Second

var (
	ErrWorkerNotRunning = errors.New("sandbox worker is not running")
	ErrWorkerClosed     = errors.New("sandbox worker closed its stream")
)

// NormalizeOutput prepares captured output for comparison: line endings are
// unified and trailing whitespace is insignificant.
func NormalizeOutput(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " \t")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}
