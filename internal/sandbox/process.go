package sandbox

import (
	"bufio"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"time"
)

//go:embed worker.py
var pythonWorker string

//go:embed worker.js
var nodeWorker string

// Backend runs code in an isolated worker. Run returns an error only for
// transport faults; failures of the code itself come back inside the Result.
type Backend interface {
	Start(ctx context.Context) error
	Run(ctx context.Context, code string) (*Result, error)
	Kill() error
}

// ProcessBackend keeps one interpreter process alive and feeds it requests
// over stdin as JSON lines, one response line per request. Each request runs
// in a fresh namespace, so submissions cannot observe each other.
type ProcessBackend struct {
	bin  string
	args []string

	cmd   *exec.Cmd
	stdin io.WriteCloser
	out   *bufio.Scanner
}

// NewPythonProcessBackend creates a worker running the embedded Python loop.
func NewPythonProcessBackend(bin string) *ProcessBackend {
	if bin == "" {
		bin = "python3"
	}
	return &ProcessBackend{bin: bin, args: []string{"-u", "-c", pythonWorker}}
}

// NewNodeProcessBackend creates a worker running the embedded Node loop.
func NewNodeProcessBackend(bin string) *ProcessBackend {
	if bin == "" {
		bin = "node"
	}
	return &ProcessBackend{bin: bin, args: []string{"-e", nodeWorker}}
}

type workerRequest struct {
	Code      string `json:"code"`
	TimeoutMs int64  `json:"timeout_ms"`
}

type workerResponse struct {
	OK     bool   `json:"ok"`
	Output string `json:"output"`
	Error  string `json:"error"`
}

func (b *ProcessBackend) Start(ctx context.Context) error {
	cmd := exec.Command(b.bin, b.args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("worker stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("worker stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start worker %s: %w", b.bin, err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	b.cmd = cmd
	b.stdin = stdin
	b.out = scanner
	return nil
}

func (b *ProcessBackend) Run(ctx context.Context, code string) (*Result, error) {
	if b.cmd == nil {
		return nil, ErrWorkerNotRunning
	}

	timeoutMs := int64(DefaultTimeout / time.Millisecond)
	if deadline, ok := ctx.Deadline(); ok {
		timeoutMs = int64(time.Until(deadline) / time.Millisecond)
	}
	req, err := json.Marshal(workerRequest{Code: code, TimeoutMs: timeoutMs})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	start := time.Now()
	if _, err := b.stdin.Write(append(req, '\n')); err != nil {
		return nil, fmt.Errorf("write to worker: %w", err)
	}

	type scanResult struct {
		line string
		err  error
	}
	// Capture the scanner: Kill may nil the field while a timed-out read is
	// still blocked here.
	scanner := b.out
	ch := make(chan scanResult, 1)
	go func() {
		if !scanner.Scan() {
			err := scanner.Err()
			if err == nil {
				err = ErrWorkerClosed
			}
			ch <- scanResult{err: err}
			return
		}
		ch <- scanResult{line: scanner.Text()}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case sr := <-ch:
		if sr.err != nil {
			return nil, fmt.Errorf("read from worker: %w", sr.err)
		}
		var resp workerResponse
		if err := json.Unmarshal([]byte(sr.line), &resp); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		res := &Result{
			Success:  resp.OK,
			Output:   resp.Output,
			Error:    resp.Error,
			Duration: time.Since(start),
		}
		if !resp.OK {
			res.Kind = FailureUser
		}
		return res, nil
	}
}

func (b *ProcessBackend) Kill() error {
	if b.cmd == nil {
		return nil
	}
	_ = b.stdin.Close()
	if b.cmd.Process != nil {
		_ = b.cmd.Process.Kill()
	}
	// A killed worker reports an exit error; that is the expected outcome.
	_ = b.cmd.Wait()
	b.cmd = nil
	b.stdin = nil
	b.out = nil
	return nil
}
