package sandbox

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"
)

// fakeBackend scripts backend behavior for executor tests.
type fakeBackend struct {
	startErr error
	runErr   error
	result   Result
	block    bool

	starts int
	runs   int
	kills  int
}

func (f *fakeBackend) Start(ctx context.Context) error {
	f.starts++
	return f.startErr
}

func (f *fakeBackend) Run(ctx context.Context, code string) (*Result, error) {
	f.runs++
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.runErr != nil {
		return nil, f.runErr
	}
	res := f.result
	return &res, nil
}

func (f *fakeBackend) Kill() error {
	f.kills++
	return nil
}

func TestExecutor_LazyStart(t *testing.T) {
	fb := &fakeBackend{result: Result{Success: true, Output: "ok\n"}}
	e := NewExecutor(fb, time.Second, nil)

	if fb.starts != 0 {
		t.Fatalf("backend started eagerly: %d starts", fb.starts)
	}
	res := e.Execute(context.Background(), "print('ok')")
	if !res.Success || res.Output != "ok\n" {
		t.Errorf("Execute() = %+v; want success with output", res)
	}
	e.Execute(context.Background(), "print('ok')")
	if fb.starts != 1 {
		t.Errorf("starts = %d; want 1 (worker reused)", fb.starts)
	}
}

func TestExecutor_StartFailureIsInfra(t *testing.T) {
	fb := &fakeBackend{startErr: ErrWorkerNotRunning}
	e := NewExecutor(fb, time.Second, nil)

	res := e.Execute(context.Background(), "print(1)")
	if res.Kind != FailureInfra {
		t.Errorf("Kind = %q; want %q", res.Kind, FailureInfra)
	}
}

func TestExecutor_TimeoutKillsAndRespawns(t *testing.T) {
	fb := &fakeBackend{block: true}
	e := NewExecutor(fb, 20*time.Millisecond, nil)

	res := e.Execute(context.Background(), "while True: pass")
	if res.Kind != FailureTimeout {
		t.Fatalf("Kind = %q; want %q", res.Kind, FailureTimeout)
	}
	if fb.kills != 1 {
		t.Errorf("kills = %d; want 1", fb.kills)
	}

	fb.block = false
	fb.result = Result{Success: true}
	if res := e.Execute(context.Background(), "print(1)"); !res.Success {
		t.Errorf("Execute after timeout = %+v; want success", res)
	}
	if fb.starts != 2 {
		t.Errorf("starts = %d; want 2 (respawned)", fb.starts)
	}
}

func TestExecutor_TransportErrorIsInfra(t *testing.T) {
	fb := &fakeBackend{runErr: ErrWorkerClosed}
	e := NewExecutor(fb, time.Second, nil)

	res := e.Execute(context.Background(), "print(1)")
	if res.Kind != FailureInfra {
		t.Errorf("Kind = %q; want %q", res.Kind, FailureInfra)
	}
	if fb.kills != 1 {
		t.Errorf("kills = %d; want 1", fb.kills)
	}
}

func requirePython(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not available")
	}
}

func TestProcessBackend_Python(t *testing.T) {
	requirePython(t)

	e := NewExecutor(NewPythonProcessBackend(""), 10*time.Second, nil)
	defer e.Close()

	res := e.Execute(context.Background(), "print('hello')\nprint(1 + 2)")
	if !res.Success {
		t.Fatalf("Execute() = %+v; want success", res)
	}
	if got := NormalizeOutput(res.Output); got != "hello\n3" {
		t.Errorf("output = %q; want %q", got, "hello\n3")
	}
}

func TestProcessBackend_UserException(t *testing.T) {
	requirePython(t)

	e := NewExecutor(NewPythonProcessBackend(""), 10*time.Second, nil)
	defer e.Close()

	res := e.Execute(context.Background(), "raise ValueError('boom')")
	if res.Success {
		t.Fatal("Execute() succeeded for raising code")
	}
	if res.Kind != FailureUser {
		t.Errorf("Kind = %q; want %q", res.Kind, FailureUser)
	}
	if !strings.Contains(res.Error, "ValueError") {
		t.Errorf("error %q does not mention the exception", res.Error)
	}
}

func TestProcessBackend_RunsAreIsolated(t *testing.T) {
	requirePython(t)

	e := NewExecutor(NewPythonProcessBackend(""), 10*time.Second, nil)
	defer e.Close()

	if res := e.Execute(context.Background(), "leak = 42"); !res.Success {
		t.Fatalf("first run failed: %+v", res)
	}
	res := e.Execute(context.Background(), "print(leak)")
	if res.Success {
		t.Error("second run saw state from the first")
	}
}

func TestProcessBackend_TimeoutRecovery(t *testing.T) {
	requirePython(t)

	e := NewExecutor(NewPythonProcessBackend(""), 300*time.Millisecond, nil)
	defer e.Close()

	res := e.Execute(context.Background(), "while True:\n    pass\n")
	if res.Kind != FailureTimeout {
		t.Fatalf("Kind = %q; want %q", res.Kind, FailureTimeout)
	}

	res = e.Execute(context.Background(), "print('alive')")
	if !res.Success || NormalizeOutput(res.Output) != "alive" {
		t.Errorf("Execute after timeout = %+v; want fresh worker output", res)
	}
}

func TestNormalizeOutput(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trailing newline", "3\n", "3"},
		{"trailing spaces", "a  \nb\t\n", "a\nb"},
		{"crlf", "a\r\nb\r\n", "a\nb"},
		{"interior blank lines kept", "a\n\nb\n", "a\n\nb"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeOutput(tt.in); got != tt.want {
				t.Errorf("NormalizeOutput(%q) = %q; want %q", tt.in, got, tt.want)
			}
		})
	}
}
