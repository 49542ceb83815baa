package mcp

import (
	"context"
	"testing"

	"github.com/practalearn/grader/internal/domain"
	"github.com/practalearn/grader/internal/exercise"
	"github.com/practalearn/grader/internal/grading"
	"github.com/practalearn/grader/internal/runtime"
	"github.com/practalearn/grader/internal/strategy"
)

// setupTestServer creates a test MCP server without a sandbox.
func setupTestServer(t *testing.T) *Server {
	t.Helper()

	reg := runtime.NewRegistry()
	reg.Register(runtime.NewPython(nil))
	grader := grading.New(strategy.NewRouter(reg, nil), nil, nil, nil)

	registry := exercise.NewRegistry()
	registry.Put(&domain.Exercise{
		ID:             "py-slice-001",
		Type:           domain.TypeWrite,
		ExpectedAnswer: "first_three = items[:3]",
		Target:         &domain.TargetConstruct{Kind: domain.ConstructSlice},
	})

	return NewServer(Config{Grader: grader, Registry: registry})
}

func TestNewServer(t *testing.T) {
	server := setupTestServer(t)

	if server == nil {
		t.Fatal("expected non-nil server")
	}
	if server.mcpServer == nil {
		t.Fatal("expected non-nil MCP server")
	}
	if server.detector == nil {
		t.Fatal("expected default detector when config omits one")
	}
	if server.GetMCPServer() != server.mcpServer {
		t.Error("GetMCPServer returned a different server")
	}
}

func TestHandleGrade(t *testing.T) {
	server := setupTestServer(t)

	out, err := server.handleGrade(context.Background(), GradeInput{
		ExerciseID: "py-slice-001",
		Answer:     "first_three = items[0:3]",
	})
	if err != nil {
		t.Fatalf("handleGrade() error = %v", err)
	}
	if !out.IsCorrect {
		t.Error("equivalent slice answer graded incorrect")
	}
	if out.UsedTargetConstruct == nil || !*out.UsedTargetConstruct {
		t.Error("slice use not reported")
	}
}

func TestHandleGrade_UnknownExercise(t *testing.T) {
	server := setupTestServer(t)

	if _, err := server.handleGrade(context.Background(), GradeInput{
		ExerciseID: "missing",
		Answer:     "x",
	}); err == nil {
		t.Error("handleGrade() accepted unknown exercise")
	}
}

func TestHandleDetect(t *testing.T) {
	server := setupTestServer(t)

	out, err := server.handleDetect(context.Background(), DetectInput{
		Code: "firsts = [p[0] for p in pairs]",
	})
	if err != nil {
		t.Fatalf("handleDetect() error = %v", err)
	}
	found := false
	for _, c := range out.Constructs {
		if c == "comprehension" {
			found = true
		}
	}
	if !found {
		t.Errorf("Constructs = %v; want comprehension listed", out.Constructs)
	}
}

func TestHandleExecute_NoSandbox(t *testing.T) {
	server := setupTestServer(t)

	out, err := server.handleExecute(context.Background(), ExecuteInput{Code: "print(1)"})
	if err != nil {
		t.Fatalf("handleExecute() error = %v", err)
	}
	if out.Success || out.Error == "" {
		t.Errorf("output = %+v; want failure with error text", out)
	}
}

func TestHandleList(t *testing.T) {
	server := setupTestServer(t)

	out, err := server.handleList(context.Background(), ListInput{})
	if err != nil {
		t.Fatalf("handleList() error = %v", err)
	}
	if len(out.ExerciseIDs) != 1 || out.ExerciseIDs[0] != "py-slice-001" {
		t.Errorf("ExerciseIDs = %v; want [py-slice-001]", out.ExerciseIDs)
	}
}
