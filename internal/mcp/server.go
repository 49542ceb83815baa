// Package mcp exposes the grader over the Model Context Protocol so editor
// agents can grade answers and probe construct usage directly.
package mcp

import (
	"context"
	"fmt"
	"time"

	mcp "github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/server"

	"github.com/practalearn/grader/internal/construct"
	"github.com/practalearn/grader/internal/exercise"
	"github.com/practalearn/grader/internal/grading"
	"github.com/practalearn/grader/internal/sandbox"
)

// Server wraps the MCP server with grading functionality.
type Server struct {
	mcpServer *server.Server
	grader    *grading.Grader
	registry  *exercise.Registry
	detector  *construct.Detector
	executor  *sandbox.Executor
}

// Config contains the collaborators the MCP tools call into. Executor may be
// nil; grader_execute then reports the sandbox as unavailable.
type Config struct {
	Grader   *grading.Grader
	Registry *exercise.Registry
	Detector *construct.Detector
	Executor *sandbox.Executor
}

// NewServer creates a new MCP server for the grader.
func NewServer(cfg Config) *Server {
	s := &Server{
		grader:   cfg.Grader,
		registry: cfg.Registry,
		detector: cfg.Detector,
		executor: cfg.Executor,
	}
	if s.detector == nil {
		s.detector = construct.NewDetector()
	}

	s.mcpServer = server.New(server.Info{
		Name:    "grader",
		Version: "0.1.0",
	}, server.WithInstructions(`
The grader checks free-text code answers against exercise definitions.

Available tools:
- grader_grade: Grade an answer for a loaded exercise
- grader_detect: Check which syntactic constructs a snippet uses
- grader_execute: Run a snippet in the sandbox and capture its output
- grader_list: List loaded exercise IDs
`))

	s.registerTools()

	return s
}

// registerTools registers all grader MCP tools.
func (s *Server) registerTools() {
	s.mcpServer.Tool("grader_grade").
		Description("Grade a submitted answer against a loaded exercise.").
		Handler(s.handleGrade)

	s.mcpServer.Tool("grader_detect").
		Description("Detect which syntactic constructs a code snippet uses.").
		Handler(s.handleDetect)

	s.mcpServer.Tool("grader_execute").
		Description("Execute a code snippet in the sandbox and return its output.").
		Handler(s.handleExecute)

	s.mcpServer.Tool("grader_list").
		Description("List the IDs of all loaded exercises.").
		Handler(s.handleList)
}

// Input/Output types for tools

type GradeInput struct {
	ExerciseID string `json:"exercise_id" jsonschema:"description=ID of a loaded exercise"`
	Answer     string `json:"answer" jsonschema:"description=The learner's submitted answer text"`
}

type GradeOutput struct {
	IsCorrect           bool   `json:"is_correct"`
	Method              string `json:"method"`
	FallbackUsed        bool   `json:"fallback_used,omitempty"`
	FallbackReason      string `json:"fallback_reason,omitempty"`
	UsedTargetConstruct *bool  `json:"used_target_construct,omitempty"`
	CoachingFeedback    string `json:"coaching_feedback,omitempty"`
	MatchedAlternative  string `json:"matched_alternative,omitempty"`
}

type DetectInput struct {
	Code string `json:"code" jsonschema:"description=Code snippet to analyze"`
}

type DetectOutput struct {
	Constructs []string `json:"constructs"`
}

type ExecuteInput struct {
	Code      string `json:"code" jsonschema:"description=Code to run in the sandbox"`
	TimeoutMs int    `json:"timeout_ms,omitempty" jsonschema:"description=Execution deadline in milliseconds (default 5000)"`
}

type ExecuteOutput struct {
	Success    bool   `json:"success"`
	Output     string `json:"output,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

type ListInput struct{}

type ListOutput struct {
	ExerciseIDs []string `json:"exercise_ids"`
}

// Tool handlers

func (s *Server) handleGrade(ctx context.Context, input GradeInput) (GradeOutput, error) {
	ex, err := s.registry.Get(input.ExerciseID)
	if err != nil {
		return GradeOutput{}, fmt.Errorf("exercise lookup failed: %w", err)
	}

	res := s.grader.Grade(ctx, ex, input.Answer)

	return GradeOutput{
		IsCorrect:           res.IsCorrect,
		Method:              string(res.Method),
		FallbackUsed:        res.FallbackUsed,
		FallbackReason:      res.FallbackReason,
		UsedTargetConstruct: res.UsedTargetConstruct,
		CoachingFeedback:    res.CoachingFeedback,
		MatchedAlternative:  res.MatchedAlternative,
	}, nil
}

func (s *Server) handleDetect(ctx context.Context, input DetectInput) (DetectOutput, error) {
	kinds := s.detector.DetectAll(input.Code)
	names := make([]string, 0, len(kinds))
	for _, k := range kinds {
		names = append(names, string(k))
	}
	return DetectOutput{Constructs: names}, nil
}

func (s *Server) handleExecute(ctx context.Context, input ExecuteInput) (ExecuteOutput, error) {
	if s.executor == nil {
		return ExecuteOutput{
			Success: false,
			Error:   "no sandbox configured",
		}, nil
	}

	if input.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(input.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	res := s.executor.Execute(ctx, input.Code)
	return ExecuteOutput{
		Success:    res.Success,
		Output:     res.Output,
		Error:      res.Error,
		DurationMs: res.Duration.Milliseconds(),
	}, nil
}

func (s *Server) handleList(ctx context.Context, input ListInput) (ListOutput, error) {
	return ListOutput{ExerciseIDs: s.registry.IDs()}, nil
}

// ServeStdio starts the MCP server on stdio (for editor integration).
func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

// ServeHTTP starts the MCP server on HTTP (alternative transport).
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	return mcp.ServeHTTP(ctx, s.mcpServer, addr)
}

// GetMCPServer returns the underlying MCP server (for testing).
func (s *Server) GetMCPServer() *server.Server {
	return s.mcpServer
}
