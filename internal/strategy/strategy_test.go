package strategy

import (
	"context"
	"strings"
	"testing"

	"github.com/practalearn/grader/internal/domain"
	"github.com/practalearn/grader/internal/runtime"
	"github.com/practalearn/grader/internal/sandbox"
)

// stubRuntime scripts each primitive independently.
type stubRuntime struct {
	name    string
	exec    sandbox.Result
	tokens  domain.StrategyResult
	ast     domain.StrategyResult
	execLog []string
}

func (s *stubRuntime) Name() string { return s.name }

func (s *stubRuntime) Execute(ctx context.Context, code string) sandbox.Result {
	s.execLog = append(s.execLog, code)
	return s.exec
}

func (s *stubRuntime) CompareByTokens(user, expected string, alts []string) domain.StrategyResult {
	return s.tokens
}

func (s *stubRuntime) CompareByAST(user, expected string, alts []string) domain.StrategyResult {
	return s.ast
}

func pythonRegistry() *runtime.Registry {
	reg := runtime.NewRegistry()
	reg.Register(runtime.NewPython(nil))
	return reg
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name string
		ex   domain.Exercise
		want domain.Strategy
	}{
		{"fill-in default", domain.Exercise{Type: domain.TypeFillIn}, domain.StrategyExact},
		{"predict default", domain.Exercise{Type: domain.TypePredict}, domain.StrategyExecution},
		{"write default", domain.Exercise{Type: domain.TypeWrite}, domain.StrategyAST},
		{
			"script implies execution",
			domain.Exercise{Type: domain.TypeWrite, VerificationScript: "assert f(1) == 2"},
			domain.StrategyExecution,
		},
		{
			"override wins over script",
			domain.Exercise{Type: domain.TypeWrite, VerificationScript: "assert f(1) == 2", Strategy: domain.StrategyToken},
			domain.StrategyToken,
		},
		{
			"override wins over type",
			domain.Exercise{Type: domain.TypeFillIn, Strategy: domain.StrategyAST},
			domain.StrategyAST,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Select(&tt.ex); got != tt.want {
				t.Errorf("Select() = %s; want %s", got, tt.want)
			}
		})
	}
}

func TestFallbackFor(t *testing.T) {
	script := "assert f(1) == 2"
	tests := []struct {
		name   string
		ex     domain.Exercise
		s      domain.Strategy
		want   domain.Strategy
		wantOK bool
	}{
		{"ast lands on exact", domain.Exercise{}, domain.StrategyAST, domain.StrategyExact, true},
		{"token lands on exact", domain.Exercise{}, domain.StrategyToken, domain.StrategyExact, true},
		{"exact has no fallback", domain.Exercise{}, domain.StrategyExact, "", false},
		{
			"script-implied execution lands on token",
			domain.Exercise{VerificationScript: script},
			domain.StrategyExecution, domain.StrategyToken, true,
		},
		{
			"explicit execution override lands on exact even with a script",
			domain.Exercise{Strategy: domain.StrategyExecution, VerificationScript: script},
			domain.StrategyExecution, domain.StrategyExact, true,
		},
		{
			"predict default execution lands on exact",
			domain.Exercise{Type: domain.TypePredict},
			domain.StrategyExecution, domain.StrategyExact, true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := fallbackFor(&tt.ex, tt.s)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("fallbackFor(%s) = %q, %v; want %q, %v", tt.s, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestGrade_ASTMatch(t *testing.T) {
	r := NewRouter(pythonRegistry(), nil)
	ex := &domain.Exercise{
		ID:             "py-001",
		Type:           domain.TypeWrite,
		ExpectedAnswer: "def f(x): return x + 1",
	}

	out := r.Grade(context.Background(), ex, "def f(n):\n    return n + 1\n")
	if !out.Result.IsCorrect {
		t.Error("alpha-equivalent answer graded incorrect")
	}
	if out.Strategy != domain.StrategyAST || out.FallbackUsed {
		t.Errorf("got strategy %s fallback=%v; want ast without fallback", out.Strategy, out.FallbackUsed)
	}
}

func TestGrade_WrongAnswerNeverFallsBack(t *testing.T) {
	r := NewRouter(pythonRegistry(), nil)
	ex := &domain.Exercise{
		ID:             "py-002",
		Type:           domain.TypeWrite,
		ExpectedAnswer: "def f(x): return x + 1",
	}

	out := r.Grade(context.Background(), ex, "def f(x): return x - 1")
	if out.Result.IsCorrect || out.FallbackUsed {
		t.Errorf("got correct=%v fallback=%v; want wrong answer on the primary strategy",
			out.Result.IsCorrect, out.FallbackUsed)
	}
}

// When the expected answer itself is not parseable the structural strategy
// is unavailable and grading degrades to exact comparison, so identical
// texts still pass.
func TestGrade_BrokenExpectedAnswerFallsBackToExact(t *testing.T) {
	r := NewRouter(pythonRegistry(), nil)
	ex := &domain.Exercise{
		ID:             "py-003",
		Type:           domain.TypeWrite,
		ExpectedAnswer: "const x = ",
	}

	out := r.Grade(context.Background(), ex, "const x = ")
	if !out.Result.IsCorrect {
		t.Error("identical text graded incorrect after fallback")
	}
	if !out.FallbackUsed || out.Strategy != domain.StrategyExact {
		t.Errorf("got strategy %s fallback=%v; want exact fallback", out.Strategy, out.FallbackUsed)
	}
	if out.FallbackReason == "" {
		t.Error("fallback reason not recorded")
	}
}

// The user's own syntax error is a wrong answer, not missing infrastructure.
func TestGrade_UserSyntaxErrorIsNoFallback(t *testing.T) {
	r := NewRouter(pythonRegistry(), nil)
	ex := &domain.Exercise{
		ID:             "py-004",
		Type:           domain.TypeWrite,
		ExpectedAnswer: "x = 1",
	}

	out := r.Grade(context.Background(), ex, "const x = ")
	if out.Result.IsCorrect || out.FallbackUsed {
		t.Errorf("got correct=%v fallback=%v; want plain incorrect", out.Result.IsCorrect, out.FallbackUsed)
	}
}

// Predict exercises with no sandbox degrade to exact comparison against the
// declared expected output.
func TestGrade_PredictWithoutSandboxFallsBack(t *testing.T) {
	r := NewRouter(pythonRegistry(), nil)
	ex := &domain.Exercise{
		ID:             "py-005",
		Type:           domain.TypePredict,
		Code:           "print(1 + 2)",
		ExpectedAnswer: "3\n",
	}

	out := r.Grade(context.Background(), ex, "3")
	if !out.Result.IsCorrect {
		t.Error("correct prediction graded incorrect")
	}
	if !out.FallbackUsed || out.Strategy != domain.StrategyExact {
		t.Errorf("got strategy %s fallback=%v; want exact fallback", out.Strategy, out.FallbackUsed)
	}
}

// Script-verified exercises degrade to token comparison of the source texts.
func TestGrade_ScriptWithoutSandboxFallsBackToToken(t *testing.T) {
	r := NewRouter(pythonRegistry(), nil)
	ex := &domain.Exercise{
		ID:                 "py-006",
		Type:               domain.TypeWrite,
		ExpectedAnswer:     "def f(x):\n    return x + 1\n",
		VerificationScript: "assert f(1) == 2",
	}

	out := r.Grade(context.Background(), ex, "def f(x): return x + 1")
	if out.Strategy != domain.StrategyToken || !out.FallbackUsed {
		t.Fatalf("got strategy %s fallback=%v; want token fallback", out.Strategy, out.FallbackUsed)
	}
	if !out.Result.IsCorrect {
		t.Error("token-identical source graded incorrect")
	}
}

// An explicit execution override takes the fixed-table fallback to exact,
// even when the exercise also carries a verification script.
func TestGrade_ExplicitExecutionOverrideFallsBackToExact(t *testing.T) {
	stub := &stubRuntime{
		name: "python",
		exec: sandbox.Result{Kind: sandbox.FailureInfra, Error: "docker not reachable"},
	}
	reg := runtime.NewRegistry()
	reg.Register(stub)
	r := NewRouter(reg, nil)

	ex := &domain.Exercise{
		ID:                 "py-012",
		Type:               domain.TypeWrite,
		Strategy:           domain.StrategyExecution,
		ExpectedAnswer:     "def f(x): return x + 1",
		VerificationScript: "assert f(1) == 2",
	}
	out := r.Grade(context.Background(), ex, "def f(x): return x + 1")
	if out.Strategy != domain.StrategyExact || !out.FallbackUsed {
		t.Fatalf("got strategy %s fallback=%v; want exact fallback for an explicit override",
			out.Strategy, out.FallbackUsed)
	}
	if !out.Result.IsCorrect {
		t.Error("identical text graded incorrect by the exact fallback")
	}
}

func TestGrade_ScriptVerification(t *testing.T) {
	stub := &stubRuntime{name: "python", exec: sandbox.Result{Success: true}}
	reg := runtime.NewRegistry()
	reg.Register(stub)
	r := NewRouter(reg, nil)

	ex := &domain.Exercise{
		ID:                 "py-007",
		Type:               domain.TypeWrite,
		ExpectedAnswer:     "def f(x): return x + 1",
		VerificationScript: "assert f(1) == 2",
	}
	out := r.Grade(context.Background(), ex, "def f(x): return 1 + x")
	if !out.Result.IsCorrect || out.FallbackUsed {
		t.Errorf("got %+v; want correct without fallback", out)
	}
	if len(stub.execLog) != 1 {
		t.Fatalf("executed %d programs; want 1", len(stub.execLog))
	}

	// Assertion failures grade as incorrect without falling back.
	stub.exec = sandbox.Result{Kind: sandbox.FailureUser, Error: "AssertionError"}
	out = r.Grade(context.Background(), ex, "def f(x): return x - 1")
	if out.Result.IsCorrect || out.FallbackUsed {
		t.Errorf("got %+v; want incorrect without fallback", out)
	}
}

// A timed-out execution counts as unavailable infrastructure.
func TestGrade_TimeoutTriggersFallback(t *testing.T) {
	stub := &stubRuntime{
		name:   "python",
		exec:   sandbox.Result{Kind: sandbox.FailureTimeout, Error: "execution timed out"},
		tokens: domain.StrategyResult{IsCorrect: true, InfraAvailable: true},
	}
	reg := runtime.NewRegistry()
	reg.Register(stub)
	r := NewRouter(reg, nil)

	ex := &domain.Exercise{
		ID:                 "py-008",
		Type:               domain.TypeWrite,
		ExpectedAnswer:     "def f(x): return x + 1",
		VerificationScript: "assert f(1) == 2",
	}
	out := r.Grade(context.Background(), ex, "def f(x): return x + 1")
	if !out.FallbackUsed || out.Strategy != domain.StrategyToken {
		t.Errorf("got strategy %s fallback=%v; want token fallback", out.Strategy, out.FallbackUsed)
	}
	if !out.Result.IsCorrect {
		t.Error("fallback verdict lost")
	}
}

// Fallback never cascades: if the single fallback step is also unavailable
// the submission grades incorrect.
func TestGrade_SingleLevelFallbackOnly(t *testing.T) {
	stub := &stubRuntime{
		name:   "python",
		exec:   sandbox.Result{Kind: sandbox.FailureInfra, Error: "docker not reachable"},
		tokens: domain.StrategyResult{InfraAvailable: false},
	}
	reg := runtime.NewRegistry()
	reg.Register(stub)
	r := NewRouter(reg, nil)

	ex := &domain.Exercise{
		ID:                 "py-009",
		Type:               domain.TypeWrite,
		ExpectedAnswer:     "def f(x): return x + 1",
		VerificationScript: "assert f(1) == 2",
	}
	out := r.Grade(context.Background(), ex, "def f(x): return x + 1")
	if out.Result.IsCorrect {
		t.Error("ungradable submission marked correct")
	}
	if !out.FallbackUsed {
		t.Error("fallback attempt not recorded")
	}
}

func TestGrade_FillInExact(t *testing.T) {
	r := NewRouter(pythonRegistry(), nil)
	ex := &domain.Exercise{
		ID:             "py-010",
		Type:           domain.TypeFillIn,
		ExpectedAnswer: "range",
	}

	out := r.Grade(context.Background(), ex, "  Range ")
	if !out.Result.IsCorrect {
		t.Error("fill-in comparison is not case and spacing insensitive")
	}
	if out.FallbackUsed {
		t.Error("exact strategy reported a fallback")
	}
}

func TestGrade_MatchedAlternative(t *testing.T) {
	r := NewRouter(pythonRegistry(), nil)
	ex := &domain.Exercise{
		ID:                "py-011",
		Type:              domain.TypeWrite,
		ExpectedAnswer:    "total = sum(xs)",
		AcceptedSolutions: []string{"total = 0\nfor x in xs:\n    total += x\n"},
	}

	out := r.Grade(context.Background(), ex, "acc = 0\nfor v in xs:\n    acc += v\n")
	if !out.Result.IsCorrect {
		t.Fatal("alternative solution graded incorrect")
	}
	if out.Result.MatchedAlternative == "" {
		t.Error("matched alternative not reported")
	}
}

// An exercise with no registered runtime still gets a verdict: grading
// bottoms out at exact comparison, which needs no runtime.
func TestGrade_UnknownLanguageDegradesToExact(t *testing.T) {
	r := NewRouter(pythonRegistry(), nil)
	ex := &domain.Exercise{ID: "x", Language: "cobol", Type: domain.TypeWrite, ExpectedAnswer: "x = 1"}

	out := r.Grade(context.Background(), ex, "x = 1")
	if !out.Result.IsCorrect || out.Strategy != domain.StrategyExact || !out.FallbackUsed {
		t.Errorf("got %+v; want correct exact fallback", out)
	}
	if !strings.Contains(out.FallbackReason, "cobol") {
		t.Errorf("FallbackReason = %q; want the missing language named", out.FallbackReason)
	}
}

func TestGrade_UnknownStrategyDegradesToExact(t *testing.T) {
	r := NewRouter(pythonRegistry(), nil)
	ex := &domain.Exercise{ID: "x", Type: domain.TypeWrite, Strategy: "vibes", ExpectedAnswer: "x = 1"}

	out := r.Grade(context.Background(), ex, "x = 2")
	if out.Result.IsCorrect {
		t.Error("wrong answer graded correct by the exact bottom")
	}
	if out.Strategy != domain.StrategyExact || !out.FallbackUsed {
		t.Errorf("got strategy %s fallback=%v; want exact fallback", out.Strategy, out.FallbackUsed)
	}
}
