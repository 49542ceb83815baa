// Package strategy selects and runs grading strategies. Fallback is driven
// purely by infrastructure availability: a wrong answer never falls back,
// and at most one fallback step ever runs.
package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/practalearn/grader/internal/domain"
	"github.com/practalearn/grader/internal/runtime"
	"github.com/practalearn/grader/internal/sandbox"
)

// Select resolves the primary strategy for an exercise: an explicit override
// wins, then a verification script implies execution, then the exercise type
// picks its default.
func Select(ex *domain.Exercise) domain.Strategy {
	if ex.Strategy != "" {
		return ex.Strategy
	}
	if ex.HasVerificationScript() {
		return domain.StrategyExecution
	}
	switch ex.Type {
	case domain.TypeFillIn:
		return domain.StrategyExact
	case domain.TypePredict:
		return domain.StrategyExecution
	default:
		return domain.StrategyAST
	}
}

// fallbackFor returns the single degradation step for a strategy. Exact has
// nowhere to go. An explicit override always takes the fixed-table step
// (execution included, so it lands on exact); only execution chosen by the
// verification script itself degrades to token comparison against the
// expected source.
func fallbackFor(ex *domain.Exercise, s domain.Strategy) (domain.Strategy, bool) {
	switch s {
	case domain.StrategyAST, domain.StrategyToken:
		return domain.StrategyExact, true
	case domain.StrategyExecution:
		if ex.Strategy == "" && ex.HasVerificationScript() {
			return domain.StrategyToken, true
		}
		return domain.StrategyExact, true
	}
	return "", false
}

// Outcome is a graded strategy result plus how it was reached.
type Outcome struct {
	Result         domain.StrategyResult
	Strategy       domain.Strategy
	FallbackUsed   bool
	FallbackReason string
}

// Router grades submissions through the per-language runtimes.
type Router struct {
	runtimes *runtime.Registry
	logger   *slog.Logger
}

// NewRouter creates a router over a runtime registry.
func NewRouter(runtimes *runtime.Registry, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{runtimes: runtimes, logger: logger}
}

// Grade runs the primary strategy and, only if its infrastructure was
// unavailable, the single fallback step. It never fails: an exercise that
// cannot be routed at all (no runtime for its language, unroutable strategy
// tag) is graded by exact comparison, which needs neither.
func (r *Router) Grade(ctx context.Context, ex *domain.Exercise, answer string) Outcome {
	rt, err := r.runtimes.Get(ex.EffectiveLanguage())
	if err != nil {
		return r.degradeToExact(ex, answer, err.Error())
	}

	primary := Select(ex)
	switch primary {
	case domain.StrategyExact, domain.StrategyToken, domain.StrategyAST, domain.StrategyExecution:
	default:
		reason := fmt.Sprintf("%v: %q", domain.ErrUnknownStrategy, primary)
		return r.degradeToExact(ex, answer, reason)
	}

	res := r.attempt(ctx, rt, ex, primary, answer)
	if res.InfraAvailable {
		return Outcome{Result: res, Strategy: primary}
	}

	fb, ok := fallbackFor(ex, primary)
	if !ok {
		// Nowhere to degrade; the submission stays gradable as incorrect.
		res.IsCorrect = false
		return Outcome{Result: res, Strategy: primary}
	}

	reason := fmt.Sprintf("%s unavailable", primary)
	if res.Err != nil {
		reason = fmt.Sprintf("%s unavailable: %v", primary, res.Err)
	}
	r.logger.Warn("strategy degraded",
		"exercise", ex.ID, "from", primary, "to", fb, "reason", reason)

	fres := r.attempt(ctx, rt, ex, fb, answer)
	if !fres.InfraAvailable {
		// Single-level fallback only; give up rather than cascade.
		fres.IsCorrect = false
	}
	return Outcome{Result: fres, Strategy: fb, FallbackUsed: true, FallbackReason: reason}
}

// degradeToExact is the bottom of the fallback ladder for unroutable
// exercises. Exact comparison has no infrastructure to be missing, so every
// submission still gets a verdict.
func (r *Router) degradeToExact(ex *domain.Exercise, answer, reason string) Outcome {
	r.logger.Warn("strategy degraded",
		"exercise", ex.ID, "to", domain.StrategyExact, "reason", reason)
	return Outcome{
		Result:         compareExact(ex, answer),
		Strategy:       domain.StrategyExact,
		FallbackUsed:   true,
		FallbackReason: reason,
	}
}

func (r *Router) attempt(ctx context.Context, rt runtime.LanguageRuntime, ex *domain.Exercise, s domain.Strategy, answer string) domain.StrategyResult {
	switch s {
	case domain.StrategyExact:
		return compareExact(ex, answer)
	case domain.StrategyToken:
		return rt.CompareByTokens(answer, ex.ExpectedAnswer, ex.AcceptedSolutions)
	case domain.StrategyAST:
		return rt.CompareByAST(answer, ex.ExpectedAnswer, ex.AcceptedSolutions)
	case domain.StrategyExecution:
		return r.attemptExecution(ctx, rt, ex, answer)
	}
	return domain.StrategyResult{}
}

// compareExact never has an infrastructure failure mode. Fill-in blanks
// compare case- and spacing-insensitively; everything else compares the
// texts with line endings and trailing whitespace normalized.
func compareExact(ex *domain.Exercise, answer string) domain.StrategyResult {
	norm := sandbox.NormalizeOutput
	if ex.Type == domain.TypeFillIn {
		norm = normalizeFillIn
	}

	res := domain.StrategyResult{
		InfraAvailable:     true,
		NormalizedUser:     norm(answer),
		NormalizedExpected: norm(ex.ExpectedAnswer),
	}
	if res.NormalizedUser == res.NormalizedExpected {
		res.IsCorrect = true
		return res
	}
	for _, alt := range ex.AcceptedSolutions {
		if res.NormalizedUser == norm(alt) {
			res.IsCorrect = true
			res.MatchedAlternative = alt
			return res
		}
	}
	return res
}

func normalizeFillIn(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// attemptExecution picks the execution flavor: a verification script runs
// appended to the submission, predict exercises capture the traced snippet's
// output, and write exercises compare program output through the template.
func (r *Router) attemptExecution(ctx context.Context, rt runtime.LanguageRuntime, ex *domain.Exercise, answer string) domain.StrategyResult {
	switch {
	case ex.HasVerificationScript():
		return r.runScript(ctx, rt, ex, answer)
	case ex.Type == domain.TypePredict:
		return r.runPredict(ctx, rt, ex, answer)
	default:
		return r.runTemplate(ctx, rt, ex, answer)
	}
}

// runScript executes the submission with the verification script appended.
// The script signals a wrong answer by raising (assertions included), so a
// user-kind failure grades as incorrect, not as missing infrastructure.
func (r *Router) runScript(ctx context.Context, rt runtime.LanguageRuntime, ex *domain.Exercise, answer string) domain.StrategyResult {
	program := answer + "\n\n" + ex.VerificationScript
	run := rt.Execute(ctx, program)
	switch {
	case run.Success:
		return domain.StrategyResult{
			IsCorrect:      true,
			InfraAvailable: true,
			NormalizedUser: sandbox.NormalizeOutput(run.Output),
		}
	case run.Kind == sandbox.FailureUser:
		return domain.StrategyResult{
			InfraAvailable: true,
			NormalizedUser: sandbox.NormalizeOutput(run.Output),
			Err:            fmt.Errorf("verification failed: %s", errorSummary(run.Error)),
		}
	default:
		return domain.StrategyResult{Err: fmt.Errorf("sandbox: %s", run.Error)}
	}
}

// runPredict executes the exercise's read-only snippet and compares its
// captured output with the learner's prediction. The snippet is exercise
// content; if it cannot run, that is an infrastructure problem.
func (r *Router) runPredict(ctx context.Context, rt runtime.LanguageRuntime, ex *domain.Exercise, answer string) domain.StrategyResult {
	run := rt.Execute(ctx, ex.Code)
	if !run.Success {
		return domain.StrategyResult{Err: fmt.Errorf("exercise snippet failed: %s", errorSummary(run.Error))}
	}

	want := sandbox.NormalizeOutput(run.Output)
	got := sandbox.NormalizeOutput(answer)
	res := domain.StrategyResult{
		InfraAvailable:     true,
		NormalizedUser:     got,
		NormalizedExpected: want,
	}
	if got == want {
		res.IsCorrect = true
		return res
	}
	for _, alt := range ex.AcceptedSolutions {
		if got == sandbox.NormalizeOutput(alt) {
			res.IsCorrect = true
			res.MatchedAlternative = alt
			return res
		}
	}
	return res
}

// runTemplate wraps a write answer in the execution template and compares
// its output with the expected output, deriving the latter from the expected
// answer when the exercise does not declare it.
func (r *Router) runTemplate(ctx context.Context, rt runtime.LanguageRuntime, ex *domain.Exercise, answer string) domain.StrategyResult {
	expectedOut := ex.ExpectedOutput
	if expectedOut == "" {
		ref := rt.Execute(ctx, renderTemplate(ex.ExecutionTemplate, ex.ExpectedAnswer))
		if !ref.Success {
			return domain.StrategyResult{Err: fmt.Errorf("expected answer failed to run: %s", errorSummary(ref.Error))}
		}
		expectedOut = ref.Output
	}

	run := rt.Execute(ctx, renderTemplate(ex.ExecutionTemplate, answer))
	switch {
	case run.Success:
	case run.Kind == sandbox.FailureUser:
		return domain.StrategyResult{
			InfraAvailable:     true,
			NormalizedExpected: sandbox.NormalizeOutput(expectedOut),
			Err:                fmt.Errorf("submission failed to run: %s", errorSummary(run.Error)),
		}
	default:
		return domain.StrategyResult{Err: fmt.Errorf("sandbox: %s", run.Error)}
	}

	got := sandbox.NormalizeOutput(run.Output)
	want := sandbox.NormalizeOutput(expectedOut)
	return domain.StrategyResult{
		IsCorrect:          got == want,
		InfraAvailable:     true,
		NormalizedUser:     got,
		NormalizedExpected: want,
	}
}

func renderTemplate(tmpl, answer string) string {
	if tmpl == "" {
		return answer
	}
	return strings.ReplaceAll(tmpl, "{{answer}}", answer)
}

func errorSummary(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		lines := strings.Split(s, "\n")
		return strings.TrimSpace(lines[len(lines)-1])
	}
	return s
}
