package runtime

import (
	"context"

	"github.com/practalearn/grader/internal/domain"
	"github.com/practalearn/grader/internal/pylang"
	"github.com/practalearn/grader/internal/sandbox"
)

// Python is the primary runtime: native token and structural comparison via
// the pylang engine, execution via a sandbox worker.
type Python struct {
	executor *sandbox.Executor
	opts     pylang.Options
}

// NewPython creates the Python runtime. A nil executor leaves execution
// reporting infrastructure-unavailable, which keeps comparison-only
// deployments working.
func NewPython(executor *sandbox.Executor) *Python {
	return &Python{executor: executor, opts: pylang.DefaultOptions()}
}

func (p *Python) Name() string { return "python" }

func (p *Python) Execute(ctx context.Context, code string) sandbox.Result {
	if p.executor == nil {
		return sandbox.Result{Kind: sandbox.FailureInfra, Error: "no sandbox executor configured"}
	}
	return p.executor.Execute(ctx, code)
}

func (p *Python) CompareByTokens(user, expected string, alternatives []string) domain.StrategyResult {
	res := pylang.CompareByTokens(user, expected, alternatives)
	return domain.StrategyResult{
		IsCorrect:          res.Match,
		InfraAvailable:     true,
		MatchedAlternative: res.MatchedAlternative,
		NormalizedUser:     res.NormalizedUser,
		NormalizedExpected: res.NormalizedExpected,
	}
}

func (p *Python) CompareByAST(user, expected string, alternatives []string) domain.StrategyResult {
	res := pylang.CompareByAST(user, expected, alternatives, p.opts)
	return domain.StrategyResult{
		IsCorrect:          res.Match,
		InfraAvailable:     res.InfraAvailable,
		MatchedAlternative: res.MatchedAlternative,
		NormalizedUser:     res.NormalizedUser,
		NormalizedExpected: res.NormalizedExpected,
	}
}
