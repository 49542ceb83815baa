// Package grading orchestrates the two grading passes: correctness through
// the strategy router, then construct coaching for correct answers.
package grading

import (
	"context"
	"log/slog"
	"time"

	"github.com/practalearn/grader/internal/construct"
	"github.com/practalearn/grader/internal/domain"
	"github.com/practalearn/grader/internal/strategy"
	"github.com/practalearn/grader/internal/telemetry"
)

// Grader grades submissions and records telemetry.
type Grader struct {
	router   *strategy.Router
	detector *construct.Detector
	sink     telemetry.Sink
	logger   *slog.Logger
}

// New creates a grader. A nil sink discards telemetry; a nil detector gets
// the default pattern set.
func New(router *strategy.Router, detector *construct.Detector, sink telemetry.Sink, logger *slog.Logger) *Grader {
	if detector == nil {
		detector = construct.NewDetector()
	}
	if sink == nil {
		sink = telemetry.NopSink{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Grader{router: router, detector: detector, sink: sink, logger: logger}
}

// Grade produces the final verdict for one submission. It never fails:
// unroutable exercises degrade to exact comparison inside the router, so
// every submission gets a verdict, however broken the content.
func (g *Grader) Grade(ctx context.Context, ex *domain.Exercise, answer string) domain.GradingResult {
	out := g.router.Grade(ctx, ex, answer)

	res := domain.GradingResult{
		IsCorrect:                out.Result.IsCorrect,
		Method:                   domain.MethodFor(out.Strategy, out.FallbackUsed),
		FallbackUsed:             out.FallbackUsed,
		FallbackReason:           out.FallbackReason,
		NormalizedUserAnswer:     out.Result.NormalizedUser,
		NormalizedExpectedAnswer: out.Result.NormalizedExpected,
		MatchedAlternative:       out.Result.MatchedAlternative,
	}

	// Second pass: coaching never changes correctness, and wrong answers get
	// no construct nudge on top of being wrong.
	if res.IsCorrect && ex.Target != nil {
		used := g.detector.Detect(answer, ex.Target.Kind)
		res.UsedTargetConstruct = &used
		if !used {
			feedback := ex.Target.Feedback
			if feedback == "" {
				feedback = g.detector.Coaching(ex.Target.Kind)
			}
			res.CoachingFeedback = feedback
		}
	}

	g.record(ex, answer, res)
	return res
}

// record ships the telemetry event without blocking the grading path.
func (g *Grader) record(ex *domain.Exercise, answer string, res domain.GradingResult) {
	rec := telemetry.Record{
		ExerciseID:         ex.ID,
		Strategy:           res.Method,
		WasCorrect:         res.IsCorrect,
		FallbackUsed:       res.FallbackUsed,
		FallbackReason:     res.FallbackReason,
		MatchedAlternative: res.MatchedAlternative,
		HashedAnswer:       telemetry.HashAnswer(answer),
		Timestamp:          time.Now().UTC(),
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				g.logger.Error("telemetry sink panicked", "panic", r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := g.sink.Record(ctx, rec); err != nil {
			g.logger.Warn("telemetry record failed", "exercise", ex.ID, "error", err)
		}
	}()
}
