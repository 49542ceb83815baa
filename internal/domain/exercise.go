package domain

// ExerciseType determines how an exercise is answered and, by default,
// how it is graded.
type ExerciseType string

const (
	TypeWrite   ExerciseType = "write"   // learner writes source code
	TypeFillIn  ExerciseType = "fill-in" // learner fills a blank
	TypePredict ExerciseType = "predict" // learner predicts program output
)

// Strategy identifies a grading comparison strategy.
type Strategy string

const (
	StrategyExact     Strategy = "exact"
	StrategyToken     Strategy = "token"
	StrategyAST       Strategy = "ast"
	StrategyExecution Strategy = "execution"
)

// ConstructKind names a syntactic idiom the learner can be nudged toward.
type ConstructKind string

const (
	ConstructSlice         ConstructKind = "slice"
	ConstructComprehension ConstructKind = "comprehension"
	ConstructFString       ConstructKind = "fstring"
	ConstructTernary       ConstructKind = "ternary"
	ConstructEnumerate     ConstructKind = "enumerate"
	ConstructZip           ConstructKind = "zip"
	ConstructLambda        ConstructKind = "lambda"
	ConstructGenerator     ConstructKind = "generator"
)

// TargetConstruct is a construct the exercise nudges the learner toward.
// Feedback, if set, replaces the generic coaching message.
type TargetConstruct struct {
	Kind     ConstructKind
	Feedback string
}

// Exercise describes a single gradable exercise. It is owned by the content
// layer and consumed read-only by the grading core.
type Exercise struct {
	ID       string
	Language string // language tag, "python" when empty
	Type     ExerciseType

	// ExpectedAnswer is the canonical correct source text, or the expected
	// stdout text for predict exercises.
	ExpectedAnswer string

	// AcceptedSolutions are alternative correct answers, tried in order.
	// Order is significant for matched-alternative reporting.
	AcceptedSolutions []string

	// Strategy, when set, overrides the type-based grading strategy.
	Strategy Strategy

	// VerificationScript is appended after the learner's submission and
	// executed with it. Its presence implies the execution strategy.
	VerificationScript string

	// Code is the read-only snippet a predict exercise asks the learner to
	// trace; its captured output is compared to the typed answer.
	Code string

	// ExecutionTemplate wraps a write answer for output verification. The
	// literal {{answer}} is replaced with the submitted text.
	ExecutionTemplate string

	// ExpectedOutput is the stdout expected from an execution-verified write
	// exercise. When empty, the expected answer is executed to obtain it.
	ExpectedOutput string

	Target *TargetConstruct
}

// EffectiveLanguage returns the exercise language tag, defaulting to python.
func (e *Exercise) EffectiveLanguage() string {
	if e.Language == "" {
		return "python"
	}
	return e.Language
}

// HasVerificationScript reports whether a verification script is declared.
func (e *Exercise) HasVerificationScript() bool {
	return e.VerificationScript != ""
}
