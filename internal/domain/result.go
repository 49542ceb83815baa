package domain

// Method records which strategy actually produced a verdict, including
// whether it ran as a fallback (e.g. "exact-fallback").
type Method string

// MethodFor builds the method tag for a strategy and fallback flag.
func MethodFor(s Strategy, fallback bool) Method {
	if fallback {
		return Method(string(s) + "-fallback")
	}
	return Method(s)
}

// GradingResult is the final, immutable outcome of grading one submission.
type GradingResult struct {
	IsCorrect bool

	// UsedTargetConstruct is nil when no target construct is declared or
	// the answer was incorrect.
	UsedTargetConstruct *bool

	// CoachingFeedback is empty unless the answer was correct, a target
	// construct was declared, and the construct was not used.
	CoachingFeedback string

	Method         Method
	FallbackUsed   bool
	FallbackReason string

	// Display-oriented normalized forms of both sides of the comparison.
	NormalizedUserAnswer     string
	NormalizedExpectedAnswer string

	// MatchedAlternative is the accepted-solution entry that matched, empty
	// when the primary expected answer matched (or nothing did).
	MatchedAlternative string
}

// StrategyResult is the outcome of a single strategy attempt.
// InfraAvailable=false is the only trigger for fallback; a wrong but
// gradable answer has InfraAvailable=true, IsCorrect=false.
type StrategyResult struct {
	IsCorrect          bool
	InfraAvailable     bool
	MatchedAlternative string

	NormalizedUser     string
	NormalizedExpected string

	Err error
}
