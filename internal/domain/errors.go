package domain

import "errors"

var (
	ErrExerciseNotFound = errors.New("exercise not found")
	ErrUnknownLanguage  = errors.New("no runtime registered for language")
	ErrUnknownStrategy  = errors.New("unknown grading strategy")
)
