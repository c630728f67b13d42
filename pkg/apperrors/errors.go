package apperrors

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrGenerationFailed   = errors.New("question generation failed")
	ErrGeneratorMismatch  = errors.New("generator returned wrong number of questions")
	ErrIncompleteQuestion = errors.New("generated question missing required field")
)
