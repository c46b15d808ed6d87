package performance

import "errors"

var (
	ErrEvaluationNotFound = errors.New("evaluation not found")
	ErrLevelNotFound      = errors.New("level not found")
	ErrObjectiveNotFound  = errors.New("objective not found")
	ErrLineNotFound       = errors.New("evaluation line not found")
	ErrInvalidTransition  = errors.New("invalid state transition")
	ErrInvalidKind        = errors.New("invalid evaluation kind")
	ErrInvalidState       = errors.New("invalid evaluation state")
)
