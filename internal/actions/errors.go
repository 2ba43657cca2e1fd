package actions

import "errors"

// Sentinel errors returned by the engine. Callers match them with errors.Is;
// the wrapped message carries the detail.
var (
	ErrValidation           = errors.New("validation failed")
	ErrInvalidTransition    = errors.New("invalid state transition")
	ErrConcurrencyViolation = errors.New("another job is running")
	ErrUnsupportedOperation = errors.New("unsupported operation")
	ErrDuplicateName        = errors.New("duplicate name")
	ErrUnknownAction        = errors.New("unknown action")
	ErrUnknownJob           = errors.New("unknown job")
)
