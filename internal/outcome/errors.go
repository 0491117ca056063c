package outcome

import "errors"

// ErrUnauthorized is returned when the supplied token does not match the
// configured secret.
var ErrUnauthorized = errors.New("unauthorized")

// ValidationError reports a missing or conflicting request parameter.
// Message is returned to the caller verbatim.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}
