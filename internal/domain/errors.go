package domain

// ValidationError is a form problem caught before any backend call. Its
// text is shown to the admin as is.
type ValidationError struct {
	Message string
}

func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

func (e *ValidationError) Error() string {
	return e.Message
}
