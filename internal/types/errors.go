package types

import "errors"

var (
	ErrNotFound        = errors.New("requested item not found")
	ErrConflict        = errors.New("item already exists or conflict")
	ErrUnauthenticated = errors.New("authentication required or invalid credentials")
	ErrForbidden       = errors.New("action forbidden")
	ErrInvalidInput    = errors.New("invalid input")

	// ErrExecutableNotFound means the local model runner binary is not installed.
	ErrExecutableNotFound = errors.New("llm executable not found")
	ErrLLMUnavailable     = errors.New("llm did not produce an answer")
)

// Response represents a generic API response for success or error messages.
type Response struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message,omitempty" example:"Operation successful"`
	Error   string `json:"error,omitempty" example:"Resource not found"`
}
