package domain

import (
	"errors"
	"fmt"
)

// Sentinel kinds matched with errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrTimeout    = errors.New("timeout")
)

// Error carries a kind plus the caller-facing message.
type Error struct {
	Kind    error
	Field   string
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Is(target error) bool { return target == e.Kind }

// Validation reports a missing or malformed request field.
func Validation(field, format string, args ...any) error {
	return &Error{Kind: ErrValidation, Field: field, Message: fmt.Sprintf(format, args...)}
}

// MissingField is the standard error for a blank required string.
func MissingField(field string) error {
	return Validation(field, "Invalid or missing '%s': must be a non-empty string.", field)
}

func NotFound(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) error {
	return &Error{Kind: ErrConflict, Message: fmt.Sprintf(format, args...)}
}

func Timeout(format string, args ...any) error {
	return &Error{Kind: ErrTimeout, Message: fmt.Sprintf(format, args...)}
}

// Messages shared by the service layer and every store backend.
const (
	MsgProjectNotFound = "Project not found."
	MsgNoProjects      = "No projects found."
)

func ProjectNotFound() error { return NotFound(MsgProjectNotFound) }

func FileNotFound(filePath string) error {
	return NotFound("File with path '%s' not found in the project.", filePath)
}

func FileExists(filePath string) error {
	return Conflict("File with path '%s' already exists in the project.", filePath)
}

func ProjectExists(projectID string) error {
	return Conflict("Project with id '%s' already exists.", projectID)
}
