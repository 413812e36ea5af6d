package booking

import (
	"errors"
	"fmt"
	"strings"
)

// Category classifies a scheduling failure so the HTTP layer can pick a
// status code without inspecting individual issue codes.
type Category string

const (
	CategoryValidation Category = "validation"
	CategoryNotFound   Category = "not_found"
	CategoryConflict   Category = "conflict"
	CategoryRejected   Category = "rejected"
)

// Issue codes emitted by the availability validator and its callers.
const (
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeNoShift           = "NO_SHIFT"
	CodeOutsideShift      = "OUTSIDE_SHIFT"
	CodeBlocked           = "BLOCKED"
	CodeConflict          = "CONFLICT"
	CodeNotFound          = "NOT_FOUND"
	CodeNoAvailability    = "NO_AVAILABILITY"
	CodeNotAvailableNow   = "NOT_AVAILABLE_NOW"
	CodeEmptySeries       = "EMPTY_SERIES"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeInvalidPattern    = "INVALID_PATTERN"
	CodeNearSeriesCap     = "NEAR_SERIES_CAP"
)

// Issue is one specific reason inside a validation verdict or error.
type Issue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (i Issue) String() string { return fmt.Sprintf("%s: %s", i.Code, i.Message) }

// SchedulingError is the typed failure returned by every booking operation.
// Unexpected datastore errors are returned as plain errors and propagate to
// the HTTP layer as 500s.
type SchedulingError struct {
	Category Category `json:"category"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Issues   []Issue  `json:"issues,omitempty"`
}

func (e *SchedulingError) Error() string {
	if len(e.Issues) == 0 {
		return e.Message
	}
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		parts[i] = issue.String()
	}
	return fmt.Sprintf("%s (%s)", e.Message, strings.Join(parts, "; "))
}

func NewValidationError(code, message string) *SchedulingError {
	return &SchedulingError{Category: CategoryValidation, Code: code, Message: message}
}

func NewNotFoundError(message string) *SchedulingError {
	return &SchedulingError{Category: CategoryNotFound, Code: CodeNotFound, Message: message}
}

func NewConflictError(code, message string, issues []Issue) *SchedulingError {
	return &SchedulingError{Category: CategoryConflict, Code: code, Message: message, Issues: issues}
}

func NewRejectionError(code, message string, issues []Issue) *SchedulingError {
	return &SchedulingError{Category: CategoryRejected, Code: code, Message: message, Issues: issues}
}

// AsSchedulingError unwraps err into a SchedulingError if it is one.
func AsSchedulingError(err error) (*SchedulingError, bool) {
	var se *SchedulingError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// ValidationResult is the availability validator's verdict. Warnings ride
// alongside a valid verdict and never block.
type ValidationResult struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

func (r *ValidationResult) addError(code, message string) {
	r.Errors = append(r.Errors, Issue{Code: code, Message: message})
}

func (r *ValidationResult) addWarning(code, message string) {
	r.Warnings = append(r.Warnings, Issue{Code: code, Message: message})
}
