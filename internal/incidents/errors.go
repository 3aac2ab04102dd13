package incidents

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors returned by the incidents module.
var (
	ErrIncidentNotFound  = errors.New("incident not found")
	ErrUnknownStatus     = errors.New("unknown status")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotArchivable     = errors.New("incident cannot be archived from its current status")
	ErrNotResettable     = errors.New("incident is not archived")
	ErrPersistence       = errors.New("persistence failure")
)

// FieldError describes a single field-level validation violation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is the ordered list of violations for a candidate record.
// All fields are checked; callers receive every violation, not just the first.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, fe := range v {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
