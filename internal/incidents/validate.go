package incidents

import (
	"fmt"
	"unicode/utf8"

	"github.com/incidentops/tracker/internal/config"
	"github.com/incidentops/tracker/internal/domain"
	"github.com/incidentops/tracker/internal/workflow"
)

// NewIncident is a candidate record prior to validation.
type NewIncident struct {
	Title       string
	Description string
	Category    domain.Category
	Severity    domain.Severity
}

// Validator checks candidate records and status changes against the
// configured bounds and workflow rules. It is stateless and safe for
// concurrent use.
type Validator struct {
	bounds config.ValidationConfig
	engine *workflow.Engine
}

// NewValidator creates a validator.
func NewValidator(bounds config.ValidationConfig, engine *workflow.Engine) *Validator {
	return &Validator{bounds: bounds, engine: engine}
}

// ValidateNew checks every field of the candidate and returns the full
// ordered list of violations. An empty result means the candidate is valid.
func (v *Validator) ValidateNew(c NewIncident) ValidationErrors {
	var errs ValidationErrors

	errs = appendLengthError(errs, "title", c.Title, v.bounds.TitleMinLen, v.bounds.TitleMaxLen)
	errs = appendLengthError(errs, "description", c.Description, v.bounds.DescriptionMinLen, v.bounds.DescriptionMaxLen)

	if !v.engine.KnownCategory(c.Category) {
		errs = append(errs, FieldError{
			Field:   "category",
			Message: fmt.Sprintf("unknown category %q", c.Category),
		})
	}
	if !v.engine.KnownSeverity(c.Severity) {
		errs = append(errs, FieldError{
			Field:   "severity",
			Message: fmt.Sprintf("unknown severity %q", c.Severity),
		})
	}

	return errs
}

func appendLengthError(errs ValidationErrors, field, value string, min, max int) ValidationErrors {
	n := utf8.RuneCountInString(value)
	switch {
	case n == 0:
		errs = append(errs, FieldError{Field: field, Message: "is required"})
	case n < min:
		errs = append(errs, FieldError{
			Field:   field,
			Message: fmt.Sprintf("must be at least %d characters", min),
		})
	case n > max:
		errs = append(errs, FieldError{
			Field:   field,
			Message: fmt.Sprintf("must be at most %d characters", max),
		})
	}
	return errs
}

// ValidateTransition checks a generic status-update request. It returns
// ErrUnknownStatus for an unrecognized target and ErrInvalidTransition when
// the generic table has no cur -> req edge. Edges reserved for the archive
// and reset operations fail here.
func (v *Validator) ValidateTransition(cur, req domain.Status) error {
	if !v.engine.KnownStatus(req) {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, req)
	}
	if !v.engine.CanTransition(cur, req) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, cur, req)
	}
	return nil
}

// ValidateArchivable checks the archive precondition.
func (v *Validator) ValidateArchivable(cur domain.Status) error {
	if !v.engine.CanArchive(cur) {
		return fmt.Errorf("%w: status is %s", ErrNotArchivable, cur)
	}
	return nil
}

// ValidateResettable checks the reset precondition.
func (v *Validator) ValidateResettable(cur domain.Status) error {
	if !v.engine.CanReset(cur) {
		return fmt.Errorf("%w: status is %s", ErrNotResettable, cur)
	}
	return nil
}
