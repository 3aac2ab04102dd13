// Package domain defines the core entities shared across the application.
package domain

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Status represents the lifecycle state of an incident.
type Status string

// Incident statuses.
const (
	StatusOpen          Status = "OPEN"
	StatusInvestigating Status = "INVESTIGATING"
	StatusResolved      Status = "RESOLVED"
	StatusArchived      Status = "ARCHIVED"
)

// Category represents the area an incident belongs to.
type Category string

// Incident categories.
const (
	CategoryIT         Category = "IT"
	CategorySafety     Category = "SAFETY"
	CategoryFacilities Category = "FACILITIES"
	CategoryOther      Category = "OTHER"
)

// Severity represents incident impact.
type Severity string

// Incident severities.
const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// title folds an enum value into a display form. A cases.Caser carries
// internal state, so a fresh one is built per call.
func title(s string) string {
	return cases.Title(language.English).String(strings.ToLower(s))
}

// Label returns a human-readable form of the status, e.g. "Investigating".
func (s Status) Label() string {
	return title(string(s))
}

// Label returns a human-readable form of the category.
// Short acronyms stay uppercase.
func (c Category) Label() string {
	if c == CategoryIT {
		return string(c)
	}
	return title(string(c))
}

// Label returns a human-readable form of the severity.
func (s Severity) Label() string {
	return title(string(s))
}

// Incident is the tracked record. Records are never physically deleted;
// archival is a status, not removal.
type Incident struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    Category  `json:"category"`
	Severity    Severity  `json:"severity"`
	Status      Status    `json:"status"`
	ReportedAt  time.Time `json:"reported_at"`
}

// IsArchived returns true if the incident is archived.
func (i *Incident) IsArchived() bool {
	return i.Status == StatusArchived
}
