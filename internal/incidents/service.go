// Package incidents provides HTTP handlers, business logic and storage
// contracts for the incident lifecycle.
package incidents

import (
	"context"
	"fmt"

	"github.com/incidentops/tracker/internal/domain"
	"github.com/incidentops/tracker/internal/workflow"
)

// Service implements incident business logic. Every mutation passes
// through validation and the workflow engine before reaching the
// repository.
type Service struct {
	repo      Repository
	validator *Validator
	engine    *workflow.Engine
}

// NewService creates a new incident service.
func NewService(repo Repository, validator *Validator, engine *workflow.Engine) *Service {
	return &Service{
		repo:      repo,
		validator: validator,
		engine:    engine,
	}
}

// CreateInput holds data for creating an incident.
type CreateInput struct {
	Title       string
	Description string
	Category    string
	Severity    string
}

// Create validates the candidate and stores a new incident with the
// initial status. On validation failure it returns ValidationErrors
// carrying every violation.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.Incident, error) {
	candidate := NewIncident{
		Title:       input.Title,
		Description: input.Description,
		Category:    domain.Category(input.Category),
		Severity:    domain.Severity(input.Severity),
	}

	if verrs := s.validator.ValidateNew(candidate); len(verrs) > 0 {
		return nil, verrs
	}

	incident := &domain.Incident{
		Title:       candidate.Title,
		Description: candidate.Description,
		Category:    candidate.Category,
		Severity:    candidate.Severity,
		Status:      s.engine.Initial(),
	}

	if err := s.repo.Create(ctx, incident); err != nil {
		return nil, fmt.Errorf("create incident: %w", err)
	}

	return incident, nil
}

// List returns incidents in insertion order.
func (s *Service) List(ctx context.Context, includeArchived bool) ([]domain.Incident, error) {
	return s.repo.List(ctx, Filter{IncludeArchived: includeArchived})
}

// Get returns a single incident by ID.
func (s *Service) Get(ctx context.Context, id string) (*domain.Incident, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateStatus applies a generic status update. Targets reserved for the
// archive and reset operations are rejected with ErrInvalidTransition.
func (s *Service) UpdateStatus(ctx context.Context, id string, status string) (*domain.Incident, error) {
	incident, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next := domain.Status(status)
	if err := s.validator.ValidateTransition(incident.Status, next); err != nil {
		return nil, err
	}

	return s.repo.UpdateStatus(ctx, id, next)
}

// Archive moves an incident to the archived status. Only incidents whose
// current status is in the configured archive-from set qualify.
func (s *Service) Archive(ctx context.Context, id string) (*domain.Incident, error) {
	incident, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.validator.ValidateArchivable(incident.Status); err != nil {
		return nil, err
	}

	return s.repo.UpdateStatus(ctx, id, domain.StatusArchived)
}

// Reset returns an archived incident to the initial status.
func (s *Service) Reset(ctx context.Context, id string) (*domain.Incident, error) {
	incident, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.validator.ValidateResettable(incident.Status); err != nil {
		return nil, err
	}

	return s.repo.UpdateStatus(ctx, id, s.engine.Initial())
}
