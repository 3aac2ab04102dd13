package incidents

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/incidentops/tracker/internal/domain"
	"github.com/incidentops/tracker/internal/pkg/ctxlog"
	"github.com/incidentops/tracker/internal/pkg/httputil"
)

// Handler handles HTTP requests for the incidents module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new incidents handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers all HTTP routes for the incidents module.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/incidents", func(r chi.Router) {
		r.Get("/", h.ListIncidents)
		r.Post("/", h.CreateIncident)
		r.Get("/{id}", h.GetIncident)
		r.Patch("/{id}/status", h.UpdateStatus)
		r.Post("/{id}/archive", h.ArchiveIncident)
		r.Post("/{id}/reset", h.ResetIncident)
	})
}

// CreateIncidentRequest represents the request body for creating an incident.
// Length bounds and enumeration membership are enforced by the validation
// engine against the deployed configuration, not by struct tags.
type CreateIncidentRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
	Category    string `json:"category" validate:"required"`
	Severity    string `json:"severity" validate:"required"`
}

// ToInput converts the request to a service input.
func (r *CreateIncidentRequest) ToInput() CreateInput {
	return CreateInput{
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		Severity:    r.Severity,
	}
}

// UpdateStatusRequest represents the request body for a status update.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// IncidentResponse is the wire form of an incident: the raw enum values
// plus display labels.
type IncidentResponse struct {
	domain.Incident
	CategoryLabel string `json:"category_label"`
	SeverityLabel string `json:"severity_label"`
	StatusLabel   string `json:"status_label"`
}

func toResponse(inc *domain.Incident) IncidentResponse {
	return IncidentResponse{
		Incident:      *inc,
		CategoryLabel: inc.Category.Label(),
		SeverityLabel: inc.Severity.Label(),
		StatusLabel:   inc.Status.Label(),
	}
}

func toResponseList(incidents []domain.Incident) []IncidentResponse {
	result := make([]IncidentResponse, 0, len(incidents))
	for i := range incidents {
		result = append(result, toResponse(&incidents[i]))
	}
	return result
}

// CreateIncident handles POST /incidents request.
func (h *Handler) CreateIncident(w http.ResponseWriter, r *http.Request) {
	var req CreateIncidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	incident, err := h.service.Create(r.Context(), req.ToInput())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusCreated, toResponse(incident))
}

// ListIncidents handles GET /incidents request.
func (h *Handler) ListIncidents(w http.ResponseWriter, r *http.Request) {
	includeArchived := r.URL.Query().Get("include_archived") == "true"

	incidents, err := h.service.List(r.Context(), includeArchived)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, toResponseList(incidents))
}

// GetIncident handles GET /incidents/{id} request.
func (h *Handler) GetIncident(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	incident, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, toResponse(incident))
}

// UpdateStatus handles PATCH /incidents/{id}/status request.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	incident, err := h.service.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, toResponse(incident))
}

// ArchiveIncident handles POST /incidents/{id}/archive request.
func (h *Handler) ArchiveIncident(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	incident, err := h.service.Archive(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, toResponse(incident))
}

// ResetIncident handles POST /incidents/{id}/reset request.
func (h *Handler) ResetIncident(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	incident, err := h.service.Reset(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Success(w, http.StatusOK, toResponse(incident))
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs ValidationErrors
	switch {
	case errors.As(err, &verrs):
		httputil.ErrorDetails(w, http.StatusBadRequest, "validation error", verrs)
	case errors.Is(err, ErrIncidentNotFound):
		httputil.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrUnknownStatus):
		httputil.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrNotArchivable),
		errors.Is(err, ErrNotResettable):
		httputil.Error(w, http.StatusConflict, err.Error())
	default:
		ctxlog.FromContext(r.Context()).Error("internal error", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal error")
	}
}
