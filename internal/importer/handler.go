package importer

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/incidentops/tracker/internal/pkg/ctxlog"
	"github.com/incidentops/tracker/internal/pkg/httputil"
)

// Handler handles HTTP requests for bulk import.
type Handler struct {
	pipeline *Pipeline
}

// NewHandler creates a new import handler.
func NewHandler(pipeline *Pipeline) *Handler {
	return &Handler{pipeline: pipeline}
}

// RegisterRoutes registers the import route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/incidents/import", h.Import)
}

var importErrorMappings = []httputil.ErrorMapping{
	{Error: ErrBadHeader, Status: http.StatusBadRequest},
	{Error: ErrMalformedCSV, Status: http.StatusBadRequest},
	{Error: ErrTooManyRows, Status: http.StatusRequestEntityTooLarge},
}

// Import handles POST /incidents/import request. The body is a CSV buffer
// with a title,description,category,severity header.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	rows, err := NewRowReader(r.Body)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, importErrorMappings)
		return
	}

	summary, err := h.pipeline.Run(r.Context(), rows)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, importErrorMappings)
		return
	}

	ctxlog.FromContext(r.Context()).Info("bulk import finished",
		"total_rows", summary.TotalRows,
		"created", summary.Created,
		"skipped", summary.Skipped,
	)

	httputil.Success(w, http.StatusOK, summary)
}
