package importer

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/incidentops/tracker/internal/domain"
	"github.com/incidentops/tracker/internal/incidents"
	"github.com/incidentops/tracker/internal/pkg/ctxlog"
	"github.com/incidentops/tracker/internal/pkg/metrics"
)

// IncidentCreator is the store-facing dependency of the pipeline.
type IncidentCreator interface {
	Create(ctx context.Context, input incidents.CreateInput) (*domain.Incident, error)
}

// Summary reports the outcome of one import run.
type Summary struct {
	TotalRows int `json:"total_rows"`
	Created   int `json:"created"`
	Skipped   int `json:"skipped"`
}

// Pipeline applies import rows to the incident store sequentially, in input
// order, preserving the store's single-writer discipline.
type Pipeline struct {
	creator IncidentCreator
	maxRows int
}

// NewPipeline creates a pipeline. maxRows <= 0 disables the row cap.
func NewPipeline(creator IncidentCreator, maxRows int) *Pipeline {
	return &Pipeline{creator: creator, maxRows: maxRows}
}

// Run consumes rows until EOF. Validation failures increment Skipped and
// processing continues. Structural input errors and persistence failures
// abort the run; incidents created before the abort remain stored.
func (p *Pipeline) Run(ctx context.Context, rows *RowReader) (Summary, error) {
	logger := ctxlog.FromContext(ctx)
	var summary Summary

	for {
		row, err := rows.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return summary, nil
			}
			return summary, err
		}

		summary.TotalRows++
		if p.maxRows > 0 && summary.TotalRows > p.maxRows {
			return summary, fmt.Errorf("%w: limit is %d", ErrTooManyRows, p.maxRows)
		}

		_, err = p.creator.Create(ctx, incidents.CreateInput{
			Title:       row["title"],
			Description: row["description"],
			Category:    row["category"],
			Severity:    row["severity"],
		})
		if err != nil {
			var verrs incidents.ValidationErrors
			if errors.As(err, &verrs) {
				summary.Skipped++
				metrics.ImportRows.WithLabelValues("skipped").Inc()
				logger.Debug("import row skipped",
					"row", summary.TotalRows,
					"violations", len(verrs),
				)
				continue
			}
			return summary, fmt.Errorf("import row %d: %w", summary.TotalRows, err)
		}

		summary.Created++
		metrics.ImportRows.WithLabelValues("created").Inc()
	}
}
