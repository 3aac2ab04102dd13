package incidents

import (
	"context"

	"github.com/incidentops/tracker/internal/domain"
)

// Filter represents filter criteria for listing incidents.
type Filter struct {
	IncludeArchived bool
}

// Repository defines the interface for incident storage. Implementations
// own the authoritative collection: an accepted mutation must be durable
// before the call returns, and a failed persist must leave the visible
// collection matching the last durable snapshot.
type Repository interface {
	// Load reads the durable file into memory. A missing file yields an
	// empty collection; an unparseable file is a fatal error.
	Load(ctx context.Context) error

	// List returns incidents in insertion order. Archived incidents are
	// excluded unless the filter includes them.
	List(ctx context.Context, filter Filter) ([]domain.Incident, error)

	// GetByID returns the incident or ErrIncidentNotFound.
	GetByID(ctx context.Context, id string) (*domain.Incident, error)

	// Create assigns a fresh unique ID and the report timestamp, appends
	// the incident and persists. The caller sets the initial status.
	Create(ctx context.Context, incident *domain.Incident) error

	// UpdateStatus overwrites the status of an existing incident,
	// persists, and returns the updated record.
	UpdateStatus(ctx context.Context, id string, status domain.Status) (*domain.Incident, error)

	// Snapshot returns the serialized committed collection, in the same
	// encoding as the durable file. Used by backups.
	Snapshot(ctx context.Context) ([]byte, error)
}
