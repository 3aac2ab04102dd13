// Package file provides the file-backed implementation of the incidents
// repository: an in-memory collection mirrored to a single JSON file.
//
// Every accepted mutation is durable before the call returns. The file is
// rewritten wholesale through a temp-file-and-rename replace, so a crash
// mid-write never leaves a mix of old and new contents visible.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/incidentops/tracker/internal/domain"
	"github.com/incidentops/tracker/internal/incidents"
	"github.com/incidentops/tracker/internal/pkg/metrics"
)

// Repository implements incidents.Repository backed by a single JSON file.
// Mutations are serialized; reads observe only committed state and receive
// copies, never live references.
type Repository struct {
	path string

	mu     sync.RWMutex
	items  []domain.Incident
	index  map[string]int
	loaded bool

	// injectable for tests
	now   func() time.Time
	newID func() string
}

// NewRepository creates a repository persisting to path. Call Load before
// serving requests.
func NewRepository(path string) *Repository {
	return &Repository{
		path:  path,
		index: make(map[string]int),
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Load reads the durable file into memory. A missing file starts an empty
// collection; the file is created on the first mutation. An existing but
// unparseable file is an error and the process must not serve requests.
func (r *Repository) Load(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			r.items = make([]domain.Incident, 0)
			r.loaded = true
			slog.Info("incident store initialized empty", "path", r.path)
			r.updateStatusGauge()
			return nil
		}
		return fmt.Errorf("%w: read %s: %s", incidents.ErrPersistence, r.path, err)
	}

	var items []domain.Incident
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("%w: parse incident store %s: %s", incidents.ErrPersistence, r.path, err)
	}

	r.items = items
	r.index = make(map[string]int, len(items))
	for i, inc := range items {
		r.index[inc.ID] = i
	}
	r.loaded = true
	r.updateStatusGauge()

	slog.Info("incident store loaded", "path", r.path, "incidents", len(items))
	return nil
}

// Loaded reports whether Load completed successfully.
func (r *Repository) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// List returns incidents in insertion order.
func (r *Repository) List(_ context.Context, filter incidents.Filter) ([]domain.Incident, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Incident, 0, len(r.items))
	for _, inc := range r.items {
		if !filter.IncludeArchived && inc.IsArchived() {
			continue
		}
		result = append(result, inc)
	}
	return result, nil
}

// GetByID returns a copy of the incident or ErrIncidentNotFound.
func (r *Repository) GetByID(_ context.Context, id string) (*domain.Incident, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[id]
	if !ok {
		return nil, incidents.ErrIncidentNotFound
	}
	inc := r.items[i]
	return &inc, nil
}

// Create assigns a fresh ID and report timestamp, appends the incident and
// persists. On persistence failure the in-memory append is rolled back.
func (r *Repository) Create(_ context.Context, incident *domain.Incident) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	incident.ID = r.newID()
	incident.ReportedAt = r.now().UTC()

	r.items = append(r.items, *incident)
	r.index[incident.ID] = len(r.items) - 1

	if err := r.persist(); err != nil {
		r.items = r.items[:len(r.items)-1]
		delete(r.index, incident.ID)
		return err
	}

	r.updateStatusGauge()
	return nil
}

// UpdateStatus overwrites the status of an existing incident and persists.
// On persistence failure the previous status is restored.
func (r *Repository) UpdateStatus(_ context.Context, id string, status domain.Status) (*domain.Incident, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[id]
	if !ok {
		return nil, incidents.ErrIncidentNotFound
	}

	prev := r.items[i].Status
	r.items[i].Status = status

	if err := r.persist(); err != nil {
		r.items[i].Status = prev
		return nil, err
	}

	r.updateStatusGauge()
	inc := r.items[i]
	return &inc, nil
}

// Snapshot returns the committed collection serialized as it is stored on
// disk.
func (r *Repository) Snapshot(_ context.Context) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.encode()
}

func (r *Repository) encode() ([]byte, error) {
	data, err := json.MarshalIndent(r.items, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode incidents: %w", err)
	}
	return data, nil
}

// persist writes the whole collection to a temp file in the store
// directory, fsyncs it and renames it over the data file. Callers must
// hold the write lock.
func (r *Repository) persist() error {
	start := time.Now()

	data, err := r.encode()
	if err != nil {
		return fmt.Errorf("%w: %s", incidents.ErrPersistence, err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		metrics.StorePersistFailures.Inc()
		return fmt.Errorf("%w: create store dir: %s", incidents.ErrPersistence, err)
	}

	tmp, err := os.CreateTemp(dir, ".incidents-*.tmp")
	if err != nil {
		metrics.StorePersistFailures.Inc()
		return fmt.Errorf("%w: create temp file: %s", incidents.ErrPersistence, err)
	}
	tmpName := tmp.Name()

	if err := writeAndSync(tmp, data); err != nil {
		_ = os.Remove(tmpName)
		metrics.StorePersistFailures.Inc()
		return fmt.Errorf("%w: write temp file: %s", incidents.ErrPersistence, err)
	}

	if err := os.Rename(tmpName, r.path); err != nil {
		_ = os.Remove(tmpName)
		metrics.StorePersistFailures.Inc()
		return fmt.Errorf("%w: replace %s: %s", incidents.ErrPersistence, r.path, err)
	}

	metrics.StorePersistDuration.Observe(time.Since(start).Seconds())
	return nil
}

func writeAndSync(f *os.File, data []byte) error {
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// updateStatusGauge refreshes the per-status incident gauge. Callers must
// hold at least the read lock.
func (r *Repository) updateStatusGauge() {
	counts := make(map[domain.Status]int, 4)
	for _, inc := range r.items {
		counts[inc.Status]++
	}
	for _, s := range []domain.Status{
		domain.StatusOpen,
		domain.StatusInvestigating,
		domain.StatusResolved,
		domain.StatusArchived,
	} {
		metrics.IncidentsByStatus.WithLabelValues(string(s)).Set(float64(counts[s]))
		delete(counts, s)
	}
	// statuses beyond the default set, when the workflow is reconfigured
	for s, n := range counts {
		metrics.IncidentsByStatus.WithLabelValues(string(s)).Set(float64(n))
	}
}
