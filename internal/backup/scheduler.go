// Package backup writes periodic snapshots of the incident store to a
// backup directory. Snapshots are taken from the store's committed state,
// never from the raw data file, so a backup can not observe a half-written
// mutation.
package backup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/incidentops/tracker/internal/config"
	"github.com/incidentops/tracker/internal/pkg/metrics"
	"github.com/robfig/cron/v3"
)

const filePrefix = "incidents-"

// Snapshotter supplies the serialized committed collection.
type Snapshotter interface {
	Snapshot(ctx context.Context) ([]byte, error)
}

// Scheduler runs snapshot backups on a cron schedule.
type Scheduler struct {
	cfg    config.BackupConfig
	src    Snapshotter
	cron   *cron.Cron
	logger *slog.Logger

	// injectable for tests
	now func() time.Time
}

// NewScheduler creates a scheduler. It does nothing until Start is called.
func NewScheduler(cfg config.BackupConfig, src Snapshotter, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		src:    src,
		cron:   cron.New(),
		logger: logger,
		now:    time.Now,
	}
}

// Start registers the cron entry and starts the scheduler. Disabled
// configuration is a no-op.
func (s *Scheduler) Start() error {
	if !s.cfg.Enabled {
		return nil
	}

	if _, err := s.cron.AddFunc(s.cfg.Schedule, func() {
		if err := s.RunOnce(context.Background()); err != nil {
			s.logger.Error("snapshot backup failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("register backup schedule %q: %w", s.cfg.Schedule, err)
	}

	s.cron.Start()
	s.logger.Info("backup scheduler started",
		"schedule", s.cfg.Schedule,
		"dir", s.cfg.Dir,
		"retain", s.cfg.Retain,
	)
	return nil
}

// Stop stops the scheduler and waits for a running backup to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunOnce takes a single snapshot backup and prunes old ones.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	data, err := s.src.Snapshot(ctx)
	if err != nil {
		metrics.BackupRuns.WithLabelValues("failure").Inc()
		return fmt.Errorf("snapshot store: %w", err)
	}

	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		metrics.BackupRuns.WithLabelValues("failure").Inc()
		return fmt.Errorf("create backup dir: %w", err)
	}

	name := fmt.Sprintf("%s%s.json", filePrefix, s.now().UTC().Format("20060102-150405"))
	path := filepath.Join(s.cfg.Dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		metrics.BackupRuns.WithLabelValues("failure").Inc()
		return fmt.Errorf("write backup %s: %w", path, err)
	}

	if err := s.prune(); err != nil {
		s.logger.Warn("prune old backups failed", "error", err)
	}

	metrics.BackupRuns.WithLabelValues("success").Inc()
	s.logger.Info("snapshot backup written", "path", path, "bytes", len(data))
	return nil
}

// prune removes the oldest backups beyond the retention cap. Timestamped
// names sort chronologically.
func (s *Scheduler) prune() error {
	if s.cfg.Retain <= 0 {
		return nil
	}

	entries, err := os.ReadDir(s.cfg.Dir)
	if err != nil {
		return err
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".json" &&
			len(e.Name()) > len(filePrefix) && e.Name()[:len(filePrefix)] == filePrefix {
			names = append(names, e.Name())
		}
	}
	if len(names) <= s.cfg.Retain {
		return nil
	}

	sort.Strings(names)
	for _, name := range names[:len(names)-s.cfg.Retain] {
		if err := os.Remove(filepath.Join(s.cfg.Dir, name)); err != nil {
			return err
		}
	}
	return nil
}
