package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"chyron/internal/catalog"
	"chyron/internal/config"
	"chyron/internal/logging"
	"chyron/internal/pipeline"
)

// Daemon owns the long-running chyrond process: it enforces single-instance
// execution through a file lock and manages the pipeline manager lifecycle.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *catalog.Store
	pipeline *pipeline.Manager

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status is a snapshot of daemon runtime state.
type Status struct {
	Running      bool
	InFlight     int
	CatalogPath  string
	LockFilePath string
	LastError    string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *catalog.Store, logger *slog.Logger, manager *pipeline.Manager) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil || manager == nil {
		return nil, errors.New("daemon requires config, store, logger, and pipeline manager")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "chyrond.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.WithComponent(logger, "daemon"),
		store:    store,
		pipeline: manager,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and launches pipeline processing.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another chyron daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.pipeline.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		return fmt.Errorf("start pipeline: %w", err)
	}
	d.cancel = cancel

	d.running.Store(true)
	d.logger.Info("chyron daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop halts pipeline processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.pipeline.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("chyron daemon stopped")
}

// Close stops the daemon and releases held resources.
func (d *Daemon) Close() error {
	d.Stop()
	d.pipeline.Close()
	return d.store.Close()
}

// Health reports aggregate catalog diagnostics.
func (d *Daemon) Health(ctx context.Context) (catalog.HealthSummary, error) {
	return d.store.HealthSummary(ctx)
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	status := Status{
		Running:      d.running.Load(),
		InFlight:     d.pipeline.InFlight(),
		CatalogPath:  d.cfg.CatalogPath(),
		LockFilePath: d.lockPath,
	}
	if err := d.pipeline.LastError(); err != nil {
		status.LastError = err.Error()
	}
	return status
}
