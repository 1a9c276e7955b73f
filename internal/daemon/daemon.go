package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"substackmon/internal/config"
	"substackmon/internal/keepalive"
	"substackmon/internal/logging"
	"substackmon/internal/marker"
	"substackmon/internal/monitor"
)

// drainGrace bounds how long Stop waits for an in-flight cycle to finish.
const drainGrace = 2 * time.Minute

// Daemon coordinates the monitor loop, the keepalive pinger, and the
// control API, and enforces single-instance execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *marker.Store
	monitor *monitor.Monitor
	pinger  *keepalive.Pinger

	lockPath string
	lock     *flock.Flock

	api *apiServer

	running atomic.Bool

	// mu guards ctx and cancel; HTTP handlers read ctx while Stop tears
	// the daemon down.
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// Status represents daemon runtime information for the control surface.
type Status struct {
	Running       bool
	WorkerActive  bool
	PingActive    bool
	LastProcessed string
	Worker        monitor.Status
	LastPing      *keepalive.PingRecord
	LockFilePath  string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *marker.Store, mon *monitor.Monitor, pinger *keepalive.Pinger, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || mon == nil || pinger == nil {
		return nil, errors.New("daemon requires config, store, monitor, and pinger")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, "substackmond.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.WithComponent(logger, "daemon"),
		store:    store,
		monitor:  mon,
		pinger:   pinger,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock and launches the monitor, the keepalive
// pinger, and the control API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another substackmond instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.mu.Lock()
	d.ctx, d.cancel = runCtx, cancel
	d.mu.Unlock()

	if err := d.monitor.Start(runCtx); err != nil {
		d.clearContext()
		cancel()
		d.release()
		return fmt.Errorf("start monitor: %w", err)
	}
	if err := d.pinger.Start(runCtx); err != nil {
		d.monitor.Stop() //nolint:errcheck
		d.clearContext()
		cancel()
		d.release()
		return fmt.Errorf("start keepalive: %w", err)
	}
	if d.api != nil {
		if err := d.api.start(runCtx); err != nil {
			d.pinger.Stop()  //nolint:errcheck
			d.monitor.Stop() //nolint:errcheck
			d.clearContext()
			cancel()
			d.release()
			return err
		}
	}

	d.running.Store(true)
	d.logger.Info("daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop winds everything down. The monitor is given a bounded grace period
// to finish an in-flight cycle before the daemon lets go.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	// Detach the run context first so control handlers cannot restart the
	// worker mid-teardown; cancellation waits until the drain is over.
	cancel := d.clearContext()

	if err := d.pinger.Stop(); err != nil && !errors.Is(err, keepalive.ErrNotActive) {
		d.logger.Warn("failed to stop keepalive pinger", logging.Error(err))
	}
	if err := d.monitor.Stop(); err != nil && !errors.Is(err, monitor.ErrNotRunning) {
		d.logger.Warn("failed to stop monitor", logging.Error(err))
	}

	drainCtx, cancelDrain := context.WithTimeout(context.Background(), drainGrace)
	if err := d.monitor.Wait(drainCtx); err != nil {
		d.logger.Warn("monitor did not drain in time", logging.Error(err))
	}
	cancelDrain()

	if d.api != nil {
		d.api.stop()
	}
	if cancel != nil {
		cancel()
	}
	d.release()
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// StartWorker starts the monitor loop on behalf of the control surface.
// The lock is held across monitor.Start so no new loop can slip in after
// Stop has detached the run context.
func (d *Daemon) StartWorker() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ctx == nil {
		return errors.New("daemon not started")
	}
	return d.monitor.Start(d.ctx)
}

// clearContext detaches the run context and returns its cancel func, if any.
func (d *Daemon) clearContext() context.CancelFunc {
	d.mu.Lock()
	defer d.mu.Unlock()
	cancel := d.cancel
	d.ctx = nil
	d.cancel = nil
	return cancel
}

// StopWorker requests a cooperative monitor stop. The in-flight cycle, if
// any, still runs to completion.
func (d *Daemon) StopWorker() error {
	return d.monitor.Stop()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	worker := d.monitor.Status()
	last, err := d.store.LastProcessed(ctx)
	if err != nil {
		d.logger.Warn("failed to read processed marker", logging.Error(err))
	}
	return Status{
		Running:       d.running.Load(),
		WorkerActive:  worker.Running,
		PingActive:    d.pinger.Active(),
		LastProcessed: last,
		Worker:        worker,
		LastPing:      d.pinger.LastPing(),
		LockFilePath:  d.lockPath,
	}
}

func (d *Daemon) release() {
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
}
