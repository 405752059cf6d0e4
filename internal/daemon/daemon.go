package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"

	"github.com/gofrs/flock"

	"tmsbridge/internal/api"
	"tmsbridge/internal/broker"
	"tmsbridge/internal/config"
	"tmsbridge/internal/logging"
	"tmsbridge/internal/metadata"
	"tmsbridge/internal/metrics"
)

// Daemon serves the webhook and units API and enforces single-instance execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *metadata.Store
	broker  *broker.Broker
	metrics *metrics.Collectors

	lockPath string
	lock     *flock.Flock
	server   *apiServer

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	StoreDriver  string
	StorePath    string
	LockFilePath string
	Counts       api.StatsResponse
}

// New constructs a daemon around an opened store and broker. collectors may be nil.
func New(cfg *config.Config, store *metadata.Store, b *broker.Broker, collectors *metrics.Collectors, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || b == nil {
		return nil, errors.New("daemon requires config, store, and broker")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		broker:   b,
		metrics:  collectors,
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
	}
	d.server = newAPIServer(cfg, d, logger)
	return d, nil
}

// Handler exposes the HTTP routes without binding a listener.
func (d *Daemon) Handler() http.Handler {
	return d.server.handler
}

// Start acquires the instance lock and begins serving HTTP.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another tmsbridge daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.server.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start api server: %w", err)
	}
	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("tmsbridge daemon started",
		logging.String("lock", d.lockPath),
		logging.String("address", d.server.address()),
	)
	return nil
}

// Stop stops serving and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.server.stop()
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the lock file if no daemon is running"),
		)
	}
	d.running.Store(false)
	d.logger.Info("tmsbridge daemon stopped")
}

// Close stops the daemon. The caller owns the store.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// Address returns the bound listener address once started.
func (d *Daemon) Address() string {
	return d.server.address()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) (Status, error) {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		StoreDriver:  d.store.Driver(),
		StorePath:    d.store.Path(),
		LockFilePath: d.lockPath,
	}
	sources, err := d.store.Counts(ctx)
	if err != nil {
		return status, err
	}
	targets, err := d.store.TargetCounts(ctx)
	if err != nil {
		return status, err
	}
	status.Counts = api.FromCounts(sources, targets)
	return status, nil
}
