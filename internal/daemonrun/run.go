package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"tmsbridge/internal/broker"
	"tmsbridge/internal/config"
	"tmsbridge/internal/daemon"
	"tmsbridge/internal/events"
	"tmsbridge/internal/locking"
	"tmsbridge/internal/logging"
	"tmsbridge/internal/metadata"
	"tmsbridge/internal/metrics"
	"tmsbridge/internal/notifications"
	"tmsbridge/internal/tms"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel string
}

// Runtime holds the wired components shared by the daemon and CLI actions.
type Runtime struct {
	Store   *metadata.Store
	Broker  *broker.Broker
	Metrics *metrics.Collectors
	Logger  *slog.Logger

	locker    locking.Locker
	publisher events.Publisher
}

// Open wires store, TMS client, locker, event stream, and broker from cfg.
// client may be nil to use the HTTP client configured under [tms].
func Open(cfg *config.Config, logger *slog.Logger, client tms.Client) (*Runtime, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	collectors := metrics.New()

	if client == nil {
		httpClient, err := tms.NewFromConfig(cfg, tms.WithObserver(collectors))
		if err != nil {
			return nil, fmt.Errorf("init tms client: %w", err)
		}
		client = httpClient
	}

	store, err := metadata.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open metadata store: %w", err)
	}

	locker, err := locking.NewFromConfig(cfg, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("init locking: %w", err)
	}

	publisher := events.NewFromConfig(cfg)
	b := broker.New(cfg, store, client,
		broker.WithLogger(logger),
		broker.WithMetrics(collectors),
		broker.WithLocker(locker),
		broker.WithEvents(publisher),
		broker.WithNotifier(notifications.NewService(cfg)),
	)
	return &Runtime{
		Store:     store,
		Broker:    b,
		Metrics:   collectors,
		Logger:    logger,
		locker:    locker,
		publisher: publisher,
	}, nil
}

// Close releases every backend opened by Open.
func (r *Runtime) Close() error {
	if r == nil {
		return nil
	}
	return errors.Join(
		r.publisher.Close(),
		locking.Close(r.locker),
		r.Store.Close(),
	)
}

// Run starts the tmsbridge daemon and blocks until SIGINT/SIGTERM or ctx ends.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, err := logging.NewFromConfig(cfg, opts.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logStartupSnapshot(logger, cfg)

	pidPath := filepath.Join(cfg.Paths.LogDir, "tmsbridge.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	rt, err := Open(cfg, logger, nil)
	if err != nil {
		logger.Error("open runtime", logging.Error(err))
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logging.WarnWithContext(logger, "runtime shutdown incomplete", "shutdown_failed", logging.Error(err))
		}
	}()

	d, err := daemon.New(cfg, rt.Store, rt.Broker, rt.Metrics, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.api_bind and that no other daemon uses this data_dir"),
		)
		return err
	}

	<-signalCtx.Done()
	logger.Info("tmsbridge daemon shutting down")
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logStartupSnapshot(logger *slog.Logger, cfg *config.Config) {
	logger.Info("startup snapshot",
		logging.String(logging.FieldEventType, "startup_snapshot"),
		logging.String("tms_base_url", cfg.TMS.BaseURL),
		logging.Bool("tms_token_present", strings.TrimSpace(cfg.TMS.APIToken) != ""),
		logging.String("store_driver", cfg.Store.Driver),
		logging.String("locking_backend", cfg.Locking.Backend),
		logging.Bool("events_enabled", len(cfg.Events.Brokers) > 0),
		logging.Bool("notifications_enabled", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
		logging.Bool("metrics_enabled", cfg.Metrics.Enabled),
		logging.Strings("target_locales", cfg.Content.TargetLocales),
		logging.String("default_profile", cfg.Content.DefaultProfile),
	)
}
