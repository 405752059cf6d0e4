package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"tmsbridge/internal/config"
	"tmsbridge/internal/events"
	"tmsbridge/internal/ingest"
	"tmsbridge/internal/locking"
	"tmsbridge/internal/logging"
	"tmsbridge/internal/metadata"
	"tmsbridge/internal/metrics"
	"tmsbridge/internal/notifications"
	"tmsbridge/internal/profile"
	"tmsbridge/internal/services"
	"tmsbridge/internal/tms"
)

const component = "broker"

// SourceData is one extraction of a host resource: the opaque payload plus the
// revision it was taken from.
type SourceData struct {
	Title        string
	Content      []byte
	RevisionID   string
	SourceLocale string
	JobID        string
	// ProfileID, when set, replaces the unit's automation profile.
	ProfileID string
}

// Broker is the sync orchestrator.
type Broker struct {
	cfg      *config.Config
	store    *metadata.Store
	client   tms.Client
	profiles *profile.Registry
	locker   locking.Locker
	metrics  *metrics.Collectors
	events   events.Publisher
	notifier notifications.Service
	sink     Sink
	dedupe   *ingest.Deduper
	logger   *slog.Logger
	timeout  time.Duration
}

// Option configures optional Broker collaborators.
type Option func(*Broker)

// WithLocker replaces the in-process unit lock.
func WithLocker(locker locking.Locker) Option {
	return func(b *Broker) { b.locker = locker }
}

// WithMetrics records broker activity on c.
func WithMetrics(c *metrics.Collectors) Option {
	return func(b *Broker) { b.metrics = c }
}

// WithEvents publishes status changes to p.
func WithEvents(p events.Publisher) Option {
	return func(b *Broker) { b.events = p }
}

// WithNotifier sends operator alerts through n.
func WithNotifier(n notifications.Service) Option {
	return func(b *Broker) { b.notifier = n }
}

// WithSink stores automatically downloaded artifacts in s.
func WithSink(s Sink) Option {
	return func(b *Broker) { b.sink = s }
}

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Broker) { b.logger = logger }
}

// WithProfiles replaces the registry built from cfg.
func WithProfiles(r *profile.Registry) Option {
	return func(b *Broker) { b.profiles = r }
}

// WithDeduper replaces the notification dedupe window built from cfg.
func WithDeduper(d *ingest.Deduper) Option {
	return func(b *Broker) { b.dedupe = d }
}

// WithTMSTimeout overrides tms.timeout_seconds.
func WithTMSTimeout(d time.Duration) Option {
	return func(b *Broker) { b.timeout = d }
}

// New constructs a broker. Collaborators not given as options default to an
// in-process lock, no events, config-driven notifications and a file sink under
// the data directory.
func New(cfg *config.Config, store *metadata.Store, client tms.Client, opts ...Option) *Broker {
	b := &Broker{
		cfg:    cfg,
		store:  store,
		client: client,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.profiles == nil {
		b.profiles = profile.NewRegistry(cfg.Profiles)
	}
	if b.locker == nil {
		b.locker = locking.NewLocal(cfg.LockWait())
	}
	if b.events == nil {
		b.events = events.Noop{}
	}
	if b.notifier == nil {
		b.notifier = notifications.NewService(cfg)
	}
	if b.sink == nil {
		b.sink = NewFileSink(filepath.Join(cfg.Paths.DataDir, "artifacts"))
	}
	if b.dedupe == nil {
		b.dedupe = ingest.NewDeduper(cfg.DedupWindow())
	}
	if b.logger == nil {
		b.logger = logging.NewNop()
	}
	if b.timeout <= 0 {
		b.timeout = cfg.TMSTimeout()
	}
	b.logger = logging.NewComponentLogger(b.logger, component)
	return b
}

// Profiles exposes the registry used to resolve unit policies.
func (b *Broker) Profiles() *profile.Registry {
	return b.profiles
}

type mutation func(ctx context.Context, unit *metadata.Unit) error

// withUnit runs fn on the unit for ref under its lock and persists any change.
// With create set a missing unit is created in UNTRACKED form; otherwise a
// missing unit is ErrNotFound.
func (b *Broker) withUnit(ctx context.Context, ref metadata.Ref, create bool, profileID string, fn mutation) (*metadata.Unit, error) {
	if err := ref.Validate(); err != nil {
		return nil, services.Wrap(services.ErrValidation, component, "load", ref.String(), err)
	}
	release, err := b.lock(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer release()

	var unit *metadata.Unit
	if create {
		unit, _, err = b.store.Ensure(ctx, ref, b.cfg.ProfileFor(profileID))
	} else {
		unit, err = b.store.FindByRef(ctx, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", ref, err)
	}
	if unit == nil {
		return nil, services.Wrap(services.ErrNotFound, component, "load", ref.String(), nil)
	}
	before := unit.Clone()
	err = b.apply(withUnitContext(ctx, unit), unit, fn)
	if !unit.Equal(before) {
		// A notification replayed after a local change must be reduced again.
		b.dedupe.ForgetDocument(before.DocumentID)
		b.dedupe.ForgetDocument(unit.DocumentID)
	}
	return unit, err
}

// apply runs fn and persists the unit when it changed. The action's own error
// is returned alongside any persistence failure.
func (b *Broker) apply(ctx context.Context, unit *metadata.Unit, fn mutation) error {
	before := unit.Clone()
	actionErr := fn(ctx, unit)
	if unit.Equal(before) {
		return actionErr
	}
	if err := b.store.Save(ctx, unit); err != nil {
		return errors.Join(actionErr, fmt.Errorf("persist %s: %w", unit.Ref, err))
	}
	b.publishChanges(ctx, before, unit)
	return actionErr
}

func (b *Broker) lock(ctx context.Context, ref metadata.Ref) (locking.Release, error) {
	start := time.Now()
	release, err := b.locker.Acquire(ctx, locking.UnitKey(ref.Kind, ref.ID))
	b.metrics.LockWait(time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", ref, err)
	}
	return release, nil
}

// call bounds one TMS operation with the configured timeout. A deadline hit
// is tagged ErrTimeout even when the client reports it differently.
func (b *Broker) call(ctx context.Context, fn func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	err := fn(callCtx)
	if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, services.ErrTimeout) {
		err = fmt.Errorf("%w: %w", services.ErrTimeout, err)
	}
	return err
}

// fail records a failed action in logs, metrics and alerts and returns the
// wrapped error for the caller.
func (b *Broker) fail(ctx context.Context, unit *metadata.Unit, action, locale string, marker, err error) error {
	subject := unit.Ref.String()
	if locale != "" {
		subject += " [" + locale + "]"
	}
	wrapped := services.Wrap(marker, component, action, subject, err)
	b.metrics.Action(action, "failure")

	logger := logging.WithContext(ctx, b.logger)
	logging.ErrorWithContext(logger, "tms action failed", "action_failed",
		logging.String("action", action),
		logging.String(logging.FieldLocale, locale),
		logging.String(logging.FieldErrorKind, services.Kind(wrapped)),
		logging.String(logging.FieldErrorHint, "retry the action once the TMS is reachable"),
		logging.Error(err),
	)
	b.alert(ctx, notifications.EventActionFailed, notifications.Payload{
		"unit":   subject,
		"locale": locale,
		"action": action,
		"error":  err.Error(),
	})
	return wrapped
}

func (b *Broker) succeed(ctx context.Context, action string, attrs ...logging.Attr) {
	b.metrics.Action(action, "success")
	logging.WithContext(ctx, b.logger).Info(action+" succeeded", logging.Args(attrs...)...)
}

func (b *Broker) alert(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if b.notifier == nil {
		return
	}
	if err := b.notifier.Publish(ctx, event, payload); err != nil {
		if errors.Is(err, context.Canceled) {
			b.logger.Debug("shutting down, alert not sent")
			return
		}
		b.logger.Debug("alert failed", logging.String("alert", string(event)), logging.Error(err))
	}
}

// scope resolves the unit's profile against the configured locales.
func (b *Broker) scope(unit *metadata.Unit) ingest.Scope {
	return ingest.NewScope(b.profiles.Lookup(unit.ProfileID), b.cfg.Content.TargetLocales, b.sourceLocale(unit))
}

func (b *Broker) sourceLocale(unit *metadata.Unit) string {
	if locale := strings.TrimSpace(unit.SourceLocale); locale != "" {
		return locale
	}
	return b.cfg.Content.SourceLocale
}

func withUnitContext(ctx context.Context, unit *metadata.Unit) context.Context {
	ctx = services.WithUnitID(ctx, unit.ID)
	if unit.DocumentID != "" {
		ctx = services.WithDocumentID(ctx, unit.DocumentID)
	}
	return ctx
}
