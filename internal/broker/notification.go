package broker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"tmsbridge/internal/ingest"
	"tmsbridge/internal/lifecycle"
	"tmsbridge/internal/logging"
	"tmsbridge/internal/metadata"
	"tmsbridge/internal/services"
	"tmsbridge/internal/tms"
)

// HandleNotification routes a validated notification to its unit, applies it
// and runs the automatic requests and downloads the unit's profile asks for.
// Unknown documents yield an empty decision and no error.
func (b *Broker) HandleNotification(ctx context.Context, ev ingest.Event) (ingest.Decision, error) {
	start := time.Now()
	ctx = services.WithDocumentID(ctx, ev.DocumentID)
	logger := logging.WithContext(ctx, b.logger).With(logging.String(logging.FieldEventType, string(ev.Type)))

	key := ev.Fingerprint()
	if cached, ok := b.dedupe.Lookup(key); ok {
		b.metrics.Notification(string(ev.Type), "duplicate", time.Since(start))
		logger.Debug("duplicate notification answered from cache")
		return cached, nil
	}

	decision, routed, err := b.route(ctx, ev, key)
	if errors.Is(err, services.ErrOrphanedMetadata) {
		b.metrics.Notification(string(ev.Type), "orphaned", time.Since(start))
		logging.WarnWithContext(logger, "notification for a unit removed by its host", "notification_orphaned",
			logging.String(logging.FieldErrorKind, services.Kind(err)),
			logging.String(logging.FieldErrorHint, "the host deleted the resource while the notification was in flight"),
			logging.String(logging.FieldImpact, "notification ignored"),
		)
		return ingest.Empty(), nil
	}
	if err != nil {
		b.metrics.Notification(string(ev.Type), "error", time.Since(start))
		return ingest.Empty(), err
	}
	if !routed {
		b.metrics.Notification(string(ev.Type), "unroutable", time.Since(start))
		logging.WarnWithContext(logger, "notification for unknown document", "notification_unroutable",
			logging.String(logging.FieldErrorKind, services.Kind(services.ErrUnroutableNotification)),
			logging.String(logging.FieldErrorHint, "the document was disassociated or never uploaded from this host"),
			logging.String(logging.FieldImpact, "notification ignored"),
		)
		return ingest.Empty(), nil
	}
	b.metrics.Notification(string(ev.Type), "routed", time.Since(start))
	logger.Info("notification applied",
		logging.Strings("request_translations", decision.RequestTranslations),
		logging.Bool("download", decision.Download),
		logging.Any("downloads", decision.Downloads),
	)
	return decision, nil
}

// route finds the unit by document id and applies ev under the unit's lock.
// Routing fails when no unit holds the document, including a unit that was
// disassociated between lookup and lock. A unit row deleted between lookup and
// lock is ErrOrphanedMetadata. The decision is cached under key while the
// lock is still held.
func (b *Broker) route(ctx context.Context, ev ingest.Event, key string) (ingest.Decision, bool, error) {
	found, err := b.store.FindByDocumentID(ctx, ev.DocumentID)
	if err != nil {
		return ingest.Decision{}, false, fmt.Errorf("route %s: %w", ev.DocumentID, err)
	}
	if found == nil {
		return ingest.Decision{}, false, nil
	}
	release, err := b.lock(ctx, found.Ref)
	if err != nil {
		return ingest.Decision{}, false, err
	}
	defer release()

	unit, err := b.store.GetByID(ctx, found.ID)
	if err != nil {
		return ingest.Decision{}, false, fmt.Errorf("route %s: %w", ev.DocumentID, err)
	}
	if unit == nil {
		return ingest.Decision{}, true, services.Wrap(services.ErrOrphanedMetadata, component, "route", found.Ref.String()+" was deleted", nil)
	}
	if unit.DocumentID != ev.DocumentID {
		return ingest.Decision{}, false, nil
	}

	decision := ingest.Empty()
	err = b.apply(withUnitContext(ctx, unit), unit, func(ctx context.Context, unit *metadata.Unit) error {
		scope := b.scope(unit)
		switch ev.Type {
		case ingest.TypeDocumentUploaded:
			decision.RequestTranslations = b.onDocumentUploaded(ctx, unit, ev, scope)
		case ingest.TypeTarget:
			decision.Download = b.onTarget(ctx, unit, ev.Locale(), ev.Complete, ev.Progress, scope)
		case ingest.TypePhase:
			downloads := b.onPhase(ctx, unit, ev, scope)
			if len(ev.Locales) > 1 {
				decision.Downloads = downloads
			} else {
				decision.Download = downloads[ev.Locale()]
			}
		}
		return nil
	})
	if err != nil {
		return ingest.Decision{}, true, err
	}
	b.dedupe.Remember(key, ev.DocumentID, decision)
	return decision, true, nil
}

// onDocumentUploaded completes the import and sends the automatic requests.
// Only requests the TMS accepted are reported.
func (b *Broker) onDocumentUploaded(ctx context.Context, unit *metadata.Unit, ev ingest.Event, scope ingest.Scope) []string {
	out := ingest.ReduceDocumentUploaded(unit, ev, scope)
	accepted := []string{}
	for _, locale := range out.AutoRequest {
		lctx := services.WithLocale(ctx, locale)
		if err := b.requestLocale(lctx, unit, locale); err != nil {
			continue
		}
		b.metrics.Decision("request")
		logging.WithContext(lctx, b.logger).Info("translation requested",
			logging.Args(logging.DecisionAttrs("auto_request", "requested", "profile requests automatically")...)...)
		accepted = append(accepted, locale)
	}
	sort.Strings(accepted)
	return accepted
}

// onTarget applies a target report and downloads a READY target when the
// policy asks for it. It reports whether the final artifact was delivered.
func (b *Broker) onTarget(ctx context.Context, unit *metadata.Unit, locale string, complete bool, progress int, scope ingest.Scope) bool {
	out := ingest.ReduceTarget(unit, locale, complete, progress, scope)
	if !out.Download {
		return false
	}
	return b.deliver(services.WithLocale(ctx, locale), unit, locale, false)
}

// onPhase asks the TMS per locale whether all phases are complete, then
// applies the phase report. It reports per locale whether an artifact was
// delivered.
func (b *Broker) onPhase(ctx context.Context, unit *metadata.Unit, ev ingest.Event, scope ingest.Scope) map[string]bool {
	downloads := make(map[string]bool, len(ev.Locales))
	for _, locale := range ev.Locales {
		downloads[locale] = false
		if _, ok := unit.Target(locale); !ok && !scope.Enabled(locale) {
			continue
		}
		lctx := services.WithLocale(ctx, locale)
		var status tms.Status
		err := b.call(lctx, func(ctx context.Context) error {
			var err error
			status, err = b.client.GetTargetStatus(ctx, unit.DocumentID, locale)
			return err
		})
		if err != nil {
			// Without the TMS answer the target is treated as provisional.
			logging.WarnWithContext(logging.WithContext(lctx, b.logger), "phase completion unknown", "phase_status_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "run check-target once the TMS is reachable"),
				logging.String(logging.FieldImpact, "target treated as intermediate"),
			)
			status = tms.Status{}
		}
		out := ingest.ReducePhase(unit, locale, ev.Progress, status.Complete, scope)
		switch {
		case out.Download:
			downloads[locale] = b.deliver(lctx, unit, locale, false)
		case out.FetchIntermediate:
			downloads[locale] = b.deliver(lctx, unit, locale, true)
		}
	}
	return downloads
}

// deliver fetches an artifact and hands it to the sink. The target only
// advances once the sink accepted the payload.
func (b *Broker) deliver(ctx context.Context, unit *metadata.Unit, locale string, intermediate bool) bool {
	payload, err := b.download(ctx, unit, locale)
	if err != nil {
		return false
	}
	if err := b.sink.Deliver(ctx, unit.Ref, locale, payload, intermediate); err != nil {
		logging.ErrorWithContext(logging.WithContext(ctx, b.logger), "artifact not stored", "artifact_sink_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the artifact directory permissions"),
		)
		return false
	}
	lifecycle.DownloadSucceeded(unit, locale)
	b.metrics.Decision("download")
	b.succeed(ctx, "download",
		logging.Bool("intermediate", intermediate),
		logging.Int("bytes", len(payload)),
	)
	return true
}
