package broker

import (
	"context"
	"sort"

	"tmsbridge/internal/events"
	"tmsbridge/internal/logging"
	"tmsbridge/internal/metadata"
	"tmsbridge/internal/notifications"
)

// statusChanges lists the status events between two persisted states of a
// unit. Progress-only changes are not events.
func statusChanges(before, after *metadata.Unit) []events.StatusEvent {
	var out []events.StatusEvent
	base := events.StatusEvent{
		EntityKind: after.Ref.Kind,
		EntityID:   after.Ref.ID,
		DocumentID: after.DocumentID,
	}
	if before.Tracked() && !after.Tracked() {
		ev := base
		ev.Type = events.TypeDisassociated
		ev.DocumentID = before.DocumentID
		ev.Status = string(after.SourceStatus)
		ev.Previous = string(before.SourceStatus)
		return append(out, ev)
	}
	if before.SourceStatus != after.SourceStatus {
		ev := base
		ev.Type = events.TypeSourceChanged
		ev.Status = string(after.SourceStatus)
		ev.Previous = string(before.SourceStatus)
		out = append(out, ev)
	}
	for _, locale := range unionLocales(before, after) {
		var previous, current metadata.TargetStatus
		progress := 0
		if t, ok := before.Target(locale); ok {
			previous = t.Status
		}
		if t, ok := after.Target(locale); ok {
			current = t.Status
			progress = t.Progress
		} else {
			current = metadata.TargetUntracked
		}
		if previous == current {
			continue
		}
		ev := base
		ev.Type = events.TypeTargetChanged
		ev.Locale = locale
		ev.Status = string(current)
		ev.Previous = string(previous)
		ev.Progress = progress
		out = append(out, ev)
	}
	return out
}

func unionLocales(a, b *metadata.Unit) []string {
	seen := map[string]struct{}{}
	for locale := range a.Targets {
		seen[locale] = struct{}{}
	}
	for locale := range b.Targets {
		seen[locale] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for locale := range seen {
		out = append(out, locale)
	}
	sort.Strings(out)
	return out
}

// publishChanges fans a persisted change out to metrics, the event stream and
// ready alerts. Publishing failures are logged; the change itself stands.
func (b *Broker) publishChanges(ctx context.Context, before, after *metadata.Unit) {
	changes := statusChanges(before, after)
	if len(changes) == 0 {
		return
	}
	scope := b.scope(after)
	for _, change := range changes {
		switch change.Type {
		case events.TypeTargetChanged:
			b.metrics.Transition("target", change.Status)
			if change.Status == string(metadata.TargetReady) && !scope.Resolve(change.Locale).AutoDownload {
				b.alert(ctx, notifications.EventTargetReady, notifications.Payload{
					"unit":   after.Ref.String(),
					"locale": change.Locale,
				})
			}
		default:
			b.metrics.Transition("source", change.Status)
		}
	}
	if err := b.events.Publish(ctx, changes...); err != nil {
		b.metrics.EventPublished("error")
		logging.WarnWithContext(logging.WithContext(ctx, b.logger), "status events not published", "events_publish_failed",
			logging.Int("count", len(changes)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the event broker connection"),
			logging.String(logging.FieldImpact, "downstream consumers miss these status changes"),
		)
		return
	}
	for range changes {
		b.metrics.EventPublished("ok")
	}
}
