package broker

import (
	"context"
	"errors"
	"fmt"

	"tmsbridge/internal/events"
	"tmsbridge/internal/lifecycle"
	"tmsbridge/internal/logging"
	"tmsbridge/internal/metadata"
	"tmsbridge/internal/services"
)

// Disassociate drops the unit's TMS document and all targets. It never calls
// the TMS and a missing unit is not an error.
func (b *Broker) Disassociate(ctx context.Context, ref metadata.Ref) error {
	_, err := b.withUnit(ctx, ref, false, "", func(ctx context.Context, unit *metadata.Unit) error {
		documentID := unit.DocumentID
		if lifecycle.Disassociate(unit) {
			b.dedupe.ForgetDocument(documentID)
			b.succeed(ctx, "disassociate", logging.String(logging.FieldDocumentID, documentID))
		}
		return nil
	})
	if errors.Is(err, services.ErrNotFound) {
		return nil
	}
	return err
}

// UnitFailure is one unit DisassociateAll could not process.
type UnitFailure struct {
	Ref   metadata.Ref
	Error string
}

// DisassociateReport summarizes a DisassociateAll run.
type DisassociateReport struct {
	Total         int
	Disassociated int
	Failures      []UnitFailure
}

// DisassociateAll disassociates every tracked unit, each under its own lock.
// Per-unit failures are collected and the run continues; rerunning only
// revisits units that are still tracked.
func (b *Broker) DisassociateAll(ctx context.Context) (DisassociateReport, error) {
	var report DisassociateReport
	ids, err := b.store.TrackedIDs(ctx)
	if err != nil {
		return report, fmt.Errorf("list tracked units: %w", err)
	}
	report.Total = len(ids)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		unit, err := b.store.GetByID(ctx, id)
		if err != nil {
			report.Failures = append(report.Failures, UnitFailure{Ref: metadata.Ref{Kind: "unit", ID: fmt.Sprint(id)}, Error: err.Error()})
			continue
		}
		if unit == nil {
			continue
		}
		if err := b.Disassociate(ctx, unit.Ref); err != nil {
			report.Failures = append(report.Failures, UnitFailure{Ref: unit.Ref, Error: err.Error()})
			continue
		}
		report.Disassociated++
	}
	if len(report.Failures) > 0 {
		return report, fmt.Errorf("%d of %d units not disassociated", len(report.Failures), report.Total)
	}
	return report, nil
}

// Forget deletes the unit record after its host resource was deleted. A
// missing unit is not an error.
func (b *Broker) Forget(ctx context.Context, ref metadata.Ref) error {
	if err := ref.Validate(); err != nil {
		return services.Wrap(services.ErrValidation, component, "forget", ref.String(), err)
	}
	release, err := b.lock(ctx, ref)
	if err != nil {
		return err
	}
	defer release()

	unit, err := b.store.FindByRef(ctx, ref)
	if err != nil {
		return fmt.Errorf("load %s: %w", ref, err)
	}
	if unit == nil {
		return nil
	}
	if _, err := b.store.Delete(ctx, unit.ID); err != nil {
		return err
	}
	ctx = withUnitContext(ctx, unit)
	if unit.Tracked() {
		b.dedupe.ForgetDocument(unit.DocumentID)
		if err := b.events.Publish(ctx, events.StatusEvent{
			Type:       events.TypeDisassociated,
			EntityKind: ref.Kind,
			EntityID:   ref.ID,
			DocumentID: unit.DocumentID,
			Status:     string(metadata.SourceUntracked),
			Previous:   string(unit.SourceStatus),
		}); err != nil {
			b.metrics.EventPublished("error")
			logging.WithContext(ctx, b.logger).Debug("forget event not published", logging.Error(err))
		} else {
			b.metrics.EventPublished("ok")
		}
	}
	b.succeed(ctx, "forget")
	return nil
}
