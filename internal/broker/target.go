package broker

import (
	"context"

	"tmsbridge/internal/language"
	"tmsbridge/internal/lifecycle"
	"tmsbridge/internal/logging"
	"tmsbridge/internal/metadata"
	"tmsbridge/internal/services"
	"tmsbridge/internal/tms"
)

// RequestTarget asks the TMS to translate the unit into locale. Locales that
// are not enabled may still be requested explicitly. A target already
// PENDING or further along is left alone without calling the TMS.
func (b *Broker) RequestTarget(ctx context.Context, ref metadata.Ref, locale string) error {
	_, err := b.withUnit(ctx, ref, false, "", func(ctx context.Context, unit *metadata.Unit) error {
		normalized, err := b.targetLocale(unit, locale)
		if err != nil {
			return err
		}
		if !unit.Tracked() {
			return untrackedError("request", unit)
		}
		if target, ok := unit.Target(normalized); ok && requested(target.Status) {
			return nil
		}
		return b.requestLocale(services.WithLocale(ctx, normalized), unit, normalized)
	})
	return err
}

// requested reports statuses for which a new request is a no-op.
func requested(status metadata.TargetStatus) bool {
	switch status {
	case metadata.TargetPending, metadata.TargetIntermediate, metadata.TargetReady, metadata.TargetCurrent:
		return true
	default:
		return false
	}
}

func (b *Broker) requestLocale(ctx context.Context, unit *metadata.Unit, locale string) error {
	err := b.call(ctx, func(ctx context.Context) error {
		return b.client.AddTarget(ctx, unit.DocumentID, locale)
	})
	if err != nil {
		lifecycle.TargetFailed(unit, locale, err.Error())
		return b.fail(ctx, unit, "request", locale, services.ErrTargetRequestFailed, err)
	}
	lifecycle.RequestSucceeded(unit, locale)
	b.succeed(ctx, "request", logging.String(logging.FieldLocale, locale))
	return nil
}

// CheckTarget asks the TMS for the state of one target and applies it.
func (b *Broker) CheckTarget(ctx context.Context, ref metadata.Ref, locale string) error {
	_, err := b.withUnit(ctx, ref, false, "", func(ctx context.Context, unit *metadata.Unit) error {
		normalized, err := b.targetLocale(unit, locale)
		if err != nil {
			return err
		}
		if !unit.Tracked() {
			return untrackedError("check_target", unit)
		}
		ctx = services.WithLocale(ctx, normalized)
		var status tms.Status
		err = b.call(ctx, func(ctx context.Context) error {
			var err error
			status, err = b.client.GetTargetStatus(ctx, unit.DocumentID, normalized)
			return err
		})
		if err != nil {
			// The target keeps its status; rerunning check-target is the retry.
			if target, ok := unit.Target(normalized); ok {
				target.LastError = err.Error()
			}
			return b.fail(ctx, unit, "check_target", normalized, services.ErrCheckFailed, err)
		}
		// An explicit check is a user action, so a missing target is created.
		if status.Complete {
			lifecycle.TargetComplete(unit, normalized, true)
		} else {
			lifecycle.TargetProgress(unit, normalized, status.Progress, true)
		}
		b.succeed(ctx, "check_target", logging.Int("progress", status.Progress), logging.Bool("complete", status.Complete))
		return nil
	})
	return err
}

// Download fetches the translated payload for locale. The revision pin is not
// touched: the artifact belongs to the revision that was uploaded.
func (b *Broker) Download(ctx context.Context, ref metadata.Ref, locale string) ([]byte, error) {
	var payload []byte
	_, err := b.withUnit(ctx, ref, false, "", func(ctx context.Context, unit *metadata.Unit) error {
		normalized, err := b.targetLocale(unit, locale)
		if err != nil {
			return err
		}
		if !unit.Tracked() {
			return untrackedError("download", unit)
		}
		if _, ok := unit.Target(normalized); !ok {
			return services.Wrap(services.ErrNotFound, component, "download", unit.Ref.String()+" has no "+normalized+" target", nil)
		}
		payload, err = b.fetch(services.WithLocale(ctx, normalized), unit, normalized)
		return err
	})
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// fetch downloads one artifact for a waiting caller and records it on the
// target.
func (b *Broker) fetch(ctx context.Context, unit *metadata.Unit, locale string) ([]byte, error) {
	payload, err := b.download(ctx, unit, locale)
	if err != nil {
		return nil, err
	}
	lifecycle.DownloadSucceeded(unit, locale)
	b.succeed(ctx, "download", logging.String(logging.FieldLocale, locale), logging.Int("bytes", len(payload)))
	return payload, nil
}

// download performs the TMS call. A failure moves the target to ERROR.
func (b *Broker) download(ctx context.Context, unit *metadata.Unit, locale string) ([]byte, error) {
	var payload []byte
	err := b.call(ctx, func(ctx context.Context) error {
		var err error
		payload, err = b.client.DownloadTarget(ctx, unit.DocumentID, locale)
		return err
	})
	if err != nil {
		lifecycle.TargetFailed(unit, locale, err.Error())
		return nil, b.fail(ctx, unit, "download", locale, services.ErrDownloadFailed, err)
	}
	return payload, nil
}

// targetLocale normalizes locale and rejects the unit's own source locale.
func (b *Broker) targetLocale(unit *metadata.Unit, locale string) (string, error) {
	normalized, err := language.Normalize(locale)
	if err != nil {
		return "", services.Wrap(services.ErrInvalidLocale, component, "target", locale, err)
	}
	if source := b.sourceLocale(unit); source != "" && normalized == source {
		return "", services.Wrap(services.ErrInvalidLocale, component, "target", normalized+" is the source locale", nil)
	}
	return normalized, nil
}
