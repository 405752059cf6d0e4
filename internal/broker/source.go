package broker

import (
	"context"
	"fmt"
	"strings"

	"tmsbridge/internal/ingest"
	"tmsbridge/internal/language"
	"tmsbridge/internal/lifecycle"
	"tmsbridge/internal/logging"
	"tmsbridge/internal/metadata"
	"tmsbridge/internal/services"
	"tmsbridge/internal/tms"
)

// Upload sends the source payload to the TMS and pins its revision. A unit
// that already has a document is updated instead.
func (b *Broker) Upload(ctx context.Context, ref metadata.Ref, src SourceData) (string, error) {
	if err := validateSource(src); err != nil {
		return "", err
	}
	var documentID string
	_, err := b.withUnit(ctx, ref, true, src.ProfileID, func(ctx context.Context, unit *metadata.Unit) error {
		applyProfile(unit, src)
		if unit.SourceStatus == metadata.SourceCancelled {
			return cancelledError("upload", unit)
		}
		if unit.Tracked() {
			documentID = unit.DocumentID
			return b.update(ctx, unit, src)
		}
		id, err := b.upload(ctx, unit, src)
		documentID = id
		return err
	})
	return documentID, err
}

func (b *Broker) upload(ctx context.Context, unit *metadata.Unit, src SourceData) (string, error) {
	sourceLocale, err := b.resolveSourceLocale(unit, src)
	if err != nil {
		return "", err
	}
	doc := tms.Document{
		Title:        documentTitle(unit, src),
		Content:      src.Content,
		SourceLocale: sourceLocale,
		JobID:        firstNonEmpty(src.JobID, unit.JobID),
		RevisionID:   src.RevisionID,
	}
	var documentID string
	err = b.call(ctx, func(ctx context.Context) error {
		id, err := b.client.UploadDocument(ctx, doc)
		documentID = strings.TrimSpace(id)
		return err
	})
	if err == nil && documentID == "" {
		err = fmt.Errorf("tms returned an empty document id")
	}
	if err != nil {
		lifecycle.SourceFailed(unit, err.Error())
		return "", b.fail(ctx, unit, "upload", "", services.ErrUploadFailed, err)
	}
	lifecycle.UploadSucceeded(unit, lifecycle.Upload{
		DocumentID:   documentID,
		RevisionID:   src.RevisionID,
		SourceLocale: sourceLocale,
		JobID:        doc.JobID,
	})
	ctx = services.WithDocumentID(ctx, documentID)
	b.succeed(ctx, "upload", logging.String("revision_id", src.RevisionID))
	return documentID, nil
}

// CheckUpload asks the TMS whether an importing document finished. On
// completion every enabled locale without a target is seeded as REQUEST;
// automatic requests are left to the document_uploaded notification.
func (b *Broker) CheckUpload(ctx context.Context, ref metadata.Ref) error {
	_, err := b.withUnit(ctx, ref, false, "", func(ctx context.Context, unit *metadata.Unit) error {
		if !unit.Tracked() {
			return untrackedError("check", unit)
		}
		if unit.SourceStatus != metadata.SourceImporting {
			return nil
		}
		var status tms.Status
		err := b.call(ctx, func(ctx context.Context) error {
			var err error
			status, err = b.client.GetDocumentStatus(ctx, unit.DocumentID)
			return err
		})
		if err != nil {
			// A failed poll says nothing about the document, so IMPORTING stays
			// and the next check is the retry.
			unit.LastError = err.Error()
			return b.fail(ctx, unit, "check", "", services.ErrCheckFailed, err)
		}
		if !status.Complete {
			return nil
		}
		// A scope without policies seeds every candidate as REQUEST.
		seed := ingest.Scope{EnabledLocales: b.scope(unit).EnabledLocales}
		ingest.ReduceDocumentUploaded(unit, ingest.Event{Type: ingest.TypeDocumentUploaded, Complete: true}, seed)
		b.succeed(ctx, "check")
		return nil
	})
	return err
}

// Update sends new source content for a tracked unit and re-pins its revision.
func (b *Broker) Update(ctx context.Context, ref metadata.Ref, src SourceData) error {
	if err := validateSource(src); err != nil {
		return err
	}
	_, err := b.withUnit(ctx, ref, false, "", func(ctx context.Context, unit *metadata.Unit) error {
		applyProfile(unit, src)
		switch {
		case unit.SourceStatus == metadata.SourceCancelled:
			return cancelledError("update", unit)
		case !unit.Tracked():
			return untrackedError("update", unit)
		}
		return b.update(ctx, unit, src)
	})
	return err
}

func (b *Broker) update(ctx context.Context, unit *metadata.Unit, src SourceData) error {
	doc := tms.Document{
		Title:        documentTitle(unit, src),
		Content:      src.Content,
		SourceLocale: b.sourceLocale(unit),
		JobID:        firstNonEmpty(src.JobID, unit.JobID),
		RevisionID:   src.RevisionID,
	}
	err := b.call(ctx, func(ctx context.Context) error {
		return b.client.UpdateDocument(ctx, unit.DocumentID, doc)
	})
	if err != nil {
		lifecycle.SourceFailed(unit, err.Error())
		return b.fail(ctx, unit, "update", "", services.ErrUpdateFailed, err)
	}
	lifecycle.UpdateSucceeded(unit, src.RevisionID)
	b.succeed(ctx, "update", logging.String("revision_id", src.RevisionID))
	return nil
}

// ContentChanged records a host-side edit. When src is given and the unit's
// profile uploads automatically, the new content is sent right away.
func (b *Broker) ContentChanged(ctx context.Context, ref metadata.Ref, src *SourceData) error {
	if src != nil {
		if err := validateSource(*src); err != nil {
			return err
		}
	}
	_, err := b.withUnit(ctx, ref, true, "", func(ctx context.Context, unit *metadata.Unit) error {
		lifecycle.ContentChanged(unit)
		if src == nil {
			return nil
		}
		p := b.profiles.Lookup(unit.ProfileID)
		if p == nil || !p.AutoUpload {
			logging.WithContext(ctx, b.logger).Debug("content changed",
				logging.Args(logging.DecisionAttrs("auto_upload", "skipped", "profile uploads manually")...)...)
			return nil
		}
		if unit.SourceStatus == metadata.SourceCancelled {
			return nil
		}
		logging.WithContext(ctx, b.logger).Info("content changed",
			logging.Args(logging.DecisionAttrs("auto_upload", "sent", "profile uploads automatically")...)...)
		if unit.Tracked() {
			return b.update(ctx, unit, *src)
		}
		_, err := b.upload(ctx, unit, *src)
		return err
	})
	return err
}

// Cancel cancels the document in the TMS. A cancelled unit must be
// disassociated before it can be uploaded again.
func (b *Broker) Cancel(ctx context.Context, ref metadata.Ref) error {
	_, err := b.withUnit(ctx, ref, false, "", func(ctx context.Context, unit *metadata.Unit) error {
		if !unit.Tracked() {
			return untrackedError("cancel", unit)
		}
		if unit.SourceStatus == metadata.SourceCancelled {
			return nil
		}
		err := b.call(ctx, func(ctx context.Context) error {
			return b.client.CancelDocument(ctx, unit.DocumentID)
		})
		if err != nil {
			lifecycle.SourceFailed(unit, err.Error())
			return b.fail(ctx, unit, "cancel", "", services.ErrCancelFailed, err)
		}
		lifecycle.CancelSucceeded(unit)
		b.succeed(ctx, "cancel")
		return nil
	})
	return err
}

func (b *Broker) resolveSourceLocale(unit *metadata.Unit, src SourceData) (string, error) {
	candidate := firstNonEmpty(src.SourceLocale, unit.SourceLocale, b.cfg.Content.SourceLocale)
	locale, err := language.Normalize(candidate)
	if err != nil {
		return "", services.Wrap(services.ErrInvalidLocale, component, "upload", "source locale", err)
	}
	return locale, nil
}

func validateSource(src SourceData) error {
	if len(src.Content) == 0 {
		return services.Wrap(services.ErrValidation, component, "source", "payload is empty", nil)
	}
	return nil
}

func applyProfile(unit *metadata.Unit, src SourceData) {
	if id := strings.TrimSpace(src.ProfileID); id != "" {
		unit.ProfileID = id
	}
}

func documentTitle(unit *metadata.Unit, src SourceData) string {
	if title := strings.TrimSpace(src.Title); title != "" {
		return title
	}
	return unit.Ref.String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func untrackedError(action string, unit *metadata.Unit) error {
	return services.Wrap(services.ErrValidation, component, action, unit.Ref.String()+" has no TMS document; upload it first", nil)
}

func cancelledError(action string, unit *metadata.Unit) error {
	return services.Wrap(services.ErrConflict, component, action, unit.Ref.String()+" was cancelled; disassociate it first", nil)
}
