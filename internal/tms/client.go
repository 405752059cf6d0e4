package tms

import "context"

// Document is an opaque source payload plus the identity sent with it.
type Document struct {
	Title        string
	Content      []byte
	SourceLocale string
	JobID        string
	RevisionID   string
}

// Status is the TMS view of a document or one of its targets.
type Status struct {
	Complete bool `json:"complete"`
	Progress int  `json:"progress"`
}

// Client is the set of TMS operations the broker performs. Every call is
// expected to honour ctx cancellation.
type Client interface {
	UploadDocument(ctx context.Context, doc Document) (string, error)
	GetDocumentStatus(ctx context.Context, documentID string) (Status, error)
	AddTarget(ctx context.Context, documentID, locale string) error
	GetTargetStatus(ctx context.Context, documentID, locale string) (Status, error)
	DownloadTarget(ctx context.Context, documentID, locale string) ([]byte, error)
	UpdateDocument(ctx context.Context, documentID string, doc Document) error
	CancelDocument(ctx context.Context, documentID string) error
}

// Operation names used for metrics and error messages.
const (
	OpUpload         = "upload"
	OpDocumentStatus = "document_status"
	OpAddTarget      = "add_target"
	OpTargetStatus   = "target_status"
	OpDownload       = "download"
	OpUpdate         = "update"
	OpCancel         = "cancel"
)
