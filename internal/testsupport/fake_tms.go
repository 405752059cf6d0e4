package testsupport

import (
	"context"
	"fmt"
	"sync"

	"tmsbridge/internal/tms"
)

// FakeCall records one invocation against FakeTMS.
type FakeCall struct {
	Op         string
	DocumentID string
	Locale     string
	Document   tms.Document
}

// FakeTMS is a scriptable in-memory tms.Client.
type FakeTMS struct {
	mu        sync.Mutex
	nextID    int
	calls     []FakeCall
	failures  map[string]error
	hangs     map[string]bool
	docStatus map[string]tms.Status
	tgtStatus map[string]tms.Status
	payloads  map[string][]byte
	documents map[string]tms.Document
}

var _ tms.Client = (*FakeTMS)(nil)

// NewFakeTMS returns a fake whose documents import instantly and whose
// targets are incomplete until scripted otherwise.
func NewFakeTMS() *FakeTMS {
	return &FakeTMS{
		failures:  map[string]error{},
		hangs:     map[string]bool{},
		docStatus: map[string]tms.Status{},
		tgtStatus: map[string]tms.Status{},
		payloads:  map[string][]byte{},
		documents: map[string]tms.Document{},
	}
}

func targetKey(documentID, locale string) string {
	return documentID + "/" + locale
}

// Fail makes every subsequent call of op return err. A nil err clears it.
func (f *FakeTMS) Fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failures, op)
		return
	}
	f.failures[op] = err
}

// Hang makes op block until its context ends.
func (f *FakeTMS) Hang(op string, hang bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hangs[op] = hang
}

// SetDocumentStatus scripts GetDocumentStatus.
func (f *FakeTMS) SetDocumentStatus(documentID string, status tms.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docStatus[documentID] = status
}

// SetTargetStatus scripts GetTargetStatus.
func (f *FakeTMS) SetTargetStatus(documentID, locale string, status tms.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tgtStatus[targetKey(documentID, locale)] = status
}

// SetPayload scripts DownloadTarget.
func (f *FakeTMS) SetPayload(documentID, locale string, payload []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads[targetKey(documentID, locale)] = append([]byte(nil), payload...)
}

// Calls returns a copy of the recorded calls.
func (f *FakeTMS) Calls() []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FakeCall(nil), f.calls...)
}

// CallCount returns how often op was invoked.
func (f *FakeTMS) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, call := range f.calls {
		if call.Op == op {
			count++
		}
	}
	return count
}

// LastDocument returns the most recent payload uploaded or updated for documentID.
func (f *FakeTMS) LastDocument(documentID string) (tms.Document, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.documents[documentID]
	return doc, ok
}

func (f *FakeTMS) begin(ctx context.Context, call FakeCall) error {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	err := f.failures[call.Op]
	hang := f.hangs[call.Op]
	f.mu.Unlock()
	if hang {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

func (f *FakeTMS) UploadDocument(ctx context.Context, doc tms.Document) (string, error) {
	if err := f.begin(ctx, FakeCall{Op: tms.OpUpload, Document: doc}); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("doc-%d", f.nextID)
	f.documents[id] = doc
	if _, ok := f.docStatus[id]; !ok {
		f.docStatus[id] = tms.Status{Complete: true, Progress: 100}
	}
	return id, nil
}

func (f *FakeTMS) GetDocumentStatus(ctx context.Context, documentID string) (tms.Status, error) {
	if err := f.begin(ctx, FakeCall{Op: tms.OpDocumentStatus, DocumentID: documentID}); err != nil {
		return tms.Status{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.docStatus[documentID], nil
}

func (f *FakeTMS) AddTarget(ctx context.Context, documentID, locale string) error {
	return f.begin(ctx, FakeCall{Op: tms.OpAddTarget, DocumentID: documentID, Locale: locale})
}

func (f *FakeTMS) GetTargetStatus(ctx context.Context, documentID, locale string) (tms.Status, error) {
	if err := f.begin(ctx, FakeCall{Op: tms.OpTargetStatus, DocumentID: documentID, Locale: locale}); err != nil {
		return tms.Status{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tgtStatus[targetKey(documentID, locale)], nil
}

func (f *FakeTMS) DownloadTarget(ctx context.Context, documentID, locale string) ([]byte, error) {
	if err := f.begin(ctx, FakeCall{Op: tms.OpDownload, DocumentID: documentID, Locale: locale}); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if payload, ok := f.payloads[targetKey(documentID, locale)]; ok {
		return append([]byte(nil), payload...), nil
	}
	return []byte(locale + ":" + documentID), nil
}

func (f *FakeTMS) UpdateDocument(ctx context.Context, documentID string, doc tms.Document) error {
	if err := f.begin(ctx, FakeCall{Op: tms.OpUpdate, DocumentID: documentID, Document: doc}); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.documents[documentID] = doc
	return nil
}

func (f *FakeTMS) CancelDocument(ctx context.Context, documentID string) error {
	return f.begin(ctx, FakeCall{Op: tms.OpCancel, DocumentID: documentID})
}
