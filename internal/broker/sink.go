package broker

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"tmsbridge/internal/fileutil"
	"tmsbridge/internal/metadata"
)

// Sink receives artifacts downloaded without a caller waiting for them.
type Sink interface {
	Deliver(ctx context.Context, ref metadata.Ref, locale string, payload []byte, intermediate bool) error
}

// FileSink writes artifacts to <root>/<kind>/<id>/<locale>.out for the host
// to import. Intermediate artifacts use the .intermediate suffix and are
// replaced by the final one.
type FileSink struct {
	root string
}

// NewFileSink returns a sink rooted at dir.
func NewFileSink(dir string) *FileSink {
	return &FileSink{root: dir}
}

// Path returns where an artifact for ref and locale is written.
func (s *FileSink) Path(ref metadata.Ref, locale string, intermediate bool) string {
	ext := ".out"
	if intermediate {
		ext = ".intermediate"
	}
	return filepath.Join(s.root, safeSegment(ref.Kind), safeSegment(ref.ID), safeSegment(locale)+ext)
}

// Deliver writes payload atomically.
func (s *FileSink) Deliver(ctx context.Context, ref metadata.Ref, locale string, payload []byte, intermediate bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := s.Path(ref, locale, intermediate)
	if err := fileutil.WriteFile(path, payload); err != nil {
		return fmt.Errorf("deliver %s [%s]: %w", ref, locale, err)
	}
	return nil
}

// safeSegment keeps host identifiers from escaping the sink root.
func safeSegment(value string) string {
	value = strings.TrimSpace(value)
	replacer := strings.NewReplacer("/", "_", "\\", "_", "..", "_", ":", "_")
	value = replacer.Replace(value)
	if value == "" || value == "." {
		return "_"
	}
	return value
}
