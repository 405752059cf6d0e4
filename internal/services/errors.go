package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Action failures. Each marks an error produced while calling the TMS on
// behalf of a local action; the affected source or target is left in ERROR.
var (
	ErrUploadFailed        = errors.New("upload failed")
	ErrUpdateFailed        = errors.New("update failed")
	ErrTargetRequestFailed = errors.New("target request failed")
	ErrDownloadFailed      = errors.New("download failed")
	ErrCheckFailed         = errors.New("status check failed")
	ErrCancelFailed        = errors.New("cancel failed")
)

// Routing and input failures.
var (
	ErrUnroutableNotification = errors.New("unroutable notification")
	ErrInvalidLocale          = errors.New("invalid locale")
	ErrOrphanedMetadata       = errors.New("orphaned metadata")
	ErrValidation             = errors.New("validation error")
	ErrConfiguration          = errors.New("configuration error")
	ErrNotFound               = errors.New("not found")
	ErrConflict               = errors.New("conflict")
	ErrTimeout                = errors.New("timeout")
	ErrTransient              = errors.New("transient failure")
)

var markers = []struct {
	err  error
	kind string
}{
	{ErrUploadFailed, "upload_failed"},
	{ErrUpdateFailed, "update_failed"},
	{ErrTargetRequestFailed, "target_request_failed"},
	{ErrDownloadFailed, "download_failed"},
	{ErrCheckFailed, "check_failed"},
	{ErrCancelFailed, "cancel_failed"},
	{ErrUnroutableNotification, "unroutable_notification"},
	{ErrInvalidLocale, "invalid_locale"},
	{ErrOrphanedMetadata, "orphaned_metadata"},
	{ErrValidation, "validation"},
	{ErrConfiguration, "configuration"},
	{ErrNotFound, "not_found"},
	{ErrConflict, "conflict"},
	{ErrTimeout, "timeout"},
	{ErrTransient, "transient"},
}

// Wrap builds an error message that includes component context while tagging it
// with the provided marker. The marker should be one of the exported sentinel
// errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns a stable snake_case label for the first marker found in err.
// Used as a metrics label and as the error_kind log field.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, m := range markers {
		if errors.Is(err, m.err) {
			return m.kind
		}
	}
	return "unknown"
}

// HTTPStatus maps an error to the status code the units API answers with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidLocale):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrOrphanedMetadata):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUploadFailed), errors.Is(err, ErrUpdateFailed),
		errors.Is(err, ErrTargetRequestFailed), errors.Is(err, ErrDownloadFailed),
		errors.Is(err, ErrCheckFailed), errors.Is(err, ErrCancelFailed):
		return http.StatusBadGateway
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
