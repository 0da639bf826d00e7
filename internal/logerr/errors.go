// Package logerr defines the error kinds surfaced by the log entries service.
package logerr

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	ErrStoreUnavailable           = errors.New("store unavailable")
	ErrInvalidWindow              = errors.New("invalid window")
	ErrSourceConfigurationMissing = errors.New("source configuration missing")
	ErrDocumentNotFound           = errors.New("document not found")
)

// Error attaches a kind and the failing operation to an underlying error.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// StoreUnavailable wraps a failed store call. Errors that already carry a kind
// and context cancellations are returned unchanged.
func StoreUnavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrDocumentNotFound) ||
		errors.Is(err, ErrInvalidWindow) || errors.Is(err, ErrSourceConfigurationMissing) {
		return err
	}
	return &Error{Kind: ErrStoreUnavailable, Op: op, Err: err}
}

// InvalidWindow reports a caller contract violation.
func InvalidWindow(op, format string, args ...any) error {
	return &Error{Kind: ErrInvalidWindow, Op: op, Err: fmt.Errorf(format, args...)}
}

// SourceConfigurationMissing reports an unknown source id.
func SourceConfigurationMissing(op, sourceID string) error {
	return &Error{Kind: ErrSourceConfigurationMissing, Op: op, Err: fmt.Errorf("source %q", sourceID)}
}

// DocumentNotFound reports an unknown document id.
func DocumentNotFound(op, id string) error {
	return &Error{Kind: ErrDocumentNotFound, Op: op, Err: fmt.Errorf("document %q", id)}
}
