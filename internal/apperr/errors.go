package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by resolution when no OCR-able resource exists on a page.
	// It is informational, not a failure.
	ErrNotFound = errors.New("no OCR-able resource found")
	// ErrEntryNotFound is returned when a command names an unknown digest.
	ErrEntryNotFound = errors.New("entry not found")
)

// ConfigurationError reports a missing or invalid setting. It is never retried.
type ConfigurationError struct {
	Setting string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error (%s): %s", e.Setting, e.Message)
}

// FetchError reports that a resource could not be downloaded with or without credentials.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s failed: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s failed: HTTP %d", e.URL, e.Status)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// BackendError reports a non-2xx response from the OCR backend.
type BackendError struct {
	Op     string
	Status int
	Body   string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("OCR backend %s failed (status %d): %s", e.Op, e.Status, e.Body)
}

// ProtocolError reports a backend response missing a required field.
type ProtocolError struct {
	Op    string
	Field string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("OCR backend %s response missing %q", e.Op, e.Field)
}

// IsConfiguration reports whether err is a ConfigurationError.
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsBackend reports whether err came from the OCR backend.
func IsBackend(err error) bool {
	var be *BackendError
	var pe *ProtocolError
	return errors.As(err, &be) || errors.As(err, &pe)
}
