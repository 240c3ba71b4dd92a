// Package apperrors implements the error taxonomy shared by every
// component boundary: errors are kinds, never exception types, and
// never propagate past a component edge un-coerced.
package apperrors

import (
	"fmt"
	"time"
)

// Kind is one of the fixed error kinds a component boundary may surface.
type Kind string

const (
	KindUnsupported      Kind = "unsupported"
	KindPasswordRequired Kind = "password_required"
	KindOCRUnavailable   Kind = "ocr_unavailable"
	KindExtractionFailed Kind = "extraction_failed"
	KindTimeout          Kind = "timeout"
	KindInvalidSchemaKey Kind = "invalid_schema_key"
	KindInternal         Kind = "internal"
)

// Error is the structured error value carried across every component
// boundary in place of a language-level exception.
type Error struct {
	Kind      Kind
	Message   string
	RunID     string
	Timestamp time.Time
	Details   map[string]interface{}
	Cause     error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New builds an Error of the given kind.
func New(kind Kind, message string, cause error) *Error {
	return &Error{
		Kind:      kind,
		Message:   message,
		Timestamp: time.Now().UTC(),
		Cause:     cause,
	}
}

// WithRun attaches the owning run_id, for errors surfaced mid-pipeline.
func (e *Error) WithRun(runID string) *Error {
	e.RunID = runID
	return e
}

// WithDetail attaches a single detail key, chainable.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ToMap flattens the error for logging or ledger storage.
func (e *Error) ToMap() map[string]interface{} {
	result := map[string]interface{}{
		"kind":      string(e.Kind),
		"message":   e.Message,
		"timestamp": e.Timestamp,
	}
	if e.RunID != "" {
		result["run_id"] = e.RunID
	}
	for k, v := range e.Details {
		result[k] = v
	}
	if e.Cause != nil {
		result["cause"] = e.Cause.Error()
	}
	return result
}

// Coerce wraps any error as an internal Error, unless it already is one.
// Every component boundary that cannot prove a narrower kind calls this
// before returning, so nothing escapes as a bare Go error.
func Coerce(err error) *Error {
	if err == nil {
		return nil
	}
	if ae, ok := err.(*Error); ok {
		return ae
	}
	return New(KindInternal, err.Error(), err)
}

func Unsupported(message string) *Error      { return New(KindUnsupported, message, nil) }
func PasswordRequired(message string) *Error  { return New(KindPasswordRequired, message, nil) }
func OCRUnavailable(message string) *Error    { return New(KindOCRUnavailable, message, nil) }
func Timeout(message string) *Error           { return New(KindTimeout, message, nil) }
func InvalidSchemaKey(key string) *Error {
	return New(KindInvalidSchemaKey, fmt.Sprintf("unknown schema key: %s", key), nil).WithDetail("schema_key", key)
}
func ExtractionFailed(message string, cause error) *Error {
	return New(KindExtractionFailed, message, cause)
}
func Internal(message string, cause error) *Error { return New(KindInternal, message, cause) }
