package schema

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures.
type ErrorKind string

const (
	KindUnknown           ErrorKind = "unknown"
	KindDataUnavailable   ErrorKind = "data_unavailable"
	KindSchemaMismatch    ErrorKind = "schema_mismatch"
	KindRegionNotFound    ErrorKind = "region_not_found"
	KindEstimationFailure ErrorKind = "estimation_failure"
	KindRenderFailure     ErrorKind = "render_failure"
)

// sentinel errors usable with errors.Is against any *Error of the same kind
var (
	ErrDataUnavailable   = &Error{Kind: KindDataUnavailable}
	ErrSchemaMismatch    = &Error{Kind: KindSchemaMismatch}
	ErrRegionNotFound    = &Error{Kind: KindRegionNotFound}
	ErrEstimationFailure = &Error{Kind: KindEstimationFailure}
	ErrRenderFailure     = &Error{Kind: KindRenderFailure}
)

// Error is a classified failure raised by one operation.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Op, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind only.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// NewError returns a classified error. A nil cause is allowed.
func NewError(kind ErrorKind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the first classified error in the chain.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
