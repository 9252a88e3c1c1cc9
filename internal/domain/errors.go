package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrSchemaMismatch  = errors.New("schema mismatch")
	ErrMalformedSource = errors.New("malformed source")
)

// MalformedSourceError reports a top-level input that is not the expected container.
type MalformedSourceError struct {
	Kind   SourceKind
	Reason string
	Err    error
}

func (e *MalformedSourceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed %s source: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed %s source: %s", e.Kind, e.Reason)
}

func (e *MalformedSourceError) Is(target error) bool { return target == ErrMalformedSource }

func (e *MalformedSourceError) Unwrap() error { return e.Err }

// IsNoData reports whether err means "nothing usable persisted yet".
func IsNoData(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrSchemaMismatch)
}
