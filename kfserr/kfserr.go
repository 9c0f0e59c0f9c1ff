// Package kfserr defines the error kinds that cross KFS's public API.
package kfserr

import "fmt"

type errorType string

func (e errorType) Error() string {
	return string(e)
}

const (
	// ErrBadKey is returned when a caller-supplied key is not 20 raw bytes
	// or 40 lowercase hex characters.
	ErrBadKey = errorType("kfs: bad key")
	// ErrNotFound is returned when a blob is absent for a read or stat(K).
	ErrNotFound = errorType("kfs: not found")
	// ErrNoSpace is returned when admission fails or a shard's S_max is
	// exceeded mid-stream.
	ErrNoSpace = errorType("kfs: no space left in shard")
	// ErrCancelled is returned when a caller aborts a stream.
	ErrCancelled = errorType("kfs: stream cancelled")
)

// IOError wraps an underlying engine or filesystem failure. It is always
// constructed via Wrap so that errors.Is(err, ErrIOError) still works.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("kfs: io error: %s", e.Err)
	}
	return fmt.Sprintf("kfs: io error during %s: %s", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Is reports whether target is the ErrIOError sentinel, so callers can write
// errors.Is(err, kfserr.ErrIOError) without caring about the wrapped cause.
func (e *IOError) Is(target error) bool {
	_, ok := target.(*IOError)
	return ok
}

// ErrIOError is the sentinel matched by IOError.Is. It carries no message of
// its own; use errors.Is(err, ErrIOError) to detect an I/O failure regardless
// of its wrapped cause.
var ErrIOError = &IOError{}

// Wrap produces an *IOError tagging err with the operation that failed.
// Wrap(nil, op) returns nil, so it is safe to call unconditionally:
//
//	if err := engine.Put(k, v); err != nil {
//		return kfserr.Wrap(err, "put")
//	}
func Wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	return &IOError{Op: op, Err: err}
}

// Corrupt reports a chunk-gap violation (invariant I1) detected during a
// read. It surfaces to callers as an *IOError per §7.
func Corrupt(baseKey string, wantIndex, gotIndex uint32) error {
	return Wrap(fmt.Errorf("corrupt blob %s: expected chunk %06d, found %06d", baseKey, wantIndex, gotIndex), "read")
}
