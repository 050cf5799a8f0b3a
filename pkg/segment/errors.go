package segment

import (
	"errors"
	"fmt"
)

var (
	// ErrSegmentSizeMismatch means a segment exists under the key with a
	// different size. Usually producer and consumer disagree on capacity, or
	// a stale segment from an older build is still around.
	ErrSegmentSizeMismatch = errors.New("segment: size mismatch")

	// ErrAttachFailed means the OS refused to create or map the segment.
	ErrAttachFailed = errors.New("segment: attach failed")

	// ErrSegmentNotFound means no segment exists under the key.
	ErrSegmentNotFound = errors.New("segment: not found")

	// ErrBackendUnsupported means the backend is unknown or not available on
	// this platform.
	ErrBackendUnsupported = errors.New("segment: backend unsupported")
)

// Error describes a failed segment operation and how to recover from it.
type Error struct {
	Op      string
	Key     Key
	Backend Backend
	// Name is the OS-level identifier: a shmid, a file path or a registry name.
	Name string
	Err  error
	// Hint tells the operator how to clear the condition, if anything helps.
	Hint string
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("segment %s %s key %s", e.Op, e.Backend, e.Key)
	if e.Name != "" {
		msg += " (" + e.Name + ")"
	}
	msg += ": " + e.Err.Error()
	if e.Hint != "" {
		msg += "; " + e.Hint
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func wrapErr(op string, h Handle, hint string, err error) error {
	return &Error{Op: op, Key: h.Key, Backend: h.Backend, Name: h.Name, Err: err, Hint: hint}
}
