package record

import "errors"

var (
	// ErrMalformedRecord is returned by Decode when the encoded detection count
	// is negative or exceeds the layout capacity, or the buffer is too short.
	// It indicates memory corruption or a protocol violation.
	ErrMalformedRecord = errors.New("record: malformed record")

	// ErrCapacityExceeded is returned when a frame would hold more detections
	// than its capacity allows.
	ErrCapacityExceeded = errors.New("record: capacity exceeded")

	// ErrInvalidDetection is returned when a detection has a negative size or a
	// confidence outside [0, 1].
	ErrInvalidDetection = errors.New("record: invalid detection")
)
