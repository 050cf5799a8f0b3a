package domain

import "errors"

// Lifecycle errors returned by the public API. Check them with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("shmslot: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("shmslot: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("shmslot: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("shmslot: invalid configuration")

	// ErrProducerTimeout is returned when a consumer gives up waiting for the
	// producer to create the segment.
	ErrProducerTimeout = errors.New("shmslot: producer did not appear")
)
