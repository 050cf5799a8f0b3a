package shmslot

import (
	"errors"

	"github.com/bft-labs/shmslot/internal/domain"
	"github.com/bft-labs/shmslot/pkg/channel"
	"github.com/bft-labs/shmslot/pkg/record"
	"github.com/bft-labs/shmslot/pkg/segment"
)

// ErrClosed is returned by operations on a closed Producer or Consumer.
var ErrClosed = errors.New("shmslot: closed")

// Errors from the underlying packages, re-exported for errors.Is checks.
var (
	ErrSegmentSizeMismatch = segment.ErrSegmentSizeMismatch
	ErrAttachFailed        = segment.ErrAttachFailed
	ErrSegmentNotFound     = segment.ErrSegmentNotFound
	ErrMalformedRecord     = record.ErrMalformedRecord
	ErrCapacityExceeded    = record.ErrCapacityExceeded
	ErrStaleChannel        = channel.ErrStaleChannel
	ErrFrameOrder          = channel.ErrFrameOrder
	ErrChannelFinished     = channel.ErrChannelFinished

	ErrAlreadyRunning  = domain.ErrAlreadyRunning
	ErrNotRunning      = domain.ErrNotRunning
	ErrShutdownTimeout = domain.ErrShutdownTimeout
	ErrInvalidConfig   = domain.ErrInvalidConfig
	ErrProducerTimeout = domain.ErrProducerTimeout
)
