package channel

import (
	"fmt"

	"github.com/bft-labs/shmslot/pkg/log"
	"github.com/bft-labs/shmslot/pkg/record"
	"github.com/bft-labs/shmslot/pkg/segment"
)

// DefaultMaxTornRetries bounds how often Poll retries a torn copy before
// giving up until the next call.
const DefaultMaxTornRetries = 8

// MaxSequence is the largest logical sequence the 63-bit field can hold.
const MaxSequence = uint64(1)<<63 - 1

// Observer is notified of conditions that are not errors.
type Observer interface {
	// OnDroppedFrames is called when the sequence advanced by more than one
	// since the last consumed frame. n is the number of frames never seen.
	OnDroppedFrames(n uint64, f record.FrameDetections)

	// OnTornRead is called when a poll gave up after exhausting its retries.
	OnTornRead(retries int)
}

// Option configures a Writer or a Reader.
type Option func(*options)

type options struct {
	logger         log.Logger
	observer       Observer
	maxTornRetries int
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithObserver sets the reader's observer.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

// WithMaxTornRetries sets the reader's retry bound. Values below 1 mean 1.
func WithMaxTornRetries(n int) Option {
	return func(o *options) {
		o.maxTornRetries = n
	}
}

func buildOptions(opts []Option) options {
	o := options{maxTornRetries: DefaultMaxTornRetries}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = log.OrNoop(o.logger)
	if o.maxTornRetries < 1 {
		o.maxTornRetries = 1
	}
	return o
}

func checkRegion(region *segment.Region, layout record.Layout) error {
	if layout.Capacity < 0 {
		return fmt.Errorf("channel: negative capacity %d", layout.Capacity)
	}
	if region.Size() < layout.SlotSize() {
		return fmt.Errorf("%w: region is %d bytes, layout needs %d",
			segment.ErrSegmentSizeMismatch, region.Size(), layout.SlotSize())
	}
	return nil
}

func splitWord(word uint64) (seq uint64, active bool) {
	return word >> 1, word&1 == 1
}
