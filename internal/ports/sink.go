package ports

import (
	"context"

	"github.com/bft-labs/shmslot/pkg/record"
)

// Sink receives consumed frames.
type Sink interface {
	Write(ctx context.Context, f record.FrameDetections) error

	// Close flushes and releases the sink.
	Close() error
}

// Finisher is implemented by sinks that mark the end of a stream, such as a
// terminator line. Finish is called only when the stream was drained, never
// for an interrupted run.
type Finisher interface {
	Finish() error
}
