package ports

import (
	"context"

	"github.com/bft-labs/shmslot/pkg/record"
)

// FramePublisher is the producer end of a channel.
type FramePublisher interface {
	Publish(f record.FrameDetections) error
	Finish() error
}

// FrameStream is the consumer end of a channel.
type FrameStream interface {
	// Next blocks until a new frame arrives. It returns io.EOF once the
	// producer finished and every frame was consumed.
	Next(ctx context.Context) (record.FrameDetections, error)
}
