package ports

import (
	"context"

	"github.com/bft-labs/shmslot/internal/domain"
)

// Source yields frame documents in order.
type Source interface {
	// Next returns the next document. It returns io.EOF when the input is
	// exhausted; a document with Done set also ends the stream.
	Next(ctx context.Context) (domain.FrameDoc, error)

	// Close releases the underlying input.
	Close() error
}
