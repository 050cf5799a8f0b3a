// Package shmslot exchanges per-frame object detections between two processes
// through one shared-memory slot.
//
// Example usage:
//
//	cfg := shmslot.DefaultConfig()
//	err := shmslot.Run(ctx, cfg, func(f record.FrameDetections) error {
//	    fmt.Println(f)
//	    return nil
//	})
//
// The full API lives in pkg/shmslot.
package shmslot

import (
	"context"
	"errors"
	"io"

	"github.com/bft-labs/shmslot/pkg/record"
	lib "github.com/bft-labs/shmslot/pkg/shmslot"
)

// Config describes the channel. Use DefaultConfig() for sensible defaults.
type Config = lib.Config

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return lib.DefaultConfig()
}

// Run consumes the channel until the producer finishes, calling fn for every
// frame. The segment is removed once drained. It returns ctx.Err() when
// canceled and the first error from fn otherwise.
func Run(ctx context.Context, cfg Config, fn func(record.FrameDetections) error, opts ...lib.Option) (err error) {
	c, err := lib.OpenConsumer(ctx, cfg, opts...)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, c.Close()) }()

	for {
		f, err := c.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(f); err != nil {
			return err
		}
	}
}

// Publish writes frames to the channel in order and finishes the stream.
func Publish(cfg Config, frames []record.FrameDetections, opts ...lib.Option) (err error) {
	p, err := lib.OpenProducer(cfg, opts...)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, p.Close()) }()

	for _, f := range frames {
		if err := p.Publish(f); err != nil {
			return err
		}
	}
	return p.Finish()
}
