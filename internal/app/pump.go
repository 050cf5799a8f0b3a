package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bft-labs/shmslot/internal/ports"
	"github.com/bft-labs/shmslot/pkg/log"
)

// ProduceConfig controls Produce.
type ProduceConfig struct {
	// Capacity is the channel's detections per frame; longer frames are cut.
	Capacity int
	// Interval paces publishing. Zero publishes as fast as the source yields.
	Interval time.Duration
	// Finish signals the end of the stream once the source is exhausted.
	Finish bool
}

// ProduceResult summarises a Produce run.
type ProduceResult struct {
	Published int
	Truncated int
	LastFrame int32
	Finished  bool
}

// Produce copies documents from src to pub. Documents without a frame number
// are numbered after the previous one, starting at 1.
func Produce(ctx context.Context, cfg ProduceConfig, src ports.Source, pub ports.FramePublisher, logger log.Logger) (ProduceResult, error) {
	logger = log.OrNoop(logger)
	var res ProduceResult

	var tick <-chan time.Time
	if cfg.Interval > 0 {
		t := time.NewTicker(cfg.Interval)
		defer t.Stop()
		tick = t.C
	}

	for {
		doc, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("read source: %w", err)
		}
		if doc.Done {
			break
		}

		n := res.LastFrame + 1
		if doc.Frame != nil {
			n = *doc.Frame
		}
		f, truncated, err := doc.ToRecord(n, cfg.Capacity)
		if err != nil {
			return res, fmt.Errorf("frame %d: %w", n, err)
		}
		if truncated > 0 {
			res.Truncated += truncated
			logger.Warn("detections truncated to capacity",
				log.Int32("frame", n),
				log.Int("dropped", truncated),
				log.Int("capacity", cfg.Capacity),
			)
		}

		if tick != nil && res.Published > 0 {
			select {
			case <-ctx.Done():
				return res, ctx.Err()
			case <-tick:
			}
		}
		if err := pub.Publish(f); err != nil {
			return res, fmt.Errorf("publish frame %d: %w", n, err)
		}
		res.Published++
		res.LastFrame = n
		logger.Debug("published", log.Int32("frame", n), log.Int("detections", f.Len()))
	}

	if cfg.Finish {
		if err := pub.Finish(); err != nil {
			return res, fmt.Errorf("finish: %w", err)
		}
		res.Finished = true
	}
	return res, nil
}

// Drain copies frames from stream to every sink until the stream ends.
// It returns the number of frames delivered. Sinks that implement
// ports.Finisher are finished only when the stream ended with io.EOF.
func Drain(ctx context.Context, stream ports.FrameStream, sinks []ports.Sink, logger log.Logger) (int, error) {
	logger = log.OrNoop(logger)
	count := 0
	for {
		f, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			logger.Info("stream drained", log.Int("frames", count))
			return count, finishSinks(sinks)
		}
		if err != nil {
			return count, err
		}
		count++
		for _, s := range sinks {
			if err := s.Write(ctx, f); err != nil {
				return count, fmt.Errorf("sink: frame %d: %w", f.FrameNumber(), err)
			}
		}
	}
}

func finishSinks(sinks []ports.Sink) error {
	var errs []error
	for _, s := range sinks {
		if f, ok := s.(ports.Finisher); ok {
			if err := f.Finish(); err != nil {
				errs = append(errs, fmt.Errorf("sink: finish: %w", err))
			}
		}
	}
	return errors.Join(errs...)
}
