package shmslot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bft-labs/shmslot/internal/app"
	"github.com/bft-labs/shmslot/internal/domain"
	"github.com/bft-labs/shmslot/pkg/channel"
	"github.com/bft-labs/shmslot/pkg/log"
	"github.com/bft-labs/shmslot/pkg/record"
	"github.com/bft-labs/shmslot/pkg/segment"
	"github.com/bft-labs/shmslot/pkg/state"
)

// Consumer is the reading side of a channel. It maps the segment read-only
// and has no way to modify the slot. It is not safe for concurrent use.
type Consumer struct {
	cfg     Config
	mgr     segment.Manager
	handle  segment.Handle
	region  *segment.Region
	reader  *channel.Reader
	logger  log.Logger
	handler EventHandler

	repo    state.Repository
	report  state.State
	closed  bool
	drained bool
}

// OpenConsumer attaches to the channel read-only. With cfg.OpenTimeout set it
// waits for the producer to create the segment; otherwise it creates the
// segment itself so either side may start first.
func OpenConsumer(ctx context.Context, cfg Config, opts ...Option) (*Consumer, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := buildOptions(opts)

	layout := cfg.Layout()
	key := cfg.Key()
	logger := log.With(o.logger, log.String("role", "consumer"), log.Stringer("key", key))

	mgr := o.manager
	if mgr == nil {
		var err error
		if mgr, err = cfg.NewManager(segment.WithLogger(logger)); err != nil {
			return nil, err
		}
	}

	c := &Consumer{
		cfg:     cfg,
		mgr:     mgr,
		logger:  logger,
		handler: o.eventHandler,
		repo:    o.stateRepo,
	}
	if c.repo == nil && cfg.StateDir != "" {
		c.repo = state.NewFileRepository(cfg.StateDir)
	}

	h, err := c.acquire(ctx, key, layout.SlotSize())
	if err != nil {
		return nil, err
	}
	region, err := mgr.Attach(h, segment.ReadOnly)
	if err != nil {
		return nil, err
	}
	reader, err := channel.NewReader(region, layout,
		channel.WithLogger(logger),
		channel.WithObserver(readerObserver{c}),
		channel.WithMaxTornRetries(cfg.MaxTornRetries),
	)
	if err != nil {
		_ = mgr.Detach(region)
		return nil, err
	}
	c.handle, c.region, c.reader = h, region, reader

	c.report.Begin(key.String(), string(h.Backend))
	c.saveReport(ctx)

	logger.Info("consumer attached",
		log.String("backend", string(h.Backend)),
		log.String("name", h.Name),
		log.Int("size", h.Size),
		log.Int("capacity", layout.Capacity),
	)
	return c, nil
}

func (c *Consumer) acquire(ctx context.Context, key segment.Key, size int) (segment.Handle, error) {
	if c.cfg.OpenTimeout <= 0 {
		return c.mgr.CreateOrOpen(key, size)
	}

	waitCtx, cancel := context.WithTimeout(ctx, c.cfg.OpenTimeout)
	defer cancel()

	var h segment.Handle
	b := app.NewBackoff(app.DefaultBackoffInitial, app.DefaultBackoffMax)
	err := app.Retry(waitCtx, b, func() (bool, error) {
		var err error
		h, err = c.mgr.Open(key)
		if errors.Is(err, segment.ErrSegmentNotFound) {
			c.logger.Debug("waiting for producer", log.Duration("next", b.Current()))
			return false, nil
		}
		return err == nil, err
	})
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return segment.Handle{}, fmt.Errorf("%w: key %s after %s", domain.ErrProducerTimeout, key, c.cfg.OpenTimeout)
	}
	if err != nil {
		return segment.Handle{}, err
	}
	if h.Size != size {
		return segment.Handle{}, &segment.Error{
			Op: "open", Key: key, Backend: h.Backend, Name: h.Name,
			Err:  fmt.Errorf("%w: segment is %d bytes, want %d", segment.ErrSegmentSizeMismatch, h.Size, size),
			Hint: "producer and consumer must use the same max detections",
		}
	}
	return h, nil
}

// Poll returns the newest frame if it was not seen before. ok is false when
// there is nothing new. ErrStaleChannel and ErrMalformedRecord are fatal.
func (c *Consumer) Poll() (record.FrameDetections, bool, error) {
	if c.closed {
		return record.FrameDetections{}, false, ErrClosed
	}
	f, ok, err := c.reader.Poll()
	if err != nil {
		c.logger.Error("poll failed", log.Err(err))
		return f, false, err
	}
	if ok && c.handler != nil {
		c.handler.OnFrame(FrameEvent{Frame: f, Sequence: c.reader.Stats().LastSequence})
	}
	return f, ok, nil
}

// Closed reports whether the producer finished and the final frame was
// consumed. After Close it reports what was seen at detach time.
func (c *Consumer) Closed() bool {
	if c.closed {
		return c.drained
	}
	return c.reader.Closed()
}

// Next waits for the next frame, polling every PollInterval. It returns
// io.EOF once the stream is closed.
func (c *Consumer) Next(ctx context.Context) (record.FrameDetections, error) {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		f, ok, err := c.Poll()
		if err != nil {
			return record.FrameDetections{}, err
		}
		if ok {
			return f, nil
		}
		if c.reader.Closed() {
			return record.FrameDetections{}, io.EOF
		}

		if timer == nil {
			timer = time.NewTimer(c.cfg.PollInterval)
		} else {
			timer.Reset(c.cfg.PollInterval)
		}
		select {
		case <-ctx.Done():
			return record.FrameDetections{}, ctx.Err()
		case <-timer.C:
		}
	}
}

// Stats returns the reader counters.
func (c *Consumer) Stats() channel.Stats {
	return c.reader.Stats()
}

// Key returns the segment key.
func (c *Consumer) Key() segment.Key { return c.handle.Key }

// Handle returns the segment handle.
func (c *Consumer) Handle() segment.Handle { return c.handle }

// Close detaches. If the stream was fully drained the segment is destroyed
// as well, so the next run starts clean. It is idempotent.
func (c *Consumer) Close() error {
	if c.closed {
		return nil
	}
	drained := c.reader.Closed()
	return c.shutdown(drained)
}

// Destroy detaches and removes the segment regardless of its state.
// A producer still attached keeps writing to memory nobody will read.
func (c *Consumer) Destroy() error {
	if c.closed {
		return ErrClosed
	}
	return c.shutdown(true)
}

func (c *Consumer) shutdown(destroy bool) error {
	drained := c.reader.Closed()
	c.closed, c.drained = true, drained
	st := c.reader.Stats()

	err := c.mgr.Detach(c.region)
	destroyed := false
	if destroy {
		derr := c.mgr.Destroy(c.handle)
		switch {
		case derr == nil:
			destroyed = true
		case errors.Is(derr, segment.ErrSegmentNotFound):
		default:
			err = errors.Join(err, derr)
		}
	}

	c.report.UpdateProgress(progress(st))
	if drained {
		c.report.MarkDrained(destroyed)
	}
	c.saveReport(context.Background())

	c.logger.Info("consumer detached",
		log.Uint64("consumed", st.Consumed),
		log.Uint64("dropped", st.Dropped),
		log.Uint64("torn_retries", st.TornRetries),
		log.Bool("drained", drained),
		log.Bool("destroyed", destroyed),
	)
	return err
}

// Report returns the current drain report.
func (c *Consumer) Report() state.State {
	r := c.report
	if !c.closed {
		r.UpdateProgress(progress(c.reader.Stats()))
	}
	return r
}

func (c *Consumer) saveReport(ctx context.Context) {
	if c.repo == nil {
		return
	}
	if err := c.repo.Save(ctx, c.report); err != nil {
		c.logger.Warn("failed to save drain report", log.Err(err))
	}
}

func progress(st channel.Stats) state.Progress {
	return state.Progress{
		LastSequence: st.LastSequence,
		LastFrame:    st.LastFrame,
		Consumed:     st.Consumed,
		Dropped:      st.Dropped,
		TornRetries:  st.TornRetries,
	}
}

// readerObserver forwards channel notifications to the event handler.
type readerObserver struct {
	c *Consumer
}

func (o readerObserver) OnDroppedFrames(n uint64, f record.FrameDetections) {
	if o.c.handler == nil {
		return
	}
	o.c.handler.OnDroppedFrames(DroppedFramesEvent{
		Count: n,
		Total: o.c.reader.Stats().Dropped,
		Frame: f.FrameNumber(),
	})
}

func (o readerObserver) OnTornRead(retries int) {
	if o.c.handler == nil {
		return
	}
	o.c.handler.OnTornRead(TornReadEvent{Retries: retries, GiveUps: o.c.reader.Stats().TornGiveUps})
}
