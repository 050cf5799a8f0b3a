package shmslot

import (
	"github.com/bft-labs/shmslot/pkg/channel"
	"github.com/bft-labs/shmslot/pkg/log"
	"github.com/bft-labs/shmslot/pkg/record"
	"github.com/bft-labs/shmslot/pkg/segment"
)

// Producer is the writing side of a channel. It is not safe for concurrent
// use; a channel has exactly one producer.
type Producer struct {
	cfg    Config
	mgr    segment.Manager
	handle segment.Handle
	region *segment.Region
	writer *channel.Writer
	logger log.Logger
	closed bool
}

// OpenProducer creates or opens the segment, attaches it read-write and
// resets the slot. On failure nothing stays attached.
func OpenProducer(cfg Config, opts ...Option) (*Producer, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := buildOptions(opts)

	layout := cfg.Layout()
	key := cfg.Key()
	logger := log.With(o.logger, log.String("role", "producer"), log.Stringer("key", key))

	mgr := o.manager
	if mgr == nil {
		var err error
		if mgr, err = cfg.NewManager(segment.WithLogger(logger)); err != nil {
			return nil, err
		}
	}

	h, err := mgr.CreateOrOpen(key, layout.SlotSize())
	if err != nil {
		return nil, err
	}
	region, err := mgr.Attach(h, segment.ReadWrite)
	if err != nil {
		return nil, err
	}
	w, err := channel.NewWriter(region, layout, channel.WithLogger(logger))
	if err != nil {
		_ = mgr.Detach(region)
		return nil, err
	}
	w.Reset()

	logger.Info("producer attached",
		log.String("backend", string(h.Backend)),
		log.String("name", h.Name),
		log.Int("size", h.Size),
		log.Int("capacity", layout.Capacity),
	)
	return &Producer{
		cfg:    cfg,
		mgr:    mgr,
		handle: h,
		region: region,
		writer: w,
		logger: logger,
	}, nil
}

// Publish makes f the current frame. Frame numbers must strictly increase and
// f must fit MaxDetections.
func (p *Producer) Publish(f record.FrameDetections) error {
	if p.closed {
		return ErrClosed
	}
	return p.writer.Publish(f)
}

// Finish tells the consumer no more frames follow.
func (p *Producer) Finish() error {
	if p.closed {
		return ErrClosed
	}
	return p.writer.Finish()
}

// Close detaches from the segment without destroying it, so a consumer can
// still drain the last frame. It is idempotent.
func (p *Producer) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	st := p.writer.Stats()
	err := p.mgr.Detach(p.region)
	p.logger.Info("producer detached",
		log.Uint64("published", st.Published),
		log.Bool("finished", st.Finished),
	)
	return err
}

// Stats returns the writer counters.
func (p *Producer) Stats() channel.WriterStats {
	return p.writer.Stats()
}

// Key returns the segment key.
func (p *Producer) Key() segment.Key { return p.handle.Key }

// Handle returns the segment handle.
func (p *Producer) Handle() segment.Handle { return p.handle }

// Closed reports whether Close was called.
func (p *Producer) Closed() bool { return p.closed }
