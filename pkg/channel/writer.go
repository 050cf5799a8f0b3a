package channel

import (
	"errors"
	"fmt"

	"github.com/bft-labs/shmslot/pkg/log"
	"github.com/bft-labs/shmslot/pkg/record"
	"github.com/bft-labs/shmslot/pkg/segment"
)

// Writer is the producer end of the slot. It is not safe for concurrent use;
// the protocol admits a single writer.
type Writer struct {
	region *segment.Region
	layout record.Layout
	buf    []byte
	logger log.Logger

	seq       uint64
	lastFrame int32
	hasFrame  bool
	finished  bool
	published uint64
}

// WriterStats is a snapshot of a writer's counters.
type WriterStats struct {
	Sequence  uint64
	LastFrame int32
	Published uint64
	Finished  bool
}

// NewWriter wraps a read-write region. It resumes from the sequence and done
// flag currently in the slot; call Reset to start a fresh stream.
func NewWriter(region *segment.Region, layout record.Layout, opts ...Option) (*Writer, error) {
	if region.Access() != segment.ReadWrite {
		return nil, errors.New("channel: writer needs a read-write region")
	}
	if err := checkRegion(region, layout); err != nil {
		return nil, err
	}
	o := buildOptions(opts)

	seq, _ := splitWord(region.LoadUint64(layout.SequenceOffset()))
	return &Writer{
		region:   region,
		layout:   layout,
		buf:      make([]byte, layout.PayloadSize()),
		logger:   o.logger,
		seq:      seq,
		finished: region.LoadUint32(layout.DoneOffset()) == 1,
	}, nil
}

// Reset clears the payload, the sequence and the done flag.
func (w *Writer) Reset() {
	w.region.StoreUint64(w.layout.SequenceOffset(), 1)
	w.region.Zero(0, w.layout.PayloadSize())
	w.region.StoreUint32(w.layout.DoneOffset(), 0)
	w.region.StoreUint64(w.layout.SequenceOffset(), 0)

	w.seq = 0
	w.hasFrame = false
	w.lastFrame = 0
	w.finished = false
	w.published = 0
	w.logger.Debug("slot reset")
}

// Publish makes f the current frame. Frame numbers start at 1 and must
// strictly increase.
func (w *Writer) Publish(f record.FrameDetections) error {
	if w.finished {
		return ErrChannelFinished
	}
	if f.FrameNumber() < 1 {
		return fmt.Errorf("%w: frame %d, numbering starts at 1", ErrFrameOrder, f.FrameNumber())
	}
	if w.hasFrame && f.FrameNumber() <= w.lastFrame {
		return fmt.Errorf("%w: frame %d after %d", ErrFrameOrder, f.FrameNumber(), w.lastFrame)
	}
	if w.seq >= MaxSequence {
		return ErrSequenceExhausted
	}
	if err := w.layout.EncodeTo(w.buf, f); err != nil {
		return err
	}

	w.begin()
	w.region.WriteAt(w.buf, 0)
	w.commit()

	w.lastFrame = f.FrameNumber()
	w.hasFrame = true
	w.published++
	return nil
}

// begin marks the writer active at the current sequence.
func (w *Writer) begin() {
	w.region.StoreUint64(w.layout.SequenceOffset(), w.seq<<1|1)
}

// commit publishes the next sequence with the active bit cleared.
func (w *Writer) commit() {
	w.seq++
	w.region.StoreUint64(w.layout.SequenceOffset(), w.seq<<1)
}

// Finish signals that no more frames will be published. It is idempotent.
func (w *Writer) Finish() error {
	if w.finished {
		return nil
	}
	// done is stored after the last sequence store.
	w.region.StoreUint32(w.layout.DoneOffset(), 1)
	w.finished = true
	w.logger.Info("stream finished", log.Uint64("sequence", w.seq), log.Uint64("published", w.published))
	return nil
}

// Stats returns the writer's counters.
func (w *Writer) Stats() WriterStats {
	return WriterStats{
		Sequence:  w.seq,
		LastFrame: w.lastFrame,
		Published: w.published,
		Finished:  w.finished,
	}
}
