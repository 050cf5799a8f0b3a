package channel

import (
	"fmt"
	"runtime"

	"github.com/bft-labs/shmslot/pkg/log"
	"github.com/bft-labs/shmslot/pkg/record"
	"github.com/bft-labs/shmslot/pkg/segment"
)

// Stats is a snapshot of a reader's counters.
type Stats struct {
	// LastSequence is the sequence of the last consumed frame, 0 before any.
	LastSequence uint64
	// LastFrame is the frame number of the last consumed frame.
	LastFrame int32
	Consumed  uint64
	Dropped   uint64
	// TornRetries counts discarded copies, including those taken while the
	// writer was active.
	TornRetries uint64
	// TornGiveUps counts polls that exhausted their retries.
	TornGiveUps uint64
}

// Reader is the consumer end of the slot. It never writes to the region and
// is not safe for concurrent use.
type Reader struct {
	region   *segment.Region
	layout   record.Layout
	buf      []byte
	logger   log.Logger
	observer Observer
	maxTorn  int

	stats    Stats
	hasFrame bool

	// afterCopy runs between the payload copy and the sequence re-check.
	afterCopy func()
}

// NewReader wraps a region, typically attached read-only.
func NewReader(region *segment.Region, layout record.Layout, opts ...Option) (*Reader, error) {
	if err := checkRegion(region, layout); err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	return &Reader{
		region:   region,
		layout:   layout,
		buf:      make([]byte, layout.PayloadSize()),
		logger:   o.logger,
		observer: o.observer,
		maxTorn:  o.maxTornRetries,
	}, nil
}

// Poll returns the current frame if it has not been consumed yet. It returns
// ok=false when nothing new is available, including when every copy attempt
// was torn. ErrStaleChannel and record.ErrMalformedRecord are fatal.
func (r *Reader) Poll() (record.FrameDetections, bool, error) {
	seqOff := r.layout.SequenceOffset()

	for attempt := 0; attempt < r.maxTorn; attempt++ {
		word := r.region.LoadUint64(seqOff)
		seq, active := splitWord(word)
		if active {
			r.stats.TornRetries++
			runtime.Gosched()
			continue
		}
		if seq == r.stats.LastSequence {
			return record.FrameDetections{}, false, nil
		}
		if seq < r.stats.LastSequence {
			return record.FrameDetections{}, false, fmt.Errorf("%w: sequence %d after %d",
				ErrStaleChannel, seq, r.stats.LastSequence)
		}

		r.region.ReadAt(r.buf, 0)
		if r.afterCopy != nil {
			r.afterCopy()
		}
		if r.region.LoadUint64(seqOff) != word {
			r.stats.TornRetries++
			continue
		}

		f, err := r.layout.Decode(r.buf)
		if err != nil {
			return record.FrameDetections{}, false, fmt.Errorf("sequence %d: %w", seq, err)
		}
		if r.hasFrame && f.FrameNumber() <= r.stats.LastFrame {
			return record.FrameDetections{}, false, fmt.Errorf("%w: frame %d after %d",
				ErrStaleChannel, f.FrameNumber(), r.stats.LastFrame)
		}

		gap := seq - r.stats.LastSequence - 1
		r.stats.LastSequence = seq
		r.stats.LastFrame = f.FrameNumber()
		r.stats.Consumed++
		r.hasFrame = true
		if gap > 0 {
			r.stats.Dropped += gap
			r.logger.Warn("dropped frames", log.Uint64("dropped", gap), log.Int32("frame", f.FrameNumber()))
			if r.observer != nil {
				r.observer.OnDroppedFrames(gap, f)
			}
		}
		return f, true, nil
	}

	r.stats.TornGiveUps++
	r.logger.Debug("torn read retries exhausted", log.Int("retries", r.maxTorn))
	if r.observer != nil {
		r.observer.OnTornRead(r.maxTorn)
	}
	return record.FrameDetections{}, false, nil
}

// Closed reports whether the producer finished and every published frame up
// to the final one has been consumed.
func (r *Reader) Closed() bool {
	// done first: it is stored after the final sequence.
	done := r.region.LoadUint32(r.layout.DoneOffset()) == 1
	if !done {
		return false
	}
	seq, active := splitWord(r.region.LoadUint64(r.layout.SequenceOffset()))
	return !active && seq == r.stats.LastSequence
}

// Stats returns the reader's counters.
func (r *Reader) Stats() Stats {
	return r.stats
}
