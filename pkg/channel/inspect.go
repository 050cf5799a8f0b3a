package channel

import (
	"github.com/bft-labs/shmslot/pkg/record"
	"github.com/bft-labs/shmslot/pkg/segment"
)

// Snapshot is a non-consuming view of the slot.
type Snapshot struct {
	Sequence     uint64
	WriterActive bool
	Done         bool
	// Frame is valid when HasFrame is true.
	Frame    record.FrameDetections
	HasFrame bool
}

// Inspect reads the slot without affecting any reader. It returns
// record.ErrMalformedRecord when a stable copy does not decode.
func Inspect(region *segment.Region, layout record.Layout) (Snapshot, error) {
	if err := checkRegion(region, layout); err != nil {
		return Snapshot{}, err
	}
	buf := make([]byte, layout.PayloadSize())
	seqOff := layout.SequenceOffset()

	var snap Snapshot
	for attempt := 0; attempt < DefaultMaxTornRetries; attempt++ {
		word := region.LoadUint64(seqOff)
		snap.Sequence, snap.WriterActive = splitWord(word)
		snap.Done = region.LoadUint32(layout.DoneOffset()) == 1
		if snap.WriterActive {
			continue
		}
		if snap.Sequence == 0 {
			return snap, nil
		}
		region.ReadAt(buf, 0)
		if region.LoadUint64(seqOff) != word {
			continue
		}
		f, err := layout.Decode(buf)
		if err != nil {
			return snap, err
		}
		snap.Frame, snap.HasFrame = f, true
		return snap, nil
	}
	return snap, nil
}
