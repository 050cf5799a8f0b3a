// Package monitor observes a channel without consuming from it.
package monitor

import (
	"errors"
	"fmt"
	"time"

	"github.com/bft-labs/shmslot/internal/domain"
	"github.com/bft-labs/shmslot/pkg/channel"
	"github.com/bft-labs/shmslot/pkg/record"
	"github.com/bft-labs/shmslot/pkg/segment"
	"github.com/bft-labs/shmslot/pkg/shmslot"
)

// Sample is one observation of a segment and its slot.
type Sample struct {
	Key      string `json:"key"`
	Backend  string `json:"backend"`
	Name     string `json:"name"`
	Size     int    `json:"size"`
	Capacity int    `json:"capacity"`
	// Attached is -1 when the backend cannot count mappings.
	Attached int `json:"attached"`

	Sequence     uint64           `json:"sequence"`
	WriterActive bool             `json:"writer_active"`
	Done         bool             `json:"done"`
	Frame        *domain.FrameDoc `json:"frame,omitempty"`

	// Err is set when the slot did not decode.
	Err string `json:"error,omitempty"`

	At time.Time `json:"at"`
}

// Probe samples a segment through a read-only mapping.
type Probe struct {
	mgr    segment.Manager
	handle segment.Handle
	region *segment.Region
	layout record.Layout
}

// OpenProbe attaches read-only to an existing segment. It never creates one.
func OpenProbe(cfg shmslot.Config, opts ...segment.Option) (*Probe, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mgr, err := cfg.NewManager(opts...)
	if err != nil {
		return nil, err
	}
	h, err := mgr.Open(cfg.Key())
	if err != nil {
		return nil, err
	}
	if h.Size != cfg.Layout().SlotSize() {
		return nil, &segment.Error{
			Op: "open", Key: h.Key, Backend: h.Backend, Name: h.Name,
			Err:  fmt.Errorf("%w: segment is %d bytes, want %d", segment.ErrSegmentSizeMismatch, h.Size, cfg.Layout().SlotSize()),
			Hint: "pass the producer's max detections",
		}
	}
	region, err := mgr.Attach(h, segment.ReadOnly)
	if err != nil {
		return nil, err
	}
	return &Probe{mgr: mgr, handle: h, region: region, layout: cfg.Layout()}, nil
}

// Sample reads the slot and the segment status.
func (p *Probe) Sample() (Sample, error) {
	info, err := p.mgr.Stat(p.handle)
	if err != nil && !errors.Is(err, segment.ErrSegmentNotFound) {
		return Sample{}, err
	}
	if err != nil {
		// Removed while mapped; the mapping stays readable.
		info = segment.Info{Key: p.handle.Key, Size: p.handle.Size, Backend: p.handle.Backend, Name: p.handle.Name, Attached: -1}
	}

	s := Sample{
		Key:      info.Key.String(),
		Backend:  string(info.Backend),
		Name:     info.Name,
		Size:     info.Size,
		Capacity: p.layout.Capacity,
		Attached: info.Attached,
		At:       time.Now(),
	}

	snap, err := channel.Inspect(p.region, p.layout)
	if errors.Is(err, record.ErrMalformedRecord) {
		s.Err = err.Error()
	} else if err != nil {
		return Sample{}, err
	}
	s.Sequence, s.WriterActive, s.Done = snap.Sequence, snap.WriterActive, snap.Done
	if snap.HasFrame {
		doc := domain.FromRecord(snap.Frame)
		s.Frame = &doc
	}
	return s, nil
}

// Handle returns the observed segment.
func (p *Probe) Handle() segment.Handle { return p.handle }

// Close detaches the mapping.
func (p *Probe) Close() error {
	return p.mgr.Detach(p.region)
}
