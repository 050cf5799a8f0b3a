package record

import (
	"fmt"
	"math"
)

// MaxDetections is the default number of detection slots per frame.
const MaxDetections = 50

// DetectionRecord is one bounding box in pixel units.
type DetectionRecord struct {
	// X and Y locate the top-left corner.
	X float32
	Y float32

	// Width and Height are never negative.
	Width  float32
	Height float32

	// Confidence is in [0, 1].
	Confidence float32
}

// Validate reports whether the detection satisfies the size and confidence bounds.
func (d DetectionRecord) Validate() error {
	if isNaN(d.X) || isNaN(d.Y) {
		return fmt.Errorf("%w: position is NaN", ErrInvalidDetection)
	}
	if !(d.Width >= 0) || !(d.Height >= 0) {
		return fmt.Errorf("%w: size %gx%g", ErrInvalidDetection, d.Width, d.Height)
	}
	if !(d.Confidence >= 0 && d.Confidence <= 1) {
		return fmt.Errorf("%w: confidence %g", ErrInvalidDetection, d.Confidence)
	}
	return nil
}

func isNaN(f float32) bool { return math.IsNaN(float64(f)) }

// FrameDetections holds the detections for exactly one video frame.
// The zero value is an empty frame 0 with capacity 0; use NewFrameDetections.
type FrameDetections struct {
	frameNumber int32
	capacity    int
	boxes       []DetectionRecord
}

// NewFrameDetections creates a frame with the given capacity and initial detections.
// Every detection is validated.
func NewFrameDetections(frameNumber int32, capacity int, dets ...DetectionRecord) (FrameDetections, error) {
	if capacity < 0 {
		return FrameDetections{}, fmt.Errorf("%w: negative capacity %d", ErrCapacityExceeded, capacity)
	}
	if len(dets) > capacity {
		return FrameDetections{}, fmt.Errorf("%w: %d detections, capacity %d", ErrCapacityExceeded, len(dets), capacity)
	}
	f := FrameDetections{
		frameNumber: frameNumber,
		capacity:    capacity,
		boxes:       make([]DetectionRecord, 0, len(dets)),
	}
	for _, d := range dets {
		if err := f.Append(d); err != nil {
			return FrameDetections{}, err
		}
	}
	return f, nil
}

// FrameNumber returns the frame number.
func (f FrameDetections) FrameNumber() int32 { return f.frameNumber }

// Len returns the number of valid detections.
func (f FrameDetections) Len() int { return len(f.boxes) }

// Cap returns the maximum number of detections the frame can hold.
func (f FrameDetections) Cap() int { return f.capacity }

// At returns the i-th detection. It panics if i is outside [0, Len()).
func (f FrameDetections) At(i int) DetectionRecord {
	if i < 0 || i >= len(f.boxes) {
		panic(fmt.Sprintf("record: index %d out of range [0:%d]", i, len(f.boxes)))
	}
	return f.boxes[i]
}

// Detections returns a copy of the valid detections.
func (f FrameDetections) Detections() []DetectionRecord {
	out := make([]DetectionRecord, len(f.boxes))
	copy(out, f.boxes)
	return out
}

// Append adds a detection. It fails when the frame is full or the detection is invalid.
func (f *FrameDetections) Append(d DetectionRecord) error {
	if len(f.boxes) >= f.capacity {
		return fmt.Errorf("%w: capacity %d", ErrCapacityExceeded, f.capacity)
	}
	if err := d.Validate(); err != nil {
		return err
	}
	f.boxes = append(f.boxes, d)
	return nil
}

// WithFrameNumber returns a copy of the frame renumbered to n.
func (f FrameDetections) WithFrameNumber(n int32) FrameDetections {
	return FrameDetections{
		frameNumber: n,
		capacity:    f.capacity,
		boxes:       f.Detections(),
	}
}

// Equal reports whether two frames have the same number and the same detections.
// Capacity is not compared.
func (f FrameDetections) Equal(o FrameDetections) bool {
	if f.frameNumber != o.frameNumber || len(f.boxes) != len(o.boxes) {
		return false
	}
	for i := range f.boxes {
		if f.boxes[i] != o.boxes[i] {
			return false
		}
	}
	return true
}

// String implements fmt.Stringer.
func (f FrameDetections) String() string {
	return fmt.Sprintf("frame %d (%d/%d detections)", f.frameNumber, len(f.boxes), f.capacity)
}
