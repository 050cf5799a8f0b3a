package record

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	headerSize    = 8
	detectionSize = 20
)

// Layout describes the fixed byte layout of a channel slot for a given capacity.
// Producer and consumer must use the same capacity; the slot size differs otherwise.
type Layout struct {
	Capacity int
}

// DefaultLayout returns the layout for MaxDetections slots.
func DefaultLayout() Layout {
	return Layout{Capacity: MaxDetections}
}

// PayloadSize is the encoded size of one frame.
func (l Layout) PayloadSize() int {
	return headerSize + detectionSize*l.Capacity
}

// SequenceOffset is the 8-byte aligned offset of the sequence word.
func (l Layout) SequenceOffset() int {
	return align8(l.PayloadSize())
}

// DoneOffset is the offset of the 32-bit done word.
func (l Layout) DoneOffset() int {
	return l.SequenceOffset() + 8
}

// SlotSize is the total size of the shared slot, padded to 8 bytes.
func (l Layout) SlotSize() int {
	return align8(l.DoneOffset() + 4)
}

func align8(n int) int {
	return (n + 7) &^ 7
}

// Encode returns the fixed-size encoding of f.
func (l Layout) Encode(f FrameDetections) ([]byte, error) {
	buf := make([]byte, l.PayloadSize())
	if err := l.EncodeTo(buf, f); err != nil {
		return nil, err
	}
	return buf, nil
}

// EncodeTo writes the encoding of f into dst, which must be at least
// PayloadSize bytes. Unused detection slots are zeroed.
func (l Layout) EncodeTo(dst []byte, f FrameDetections) error {
	if len(dst) < l.PayloadSize() {
		return fmt.Errorf("record: encode buffer %d bytes, need %d", len(dst), l.PayloadSize())
	}
	if f.Len() > l.Capacity {
		return fmt.Errorf("%w: %d detections, layout capacity %d", ErrCapacityExceeded, f.Len(), l.Capacity)
	}

	le := binary.LittleEndian
	le.PutUint32(dst[0:], uint32(f.frameNumber))
	le.PutUint32(dst[4:], uint32(int32(len(f.boxes))))

	off := headerSize
	for _, d := range f.boxes {
		le.PutUint32(dst[off:], math.Float32bits(d.X))
		le.PutUint32(dst[off+4:], math.Float32bits(d.Y))
		le.PutUint32(dst[off+8:], math.Float32bits(d.Width))
		le.PutUint32(dst[off+12:], math.Float32bits(d.Height))
		le.PutUint32(dst[off+16:], math.Float32bits(d.Confidence))
		off += detectionSize
	}
	clear(dst[off:l.PayloadSize()])
	return nil
}

// Decode parses a payload produced by Encode.
// It fails with ErrMalformedRecord if the count is outside [0, Capacity].
func (l Layout) Decode(buf []byte) (FrameDetections, error) {
	if len(buf) < l.PayloadSize() {
		return FrameDetections{}, fmt.Errorf("%w: buffer %d bytes, need %d", ErrMalformedRecord, len(buf), l.PayloadSize())
	}

	le := binary.LittleEndian
	frameNumber := int32(le.Uint32(buf[0:]))
	count := int32(le.Uint32(buf[4:]))
	if count < 0 || int(count) > l.Capacity {
		return FrameDetections{}, fmt.Errorf("%w: count %d, capacity %d", ErrMalformedRecord, count, l.Capacity)
	}

	boxes := make([]DetectionRecord, count)
	off := headerSize
	for i := range boxes {
		boxes[i] = DetectionRecord{
			X:          math.Float32frombits(le.Uint32(buf[off:])),
			Y:          math.Float32frombits(le.Uint32(buf[off+4:])),
			Width:      math.Float32frombits(le.Uint32(buf[off+8:])),
			Height:     math.Float32frombits(le.Uint32(buf[off+12:])),
			Confidence: math.Float32frombits(le.Uint32(buf[off+16:])),
		}
		off += detectionSize
	}

	return FrameDetections{
		frameNumber: frameNumber,
		capacity:    l.Capacity,
		boxes:       boxes,
	}, nil
}

// Encode encodes f with the default layout.
func Encode(f FrameDetections) ([]byte, error) {
	return DefaultLayout().Encode(f)
}

// Decode decodes buf with the default layout.
func Decode(buf []byte) (FrameDetections, error) {
	return DefaultLayout().Decode(buf)
}
