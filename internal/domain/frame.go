package domain

import "github.com/bft-labs/shmslot/pkg/record"

// Detection is the document form of record.DetectionRecord.
type Detection struct {
	X          float32 `json:"x" yaml:"x" msgpack:"x"`
	Y          float32 `json:"y" yaml:"y" msgpack:"y"`
	Width      float32 `json:"width" yaml:"width" msgpack:"width"`
	Height     float32 `json:"height" yaml:"height" msgpack:"height"`
	Confidence float32 `json:"confidence" yaml:"confidence" msgpack:"confidence"`
}

// FrameDoc is one frame in a script, a JSON-lines stream or a recording.
// A document with Done set ends the stream and carries no detections.
type FrameDoc struct {
	// Frame is optional on input; sources number missing frames in order.
	Frame      *int32      `json:"frame,omitempty" yaml:"frame,omitempty" msgpack:"frame,omitempty"`
	Detections []Detection `json:"detections,omitempty" yaml:"detections,omitempty" msgpack:"detections,omitempty"`
	Done       bool        `json:"done,omitempty" yaml:"done,omitempty" msgpack:"done,omitempty"`
}

// ToRecord converts the document to a frame numbered n. Detections beyond
// capacity are cut off; the number cut is returned.
func (d FrameDoc) ToRecord(n int32, capacity int) (record.FrameDetections, int, error) {
	dets := d.Detections
	truncated := 0
	if len(dets) > capacity {
		truncated = len(dets) - capacity
		dets = dets[:capacity]
	}

	f, err := record.NewFrameDetections(n, capacity)
	if err != nil {
		return record.FrameDetections{}, 0, err
	}
	for _, det := range dets {
		if err := f.Append(record.DetectionRecord(det)); err != nil {
			return record.FrameDetections{}, 0, err
		}
	}
	return f, truncated, nil
}

// FromRecord converts a frame to its document form.
func FromRecord(f record.FrameDetections) FrameDoc {
	n := f.FrameNumber()
	doc := FrameDoc{Frame: &n, Detections: make([]Detection, f.Len())}
	for i := range doc.Detections {
		doc.Detections[i] = Detection(f.At(i))
	}
	return doc
}
