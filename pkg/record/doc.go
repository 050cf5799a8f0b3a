// Package record defines the fixed binary layout of one frame's detection set.
//
// A frame is encoded into a fixed-width, little-endian payload so that a
// producer and a consumer built independently agree byte-for-byte on every
// field offset:
//
//	offset 0   int32    frame number
//	offset 4   int32    number of valid detections
//	offset 8   [cap]    {x, y, width, height, confidence float32}
//
// Slots past the detection count are zero-filled on encode and never read on
// decode.
//
// # Usage
//
//	layout := record.DefaultLayout()
//	frame, err := record.NewFrameDetections(1, layout.Capacity,
//	    record.DetectionRecord{X: 10, Y: 20, Width: 64, Height: 128, Confidence: 0.91},
//	)
//	if err != nil {
//	    return err
//	}
//	buf, err := layout.Encode(frame)
//	...
//	decoded, err := layout.Decode(buf)
//
// # Bounded frames
//
// [FrameDetections] keeps its records unexported. Callers see exactly Len()
// records through At and Detections; there is no way to observe a slot beyond
// the count.
//
// # Version
//
// Current version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package record
