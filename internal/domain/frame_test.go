package domain

import (
	"errors"
	"testing"

	"github.com/bft-labs/shmslot/pkg/record"
)

func TestFrameDoc_ToRecord(t *testing.T) {
	doc := FrameDoc{Detections: []Detection{
		{X: 1, Y: 2, Width: 3, Height: 4, Confidence: 0.5},
		{X: 5, Y: 6, Width: 7, Height: 8, Confidence: 0.25},
		{X: 9, Y: 9, Width: 1, Height: 1, Confidence: 1},
	}}

	tests := []struct {
		name          string
		capacity      int
		wantLen       int
		wantTruncated int
	}{
		{"fits", 50, 3, 0},
		{"truncated", 2, 2, 1},
		{"zero capacity", 0, 0, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, truncated, err := doc.ToRecord(4, tt.capacity)
			if err != nil {
				t.Fatal(err)
			}
			if f.Len() != tt.wantLen || truncated != tt.wantTruncated {
				t.Errorf("len %d truncated %d, want %d and %d", f.Len(), truncated, tt.wantLen, tt.wantTruncated)
			}
			if f.FrameNumber() != 4 {
				t.Errorf("FrameNumber = %d, want 4", f.FrameNumber())
			}
		})
	}
}

func TestFrameDoc_ToRecordInvalid(t *testing.T) {
	doc := FrameDoc{Detections: []Detection{{Width: -1}}}
	if _, _, err := doc.ToRecord(1, 50); !errors.Is(err, record.ErrInvalidDetection) {
		t.Errorf("err = %v, want ErrInvalidDetection", err)
	}
}

func TestFromRecord(t *testing.T) {
	f, _ := record.NewFrameDetections(12, 50, record.DetectionRecord{X: 1, Width: 2, Height: 3, Confidence: 0.75})

	doc := FromRecord(f)
	if doc.Frame == nil || *doc.Frame != 12 {
		t.Fatalf("Frame = %v, want 12", doc.Frame)
	}
	back, _, err := doc.ToRecord(*doc.Frame, 50)
	if err != nil {
		t.Fatal(err)
	}
	if !back.Equal(f) {
		t.Errorf("ToRecord(FromRecord(f)) = %v, want %v", back, f)
	}
}
