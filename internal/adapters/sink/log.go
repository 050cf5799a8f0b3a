package sink

import (
	"context"

	"github.com/bft-labs/shmslot/pkg/log"
	"github.com/bft-labs/shmslot/pkg/record"
)

// Log writes one info line per frame.
type Log struct {
	logger log.Logger
}

// NewLog returns a sink writing to logger.
func NewLog(logger log.Logger) *Log {
	return &Log{logger: log.OrNoop(logger)}
}

func (l *Log) Write(_ context.Context, f record.FrameDetections) error {
	fields := []log.Field{
		log.Int32("frame", f.FrameNumber()),
		log.Int("detections", f.Len()),
	}
	if f.Len() > 0 {
		best := f.At(0)
		for i := 1; i < f.Len(); i++ {
			if d := f.At(i); d.Confidence > best.Confidence {
				best = d
			}
		}
		fields = append(fields, log.Float64("top_confidence", float64(best.Confidence)))
	}
	l.logger.Info("frame", fields...)
	return nil
}

func (l *Log) Close() error { return nil }
