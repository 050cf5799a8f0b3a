package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/bft-labs/shmslot/internal/domain"
	"github.com/bft-labs/shmslot/pkg/record"
)

// JSONLines writes one document per line and flushes after each frame.
type JSONLines struct {
	w      *bufio.Writer
	enc    *json.Encoder
	closer io.Closer
}

// NewJSONLines writes to w. w is not closed by Close.
func NewJSONLines(w io.Writer) *JSONLines {
	bw := bufio.NewWriter(w)
	return &JSONLines{w: bw, enc: json.NewEncoder(bw)}
}

// CreateJSONLines truncates or creates path.
func CreateJSONLines(path string) (*JSONLines, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	j := NewJSONLines(f)
	j.closer = f
	return j, nil
}

func (j *JSONLines) Write(_ context.Context, f record.FrameDetections) error {
	if err := j.enc.Encode(domain.FromRecord(f)); err != nil {
		return err
	}
	return j.w.Flush()
}

// Finish writes the {"done":true} terminator, so the output can be fed back
// to a JSON-lines source as a finished stream.
func (j *JSONLines) Finish() error {
	if err := j.enc.Encode(domain.FrameDoc{Done: true}); err != nil {
		return err
	}
	return j.w.Flush()
}

// Close flushes and closes the file. An unfinished output has no terminator.
func (j *JSONLines) Close() error {
	err := j.w.Flush()
	if j.closer != nil {
		if cerr := j.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
