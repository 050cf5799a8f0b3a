// Package recording stores detection streams as msgpack records, each
// prefixed with its length as a 4-byte big-endian integer. A consumer can
// record a run with Writer and a producer can replay it with Reader.
package recording

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/bft-labs/shmslot/internal/domain"
	"github.com/bft-labs/shmslot/pkg/record"
)

// MaxRecordSize bounds a single record. A frame with 50 detections encodes
// to well under 2 KiB.
const MaxRecordSize = 1 << 20

// ErrRecordTooLarge is returned for a length prefix above MaxRecordSize.
var ErrRecordTooLarge = errors.New("recording: record too large")

// Writer appends frames to a recording.
type Writer struct {
	w      *bufio.Writer
	closer io.Closer
	hdr    [4]byte
}

// NewWriter writes to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Create truncates or creates path.
func Create(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	w := NewWriter(f)
	w.closer = f
	return w, nil
}

// WriteDoc appends one document.
func (w *Writer) WriteDoc(doc domain.FrameDoc) error {
	payload, err := msgpack.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("recording: encode: %w", err)
	}
	binary.BigEndian.PutUint32(w.hdr[:], uint32(len(payload)))
	if _, err := w.w.Write(w.hdr[:]); err != nil {
		return err
	}
	if _, err := w.w.Write(payload); err != nil {
		return err
	}
	return nil
}

// Write appends f. It implements ports.Sink.
func (w *Writer) Write(_ context.Context, f record.FrameDetections) error {
	return w.WriteDoc(domain.FromRecord(f))
}

// Finish appends the terminator document of a drained stream.
func (w *Writer) Finish() error {
	return w.WriteDoc(domain.FrameDoc{Done: true})
}

// Close flushes and closes the file. Replaying a recording closed without
// Finish ends with io.EOF instead of a done document.
func (w *Writer) Close() error {
	err := w.w.Flush()
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Reader replays a recording. It implements ports.Source.
type Reader struct {
	r      *bufio.Reader
	closer io.Closer
	hdr    [4]byte
}

// NewReader reads from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Open opens a recording file.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := NewReader(f)
	r.closer = f
	return r, nil
}

func (r *Reader) Next(ctx context.Context) (domain.FrameDoc, error) {
	if err := ctx.Err(); err != nil {
		return domain.FrameDoc{}, err
	}
	if _, err := io.ReadFull(r.r, r.hdr[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return domain.FrameDoc{}, fmt.Errorf("recording: truncated header: %w", err)
		}
		return domain.FrameDoc{}, err
	}
	n := binary.BigEndian.Uint32(r.hdr[:])
	if n > MaxRecordSize {
		return domain.FrameDoc{}, fmt.Errorf("%w: %d bytes", ErrRecordTooLarge, n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r.r, payload); err != nil {
		return domain.FrameDoc{}, fmt.Errorf("recording: truncated record: %w", err)
	}

	var doc domain.FrameDoc
	if err := msgpack.Unmarshal(payload, &doc); err != nil {
		return domain.FrameDoc{}, fmt.Errorf("recording: decode: %w", err)
	}
	return doc, nil
}

func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}
