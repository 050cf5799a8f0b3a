package source

import (
	"context"
	"io"

	"github.com/bft-labs/shmslot/internal/domain"
)

// Slice yields a fixed list of documents.
type Slice struct {
	docs []domain.FrameDoc
	next int
}

// NewSlice returns a source over docs.
func NewSlice(docs []domain.FrameDoc) *Slice {
	return &Slice{docs: docs}
}

func (s *Slice) Next(ctx context.Context) (domain.FrameDoc, error) {
	if err := ctx.Err(); err != nil {
		return domain.FrameDoc{}, err
	}
	if s.next >= len(s.docs) {
		return domain.FrameDoc{}, io.EOF
	}
	d := s.docs[s.next]
	s.next++
	return d, nil
}

func (s *Slice) Close() error { return nil }

// Len returns the number of documents.
func (s *Slice) Len() int { return len(s.docs) }
