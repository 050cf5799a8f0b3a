package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/shmslot/internal/domain"
	"github.com/bft-labs/shmslot/pkg/log"
)

// followPoll is the fallback wake-up when no filesystem event arrives.
const followPoll = 250 * time.Millisecond

// JSONLines reads one document per line. In follow mode it waits at the end
// of the file for more lines, like tail -f, until a {"done":true} line or
// context cancellation.
type JSONLines struct {
	r       *bufio.Reader
	closer  io.Closer
	follow  bool
	watcher *fsnotify.Watcher
	logger  log.Logger
	pending []byte
	line    int
}

// NewJSONLines reads from r without following.
func NewJSONLines(r io.Reader) *JSONLines {
	return &JSONLines{r: bufio.NewReader(r), logger: log.NoopLogger{}}
}

// OpenJSONLines opens path. With follow set, the file is watched for writes.
func OpenJSONLines(path string, follow bool, logger log.Logger) (*JSONLines, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	j := &JSONLines{r: bufio.NewReader(f), closer: f, follow: follow, logger: log.OrNoop(logger)}
	if !follow {
		return j, nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		// polling still works
		j.logger.Warn("file watcher unavailable, polling", log.Err(err))
		return j, nil
	}
	if err := w.Add(path); err != nil {
		w.Close()
		j.logger.Warn("cannot watch file, polling", log.String("path", path), log.Err(err))
		return j, nil
	}
	j.watcher = w
	return j, nil
}

func (j *JSONLines) Next(ctx context.Context) (domain.FrameDoc, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.FrameDoc{}, err
		}

		chunk, err := j.r.ReadBytes('\n')
		j.pending = append(j.pending, chunk...)
		if err == nil {
			if doc, ok, derr := j.take(); derr != nil || ok {
				return doc, derr
			}
			continue
		}
		if !errors.Is(err, io.EOF) {
			return domain.FrameDoc{}, err
		}

		if !j.follow {
			// last line without a newline
			if doc, ok, derr := j.take(); derr != nil || ok {
				return doc, derr
			}
			return domain.FrameDoc{}, io.EOF
		}
		if err := j.wait(ctx); err != nil {
			return domain.FrameDoc{}, err
		}
	}
}

// take decodes the buffered line. ok is false for blank lines.
func (j *JSONLines) take() (domain.FrameDoc, bool, error) {
	line := bytes.TrimSpace(j.pending)
	j.pending = j.pending[:0]
	j.line++
	if len(line) == 0 {
		return domain.FrameDoc{}, false, nil
	}
	var doc domain.FrameDoc
	if err := json.Unmarshal(line, &doc); err != nil {
		return domain.FrameDoc{}, false, fmt.Errorf("line %d: %w", j.line, err)
	}
	return doc, true, nil
}

func (j *JSONLines) wait(ctx context.Context) error {
	timer := time.NewTimer(followPoll)
	defer timer.Stop()

	var events <-chan fsnotify.Event
	var errs <-chan error
	if j.watcher != nil {
		events, errs = j.watcher.Events, j.watcher.Errors
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				return nil
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			j.logger.Warn("file watcher error", log.Err(err))
		}
	}
}

func (j *JSONLines) Close() error {
	var errs []error
	if j.watcher != nil {
		errs = append(errs, j.watcher.Close())
	}
	if j.closer != nil {
		errs = append(errs, j.closer.Close())
	}
	return errors.Join(errs...)
}
