package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

type recordingLogger struct {
	msgs   []string
	fields [][]Field
}

func (r *recordingLogger) record(msg string, fields []Field) {
	r.msgs = append(r.msgs, msg)
	r.fields = append(r.fields, fields)
}

func (r *recordingLogger) Debug(msg string, fields ...Field) { r.record(msg, fields) }
func (r *recordingLogger) Info(msg string, fields ...Field)  { r.record(msg, fields) }
func (r *recordingLogger) Warn(msg string, fields ...Field)  { r.record(msg, fields) }
func (r *recordingLogger) Error(msg string, fields ...Field) { r.record(msg, fields) }

func TestWith_PrependsFields(t *testing.T) {
	rec := &recordingLogger{}
	l := With(With(rec, String("backend", "memory")), Int("size", 1024))

	l.Info("attached", Bool("read_only", true))

	if len(rec.fields) != 1 {
		t.Fatalf("got %d lines, want 1", len(rec.fields))
	}
	got := rec.fields[0]
	want := []string{"backend", "size", "read_only"}
	if len(got) != len(want) {
		t.Fatalf("got %d fields, want %d", len(got), len(want))
	}
	for i, k := range want {
		if got[i].Key != k {
			t.Errorf("field %d = %q, want %q", i, got[i].Key, k)
		}
	}
}

func TestWith_NoFieldsReturnsSame(t *testing.T) {
	rec := &recordingLogger{}
	if With(rec) != Logger(rec) {
		t.Error("With without fields should return the logger unchanged")
	}
}

func TestOrNoop(t *testing.T) {
	if _, ok := OrNoop(nil).(NoopLogger); !ok {
		t.Error("OrNoop(nil) should return NoopLogger")
	}
}

type hexKey uint32

func (k hexKey) String() string { return "0x0000002a" }

func TestZerologAdapter_Fields(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologAdapterWithLogger(zerolog.New(&buf))

	l.Warn("dropped frames",
		Uint64("dropped", 3),
		Int32("frame", 7),
		Stringer("key", hexKey(42)),
		Err(errors.New("boom")),
	)

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("invalid json %q: %v", buf.String(), err)
	}
	if line["level"] != "warn" || line["message"] != "dropped frames" {
		t.Errorf("line = %v", line)
	}
	if line["dropped"] != float64(3) || line["frame"] != float64(7) {
		t.Errorf("numeric fields = %v, %v", line["dropped"], line["frame"])
	}
	if line["key"] != "0x0000002a" {
		t.Errorf("key = %v, want 0x0000002a", line["key"])
	}
	if line["error"] != "boom" {
		t.Errorf("error = %v, want boom", line["error"])
	}
}

func TestZerologAdapter_DisabledLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologAdapterWithLogger(zerolog.New(&buf).Level(zerolog.InfoLevel))

	l.Debug("hidden", String("k", "v"))

	if buf.Len() != 0 {
		t.Errorf("debug line written at info level: %q", buf.String())
	}
}
