package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/bft-labs/shmslot/internal/domain"
	"github.com/bft-labs/shmslot/pkg/log"
	"github.com/bft-labs/shmslot/pkg/record"
)

func testFrame(t *testing.T, n int32) record.FrameDetections {
	t.Helper()
	f, err := record.NewFrameDetections(n, 50,
		record.DetectionRecord{X: 1, Y: 2, Width: 3, Height: 4, Confidence: 0.25},
		record.DetectionRecord{X: 5, Y: 6, Width: 7, Height: 8, Confidence: 0.75},
	)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

type mockLogger struct {
	mu     sync.Mutex
	msgs   []string
	fields [][]log.Field
}

func (m *mockLogger) add(msg string, fields []log.Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, msg)
	m.fields = append(m.fields, fields)
}

func (m *mockLogger) Debug(msg string, fields ...log.Field) { m.add(msg, fields) }
func (m *mockLogger) Info(msg string, fields ...log.Field)  { m.add(msg, fields) }
func (m *mockLogger) Warn(msg string, fields ...log.Field)  { m.add(msg, fields) }
func (m *mockLogger) Error(msg string, fields ...log.Field) { m.add(msg, fields) }

func TestLog(t *testing.T) {
	ml := &mockLogger{}
	s := NewLog(ml)

	if err := s.Write(context.Background(), testFrame(t, 3)); err != nil {
		t.Fatal(err)
	}

	if len(ml.fields) != 1 {
		t.Fatalf("got %d lines, want 1", len(ml.fields))
	}
	var top interface{}
	for _, f := range ml.fields[0] {
		if f.Key == "top_confidence" {
			top = f.Value
		}
	}
	if top != float64(0.75) {
		t.Errorf("top_confidence = %v, want 0.75", top)
	}
}

func TestJSONLines(t *testing.T) {
	var buf bytes.Buffer
	s := NewJSONLines(&buf)
	ctx := context.Background()

	_ = s.Write(ctx, testFrame(t, 1))
	_ = s.Write(ctx, testFrame(t, 2))
	if err := s.Finish(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), buf.String())
	}
	var doc domain.FrameDoc
	if err := json.Unmarshal([]byte(lines[1]), &doc); err != nil {
		t.Fatal(err)
	}
	if *doc.Frame != 2 || len(doc.Detections) != 2 || doc.Detections[1].Confidence != 0.75 {
		t.Errorf("line 2 = %+v", doc)
	}
	if lines[2] != `{"done":true}` {
		t.Errorf("terminator = %s", lines[2])
	}
}

func TestJSONLines_CloseWithoutFinish(t *testing.T) {
	var buf bytes.Buffer
	s := NewJSONLines(&buf)
	_ = s.Write(context.Background(), testFrame(t, 1))
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	if strings.Contains(buf.String(), `"done"`) {
		t.Errorf("interrupted output carries a terminator:\n%s", buf.String())
	}
	if lines := strings.Split(strings.TrimSpace(buf.String()), "\n"); len(lines) != 1 {
		t.Errorf("got %d lines, want 1", len(lines))
	}
}

// fakeToken is a completed mqtt.Token.
type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type message struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeClient struct {
	msgs         []message
	err          error
	disconnected bool
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.msgs = append(c.msgs, message{topic, qos, retained, payload.([]byte)})
	return &fakeToken{err: c.err}
}

func (c *fakeClient) Disconnect(uint) { c.disconnected = true }

func TestMQTT(t *testing.T) {
	client := &fakeClient{}
	s := NewMQTT(MQTTConfig{TopicPrefix: "lab/cam0", QoS: 1}, client, nil)

	if err := s.Write(context.Background(), testFrame(t, 9)); err != nil {
		t.Fatal(err)
	}
	if err := s.Finish(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	if len(client.msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(client.msgs))
	}
	frame := client.msgs[0]
	if frame.topic != "lab/cam0/frames" || frame.qos != 1 || frame.retained {
		t.Errorf("frame message = %+v", frame)
	}
	var doc domain.FrameDoc
	if err := json.Unmarshal(frame.payload, &doc); err != nil || *doc.Frame != 9 {
		t.Errorf("payload = %s, %v", frame.payload, err)
	}
	status := client.msgs[1]
	if status.topic != "lab/cam0/status" || !status.retained {
		t.Errorf("status message = %+v", status)
	}
	if !client.disconnected || s.Published() != 1 {
		t.Errorf("disconnected %v published %d", client.disconnected, s.Published())
	}
}

func TestMQTT_PublishError(t *testing.T) {
	boom := errors.New("broker gone")
	s := NewMQTT(MQTTConfig{}, &fakeClient{err: boom}, nil)

	if err := s.Write(context.Background(), testFrame(t, 1)); !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
	if s.Published() != 0 {
		t.Errorf("Published() = %d after failure", s.Published())
	}
}

func TestMQTT_CloseWithoutFinish(t *testing.T) {
	client := &fakeClient{}
	s := NewMQTT(MQTTConfig{TopicPrefix: "lab/cam0"}, client, nil)
	_ = s.Write(context.Background(), testFrame(t, 1))
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	for _, m := range client.msgs {
		if m.topic == "lab/cam0/status" {
			t.Errorf("status published on an interrupted run: %s", m.payload)
		}
	}
	if !client.disconnected {
		t.Error("client not disconnected")
	}
}
