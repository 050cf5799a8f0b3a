package shmslot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bft-labs/shmslot/pkg/record"
	"github.com/bft-labs/shmslot/pkg/segment"
)

func memConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Backend = segment.BackendMemory
	cfg.Seed = t.Name()
	cfg.PollInterval = time.Millisecond
	return cfg
}

func TestPublishThenRun(t *testing.T) {
	cfg := memConfig(t)

	f1, _ := record.NewFrameDetections(1, 50)
	f2, _ := record.NewFrameDetections(2, 50, record.DetectionRecord{Width: 1, Height: 1, Confidence: 0.3})
	if err := Publish(cfg, []record.FrameDetections{f1, f2}); err != nil {
		t.Fatal(err)
	}

	var got []int32
	err := Run(context.Background(), cfg, func(f record.FrameDetections) error {
		got = append(got, f.FrameNumber())
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != 2 {
		t.Errorf("frames = %v, want [2]", got)
	}
}

func TestRun_CallbackError(t *testing.T) {
	cfg := memConfig(t)
	f, _ := record.NewFrameDetections(1, 50)
	if err := Publish(cfg, []record.FrameDetections{f}); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	err := Run(context.Background(), cfg, func(record.FrameDetections) error { return boom })
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}

	mgr, _ := cfg.NewManager()
	h, err := mgr.Open(cfg.Key())
	if err != nil {
		t.Fatalf("segment removed although not drained: %v", err)
	}
	_ = mgr.Destroy(h)
}

func TestRun_Canceled(t *testing.T) {
	cfg := memConfig(t)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := Run(ctx, cfg, func(record.FrameDetections) error { return nil })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want DeadlineExceeded", err)
	}

	mgr, _ := cfg.NewManager()
	if h, err := mgr.Open(cfg.Key()); err == nil {
		_ = mgr.Destroy(h)
	}
}
