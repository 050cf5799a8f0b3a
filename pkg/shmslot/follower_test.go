package shmslot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bft-labs/shmslot/pkg/segment"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestFollower_DrainsStream(t *testing.T) {
	cfg := testConfig(t)
	handler := &mockHandler{}

	p, err := OpenProducer(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	fl, err := NewFollower(cfg, WithEventHandler(handler))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := fl.Report(); ok {
		t.Error("Report available before Start")
	}
	if err := fl.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "running", func() bool { return fl.Status() == StateRunning })

	for n := int32(1); n <= 3; n++ {
		if err := p.Publish(makeFrame(t, n, 1, 50)); err != nil {
			t.Fatal(err)
		}
	}
	if err := p.Finish(); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := fl.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	waitFor(t, "stopped", func() bool { return fl.Status() == StateStopped })

	frames := handler.Frames()
	if len(frames) == 0 || frames[len(frames)-1] != 3 {
		t.Errorf("frames = %v, want last frame 3", frames)
	}

	report, ok := fl.Report()
	if !ok {
		t.Fatal("Report unavailable after drain")
	}
	if !report.Drained || !report.Destroyed || report.LastFrame != 3 {
		t.Errorf("report = %+v", report)
	}

	states := handler.States()
	last := states[len(states)-1]
	if last.Current != StateStopped || last.Reason != "stream drained" {
		t.Errorf("last state change = %+v", last)
	}

	if err := fl.Stop(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Stop after drain = %v, want ErrNotRunning", err)
	}
}

func TestFollower_StopKeepsSegment(t *testing.T) {
	cfg := testConfig(t)
	handler := &mockHandler{}

	fl, err := NewFollower(cfg, WithEventHandler(handler))
	if err != nil {
		t.Fatal(err)
	}
	if err := fl.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := fl.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start = %v, want ErrAlreadyRunning", err)
	}
	waitFor(t, "running", func() bool { return fl.Status() == StateRunning })

	if err := fl.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if fl.Status() != StateStopped {
		t.Errorf("Status = %s, want Stopped", fl.Status())
	}
	if err := fl.Wait(context.Background()); err != nil {
		t.Errorf("Wait after Stop = %v", err)
	}

	report, ok := fl.Report()
	if !ok || report.Drained {
		t.Errorf("Report = %+v, %v; want undrained report", report, ok)
	}

	mgr, _ := cfg.NewManager()
	if _, err := mgr.Open(cfg.Key()); err != nil {
		t.Errorf("segment removed by Stop: %v", err)
	}

	var sawStopping bool
	for _, e := range handler.States() {
		if e.Current == StateStopping {
			sawStopping = true
		}
	}
	if !sawStopping {
		t.Error("no Stopping transition observed")
	}
}

func TestFollower_OpenFailureCrashes(t *testing.T) {
	cfg := testConfig(t)
	cfg.OpenTimeout = 20 * time.Millisecond

	fl, err := NewFollower(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := fl.Wait(context.Background()); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Wait before Start = %v, want ErrNotRunning", err)
	}
	if err := fl.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := fl.Wait(ctx); !errors.Is(err, ErrProducerTimeout) {
		t.Fatalf("Wait = %v, want ErrProducerTimeout", err)
	}
	waitFor(t, "crashed", func() bool { return fl.Status() == StateCrashed })

	// A crashed follower can be started again.
	mgr, _ := cfg.NewManager()
	if _, err := mgr.CreateOrOpen(cfg.Key(), cfg.Layout().SlotSize()); err != nil {
		t.Fatal(err)
	}
	if err := fl.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	waitFor(t, "running", func() bool { return fl.Status() == StateRunning })
	if err := fl.Stop(); err != nil {
		t.Fatal(err)
	}
}

func TestFollower_CanceledWhileWaitingForProducer(t *testing.T) {
	cfg := testConfig(t)
	cfg.OpenTimeout = 10 * time.Second
	handler := &mockHandler{}

	fl, err := NewFollower(cfg, WithEventHandler(handler))
	if err != nil {
		t.Fatal(err)
	}
	parent, cancelParent := context.WithCancel(context.Background())
	if err := fl.Start(parent); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	cancelParent()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := fl.Wait(ctx); err != nil {
		t.Fatalf("Wait = %v, want nil", err)
	}
	waitFor(t, "stopped", func() bool { return fl.Status() == StateStopped })

	states := handler.States()
	if len(states) < 3 || states[len(states)-2].Current != StateStopping {
		t.Errorf("state changes = %+v, want ... Stopping, Stopped", states)
	}

	mgr, _ := cfg.NewManager()
	if _, err := mgr.CreateOrOpen(cfg.Key(), cfg.Layout().SlotSize()); err != nil {
		t.Fatal(err)
	}
	if err := fl.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	waitFor(t, "running", func() bool { return fl.Status() == StateRunning })
	if err := fl.Stop(); err != nil {
		t.Fatal(err)
	}
}

func TestNewFollower_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Backend = segment.Backend("bogus")
	if _, err := NewFollower(cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("err = %v, want ErrInvalidConfig", err)
	}
}
