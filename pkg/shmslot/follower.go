package shmslot

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/bft-labs/shmslot/internal/app"
	"github.com/bft-labs/shmslot/pkg/log"
	"github.com/bft-labs/shmslot/pkg/state"
)

// Follower drains a channel in the background. Frames are delivered through
// EventHandler.OnFrame. When the stream ends the follower closes the consumer
// and returns to StateStopped on its own.
type Follower struct {
	cfg       Config
	opts      []Option
	o         options
	lifecycle *app.Lifecycle

	mu       sync.Mutex
	consumer *Consumer
	done     chan struct{}
	err      error
}

// NewFollower validates cfg and returns a stopped follower.
func NewFollower(cfg Config, opts ...Option) (*Follower, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	return &Follower{
		cfg:       cfg,
		opts:      opts,
		o:         o,
		lifecycle: app.NewLifecycle(o.logger, stateObserver{o.eventHandler}),
	}, nil
}

// Start opens the consumer and begins draining in the background. It returns
// immediately; open failures surface through Wait and StateCrashed.
func (f *Follower) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.lifecycle.CanStart() {
		return ErrAlreadyRunning
	}
	if err := f.lifecycle.TransitionTo(app.StateStarting, "Start() called"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	f.lifecycle.SetCancel(cancel)
	f.done = make(chan struct{})
	f.err = nil
	f.consumer = nil
	done := f.done

	f.lifecycle.Go(func() {
		defer close(done)
		defer cancel()
		err := f.run(runCtx)

		f.mu.Lock()
		f.err = err
		f.mu.Unlock()
	})
	return nil
}

func (f *Follower) run(ctx context.Context) error {
	c, err := OpenConsumer(ctx, f.cfg, f.opts...)
	if err != nil && ctx.Err() != nil {
		// Fails when Stop() already moved to Stopping; Stop finishes then.
		if f.lifecycle.TransitionTo(app.StateStopping, "context canceled while opening") == nil {
			_ = f.lifecycle.TransitionTo(app.StateStopped, "context canceled")
		}
		return nil
	}
	if err != nil {
		f.o.logger.Error("consumer open failed", log.Err(err))
		_ = f.lifecycle.TransitionTo(app.StateCrashed, err.Error())
		return err
	}
	f.mu.Lock()
	f.consumer = c
	f.mu.Unlock()

	if err := f.lifecycle.TransitionTo(app.StateRunning, "consumer attached"); err != nil {
		// Stop() won the race
		_ = c.Close()
		return nil
	}

	for {
		_, err := c.Next(ctx)
		if err == nil {
			continue
		}
		cerr := c.Close()

		switch {
		case errors.Is(err, io.EOF):
			_ = f.lifecycle.TransitionTo(app.StateStopped, "stream drained")
			return cerr
		case ctx.Err() != nil:
			// Stop() completes its own transition.
			if f.lifecycle.State() == app.StateRunning {
				_ = f.lifecycle.TransitionTo(app.StateStopped, "context canceled")
			}
			return nil
		default:
			f.o.logger.Error("consumer failed", log.Err(err))
			_ = f.lifecycle.TransitionTo(app.StateCrashed, err.Error())
			return err
		}
	}
}

// Stop cancels draining and waits for the background goroutine. The segment
// is detached but kept unless the stream had been fully drained.
func (f *Follower) Stop() error {
	f.mu.Lock()
	if !f.lifecycle.CanStop() {
		f.mu.Unlock()
		return ErrNotRunning
	}
	if err := f.lifecycle.TransitionTo(app.StateStopping, "Stop() called"); err != nil {
		f.mu.Unlock()
		return err
	}
	f.mu.Unlock()

	f.lifecycle.Cancel()
	err := f.lifecycle.WaitWithTimeout(app.ShutdownTimeout)
	if err != nil {
		_ = f.lifecycle.TransitionTo(app.StateCrashed, "shutdown timeout")
		return err
	}
	_ = f.lifecycle.TransitionTo(app.StateStopped, "graceful shutdown")
	return nil
}

// Wait blocks until the background goroutine ends or ctx is done and returns
// the run error. A drained stream and Stop both yield nil.
func (f *Follower) Wait(ctx context.Context) error {
	f.mu.Lock()
	done := f.done
	f.mu.Unlock()
	if done == nil {
		return ErrNotRunning
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (f *Follower) Status() State {
	return convertState(f.lifecycle.State())
}

// StateReport is the consumer drain report.
type StateReport = state.State

// Report returns the drain report once the background goroutine has ended.
func (f *Follower) Report() (StateReport, bool) {
	f.mu.Lock()
	done, c := f.done, f.consumer
	f.mu.Unlock()
	if done == nil || c == nil {
		return StateReport{}, false
	}
	select {
	case <-done:
		return c.Report(), true
	default:
		return StateReport{}, false
	}
}
