package shmslot

import (
	"github.com/bft-labs/shmslot/internal/app"
	"github.com/bft-labs/shmslot/pkg/record"
)

// State is the lifecycle state of a Follower.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

func (s State) String() string {
	return app.State(s).String()
}

// StateChangeEvent reports a Follower state transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// FrameEvent reports a consumed frame.
type FrameEvent struct {
	Frame    record.FrameDetections
	Sequence uint64
}

// DroppedFramesEvent reports frames overwritten before they were read.
type DroppedFramesEvent struct {
	// Count is the gap before Frame; Total is the running total.
	Count uint64
	Total uint64
	Frame int32
}

// TornReadEvent reports a poll that gave up after Retries torn copies.
type TornReadEvent struct {
	Retries int
	GiveUps uint64
}

// EventHandler receives consumer events.
type EventHandler interface {
	OnStateChange(StateChangeEvent)
	OnFrame(FrameEvent)
	OnDroppedFrames(DroppedFramesEvent)
	OnTornRead(TornReadEvent)
}

// BaseEventHandler implements EventHandler with no-ops. Embed it to handle
// only some events.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent)     {}
func (BaseEventHandler) OnFrame(FrameEvent)                 {}
func (BaseEventHandler) OnDroppedFrames(DroppedFramesEvent) {}
func (BaseEventHandler) OnTornRead(TornReadEvent)           {}

func convertState(s app.State) State {
	switch s {
	case app.StateStopped:
		return StateStopped
	case app.StateStarting:
		return StateStarting
	case app.StateRunning:
		return StateRunning
	case app.StateStopping:
		return StateStopping
	case app.StateCrashed:
		return StateCrashed
	default:
		return StateStopped
	}
}

// stateObserver adapts EventHandler to the lifecycle.
type stateObserver struct {
	handler EventHandler
}

func (s stateObserver) OnStateChange(previous, current app.State, reason string) {
	if s.handler == nil {
		return
	}
	s.handler.OnStateChange(StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}
