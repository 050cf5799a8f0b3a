package state

import "time"

// State is the drain report of one consumer run.
type State struct {
	// Key is the segment key, formatted 0x%08x.
	Key     string `json:"key"`
	Backend string `json:"backend"`

	LastSequence uint64 `json:"last_sequence"`
	LastFrame    int32  `json:"last_frame"`
	Consumed     uint64 `json:"consumed"`
	Dropped      uint64 `json:"dropped"`
	TornRetries  uint64 `json:"torn_retries"`

	// Drained is set once the producer finished and the last frame was consumed.
	Drained bool `json:"drained"`
	// Destroyed is set when the consumer removed the segment after draining.
	Destroyed bool `json:"destroyed"`

	StartedAt  time.Time `json:"started_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// Progress carries the reader counters folded into a State.
type Progress struct {
	LastSequence uint64
	LastFrame    int32
	Consumed     uint64
	Dropped      uint64
	TornRetries  uint64
}

// IsEmpty returns true if the state has not been initialized.
func (s State) IsEmpty() bool {
	return s.Key == ""
}

// Begin starts a new report for key, discarding previous counters.
func (s *State) Begin(key, backend string) {
	*s = State{Key: key, Backend: backend, StartedAt: time.Now()}
	s.UpdatedAt = s.StartedAt
}

// UpdateProgress records the latest reader counters.
func (s *State) UpdateProgress(p Progress) {
	s.LastSequence = p.LastSequence
	s.LastFrame = p.LastFrame
	s.Consumed = p.Consumed
	s.Dropped = p.Dropped
	s.TornRetries = p.TornRetries
	s.UpdatedAt = time.Now()
}

// MarkDrained records the end of the stream.
func (s *State) MarkDrained(destroyed bool) {
	now := time.Now()
	s.Drained = true
	s.Destroyed = destroyed
	s.UpdatedAt = now
	s.FinishedAt = now
}
