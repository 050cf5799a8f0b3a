// Package state persists the consumer's drain report.
//
// The report records how far a consumer got through a stream: the last
// sequence and frame consumed, how many frames were dropped or re-read, and
// whether the stream was drained and the segment destroyed. It is written as
// status.json in a configurable directory so operators and scripts can check
// the outcome of a run after the process has exited.
//
// # Usage
//
//	repo := state.NewFileRepository("/var/lib/shmslot")
//
//	s, err := repo.Load(ctx)
//	s.UpdateProgress(state.Progress{LastSequence: 12, LastFrame: 12, Consumed: 12})
//	err = repo.Save(ctx, s)
//
// # Version
//
// Current version: 2.0.0
package state
