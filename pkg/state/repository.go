package state

import "context"

// Repository stores drain reports.
type Repository interface {
	// Load returns the last saved report, or an empty State if none exists.
	Load(ctx context.Context) (State, error)

	// Save persists the report atomically.
	Save(ctx context.Context, s State) error
}
