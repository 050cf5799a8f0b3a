package shmslot

import (
	"fmt"
	"os"
	"time"

	"github.com/bft-labs/shmslot/internal/domain"
	"github.com/bft-labs/shmslot/pkg/record"
	"github.com/bft-labs/shmslot/pkg/segment"
)

// Defaults.
const (
	DefaultSeed         = "shmslot.detections"
	DefaultSalt         = 65
	DefaultPollInterval = 10 * time.Millisecond

	// MaxCapacity bounds MaxDetections so a slot stays well below common
	// shmmax limits.
	MaxCapacity = 1 << 16
)

// Config describes the channel both sides must agree on, plus local tuning.
type Config struct {
	// Backend is sysv, file or memory.
	Backend segment.Backend

	// Seed and Salt derive the segment key. Change Salt to start over on a
	// fresh segment.
	Seed string
	Salt uint32

	// Dir is the directory of the file backend.
	Dir string

	// MaxDetections is the per-frame capacity. Producer and consumer must
	// use the same value.
	MaxDetections int

	// Perm is the permission of a newly created segment.
	Perm os.FileMode

	// PollInterval is the consumer's sleep between polls in Next.
	PollInterval time.Duration

	// MaxTornRetries bounds copy retries per poll.
	MaxTornRetries int

	// OpenTimeout makes the consumer wait up to this long for the producer
	// to create the segment. Zero creates it immediately.
	OpenTimeout time.Duration

	// StateDir, when set, receives the consumer's drain report.
	StateDir string
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Backend:        segment.BackendSysV,
		Seed:           DefaultSeed,
		Salt:           DefaultSalt,
		MaxDetections:  record.MaxDetections,
		Perm:           segment.DefaultPerm,
		PollInterval:   DefaultPollInterval,
		MaxTornRetries: 8,
	}
}

// SetDefaults fills zero fields. Salt is left alone since zero is valid.
func (c *Config) SetDefaults() {
	d := DefaultConfig()
	if c.Backend == "" {
		c.Backend = d.Backend
	}
	if c.Seed == "" {
		c.Seed = d.Seed
	}
	if c.MaxDetections == 0 {
		c.MaxDetections = d.MaxDetections
	}
	if c.Perm == 0 {
		c.Perm = d.Perm
	}
	if c.PollInterval == 0 {
		c.PollInterval = d.PollInterval
	}
	if c.MaxTornRetries == 0 {
		c.MaxTornRetries = d.MaxTornRetries
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if _, err := segment.ParseBackend(string(c.Backend)); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}
	if c.Seed == "" {
		return fmt.Errorf("%w: seed is required", domain.ErrInvalidConfig)
	}
	if c.MaxDetections < 1 || c.MaxDetections > MaxCapacity {
		return fmt.Errorf("%w: max detections %d outside [1, %d]", domain.ErrInvalidConfig, c.MaxDetections, MaxCapacity)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("%w: poll interval must be positive", domain.ErrInvalidConfig)
	}
	if c.MaxTornRetries < 1 {
		return fmt.Errorf("%w: max torn retries must be at least 1", domain.ErrInvalidConfig)
	}
	if c.OpenTimeout < 0 {
		return fmt.Errorf("%w: open timeout must not be negative", domain.ErrInvalidConfig)
	}
	return nil
}

// Layout returns the slot layout for MaxDetections.
func (c Config) Layout() record.Layout {
	return record.Layout{Capacity: c.MaxDetections}
}

// Key returns the segment key derived from Seed and Salt.
func (c Config) Key() segment.Key {
	return segment.DeriveKey(c.Seed, c.Salt)
}

// NewManager returns the segment manager the config selects.
func (c Config) NewManager(opts ...segment.Option) (segment.Manager, error) {
	base := []segment.Option{segment.WithPerm(c.Perm)}
	if c.Dir != "" {
		base = append(base, segment.WithDir(c.Dir))
	}
	return segment.New(c.Backend, append(base, opts...)...)
}
