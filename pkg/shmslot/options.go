package shmslot

import (
	"github.com/bft-labs/shmslot/pkg/log"
	"github.com/bft-labs/shmslot/pkg/segment"
	"github.com/bft-labs/shmslot/pkg/state"
)

// Logger is the logging interface accepted by WithLogger.
type Logger = log.Logger

// Option configures a Producer, Consumer or Follower.
type Option func(*options)

type options struct {
	logger       log.Logger
	eventHandler EventHandler
	manager      segment.Manager
	stateRepo    state.Repository
}

func buildOptions(opts []Option) options {
	o := options{logger: log.NoopLogger{}}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = log.OrNoop(o.logger)
	return o
}

// WithLogger sets a logger. Without it nothing is logged.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventHandler sets a handler for consumer events. Handlers are called
// synchronously from the polling goroutine and must not block.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithManager overrides the segment manager built from the config.
func WithManager(m segment.Manager) Option {
	return func(o *options) {
		o.manager = m
	}
}

// WithStateRepository overrides where the drain report is stored. It takes
// precedence over Config.StateDir.
func WithStateRepository(repo state.Repository) Option {
	return func(o *options) {
		o.stateRepo = repo
	}
}
