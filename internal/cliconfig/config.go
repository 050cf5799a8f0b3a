package cliconfig

import (
	"fmt"
	"strconv"
	"time"

	"github.com/bft-labs/shmslot/internal/adapters/sink"
	"github.com/bft-labs/shmslot/pkg/segment"
	"github.com/bft-labs/shmslot/pkg/shmslot"
)

// Log formats.
const (
	LogFormatAuto    = "auto"
	LogFormatConsole = "console"
	LogFormatJSON    = "json"
)

// Config holds CLI configuration for shmslot.
type Config struct {
	Backend       string
	Seed          string
	Salt          uint32
	Dir           string
	MaxDetections int

	PollInterval   time.Duration
	MaxTornRetries int
	OpenTimeout    time.Duration
	// Timeout bounds a whole produce or consume run. Zero means none.
	Timeout time.Duration

	StateDir string

	LogFormat string
	LogLevel  string

	MQTTBroker   string
	MQTTClientID string
	MQTTTopic    string
	MQTTQoS      int
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	lib := shmslot.DefaultConfig()
	return Config{
		Backend:        string(lib.Backend),
		Seed:           lib.Seed,
		Salt:           lib.Salt,
		MaxDetections:  lib.MaxDetections,
		PollInterval:   lib.PollInterval,
		MaxTornRetries: lib.MaxTornRetries,
		LogFormat:      LogFormatAuto,
		LogLevel:       "info",
		MQTTClientID:   "shmslot",
		MQTTTopic:      "shmslot",
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if _, err := segment.ParseBackend(c.Backend); err != nil {
		return err
	}
	if c.Seed == "" {
		return fmt.Errorf("seed is required")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if c.Timeout < 0 || c.OpenTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	switch c.LogFormat {
	case LogFormatAuto, LogFormatConsole, LogFormatJSON:
	default:
		return fmt.Errorf("unknown log format %q (want auto, console or json)", c.LogFormat)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.MQTTQoS < 0 || c.MQTTQoS > 2 {
		return fmt.Errorf("mqtt qos %d outside [0, 2]", c.MQTTQoS)
	}
	return c.Channel().Validate()
}

// Channel converts the CLI configuration to the library configuration.
func (c *Config) Channel() shmslot.Config {
	lib := shmslot.DefaultConfig()
	lib.Backend = segment.Backend(c.Backend)
	lib.Seed = c.Seed
	lib.Salt = c.Salt
	lib.Dir = c.Dir
	lib.MaxDetections = c.MaxDetections
	lib.PollInterval = c.PollInterval
	lib.MaxTornRetries = c.MaxTornRetries
	lib.OpenTimeout = c.OpenTimeout
	lib.StateDir = c.StateDir
	return lib
}

// MQTT returns the sink configuration for the MQTT flags.
func (c *Config) MQTT() sink.MQTTConfig {
	return sink.MQTTConfig{
		Broker:      c.MQTTBroker,
		ClientID:    c.MQTTClientID,
		TopicPrefix: c.MQTTTopic,
		QoS:         byte(c.MQTTQoS),
	}
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setUint32 sets a value from a pointer, so an explicit zero is kept.
func (s *configSetter) setUint32(flag string, value *uint32, dst *uint32) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setIntFromString parses a string to int and sets the destination if positive.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setUint32FromString accepts decimal or 0x-prefixed hex.
func (s *configSetter) setUint32FromString(flag, value string, dst *uint32) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	u, err := strconv.ParseUint(value, 0, 32)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = uint32(u)
	return nil
}
