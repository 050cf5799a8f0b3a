package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Backend        string  `toml:"backend"`
	Seed           string  `toml:"seed"`
	Salt           *uint32 `toml:"salt"`
	Dir            string  `toml:"dir"`
	MaxDetections  int     `toml:"max_detections"`
	PollInterval   string  `toml:"poll_interval"`
	MaxTornRetries int     `toml:"max_torn_retries"`
	OpenTimeout    string  `toml:"open_timeout"`
	Timeout        string  `toml:"timeout"`
	StateDir       string  `toml:"state_dir"`
	LogFormat      string  `toml:"log_format"`
	LogLevel       string  `toml:"log_level"`

	MQTT FileMQTT `toml:"mqtt"`
}

// FileMQTT is the [mqtt] table.
type FileMQTT struct {
	Broker   string `toml:"broker"`
	ClientID string `toml:"client_id"`
	Topic    string `toml:"topic"`
	QoS      int    `toml:"qos"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
// Unknown keys are rejected.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	f, err := os.Open(path)
	if err != nil {
		return fc, err
	}
	defer f.Close()

	dec := toml.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.shmslot/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".shmslot", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("backend", fc.Backend, &cfg.Backend)
	s.setString("seed", fc.Seed, &cfg.Seed)
	s.setUint32("salt", fc.Salt, &cfg.Salt)
	s.setString("dir", fc.Dir, &cfg.Dir)
	s.setString("state-dir", fc.StateDir, &cfg.StateDir)
	s.setString("log-format", fc.LogFormat, &cfg.LogFormat)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("mqtt-broker", fc.MQTT.Broker, &cfg.MQTTBroker)
	s.setString("mqtt-client-id", fc.MQTT.ClientID, &cfg.MQTTClientID)
	s.setString("mqtt-topic", fc.MQTT.Topic, &cfg.MQTTTopic)

	if err := s.setDuration("poll", fc.PollInterval, &cfg.PollInterval); err != nil {
		return err
	}
	if err := s.setDuration("open-timeout", fc.OpenTimeout, &cfg.OpenTimeout); err != nil {
		return err
	}
	if err := s.setDuration("timeout", fc.Timeout, &cfg.Timeout); err != nil {
		return err
	}

	s.setInt("max-detections", fc.MaxDetections, &cfg.MaxDetections)
	s.setInt("max-torn-retries", fc.MaxTornRetries, &cfg.MaxTornRetries)
	s.setInt("mqtt-qos", fc.MQTT.QoS, &cfg.MQTTQoS)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
