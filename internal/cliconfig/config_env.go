package cliconfig

import "os"

// EnvPrefix prefixes every environment variable read by ApplyEnvConfig.
const EnvPrefix = "SHMSLOT_"

// ApplyEnvConfig applies SHMSLOT_* environment variables to cfg.
// Flags that have been explicitly set (changed map) win.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)
	env := func(name string) string { return os.Getenv(EnvPrefix + name) }

	s.setString("backend", env("BACKEND"), &cfg.Backend)
	s.setString("seed", env("SEED"), &cfg.Seed)
	s.setString("dir", env("DIR"), &cfg.Dir)
	s.setString("state-dir", env("STATE_DIR"), &cfg.StateDir)
	s.setString("log-format", env("LOG_FORMAT"), &cfg.LogFormat)
	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)
	s.setString("mqtt-broker", env("MQTT_BROKER"), &cfg.MQTTBroker)
	s.setString("mqtt-client-id", env("MQTT_CLIENT_ID"), &cfg.MQTTClientID)
	s.setString("mqtt-topic", env("MQTT_TOPIC"), &cfg.MQTTTopic)

	if err := s.setUint32FromString("salt", env("SALT"), &cfg.Salt); err != nil {
		return err
	}
	if err := s.setDuration("poll", env("POLL_INTERVAL"), &cfg.PollInterval); err != nil {
		return err
	}
	if err := s.setDuration("open-timeout", env("OPEN_TIMEOUT"), &cfg.OpenTimeout); err != nil {
		return err
	}
	if err := s.setDuration("timeout", env("TIMEOUT"), &cfg.Timeout); err != nil {
		return err
	}
	if err := s.setIntFromString("max-detections", env("MAX_DETECTIONS"), &cfg.MaxDetections); err != nil {
		return err
	}
	if err := s.setIntFromString("max-torn-retries", env("MAX_TORN_RETRIES"), &cfg.MaxTornRetries); err != nil {
		return err
	}
	if err := s.setIntFromString("mqtt-qos", env("MQTT_QOS"), &cfg.MQTTQoS); err != nil {
		return err
	}
	return nil
}
