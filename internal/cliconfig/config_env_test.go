package cliconfig

import (
	"testing"
	"time"
)

func TestApplyEnvConfig(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		changed  map[string]bool
		initial  Config
		expected Config
		wantErr  bool
	}{
		{
			name: "applies all valid env vars",
			envVars: map[string]string{
				"SHMSLOT_BACKEND":          "file",
				"SHMSLOT_SEED":             "cam0",
				"SHMSLOT_SALT":             "0x42",
				"SHMSLOT_DIR":              "/run/shm",
				"SHMSLOT_MAX_DETECTIONS":   "40",
				"SHMSLOT_POLL_INTERVAL":    "5ms",
				"SHMSLOT_MAX_TORN_RETRIES": "3",
				"SHMSLOT_OPEN_TIMEOUT":     "2s",
				"SHMSLOT_TIMEOUT":          "1m",
				"SHMSLOT_STATE_DIR":        "/state",
				"SHMSLOT_LOG_FORMAT":       "json",
				"SHMSLOT_LOG_LEVEL":        "debug",
				"SHMSLOT_MQTT_BROKER":      "tcp://localhost:1883",
				"SHMSLOT_MQTT_CLIENT_ID":   "consumer-1",
				"SHMSLOT_MQTT_TOPIC":       "cams/0",
				"SHMSLOT_MQTT_QOS":         "1",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				Backend:        "file",
				Seed:           "cam0",
				Salt:           0x42,
				Dir:            "/run/shm",
				MaxDetections:  40,
				PollInterval:   5 * time.Millisecond,
				MaxTornRetries: 3,
				OpenTimeout:    2 * time.Second,
				Timeout:        time.Minute,
				StateDir:       "/state",
				LogFormat:      "json",
				LogLevel:       "debug",
				MQTTBroker:     "tcp://localhost:1883",
				MQTTClientID:   "consumer-1",
				MQTTTopic:      "cams/0",
				MQTTQoS:        1,
			},
		},
		{
			name: "respects changed flags",
			envVars: map[string]string{
				"SHMSLOT_SEED": "env-seed",
				"SHMSLOT_SALT": "9",
			},
			changed:  map[string]bool{"seed": true, "salt": true},
			initial:  Config{Seed: "flag-seed", Salt: 1},
			expected: Config{Seed: "flag-seed", Salt: 1},
		},
		{
			name:     "zero salt is applied",
			envVars:  map[string]string{"SHMSLOT_SALT": "0"},
			changed:  map[string]bool{},
			initial:  Config{Salt: 65},
			expected: Config{Salt: 0},
		},
		{
			name:     "non-positive int is ignored",
			envVars:  map[string]string{"SHMSLOT_MAX_DETECTIONS": "0"},
			changed:  map[string]bool{},
			initial:  Config{MaxDetections: 50},
			expected: Config{MaxDetections: 50},
		},
		{
			name:    "returns error for invalid duration",
			envVars: map[string]string{"SHMSLOT_POLL_INTERVAL": "not-a-duration"},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:    "returns error for invalid int",
			envVars: map[string]string{"SHMSLOT_MAX_DETECTIONS": "many"},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:    "returns error for salt out of range",
			envVars: map[string]string{"SHMSLOT_SALT": "4294967296"},
			changed: map[string]bool{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := tt.initial
			err := ApplyEnvConfig(&cfg, tt.changed)

			if tt.wantErr {
				if err == nil {
					t.Error("ApplyEnvConfig() expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ApplyEnvConfig() unexpected error: %v", err)
			}
			if cfg != tt.expected {
				t.Errorf("ApplyEnvConfig() = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}
