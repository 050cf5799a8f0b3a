package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/bft-labs/shmslot/internal/domain"
	"github.com/bft-labs/shmslot/pkg/log"
	"github.com/bft-labs/shmslot/pkg/record"
)

// MQTTConfig configures the MQTT sink.
type MQTTConfig struct {
	// Broker is a URL such as tcp://localhost:1883.
	Broker   string
	ClientID string
	// TopicPrefix is prepended to /frames and /status.
	TopicPrefix string
	QoS         byte
	Timeout     time.Duration
}

// Publisher is the subset of mqtt.Client the sink uses.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTT publishes every frame as JSON to <prefix>/frames and a retained
// "drained" message to <prefix>/status on Finish.
type MQTT struct {
	cfg       MQTTConfig
	client    Publisher
	logger    log.Logger
	published atomic.Uint64
	failed    atomic.Uint64
}

// DialMQTT connects to the broker.
func DialMQTT(cfg MQTTConfig, logger log.Logger) (*MQTT, error) {
	logger = log.OrNoop(logger)
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost, reconnecting", log.String("broker", cfg.Broker), log.Err(err))
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.Timeout) {
		client.Disconnect(0)
		return nil, fmt.Errorf("mqtt: connect to %s: timeout", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt: connect to %s: %w", cfg.Broker, err)
	}
	logger.Info("mqtt connected", log.String("broker", cfg.Broker), log.String("client_id", cfg.ClientID))
	return NewMQTT(cfg, client, logger), nil
}

// NewMQTT wraps an already connected client.
func NewMQTT(cfg MQTTConfig, client Publisher, logger log.Logger) *MQTT {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &MQTT{cfg: cfg, client: client, logger: log.OrNoop(logger)}
}

func (m *MQTT) topic(leaf string) string {
	if m.cfg.TopicPrefix == "" {
		return leaf
	}
	return m.cfg.TopicPrefix + "/" + leaf
}

func (m *MQTT) publish(topic string, retained bool, payload []byte) error {
	token := m.client.Publish(topic, m.cfg.QoS, retained, payload)
	if !token.WaitTimeout(m.cfg.Timeout) {
		m.failed.Add(1)
		return fmt.Errorf("mqtt: publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		m.failed.Add(1)
		return fmt.Errorf("mqtt: publish %s: %w", topic, err)
	}
	return nil
}

func (m *MQTT) Write(_ context.Context, f record.FrameDetections) error {
	payload, err := json.Marshal(domain.FromRecord(f))
	if err != nil {
		return err
	}
	if err := m.publish(m.topic("frames"), false, payload); err != nil {
		return err
	}
	m.published.Add(1)
	m.logger.Debug("frame published", log.Int32("frame", f.FrameNumber()), log.Int("size", len(payload)))
	return nil
}

// Finish publishes the retained drained status.
func (m *MQTT) Finish() error {
	return m.publish(m.topic("status"), true, []byte(`{"state":"drained"}`))
}

// Close disconnects.
func (m *MQTT) Close() error {
	m.client.Disconnect(250)
	m.logger.Info("mqtt disconnected",
		log.Uint64("published", m.published.Load()),
		log.Uint64("failed", m.failed.Load()),
	)
	return nil
}

// Published returns the number of frames delivered.
func (m *MQTT) Published() uint64 { return m.published.Load() }
