package transport

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eclipse/paho.golang/paho"
	"github.com/rs/zerolog"

	"github.com/luki/roaster/internal/roast"
)

// DefaultTopic is the publish topic; {session} is replaced by the session ID.
const DefaultTopic = "roast/{session}/telemetry"

// MQTTConfig describes the broker connection.
type MQTTConfig struct {
	Broker    string `mapstructure:"broker"` // host:port
	Topic     string `mapstructure:"topic"`
	QoS       byte   `mapstructure:"qos"`
	ClientID  string `mapstructure:"client_id"`
	KeepAlive uint16 `mapstructure:"keep_alive"` // seconds
}

// MQTT publishes each batch as one message. The connection is opened on the
// first Send and re-opened on the Send after any client or server error.
type MQTT struct {
	cfg     MQTTConfig
	topic   string
	session string
	timeout time.Duration
	log     zerolog.Logger

	mu     sync.Mutex
	client *paho.Client
	gen    uint64

	brokenGen atomic.Uint64
}

func NewMQTT(cfg MQTTConfig, session string, timeout time.Duration, log zerolog.Logger) *MQTT {
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "roaster-" + session
	}
	if cfg.KeepAlive == 0 {
		cfg.KeepAlive = 30
	}
	return &MQTT{
		cfg:     cfg,
		topic:   strings.ReplaceAll(cfg.Topic, "{session}", session),
		session: session,
		timeout: timeout,
		log:     log,
	}
}

// Topic returns the resolved publish topic.
func (m *MQTT) Topic() string { return m.topic }

func (m *MQTT) Send(ctx context.Context, batch []roast.Record) error {
	payload, err := Encode(batch)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	m.mu.Lock()
	defer m.mu.Unlock()

	client, err := m.connectLocked(ctx)
	if err != nil {
		return err
	}

	_, err = client.Publish(ctx, &paho.Publish{
		Topic:   m.topic,
		QoS:     m.cfg.QoS,
		Payload: payload,
		Properties: &paho.PublishProperties{
			ContentType: "application/json",
			User:        paho.UserProperties{{Key: "session", Value: m.session}},
		},
	})
	if err != nil {
		m.dropLocked()
		return fmt.Errorf("publish batch: %w", err)
	}
	m.log.Debug().Str("topic", m.topic).Int("records", len(batch)).Msg("batch published")
	return nil
}

func (m *MQTT) connectLocked(ctx context.Context) (*paho.Client, error) {
	if m.client != nil && m.brokenGen.Load() != m.gen {
		return m.client, nil
	}
	m.dropLocked()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", m.cfg.Broker)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}

	m.gen++
	gen := m.gen
	client := paho.NewClient(paho.ClientConfig{
		ClientID: m.cfg.ClientID,
		Conn:     conn,
		OnClientError: func(err error) {
			m.log.Warn().Err(err).Msg("mqtt client error")
			m.markBroken(gen)
		},
		OnServerDisconnect: func(d *paho.Disconnect) {
			m.log.Warn().Uint8("reason", d.ReasonCode).Msg("mqtt server disconnected")
			m.markBroken(gen)
		},
	})

	if _, err := client.Connect(ctx, &paho.Connect{
		ClientID:   m.cfg.ClientID,
		KeepAlive:  m.cfg.KeepAlive,
		CleanStart: true,
	}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("connect broker: %w", err)
	}

	m.client = client
	m.log.Info().Str("broker", m.cfg.Broker).Str("topic", m.topic).Msg("mqtt connected")
	return client, nil
}

// markBroken runs on paho's goroutines without the lock; a stale
// generation never matches the current client.
func (m *MQTT) markBroken(gen uint64) {
	m.brokenGen.Store(gen)
}

func (m *MQTT) dropLocked() {
	if m.client == nil {
		return
	}
	_ = m.client.Disconnect(&paho.Disconnect{ReasonCode: 0})
	m.client = nil
}

func (m *MQTT) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropLocked()
	return nil
}
