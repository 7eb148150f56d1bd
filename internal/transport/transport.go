// Package transport delivers record batches to where they are collected:
// an HTTP endpoint, an MQTT broker or a local CSV file.
package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/luki/roaster/internal/roast"
	"github.com/luki/roaster/internal/store"
)

// Transport kinds accepted by Open.
const (
	KindHTTP = "http"
	KindMQTT = "mqtt"
	KindCSV  = "csv"
)

// SessionHeader carries the roast session ID on HTTP deliveries.
const SessionHeader = "X-Roast-Session"

const defaultTimeout = 10 * time.Second

var ErrUnknownKind = errors.New("unknown transport kind")

// Sender is a roast.Sender that holds a connection or file.
type Sender interface {
	roast.Sender
	io.Closer
}

// Config selects and parameterises a transport.
type Config struct {
	Kind    string        `mapstructure:"kind"`
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
	Dir     string        `mapstructure:"dir"`
	MQTT    MQTTConfig    `mapstructure:"mqtt"`
}

// Batch is the body of one delivery: {"data":[record,...]}.
type Batch struct {
	Data []roast.Record `json:"data"`
}

// Encode renders records as a Batch body.
func Encode(records []roast.Record) ([]byte, error) {
	if records == nil {
		records = []roast.Record{}
	}
	return json.Marshal(Batch{Data: records})
}

// Decode parses a Batch body.
func Decode(r io.Reader) ([]roast.Record, error) {
	var b Batch
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return nil, fmt.Errorf("decode batch: %w", err)
	}
	return b.Data, nil
}

// Open builds the transport described by cfg for one session.
func Open(cfg Config, session string, log zerolog.Logger) (Sender, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	log = log.With().Str("component", "transport").Str("kind", cfg.Kind).Logger()

	switch strings.ToLower(cfg.Kind) {
	case "", KindHTTP:
		if cfg.URL == "" {
			return nil, fmt.Errorf("http transport: url is required")
		}
		return NewHTTP(cfg.URL, session, timeout, log), nil
	case KindMQTT:
		if cfg.MQTT.Broker == "" {
			return nil, fmt.Errorf("mqtt transport: broker is required")
		}
		return NewMQTT(cfg.MQTT, session, timeout, log), nil
	case KindCSV:
		ds, err := store.New(cfg.Dir)
		if err != nil {
			return nil, fmt.Errorf("csv transport: %w", err)
		}
		return NewCSV(ds, session), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
	}
}
