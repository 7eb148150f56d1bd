package collector

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/eclipse/paho.golang/paho"

	"github.com/luki/roaster/internal/transport"
)

// SubscribeTopic matches every session's telemetry topic.
const SubscribeTopic = "roast/+/telemetry"

// ConsumeMQTT subscribes to topic on broker and stores every batch published
// there until ctx ends. ready, if non-nil, is closed once the subscription
// is active.
func (c *Collector) ConsumeMQTT(ctx context.Context, broker, topic string, ready chan<- struct{}) error {
	if topic == "" {
		topic = SubscribeTopic
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", broker)
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}

	lost := make(chan error, 1)
	client := paho.NewClient(paho.ClientConfig{
		ClientID: "roaster-collector",
		Conn:     conn,
		OnPublishReceived: []func(paho.PublishReceived) (bool, error){
			func(pr paho.PublishReceived) (bool, error) {
				c.handlePublish(pr.Packet)
				return true, nil
			},
		},
		OnClientError: func(err error) {
			select {
			case lost <- err:
			default:
			}
		},
		OnServerDisconnect: func(d *paho.Disconnect) {
			select {
			case lost <- fmt.Errorf("server disconnected: reason %d", d.ReasonCode):
			default:
			}
		},
	})

	if _, err := client.Connect(ctx, &paho.Connect{
		ClientID:   "roaster-collector",
		KeepAlive:  30,
		CleanStart: true,
	}); err != nil {
		_ = conn.Close()
		return fmt.Errorf("connect broker: %w", err)
	}
	defer client.Disconnect(&paho.Disconnect{})

	if _, err := client.Subscribe(ctx, &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{{Topic: topic, QoS: 1}},
	}); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	c.log.Info().Str("broker", broker).Str("topic", topic).Msg("collector subscribed")
	if ready != nil {
		close(ready)
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-lost:
		return err
	}
}

func (c *Collector) handlePublish(p *paho.Publish) {
	session := sessionFromTopic(p.Topic)
	if p.Properties != nil {
		if s := p.Properties.User.Get("session"); s != "" {
			session = s
		}
	}

	records, err := transport.Decode(bytes.NewReader(p.Payload))
	if err != nil {
		c.log.Warn().Err(err).Str("topic", p.Topic).Msg("rejected batch")
		return
	}
	if len(records) == 0 {
		return
	}
	_ = c.accept(session, records)
}

// sessionFromTopic takes the second level of roast/{session}/telemetry.
func sessionFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) >= 3 && parts[1] != "" {
		return parts[1]
	}
	return unknownSession
}
