package transport

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/eclipse/paho.golang/paho"
	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

// Spin up an in-process MQTT broker on addr.
func startBroker(t *testing.T, addr string) *mochi.Server {
	t.Helper()
	broker := mochi.New(nil)
	require.NoError(t, broker.AddHook(&auth.AllowHook{}, nil))
	require.NoError(t, broker.AddListener(listeners.NewTCP(listeners.Config{
		Type:    "tcp",
		Address: addr,
	})))
	require.NoError(t, broker.Serve())
	t.Cleanup(func() { _ = broker.Close() })
	return broker
}

func subscribe(ctx context.Context, t *testing.T, addr, topic string) <-chan *paho.Publish {
	t.Helper()
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	require.NoError(t, err)

	msgs := make(chan *paho.Publish, 8)
	client := paho.NewClient(paho.ClientConfig{
		ClientID: "collector",
		Conn:     conn,
		OnPublishReceived: []func(paho.PublishReceived) (bool, error){
			func(pr paho.PublishReceived) (bool, error) {
				msgs <- pr.Packet
				return true, nil
			},
		},
	})
	_, err = client.Connect(ctx, &paho.Connect{ClientID: "collector", KeepAlive: 5, CleanStart: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(&paho.Disconnect{}) })

	_, err = client.Subscribe(ctx, &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{{Topic: topic, QoS: 1}},
	})
	require.NoError(t, err)
	return msgs
}

func TestMQTT_PublishesBatch(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	addr := freeAddr(t)
	startBroker(t, addr)
	msgs := subscribe(ctx, t, addr, "roast/+/telemetry")

	m := NewMQTT(MQTTConfig{Broker: addr, QoS: 1}, "abc", 5*time.Second, zerolog.Nop())
	defer m.Close()
	require.Equal(t, "roast/abc/telemetry", m.Topic())

	require.NoError(t, m.Send(ctx, sampleBatch()))

	select {
	case p := <-msgs:
		require.Equal(t, "roast/abc/telemetry", p.Topic)
		require.Equal(t, "application/json", p.Properties.ContentType)
		require.Equal(t, "abc", p.Properties.User.Get("session"))
		want, err := Encode(sampleBatch())
		require.NoError(t, err)
		require.JSONEq(t, string(want), string(p.Payload))
	case <-ctx.Done():
		t.Fatal("no message received")
	}
}

func TestMQTT_ReconnectsAfterBrokerComesUp(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	addr := freeAddr(t)
	m := NewMQTT(MQTTConfig{Broker: addr, Topic: "roast/{session}/t"}, "late", time.Second, zerolog.Nop())
	defer m.Close()

	require.Error(t, m.Send(ctx, sampleBatch()))

	startBroker(t, addr)
	msgs := subscribe(ctx, t, addr, "roast/late/t")
	require.NoError(t, m.Send(ctx, sampleBatch()))

	select {
	case <-msgs:
	case <-ctx.Done():
		t.Fatal("no message received after reconnect")
	}
}
