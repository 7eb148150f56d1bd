package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luki/roaster/internal/roast"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Equal(t, roast.DefaultConfig(), cfg.Engine.Roast())
	require.Equal(t, "simulated", cfg.Sensor.Kind)
	require.Equal(t, 2*time.Second, cfg.Sensor.Timeout)
	require.Equal(t, "http", cfg.Transport.Kind)
	require.Equal(t, "http://localhost:8080/batches", cfg.Transport.URL)
	require.Equal(t, 10*time.Second, cfg.Transport.Timeout)
	require.Equal(t, "roast/{session}/telemetry", cfg.Transport.MQTT.Topic)
	require.Equal(t, byte(1), cfg.Transport.MQTT.QoS)
	require.Equal(t, ":8080", cfg.Collector.Addr)
	require.Equal(t, "info", cfg.Log.Level)
	require.False(t, cfg.Headless)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := filepath.Join(dir, "roaster.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
engine:
  batch_size: 5
  tick_period: 500ms
sensor:
  kind: iio
  path: /sys/bus/iio/devices/iio:device0
transport:
  kind: mqtt
  mqtt:
    broker: broker.local:1883
    qos: 0
data_dir: ~/roasts
`), 0644))
	t.Setenv("ROASTER_ENGINE_WINDOW", "4")
	t.Setenv("ROASTER_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 5, cfg.Engine.BatchSize)
	require.Equal(t, 500*time.Millisecond, cfg.Engine.TickPeriod)
	require.Equal(t, 4, cfg.Engine.Window)
	require.Equal(t, "iio", cfg.Sensor.Kind)
	require.Equal(t, "/sys/bus/iio/devices/iio:device0", cfg.Sensor.Path)
	require.Equal(t, "mqtt", cfg.Transport.Kind)
	require.Equal(t, "broker.local:1883", cfg.Transport.MQTT.Broker)
	require.Equal(t, byte(0), cfg.Transport.MQTT.QoS)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, filepath.Join(home, "roasts"), cfg.DataDir)
	require.Equal(t, cfg.DataDir, cfg.Transport.Dir)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Engine.BatchSize = 0
	cfg.Transport.MQTT.QoS = 3
	cfg.Collector.Addr = ""

	err = cfg.Validate()
	require.ErrorIs(t, err, roast.ErrInvalidConfig)
	require.ErrorContains(t, err, "qos")
	require.ErrorContains(t, err, "collector.addr")
}
