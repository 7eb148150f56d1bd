// Package config loads roaster settings from roaster.yaml, ROASTER_*
// environment variables and defaults, in increasing order of precedence
// below command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/luki/roaster/internal/logging"
	"github.com/luki/roaster/internal/roast"
	"github.com/luki/roaster/internal/sensor"
	"github.com/luki/roaster/internal/transport"
)

const (
	fileName  = "roaster"
	envPrefix = "ROASTER"
)

// Config holds every setting the roaster binary uses.
type Config struct {
	Engine    EngineConfig     `mapstructure:"engine"`
	Sensor    sensor.Config    `mapstructure:"sensor"`
	Transport transport.Config `mapstructure:"transport"`
	Indicator IndicatorConfig  `mapstructure:"indicator"`
	Collector CollectorConfig  `mapstructure:"collector"`
	Log       logging.Config   `mapstructure:"log"`
	DataDir   string           `mapstructure:"data_dir"`
	Headless  bool             `mapstructure:"headless"`
}

type EngineConfig struct {
	Window       int           `mapstructure:"window"`
	BatchSize    int           `mapstructure:"batch_size"`
	TickPeriod   time.Duration `mapstructure:"tick_period"`
	PollPeriod   time.Duration `mapstructure:"poll_period"`
	UploadRate   float64       `mapstructure:"upload_rate"`
	FlushTimeout time.Duration `mapstructure:"flush_timeout"`
}

// Roast converts the engine section to the engine's own config.
func (e EngineConfig) Roast() roast.Config {
	return roast.Config{
		Window:       e.Window,
		BatchSize:    e.BatchSize,
		TickPeriod:   e.TickPeriod,
		PollPeriod:   e.PollPeriod,
		UploadRate:   e.UploadRate,
		FlushTimeout: e.FlushTimeout,
	}
}

type IndicatorConfig struct {
	LED string `mapstructure:"led"` // /sys/class/leds name, empty for none
}

type CollectorConfig struct {
	Addr   string `mapstructure:"addr"`
	Broker string `mapstructure:"broker"` // also consume MQTT from here when set
	Topic  string `mapstructure:"topic"`
}

func setDefaults(v *viper.Viper) {
	d := roast.DefaultConfig()
	v.SetDefault("engine.window", d.Window)
	v.SetDefault("engine.batch_size", d.BatchSize)
	v.SetDefault("engine.tick_period", d.TickPeriod)
	v.SetDefault("engine.poll_period", d.PollPeriod)
	v.SetDefault("engine.upload_rate", d.UploadRate)
	v.SetDefault("engine.flush_timeout", d.FlushTimeout)

	v.SetDefault("sensor.kind", sensor.KindSimulated)
	v.SetDefault("sensor.path", "")
	v.SetDefault("sensor.command", []string{})
	v.SetDefault("sensor.timeout", "2s")

	v.SetDefault("transport.kind", transport.KindHTTP)
	v.SetDefault("transport.url", "http://localhost:8080/batches")
	v.SetDefault("transport.timeout", "10s")
	v.SetDefault("transport.dir", "")
	v.SetDefault("transport.mqtt.broker", "localhost:1883")
	v.SetDefault("transport.mqtt.topic", transport.DefaultTopic)
	v.SetDefault("transport.mqtt.qos", 1)
	v.SetDefault("transport.mqtt.client_id", "")
	v.SetDefault("transport.mqtt.keep_alive", 30)

	v.SetDefault("indicator.led", "")

	v.SetDefault("collector.addr", ":8080")
	v.SetDefault("collector.broker", "")
	v.SetDefault("collector.topic", "roast/+/telemetry")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("data_dir", "")
	v.SetDefault("headless", false)
}

// Load reads configuration. path names an explicit config file; when empty
// roaster.yaml is searched in ".", "$HOME/.roaster" and "/etc/roaster", and a
// missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(fileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".roaster"))
		}
		v.AddConfigPath("/etc/roaster")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.expand()
	return &cfg, nil
}

func (c *Config) expand() {
	c.DataDir = expandHome(c.DataDir)
	c.Transport.Dir = expandHome(c.Transport.Dir)
	if c.Transport.Dir == "" {
		c.Transport.Dir = c.DataDir
	}
	c.Log.File = expandHome(c.Log.File)
}

// Validate checks the settings the engine does not check itself.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Engine.Roast().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Transport.MQTT.QoS > 2 {
		errs = append(errs, fmt.Errorf("transport.mqtt.qos must be 0, 1 or 2, got %d", c.Transport.MQTT.QoS))
	}
	if c.Collector.Addr == "" {
		errs = append(errs, errors.New("collector.addr is required"))
	}
	return errors.Join(errs...)
}

// DefaultLogFile is where logs go while the TUI owns the terminal.
func DefaultLogFile() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".roaster", "roaster.log")
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
