package sensor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/luki/roaster/internal/roast"
)

// Source kinds accepted by Open.
const (
	KindSimulated = "simulated"
	KindIIO       = "iio"
	KindHwmon     = "hwmon"
	KindCommand   = "command"
)

const defaultCommandTimeout = 2 * time.Second

var ErrUnknownKind = errors.New("unknown sensor kind")

// Config selects and parameterises a source.
type Config struct {
	Kind    string        `mapstructure:"kind"`
	Path    string        `mapstructure:"path"`    // iio device dir or hwmon tempN_input file
	Command []string      `mapstructure:"command"` // argv printing one temperature
	Timeout time.Duration `mapstructure:"timeout"` // command timeout
}

// Open builds the source described by cfg.
func Open(cfg Config) (roast.Sensor, error) {
	switch strings.ToLower(cfg.Kind) {
	case "", KindSimulated:
		return NewSimulated(time.Now, uint64(time.Now().UnixNano())), nil
	case KindIIO:
		if cfg.Path == "" {
			return nil, fmt.Errorf("iio sensor: path is required")
		}
		return &IIO{Dir: cfg.Path}, nil
	case KindHwmon:
		if cfg.Path == "" {
			return nil, fmt.Errorf("hwmon sensor: path is required")
		}
		return &Hwmon{Path: cfg.Path}, nil
	case KindCommand:
		if len(cfg.Command) == 0 {
			return nil, fmt.Errorf("command sensor: command is required")
		}
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultCommandTimeout
		}
		return &Command{Argv: cfg.Command, Timeout: timeout}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
	}
}

// IIO reads an industrial-I/O temperature channel, the interface the
// max6675 and max31855 thermocouple drivers expose. The processed value is
// (in_temp_raw + in_temp_offset) * in_temp_scale millidegrees Celsius.
type IIO struct {
	Dir string
}

func (s *IIO) Read(context.Context) (float64, error) {
	raw, err := readSysfsFloat(filepath.Join(s.Dir, "in_temp_raw"))
	if err != nil {
		return math.NaN(), err
	}
	scale := 1.0
	if v, err := readSysfsFloat(filepath.Join(s.Dir, "in_temp_scale")); err == nil {
		scale = v
	}
	offset := 0.0
	if v, err := readSysfsFloat(filepath.Join(s.Dir, "in_temp_offset")); err == nil {
		offset = v
	}
	return (raw + offset) * scale / 1000.0, nil
}

// Hwmon reads a hwmon tempN_input file in millidegrees Celsius.
type Hwmon struct {
	Path string
}

func (s *Hwmon) Read(context.Context) (float64, error) {
	milli, err := readSysfsFloat(s.Path)
	if err != nil {
		return math.NaN(), err
	}
	return milli / 1000.0, nil
}

// Command runs an external program per reading and parses the first field
// of its output as degrees Celsius.
type Command struct {
	Argv    []string
	Timeout time.Duration
}

func (s *Command) Read(ctx context.Context) (float64, error) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	out, err := exec.CommandContext(ctx, s.Argv[0], s.Argv[1:]...).Output()
	if err != nil {
		return math.NaN(), fmt.Errorf("run %s: %w", s.Argv[0], err)
	}
	fields := strings.Fields(string(out))
	if len(fields) == 0 {
		return math.NaN(), fmt.Errorf("%s: empty output", s.Argv[0])
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(fields[0], "°C"), 64)
	if err != nil {
		return math.NaN(), fmt.Errorf("%s: %w", s.Argv[0], err)
	}
	return v, nil
}

// Simulated follows a typical drum roast from charge to drop with a little
// probe noise. The clock starts at the first Read.
type Simulated struct {
	now   func() time.Time
	rng   *rand.Rand
	start time.Time
	Noise float64 // peak-to-peak jitter in °C
}

// NewSimulated returns a simulated probe driven by now.
func NewSimulated(now func() time.Time, seed uint64) *Simulated {
	return &Simulated{
		now:   now,
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		Noise: 0.8,
	}
}

func (s *Simulated) Read(context.Context) (float64, error) {
	now := s.now()
	if s.start.IsZero() {
		s.start = now
	}
	jitter := (s.rng.Float64() - 0.5) * s.Noise
	return RoastCurve(now.Sub(s.start)) + jitter, nil
}

// Roast curve shape: beans are charged into a 200°C drum, the probe bottoms
// out at the turning point and then climbs toward 230°C with falling RoR.
const (
	chargeTemp   = 200.0
	turningTemp  = 92.0
	turningPoint = 90 * time.Second
	ceilingTemp  = 230.0
	riseConstant = 420.0 // seconds
)

// RoastCurve returns the noiseless simulated bean temperature after elapsed.
func RoastCurve(elapsed time.Duration) float64 {
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed <= turningPoint {
		frac := elapsed.Seconds() / turningPoint.Seconds()
		return chargeTemp - (chargeTemp-turningTemp)*math.Sqrt(frac)
	}
	t := (elapsed - turningPoint).Seconds()
	return turningTemp + (ceilingTemp-turningTemp)*(1-math.Exp(-t/riseConstant))
}

func readSysfsFloat(path string) (float64, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(string(bytes.TrimSpace(b)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	return v, nil
}

func readSysfsString(path string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(bytes.TrimSpace(b))
}
