// Package sensor provides the temperature sources a roast can be sampled
// from: Linux IIO thermocouple amplifiers, hwmon inputs, an external command
// and a simulated roast curve. Discover lists the probes present in sysfs.
package sensor

// Probe describes one temperature input found on the host.
type Probe struct {
	Kind   string // "iio" or "hwmon"
	Driver string // e.g. "max6675"
	Path   string // sysfs file or directory the source reads
	Label  string // e.g. "temp1"
	Temp   float64
	Err    error // set when the probe was found but could not be read
}

// Key returns a unique identifier for this probe.
func (p Probe) Key() string {
	return p.Driver + "/" + p.Label
}
