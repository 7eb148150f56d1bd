package sensor

import "strings"

// driverIdentityMap maps driver name prefixes to friendly probe names.
var driverIdentityMap = []struct {
	prefix string
	name   string
}{
	{"max6675", "K-type thermocouple (MAX6675)"},
	{"max31855", "Thermocouple (MAX31855)"},
	{"max31856", "Thermocouple (MAX31856)"},
	{"max31865", "RTD (MAX31865)"},
	{"mcp9600", "Thermocouple (MCP9600)"},
	{"mcp9601", "Thermocouple (MCP9601)"},
	{"w1_slave_temp", "1-Wire probe"},
	{"ds18b20", "1-Wire probe"},
	{"cpu_thermal", "SoC"},
	{"coretemp", "CPU"},
	{"k10temp", "CPU"},
	{"rpi_volt", "SoC"},
	{"simulated", "Simulated roast"},
}

// FriendlyName returns a human-readable probe name for a driver name.
func FriendlyName(driver string) string {
	lower := strings.ToLower(driver)
	for _, entry := range driverIdentityMap {
		if strings.HasPrefix(lower, entry.prefix) {
			return entry.name
		}
	}
	return "Sensor"
}

// IsThermocouple reports whether driver is a thermocouple or RTD front end,
// the probes that can follow bean temperature.
func IsThermocouple(driver string) bool {
	lower := strings.ToLower(driver)
	for _, p := range []string{"max6675", "max3185", "max31865", "mcp960"} {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}
