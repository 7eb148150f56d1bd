package sensor

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
)

// Discover lists the IIO temperature channels and hwmon inputs under root
// ("" means "/"), thermocouples first, reading each once.
func Discover(root string) []Probe {
	if root == "" {
		root = "/"
	}

	var probes []Probe
	probes = append(probes, discoverIIO(root)...)
	probes = append(probes, discoverHwmon(root)...)

	sort.SliceStable(probes, func(i, j int) bool {
		return IsThermocouple(probes[i].Driver) && !IsThermocouple(probes[j].Driver)
	})
	return probes
}

func discoverIIO(root string) []Probe {
	matches, _ := filepath.Glob(filepath.Join(root, "sys/bus/iio/devices/iio:device*/in_temp_raw"))
	var probes []Probe
	for _, rawPath := range matches {
		dir := filepath.Dir(rawPath)
		p := Probe{
			Kind:   KindIIO,
			Driver: readSysfsString(filepath.Join(dir, "name")),
			Path:   dir,
			Label:  filepath.Base(dir),
		}
		p.Temp, p.Err = (&IIO{Dir: dir}).Read(context.Background())
		probes = append(probes, p)
	}
	return probes
}

func discoverHwmon(root string) []Probe {
	matches, _ := filepath.Glob(filepath.Join(root, "sys/class/hwmon/hwmon*/temp*_input"))
	var probes []Probe
	for _, input := range matches {
		dir := filepath.Dir(input)
		label := strings.TrimSuffix(filepath.Base(input), "_input")
		if l := readSysfsString(filepath.Join(dir, label+"_label")); l != "" {
			label = l
		}
		p := Probe{
			Kind:   KindHwmon,
			Driver: readSysfsString(filepath.Join(dir, "name")),
			Path:   input,
			Label:  label,
		}
		p.Temp, p.Err = (&Hwmon{Path: input}).Read(context.Background())
		probes = append(probes, p)
	}
	return probes
}
