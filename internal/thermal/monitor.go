package thermal

import (
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// State is the discovery state of the monitor.
type State int

const (
	Undiscovered State = iota
	Discovered
)

// Sensor is one readable temperature input.
type Sensor struct {
	Label string `json:"label"`
	Path  string `json:"path"`
	Kind  string `json:"kind"` // "hwmon" | "thermal"
}

// Reading is one successful sensor read.
type Reading struct {
	Label   string  `json:"label"`
	Celsius float64 `json:"celsius"`
}

// preferLabels are CPU-wide hwmon labels accepted when no per-package
// sensor exists.
var preferLabels = []string{"Tctl", "Tdie", "Physical id", "CPU", "Pkg", "Package"}

var packageIDRe = regexp.MustCompile(`Package id\s+(\d+)`)

// Monitor discovers CPU temperature sensors under sysfs and reads them each
// tick. Discovery is retried on a cooldown while no sensor is known; a
// sensor set that stops producing any reading for failAfter reverts the
// monitor to rediscovery (hot-unplug, VM migration).
type Monitor struct {
	hwmonGlob   string
	thermalGlob string
	cooldown    time.Duration
	failAfter   time.Duration

	state         State
	sensors       []Sensor
	lastDiscovery time.Time
	lastSuccess   time.Time
}

// Option adjusts a Monitor, mainly for tests.
type Option func(*Monitor)

// WithSysfsRoot points discovery at an alternate filesystem root.
func WithSysfsRoot(root string) Option {
	return func(m *Monitor) {
		m.hwmonGlob = filepath.Join(root, "class/hwmon/hwmon*")
		m.thermalGlob = filepath.Join(root, "class/thermal/thermal_zone*")
	}
}

// NewMonitor builds a Monitor with the given rediscovery cooldown and
// all-sensors-failed revert interval.
func NewMonitor(cooldown, failAfter time.Duration, opts ...Option) *Monitor {
	m := &Monitor{
		hwmonGlob:   "/sys/class/hwmon/hwmon*",
		thermalGlob: "/sys/class/thermal/thermal_zone*",
		cooldown:    cooldown,
		failAfter:   failAfter,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current discovery state.
func (m *Monitor) State() State { return m.state }

// SensorCount returns how many sensors are currently known.
func (m *Monitor) SensorCount() int { return len(m.sensors) }

// Poll runs one tick: discovery if due, then a read of every known sensor.
// It returns the per-sensor readings and the maximum temperature. ok is
// false when no sensor produced a value this tick: absent, not an error.
func (m *Monitor) Poll(now time.Time) (readings []Reading, maxC float64, ok bool) {
	if m.state == Undiscovered {
		if !m.lastDiscovery.IsZero() && now.Sub(m.lastDiscovery) < m.cooldown {
			return nil, 0, false
		}
		m.lastDiscovery = now
		m.sensors = m.discover()
		if len(m.sensors) == 0 {
			return nil, 0, false
		}
		m.state = Discovered
		m.lastSuccess = now
		slog.Info("thermal: sensors discovered", "count", len(m.sensors))
	}

	for _, s := range m.sensors {
		v, err := readMilli(s.Path)
		if err != nil {
			continue
		}
		c := v / 1000.0
		readings = append(readings, Reading{Label: s.Label, Celsius: c})
		if !ok || c > maxC {
			maxC = c
			ok = true
		}
	}

	if ok {
		m.lastSuccess = now
		return readings, maxC, true
	}

	// Every sensor failed. Tolerate transient dropouts; revert to
	// rediscovery only after a sustained silence.
	if now.Sub(m.lastSuccess) >= m.failAfter {
		slog.Warn("thermal: all sensors silent, reverting to discovery",
			"sensors", len(m.sensors), "silent_for", now.Sub(m.lastSuccess))
		m.state = Undiscovered
		m.sensors = nil
		m.lastDiscovery = now
	}
	return nil, 0, false
}

// discover walks the sensor families in preference order and returns the
// first non-empty set:
//  1. coretemp hwmon inputs labeled "Package id N", sorted by package id
//  2. coretemp inputs with a CPU-wide label
//  3. any coretemp input
//  4. x86_pkg_temp thermal zones
//  5. any thermal zone
func (m *Monitor) discover() []Sensor {
	var coretemps []string
	hwmons, _ := filepath.Glob(m.hwmonGlob)
	sort.Strings(hwmons)
	for _, hw := range hwmons {
		if name, err := readText(filepath.Join(hw, "name")); err == nil && name == "coretemp" {
			coretemps = append(coretemps, hw)
		}
	}

	var sensors []Sensor
	for _, hw := range coretemps {
		sensors = append(sensors, collectHwmon(hw, func(l string) bool {
			return strings.Contains(l, "Package")
		})...)
	}
	if len(sensors) > 0 {
		sort.SliceStable(sensors, func(i, j int) bool {
			return packageID(sensors[i].Label) < packageID(sensors[j].Label)
		})
		return sensors
	}

	for _, hw := range coretemps {
		sensors = append(sensors, collectHwmon(hw, func(l string) bool {
			for _, want := range preferLabels {
				if strings.Contains(l, want) {
					return true
				}
			}
			return false
		})...)
	}
	if len(sensors) > 0 {
		return sensors
	}

	for _, hw := range coretemps {
		sensors = append(sensors, collectHwmon(hw, nil)...)
	}
	if len(sensors) > 0 {
		return sensors
	}

	if zones := m.collectThermalZones(func(typ string) bool { return typ == "x86_pkg_temp" }); len(zones) > 0 {
		return zones
	}
	return m.collectThermalZones(nil)
}

// collectHwmon gathers temp*_input files under one hwmon device, filtered
// by label predicate (nil accepts everything).
func collectHwmon(hwPath string, wantLabel func(string) bool) []Sensor {
	var out []Sensor
	inputs, _ := filepath.Glob(filepath.Join(hwPath, "temp*_input"))
	sort.Strings(inputs)
	for _, input := range inputs {
		base := strings.TrimSuffix(filepath.Base(input), "_input")
		label, err := readText(filepath.Join(hwPath, base+"_label"))
		if err != nil {
			label = base
		}
		if wantLabel != nil && !wantLabel(label) {
			continue
		}
		out = append(out, Sensor{Label: label, Path: input, Kind: "hwmon"})
	}
	return out
}

// collectThermalZones gathers thermal zones filtered by type (nil accepts
// everything).
func (m *Monitor) collectThermalZones(wantType func(string) bool) []Sensor {
	var out []Sensor
	zones, _ := filepath.Glob(m.thermalGlob)
	sort.Strings(zones)
	for _, tz := range zones {
		typ, err := readText(filepath.Join(tz, "type"))
		if err != nil {
			typ = "unknown"
		}
		if wantType != nil && !wantType(typ) {
			continue
		}
		tempPath := filepath.Join(tz, "temp")
		if _, err := os.Stat(tempPath); err != nil {
			continue
		}
		out = append(out, Sensor{
			Label: filepath.Base(tz) + ":" + typ,
			Path:  tempPath,
			Kind:  "thermal",
		})
	}
	return out
}

func packageID(label string) int {
	if m := packageIDRe.FindStringSubmatch(label); m != nil {
		if id, err := strconv.Atoi(m[1]); err == nil {
			return id
		}
	}
	return 999
}

func readText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func readMilli(path string) (float64, error) {
	text, err := readText(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, err
	}
	return v, nil
}
