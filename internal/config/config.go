package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultTickInterval     = 1 * time.Second
	DefaultChronycTimeout   = 2 * time.Second
	DefaultTrackingTTL      = 1 * time.Second
	DefaultSourcesTTL       = 5 * time.Second
	DefaultSourcestatsTTL   = 20 * time.Second
	DefaultHistorySize      = 120
	DefaultAutoscaleWindow  = 120
	DefaultMaxSourceRows    = 7
	DefaultListenAddr       = ":8123"
	DefaultRediscoverEvery  = 60 * time.Second
	DefaultSensorFailAfter  = 60 * time.Second
	DefaultCouplingWindow   = 20
)

// Config is the top-level configuration for chronywatch.
// Fields map 1:1 to config.example.yaml.
type Config struct {
	// TickInterval drives the whole engine: one full poll/score/alert pass
	// per tick.
	TickInterval time.Duration `yaml:"tick_interval"`

	// ListenAddr is the address the HTTP API, /metrics and /ws listen on.
	ListenAddr string `yaml:"listen_addr"`

	// LogJSON selects the JSON slog handler; false gives the text handler.
	LogJSON bool `yaml:"log_json"`

	Chronyc Chronyc `yaml:"chronyc"`
	History History `yaml:"history"`
	Trust   Trust   `yaml:"trust"`
	Thermal Thermal `yaml:"thermal"`
	Alerts  Alerts  `yaml:"alerts"`
}

// Chronyc configures invocation and caching of the chronyc queries.
type Chronyc struct {
	// Binary is the command name resolved via PATH.
	Binary string `yaml:"binary"`

	// Timeout bounds a single chronyc invocation. A query that exceeds it
	// is treated as failed and the previous cached output is kept.
	Timeout time.Duration `yaml:"timeout"`

	// Per-kind refresh TTLs. A kind is re-queried once its TTL has elapsed
	// since the last attempt.
	TrackingTTL    time.Duration `yaml:"tracking_ttl"`
	SourcesTTL     time.Duration `yaml:"sources_ttl"`
	SourcestatsTTL time.Duration `yaml:"sourcestats_ttl"`

	// Per-kind staleness thresholds: age since last success beyond which
	// the cached output raises a STALE DATA alert. Zero means 5x the TTL.
	TrackingStale    time.Duration `yaml:"tracking_stale"`
	SourcesStale     time.Duration `yaml:"sources_stale"`
	SourcestatsStale time.Duration `yaml:"sourcestats_stale"`
}

// History configures the per-metric ring buffers and sparkline scaling.
type History struct {
	// Size is the ring buffer capacity per tracked metric.
	Size int `yaml:"size"`

	// Autoscale selects dynamic scale computation by default; the fixed
	// scales below are used otherwise (and as the autoscale fallback).
	Autoscale bool `yaml:"autoscale"`

	// AutoscaleWindow is how many recent samples feed the autoscale
	// min/max, independent of Size.
	AutoscaleWindow int `yaml:"autoscale_window"`

	// Fixed display scales. Offset and RMS are in seconds, frequency and
	// skew in ppm, temperature in degrees Celsius.
	OffsetScale Scale `yaml:"offset_scale"`
	RMSScale    Scale `yaml:"rms_scale"`
	FreqScale   Scale `yaml:"freq_scale"`
	SkewScale   Scale `yaml:"skew_scale"`
	TempScale   Scale `yaml:"temp_scale"`
}

// Scale is an inclusive display range.
type Scale struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Trust configures source scoring and display.
type Trust struct {
	// MaxSourceRows caps how many scored sources are exposed for display.
	MaxSourceRows int `yaml:"max_source_rows"`
}

// Thermal configures CPU temperature discovery and the coupling window.
type Thermal struct {
	// Enabled turns the temperature monitor on. Sensors may still be
	// absent at runtime; that is not an error.
	Enabled bool `yaml:"enabled"`

	// RediscoverEvery is the cooldown between discovery attempts while no
	// sensor is known.
	RediscoverEvery time.Duration `yaml:"rediscover_every"`

	// FailAfter reverts to rediscovery when every known sensor has failed
	// to read for this long (covers hot-unplug and migration).
	FailAfter time.Duration `yaml:"fail_after"`

	// CouplingWindow is the number of history samples spanned by the
	// temperature/frequency coupling check.
	CouplingWindow int `yaml:"coupling_window"`

	// CouplingTempDelta and CouplingFreqDelta are the minimum temperature
	// (degrees C) and frequency (ppm) movements across the window before a
	// coupling signal is raised.
	CouplingTempDelta float64 `yaml:"coupling_temp_delta"`
	CouplingFreqDelta float64 `yaml:"coupling_freq_delta"`
}

// Alerts holds the health thresholds. Comparisons against upper bounds are
// strict: a value exactly at the threshold does not trigger.
type Alerts struct {
	// LargeOffset and HighOffset partition |offset| into the
	// CLOCK STEP / HIGH OFFSET tiers. Seconds.
	LargeOffset float64 `yaml:"large_offset"`
	HighOffset  float64 `yaml:"high_offset"`

	// HighRMS triggers JITTER. Seconds.
	HighRMS float64 `yaml:"high_rms"`

	// HighFreq triggers DRIFT, HighSkew triggers UNSTABLE OSC. Ppm.
	HighFreq float64 `yaml:"high_freq"`
	HighSkew float64 `yaml:"high_skew"`

	// TimeJump is the tolerated gap between the wall-clock delta and the
	// monotonic delta across one tick. Seconds.
	TimeJump float64 `yaml:"time_jump"`

	// SuspendFactor: a monotonic tick delta above SuspendFactor x
	// TickInterval is reported as a suspend/pause instead of a time jump.
	SuspendFactor float64 `yaml:"suspend_factor"`
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a Config pre-populated with default values. The result
// passes validation as-is, so a missing config file is not fatal.
func Defaults() *Config {
	return &Config{
		TickInterval: DefaultTickInterval,
		ListenAddr:   DefaultListenAddr,
		LogJSON:      true,
		Chronyc: Chronyc{
			Binary:         "chronyc",
			Timeout:        DefaultChronycTimeout,
			TrackingTTL:    DefaultTrackingTTL,
			SourcesTTL:     DefaultSourcesTTL,
			SourcestatsTTL: DefaultSourcestatsTTL,

			TrackingStale:    5 * time.Second,
			SourcesStale:     15 * time.Second,
			SourcestatsStale: 60 * time.Second,
		},
		History: History{
			Size:            DefaultHistorySize,
			Autoscale:       false,
			AutoscaleWindow: DefaultAutoscaleWindow,
			OffsetScale:     Scale{Min: -0.050, Max: 0.050},
			RMSScale:        Scale{Min: 0, Max: 0.050},
			FreqScale:       Scale{Min: -100, Max: 100},
			SkewScale:       Scale{Min: 0, Max: 20},
			TempScale:       Scale{Min: 20, Max: 90},
		},
		Trust: Trust{
			MaxSourceRows: DefaultMaxSourceRows,
		},
		Thermal: Thermal{
			Enabled:         true,
			RediscoverEvery:   DefaultRediscoverEvery,
			FailAfter:         DefaultSensorFailAfter,
			CouplingWindow:    DefaultCouplingWindow,
			CouplingTempDelta: 0.2,
			CouplingFreqDelta: 0.2,
		},
		Alerts: Alerts{
			LargeOffset:   0.050,
			HighOffset:    0.010,
			HighRMS:       0.010,
			HighFreq:      100,
			HighSkew:      5,
			TimeJump:      0.250,
			SuspendFactor: 15,
		},
	}
}

// StaleThreshold returns the staleness threshold for the given TTL/override
// pair: the explicit override when set, otherwise 5x the TTL.
func StaleThreshold(ttl, override time.Duration) time.Duration {
	if override > 0 {
		return override
	}
	return 5 * ttl
}

// validate checks required fields and structural constraints. A validation
// failure is fatal at startup; thresholds are never re-checked mid-run.
func validate(cfg *Config) error {
	if cfg.TickInterval <= 0 {
		return fmt.Errorf("tick_interval must be positive")
	}
	if cfg.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}
	if cfg.Chronyc.Binary == "" {
		return fmt.Errorf("chronyc.binary is required")
	}
	if cfg.Chronyc.Timeout <= 0 {
		return fmt.Errorf("chronyc.timeout must be positive")
	}
	for _, ttl := range []struct {
		name string
		d    time.Duration
	}{
		{"chronyc.tracking_ttl", cfg.Chronyc.TrackingTTL},
		{"chronyc.sources_ttl", cfg.Chronyc.SourcesTTL},
		{"chronyc.sourcestats_ttl", cfg.Chronyc.SourcestatsTTL},
	} {
		if ttl.d <= 0 {
			return fmt.Errorf("%s must be positive", ttl.name)
		}
	}
	if cfg.History.Size < 2 {
		return fmt.Errorf("history.size must be at least 2")
	}
	if cfg.History.AutoscaleWindow < 2 {
		return fmt.Errorf("history.autoscale_window must be at least 2")
	}
	for _, sc := range []struct {
		name string
		s    Scale
	}{
		{"history.offset_scale", cfg.History.OffsetScale},
		{"history.rms_scale", cfg.History.RMSScale},
		{"history.freq_scale", cfg.History.FreqScale},
		{"history.skew_scale", cfg.History.SkewScale},
		{"history.temp_scale", cfg.History.TempScale},
	} {
		if sc.s.Max <= sc.s.Min {
			return fmt.Errorf("%s: max must exceed min", sc.name)
		}
	}
	if cfg.Trust.MaxSourceRows <= 0 {
		return fmt.Errorf("trust.max_source_rows must be positive")
	}
	if cfg.Thermal.Enabled {
		if cfg.Thermal.RediscoverEvery <= 0 {
			return fmt.Errorf("thermal.rediscover_every must be positive")
		}
		if cfg.Thermal.FailAfter <= 0 {
			return fmt.Errorf("thermal.fail_after must be positive")
		}
		if cfg.Thermal.CouplingWindow < 3 {
			return fmt.Errorf("thermal.coupling_window must be at least 3")
		}
		if cfg.Thermal.CouplingTempDelta <= 0 || cfg.Thermal.CouplingFreqDelta <= 0 {
			return fmt.Errorf("thermal coupling deltas must be positive")
		}
	}
	a := cfg.Alerts
	if a.HighOffset <= 0 || a.LargeOffset <= a.HighOffset {
		return fmt.Errorf("alerts: need 0 < high_offset < large_offset")
	}
	if a.HighRMS <= 0 || a.HighFreq <= 0 || a.HighSkew <= 0 {
		return fmt.Errorf("alerts: rms/freq/skew thresholds must be positive")
	}
	if a.TimeJump <= 0 {
		return fmt.Errorf("alerts.time_jump must be positive")
	}
	if a.SuspendFactor <= 1 {
		return fmt.Errorf("alerts.suspend_factor must exceed 1")
	}
	return nil
}
