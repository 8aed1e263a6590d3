package engine

import (
	"time"

	"github.com/chronywatch/chronywatch/internal/chronyc"
	"github.com/chronywatch/chronywatch/internal/history"
	"github.com/chronywatch/chronywatch/internal/thermal"
	"github.com/chronywatch/chronywatch/internal/trust"
)

// Snapshot is one tick's fully evaluated state. It is immutable after
// publication; every reader (HTTP API, websocket hub, metrics) sees the
// same value.
type Snapshot struct {
	Time time.Time `json:"time"`
	Tick uint64    `json:"tick"`

	// Tracking is nil while the tracking report has never parsed.
	Tracking *chronyc.TrackingSample `json:"tracking,omitempty"`

	Polls map[string]PollInfo `json:"polls"`

	// Sources is ranked for display: selected first, then descending
	// score, capped at the configured row limit.
	Sources []trust.Scored `json:"sources"`

	Noise trust.Noise `json:"noise"`

	Histories map[string]MetricHistory `json:"histories"`

	Temperature Temperature      `json:"temperature"`
	Coupling    thermal.Coupling `json:"coupling"`

	Alerts []string `json:"alerts"`
}

// PollInfo is the cache state for one report kind, with the age flattened
// to seconds for display.
type PollInfo struct {
	HasData    bool    `json:"has_data"`
	AgeSeconds float64 `json:"age_s"`
	Fresh      bool    `json:"fresh"`
}

// Metric history keys within Snapshot.Histories.
const (
	MetricOffset      = "offset"
	MetricRMS         = "rms"
	MetricFrequency   = "frequency"
	MetricSkew        = "skew"
	MetricTemperature = "temperature"
)

// MetricHistory is one metric's rolling buffer plus everything a renderer
// needs to draw it: the active scale, per-sample cells and a prebuilt
// sparkline string.
type MetricHistory struct {
	Values    []float64      `json:"values"`
	Scale     history.Scale  `json:"scale"`
	Cells     []history.Cell `json:"cells"`
	Sparkline string         `json:"sparkline"`
}

// Temperature summarizes the thermal monitor for display. Available is
// false when no sensor produced a reading this tick.
type Temperature struct {
	Available  bool              `json:"available"`
	MaxCelsius float64           `json:"max_celsius,omitempty"`
	Sensors    int               `json:"sensors"`
	Readings   []thermal.Reading `json:"readings,omitempty"`
}
