package health

import (
	"fmt"
	"math"
	"time"

	"github.com/chronywatch/chronywatch/internal/chronyc"
	"github.com/chronywatch/chronywatch/internal/config"
	"github.com/chronywatch/chronywatch/internal/trust"
)

// Alert strings exposed to the display layer. Comparison against any of
// these is by exact string, so they never change casually.
const (
	AlertDaemonDown   = "CHRONYD DOWN / NO DATA"
	AlertNoSources    = "NO SOURCES"
	AlertNoReachable  = "NO REACHABLE SOURCES"
	AlertNoSelected   = "NO SELECTED SOURCE"
	AlertAllStale     = "ALL SOURCES STALE"
	AlertDegraded     = "DEGRADED: only one reachable source"
	AlertLargeOffset  = "CLOCK STEP / LARGE OFFSET"
	AlertHighOffset   = "HIGH OFFSET"
	AlertJitter       = "JITTER (RMS HIGH)"
	AlertDrift        = "DRIFT (FREQ HIGH)"
	AlertUnstableOsc  = "UNSTABLE OSC (SKEW HIGH)"
	AlertTimeJump     = "TIME JUMP"
	AlertSuspend      = "SUSPEND/PAUSE DETECTED"
)

// lastRxStale is the receive age in seconds beyond which a source's last
// sample is too old to vouch for the sync state.
const lastRxStale = 256

// Input is everything one tick hands the detector. All of it describes the
// same instant; the detector holds no reference past the call.
type Input struct {
	// Tracking is the latest parsed tracking sample, nil when the report
	// never parsed.
	Tracking *chronyc.TrackingSample

	// Polls is the cache state per report kind.
	Polls map[chronyc.Kind]chronyc.PollState

	// Sources is the merged source set for this tick.
	Sources []trust.Source

	// Wall and Mono are the tick's wall-clock time and a monotonic reading.
	Wall time.Time
	Mono time.Duration
}

// Detector turns one tick's snapshot into the ordered set of active alerts.
// It is stateless except for the previous tick's clock pair, which feeds
// time-jump and suspend detection.
type Detector struct {
	alerts config.Alerts
	tick   time.Duration
	stale  map[chronyc.Kind]time.Duration

	havePrev bool
	prevWall time.Time
	prevMono time.Duration
}

// NewDetector builds a Detector from the alert thresholds and the per-kind
// staleness thresholds derived from the chronyc section.
func NewDetector(cfg *config.Config) *Detector {
	c := cfg.Chronyc
	return &Detector{
		alerts: cfg.Alerts,
		tick:   cfg.TickInterval,
		stale: map[chronyc.Kind]time.Duration{
			chronyc.KindTracking:    config.StaleThreshold(c.TrackingTTL, c.TrackingStale),
			chronyc.KindSources:     config.StaleThreshold(c.SourcesTTL, c.SourcesStale),
			chronyc.KindSourcestats: config.StaleThreshold(c.SourcestatsTTL, c.SourcestatsStale),
		},
	}
}

// Evaluate computes the alert set for one tick. Alerts are ordered by
// severity of the failure domain: clock anomalies first, then daemon
// reachability, then source-set problems, then sync quality.
func (d *Detector) Evaluate(in Input) []string {
	var alerts []string
	alerts = append(alerts, d.clockAlerts(in.Wall, in.Mono)...)

	tracking := in.Polls[chronyc.KindTracking]
	if !tracking.HasData || tracking.Age > d.stale[chronyc.KindTracking] {
		// Nothing downstream is trustworthy without a live tracking
		// report, so the remaining checks are skipped.
		return append(alerts, AlertDaemonDown)
	}

	for _, kind := range []chronyc.Kind{chronyc.KindSources, chronyc.KindSourcestats} {
		p := in.Polls[kind]
		if p.HasData && p.Age > d.stale[kind] {
			alerts = append(alerts, fmt.Sprintf("STALE DATA: %s", kind))
		}
	}

	alerts = append(alerts, d.sourceAlerts(in)...)

	if in.Tracking != nil {
		alerts = append(alerts, d.syncAlerts(in.Tracking)...)
	}
	return alerts
}

// clockAlerts compares this tick's wall/monotonic pair against the previous
// tick's. A monotonic gap far beyond the tick period means the process was
// suspended; jump detection is suppressed for that tick because the wall
// delta is dominated by the pause, not by a clock step.
func (d *Detector) clockAlerts(wall time.Time, mono time.Duration) []string {
	if !d.havePrev {
		d.havePrev = true
		d.prevWall, d.prevMono = wall, mono
		return nil
	}

	wallDelta := wall.Sub(d.prevWall).Seconds()
	monoDelta := (mono - d.prevMono).Seconds()
	d.prevWall, d.prevMono = wall, mono

	if monoDelta > d.alerts.SuspendFactor*d.tick.Seconds() {
		return []string{AlertSuspend}
	}
	if math.Abs(wallDelta-monoDelta) > d.alerts.TimeJump {
		return []string{AlertTimeJump}
	}
	return nil
}

func (d *Detector) sourceAlerts(in Input) []string {
	sourcesStale := false
	if p := in.Polls[chronyc.KindSources]; p.HasData && p.Age > d.stale[chronyc.KindSources] {
		sourcesStale = true
	}
	if sourcesStale {
		// The source table is too old to judge; its STALE DATA alert
		// already covers this tick.
		return nil
	}

	if len(in.Sources) == 0 {
		return []string{AlertNoSources}
	}

	var alerts []string
	reachable := 0
	fresh := 0
	selected := false
	for _, s := range in.Sources {
		if s.Reach != nil && *s.Reach != 0 {
			reachable++
			if s.LastRx != nil && *s.LastRx <= lastRxStale {
				fresh++
			}
		}
		if s.Selected() {
			selected = true
		}
	}

	switch reachable {
	case 0:
		return []string{AlertNoReachable}
	case 1:
		alerts = append(alerts, AlertDegraded)
	}
	if !selected {
		alerts = append(alerts, AlertNoSelected)
	}
	if fresh == 0 {
		alerts = append(alerts, AlertAllStale)
	}
	return alerts
}

// syncAlerts grades the tracking sample against the thresholds. All upper
// bounds compare strictly: a value exactly at the threshold does not
// trigger.
func (d *Detector) syncAlerts(t *chronyc.TrackingSample) []string {
	var alerts []string
	a := d.alerts

	switch off := math.Abs(t.Offset); {
	case off > a.LargeOffset:
		alerts = append(alerts, AlertLargeOffset)
	case off > a.HighOffset:
		alerts = append(alerts, AlertHighOffset)
	}
	if t.RMSOffset > a.HighRMS {
		alerts = append(alerts, AlertJitter)
	}
	if math.Abs(t.Frequency) > a.HighFreq {
		alerts = append(alerts, AlertDrift)
	}
	if t.Skew > a.HighSkew {
		alerts = append(alerts, AlertUnstableOsc)
	}
	return alerts
}
