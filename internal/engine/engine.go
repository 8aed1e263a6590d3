package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/chronywatch/chronywatch/internal/chronyc"
	"github.com/chronywatch/chronywatch/internal/config"
	"github.com/chronywatch/chronywatch/internal/health"
	"github.com/chronywatch/chronywatch/internal/history"
	"github.com/chronywatch/chronywatch/internal/thermal"
	"github.com/chronywatch/chronywatch/internal/trust"
)

// Engine drives the poll/parse/score/alert pipeline, one full pass per
// tick, and publishes the result as an immutable Snapshot.
type Engine struct {
	tick     time.Duration
	thermalC config.Thermal

	cache    *chronyc.Cache
	detector *health.Detector
	monitor  *thermal.Monitor
	metrics  *Metrics

	offsetHist *history.Ring
	rmsHist    *history.Ring
	freqHist   *history.Ring
	skewHist   *history.Ring
	tempHist   *history.Ring

	// now and mono are injectable clocks. mono must never go backwards.
	now  func() time.Time
	mono func() time.Duration

	mu      sync.RWMutex
	display config.History
	maxRows int
	tickNo  uint64
	latest  *Snapshot

	// onSnapshot, when set, receives every published snapshot. Used by the
	// websocket hub; must not block.
	onSnapshot func(*Snapshot)
}

// New assembles an Engine from the configuration, the chronyc runner and a
// metrics registerer.
func New(cfg *config.Config, runner chronyc.Runner, reg prometheus.Registerer) *Engine {
	e := &Engine{
		tick:     cfg.TickInterval,
		thermalC: cfg.Thermal,
		cache: chronyc.NewCache(runner,
			cfg.Chronyc.TrackingTTL, cfg.Chronyc.SourcesTTL, cfg.Chronyc.SourcestatsTTL),
		detector: health.NewDetector(cfg),
		metrics:  NewMetrics(reg),

		offsetHist: history.NewRing(cfg.History.Size),
		rmsHist:    history.NewRing(cfg.History.Size),
		freqHist:   history.NewRing(cfg.History.Size),
		skewHist:   history.NewRing(cfg.History.Size),
		tempHist:   history.NewRing(cfg.History.Size),

		display: cfg.History,
		maxRows: cfg.Trust.MaxSourceRows,
	}

	if cfg.Thermal.Enabled {
		e.monitor = thermal.NewMonitor(cfg.Thermal.RediscoverEvery, cfg.Thermal.FailAfter)
	}

	start := time.Now()
	e.now = time.Now
	e.mono = func() time.Duration { return time.Since(start) }
	return e
}

// SetClocks replaces the wall and monotonic clocks. For tests.
func (e *Engine) SetClocks(now func() time.Time, mono func() time.Duration) {
	e.now = now
	e.mono = mono
	e.cache.SetClock(now)
}

// SetThermalMonitor replaces the sensor monitor. For tests.
func (e *Engine) SetThermalMonitor(m *thermal.Monitor) { e.monitor = m }

// OnSnapshot registers the publication hook. Call before Run.
func (e *Engine) OnSnapshot(fn func(*Snapshot)) { e.onSnapshot = fn }

// Latest returns the most recently published snapshot, nil before the
// first tick completes.
func (e *Engine) Latest() *Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.latest
}

// UpdateDisplay applies reloaded display knobs: scales, autoscale toggle
// and the source row cap. Structural settings (TTLs, thresholds, history
// capacity) stay fixed for the process lifetime.
func (e *Engine) UpdateDisplay(h config.History, maxRows int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.display = h
	e.maxRows = maxRows
	slog.Info("engine: display settings reloaded",
		"autoscale", h.Autoscale, "max_rows", maxRows)
}

// Run ticks the engine until ctx is cancelled. The first tick fires
// immediately so the API has data as soon as possible.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()

	e.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			slog.Info("engine: stopped", "ticks", e.tickCount())
			return
		case <-ticker.C:
			e.Tick(ctx)
		}
	}
}

func (e *Engine) tickCount() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tickNo
}

// Tick runs one full pipeline pass and publishes the snapshot.
func (e *Engine) Tick(ctx context.Context) {
	now := e.now()
	mono := e.mono()

	e.cache.Refresh(ctx)
	polls := map[chronyc.Kind]chronyc.PollState{
		chronyc.KindTracking:    e.cache.Get(chronyc.KindTracking),
		chronyc.KindSources:     e.cache.Get(chronyc.KindSources),
		chronyc.KindSourcestats: e.cache.Get(chronyc.KindSourcestats),
	}

	var tracking *chronyc.TrackingSample
	if p := polls[chronyc.KindTracking]; p.HasData {
		tracking, _ = chronyc.ParseTracking(p.Text, now)
	}

	var records []chronyc.SourceRecord
	if p := polls[chronyc.KindSources]; p.HasData {
		records, _ = chronyc.ParseSources(p.Text)
	}
	stats := map[string]chronyc.SourceStats{}
	if p := polls[chronyc.KindSourcestats]; p.HasData {
		if parsed, ok := chronyc.ParseSourcestats(p.Text); ok {
			stats = parsed
		}
	}

	merged := trust.Merge(records, stats)
	noise := trust.DetectNoise(merged)

	if tracking != nil {
		e.offsetHist.Append(tracking.Offset, now)
		e.rmsHist.Append(tracking.RMSOffset, now)
		e.freqHist.Append(tracking.Frequency, now)
		e.skewHist.Append(tracking.Skew, now)
	}

	temp := Temperature{}
	if e.monitor != nil {
		readings, maxC, ok := e.monitor.Poll(now)
		temp.Sensors = e.monitor.SensorCount()
		if ok {
			temp.Available = true
			temp.MaxCelsius = maxC
			temp.Readings = readings
			e.tempHist.Append(maxC, now)
		}
	}

	coupling := thermal.Correlate(
		e.tempHist.Values(), e.freqHist.Values(),
		e.thermalC.CouplingWindow, e.thermalC.CouplingTempDelta, e.thermalC.CouplingFreqDelta)

	alerts := e.detector.Evaluate(health.Input{
		Tracking: tracking,
		Polls:    polls,
		Sources:  merged,
		Wall:     now,
		Mono:     mono,
	})

	reachable := 0
	for _, s := range merged {
		if s.Reach != nil && *s.Reach != 0 {
			reachable++
		}
	}

	e.mu.Lock()
	e.tickNo++
	snap := &Snapshot{
		Time:     now,
		Tick:     e.tickNo,
		Tracking: tracking,
		Polls:    pollInfos(polls),
		Sources:  trust.Rank(merged, e.maxRows),
		Noise:    noise,
		Histories: map[string]MetricHistory{
			MetricOffset:      e.renderLocked(e.offsetHist, e.display.OffsetScale, true),
			MetricRMS:         e.renderLocked(e.rmsHist, e.display.RMSScale, false),
			MetricFrequency:   e.renderLocked(e.freqHist, e.display.FreqScale, true),
			MetricSkew:        e.renderLocked(e.skewHist, e.display.SkewScale, false),
			MetricTemperature: e.renderLocked(e.tempHist, e.display.TempScale, false),
		},
		Temperature: temp,
		Coupling:    coupling,
		Alerts:      alerts,
	}
	e.latest = snap
	e.mu.Unlock()

	e.metrics.observe(snap, reachable)
	if e.onSnapshot != nil {
		e.onSnapshot(snap)
	}
}

// renderLocked builds one metric's display history under e.mu.
func (e *Engine) renderLocked(r *history.Ring, fixed config.Scale, signed bool) MetricHistory {
	values := r.Values()
	sc := history.Scale{Min: fixed.Min, Max: fixed.Max}
	if e.display.Autoscale {
		sc = history.Autoscale(values, e.display.AutoscaleWindow, signed, sc)
	}
	cells := history.Render(values, sc, 0)
	return MetricHistory{
		Values:    values,
		Scale:     sc,
		Cells:     cells,
		Sparkline: history.Sparkline(cells),
	}
}

func pollInfos(polls map[chronyc.Kind]chronyc.PollState) map[string]PollInfo {
	out := make(map[string]PollInfo, len(polls))
	for k, p := range polls {
		out[string(k)] = PollInfo{
			HasData:    p.HasData,
			AgeSeconds: p.Age.Seconds(),
			Fresh:      p.Fresh,
		}
	}
	return out
}
