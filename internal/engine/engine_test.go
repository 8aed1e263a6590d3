package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/chronywatch/chronywatch/internal/chronyc"
	"github.com/chronywatch/chronywatch/internal/config"
	"github.com/chronywatch/chronywatch/internal/health"
	"github.com/chronywatch/chronywatch/internal/thermal"
	"github.com/chronywatch/chronywatch/internal/trust"
)

const trackingFixture = `Reference ID    : C0A80101 (ntp1.example.org)
Stratum         : 2
Ref time (UTC)  : Tue Aug 26 12:00:00 2025
System time     : 0.000012 seconds fast of NTP time
Last offset     : +0.000009 seconds
RMS offset      : 0.000150 seconds
Frequency       : 12.401 ppm fast
Residual freq   : +0.001 ppm
Skew            : 0.542 ppm
Root delay      : 0.010 seconds
Root dispersion : 0.002 seconds
Update interval : 64.2 seconds
Leap status     : Normal
`

const sourcesFixture = `MS Name/IP address         Stratum Poll Reach LastRx Last sample
===============================================================================
^* ntp1.example.org              2   6   377    34   +120us[ +130us] +/-   15ms
^+ ntp2.example.org              2   6   377    35   -250us[ -260us] +/-   18ms
^- ntp3.example.org              3   7   377    70   +900us[ +900us] +/-   45ms
`

const sourcestatsFixture = `Name/IP Address            NP  NR  Span  Frequency  Freq Skew  Offset  Std Dev
==============================================================================
ntp1.example.org           25  12   19m     +0.002      0.150  +110us    145us
ntp2.example.org           30  15   25m     -0.010      0.220  -240us    160us
ntp3.example.org           20  10   17m     +0.120      0.800  +890us    950us
`

// fakeRunner serves canned report text keyed by the report name.
type fakeRunner struct {
	out map[string]string
	err error
}

func (f *fakeRunner) Run(_ context.Context, args ...string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.out[args[0]], nil
}

func healthyRunner() *fakeRunner {
	return &fakeRunner{out: map[string]string{
		"tracking":    trackingFixture,
		"sources":     sourcesFixture,
		"sourcestats": sourcestatsFixture,
	}}
}

// testClock is a manually advanced wall/monotonic pair.
type testClock struct {
	wall time.Time
	mono time.Duration
}

func (c *testClock) advance(d time.Duration) {
	c.wall = c.wall.Add(d)
	c.mono += d
}

func fakeZone(t *testing.T, milli string) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "class/thermal/thermal_zone0")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for name, content := range map[string]string{"type": "x86_pkg_temp", "temp": milli} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content+"\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func newTestEngine(t *testing.T, runner chronyc.Runner) (*Engine, *testClock, *prometheus.Registry) {
	t.Helper()
	cfg := config.Defaults()
	reg := prometheus.NewRegistry()
	e := New(cfg, runner, reg)

	clock := &testClock{wall: time.Date(2025, 8, 26, 12, 0, 0, 0, time.UTC), mono: time.Hour}
	e.SetClocks(func() time.Time { return clock.wall }, func() time.Duration { return clock.mono })
	e.SetThermalMonitor(thermal.NewMonitor(
		cfg.Thermal.RediscoverEvery, cfg.Thermal.FailAfter,
		thermal.WithSysfsRoot(fakeZone(t, "50000"))))
	return e, clock, reg
}

func TestTick_PublishesFullSnapshot(t *testing.T) {
	e, _, _ := newTestEngine(t, healthyRunner())

	if e.Latest() != nil {
		t.Fatal("snapshot published before first tick")
	}
	e.Tick(context.Background())

	s := e.Latest()
	if s == nil {
		t.Fatal("no snapshot after tick")
	}
	if s.Tracking == nil {
		t.Fatal("tracking not parsed")
	}
	if got := s.Tracking.Offset; got != 0.000012 {
		t.Errorf("offset = %v, want 0.000012", got)
	}
	if got := s.Tracking.Frequency; got != 12.401 {
		t.Errorf("frequency = %v, want 12.401", got)
	}

	if len(s.Sources) != 3 {
		t.Fatalf("sources = %d, want 3", len(s.Sources))
	}
	if s.Sources[0].Name != "ntp1.example.org" || !s.Sources[0].Selected() {
		t.Errorf("first ranked source = %+v, want selected ntp1", s.Sources[0])
	}
	if s.Sources[0].Stats == nil || s.Sources[0].Stats.StdDev == nil {
		t.Error("selected source missing merged stats")
	}

	if s.Noise.Verdict != trust.VerdictOK {
		t.Errorf("noise verdict = %s, want OK", s.Noise.Verdict)
	}

	for _, kind := range chronyc.Kinds {
		p, found := s.Polls[string(kind)]
		if !found || !p.Fresh {
			t.Errorf("poll %s not fresh: %+v", kind, p)
		}
	}

	if !s.Temperature.Available || s.Temperature.MaxCelsius != 50.0 {
		t.Errorf("temperature = %+v, want 50.0", s.Temperature)
	}
	if s.Coupling.Verdict != thermal.CouplingUnknown {
		t.Errorf("coupling verdict = %s on first tick", s.Coupling.Verdict)
	}

	if len(s.Alerts) != 0 {
		t.Errorf("alerts = %v, want none", s.Alerts)
	}

	hist := s.Histories[MetricOffset]
	if len(hist.Values) != 1 || hist.Values[0] != 0.000012 {
		t.Errorf("offset history = %v", hist.Values)
	}
	if hist.Sparkline == "" {
		t.Error("empty sparkline")
	}
}

func TestTick_HistoryAccumulatesAcrossTicks(t *testing.T) {
	e, clock, _ := newTestEngine(t, healthyRunner())

	for i := 0; i < 5; i++ {
		e.Tick(context.Background())
		clock.advance(time.Second)
	}

	s := e.Latest()
	if got := len(s.Histories[MetricOffset].Values); got != 5 {
		t.Errorf("offset history length = %d, want 5", got)
	}
	if got := len(s.Histories[MetricTemperature].Values); got != 5 {
		t.Errorf("temperature history length = %d, want 5", got)
	}
	if s.Tick != 5 {
		t.Errorf("tick counter = %d, want 5", s.Tick)
	}
}

func TestTick_DaemonUnreachable(t *testing.T) {
	e, _, _ := newTestEngine(t, &fakeRunner{err: errors.New("506 Cannot talk to daemon")})
	e.Tick(context.Background())

	s := e.Latest()
	if s.Tracking != nil {
		t.Error("tracking parsed from failed query")
	}
	found := false
	for _, a := range s.Alerts {
		if a == health.AlertDaemonDown {
			found = true
		}
	}
	if !found {
		t.Fatalf("alerts = %v, want daemon-down", s.Alerts)
	}
	if len(s.Histories[MetricOffset].Values) != 0 {
		t.Error("history appended without a tracking sample")
	}
}

func TestTick_SourceRowCap(t *testing.T) {
	cfg := config.Defaults()
	cfg.Trust.MaxSourceRows = 2
	reg := prometheus.NewRegistry()
	e := New(cfg, healthyRunner(), reg)
	e.SetThermalMonitor(nil)
	e.Tick(context.Background())

	s := e.Latest()
	if len(s.Sources) != 2 {
		t.Fatalf("sources = %d, want cap of 2", len(s.Sources))
	}
	if !s.Sources[0].Selected() {
		t.Error("selected source not ranked first")
	}
	if s.Temperature.Available {
		t.Error("temperature available with monitor disabled")
	}
}

func TestUpdateDisplay_TogglesAutoscale(t *testing.T) {
	e, clock, _ := newTestEngine(t, healthyRunner())
	for i := 0; i < 3; i++ {
		e.Tick(context.Background())
		clock.advance(time.Second)
	}

	fixed := e.Latest().Histories[MetricSkew].Scale

	h := config.Defaults().History
	h.Autoscale = true
	e.UpdateDisplay(h, 7)
	e.Tick(context.Background())

	auto := e.Latest().Histories[MetricSkew].Scale
	if auto == fixed {
		t.Errorf("scale unchanged after enabling autoscale: %+v", auto)
	}
}

func TestTick_MetricsExposed(t *testing.T) {
	e, clock, reg := newTestEngine(t, healthyRunner())
	e.Tick(context.Background())
	clock.advance(time.Second)
	e.Tick(context.Background())

	want := `# HELP chronywatch_ticks_total Completed engine ticks.
# TYPE chronywatch_ticks_total counter
chronywatch_ticks_total 2
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(want), "chronywatch_ticks_total"); err != nil {
		t.Fatal(err)
	}

	if got := testutil.ToFloat64(e.metrics.FrequencyPPM); got != 12.401 {
		t.Errorf("frequency gauge = %v, want 12.401", got)
	}
	if got := testutil.ToFloat64(e.metrics.ActiveAlerts); got != 0 {
		t.Errorf("active alerts gauge = %v, want 0", got)
	}
}
