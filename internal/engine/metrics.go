package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "chronywatch"

// Metrics is the Prometheus instrument set the engine updates once per
// tick.
type Metrics struct {
	Ticks       prometheus.Counter
	QueryErrors prometheus.Counter
	AlertsFired *prometheus.CounterVec

	OffsetSeconds    prometheus.Gauge
	RMSSeconds       prometheus.Gauge
	FrequencyPPM     prometheus.Gauge
	SkewPPM          prometheus.Gauge
	Stratum          prometheus.Gauge
	SourceCount      prometheus.Gauge
	ReachableSources prometheus.Gauge
	SelectedScore    prometheus.Gauge
	TemperatureC     prometheus.Gauge
	ActiveAlerts     prometheus.Gauge
}

// NewMetrics registers the instrument set on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Ticks: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "ticks_total",
			Help:      "Completed engine ticks.",
		}),
		QueryErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "query_errors_total",
			Help:      "Ticks where the tracking report was unavailable or unparsable.",
		}),
		AlertsFired: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "alerts_fired_total",
			Help:      "Alert activations by alert string, counted per tick active.",
		}, []string{"alert"}),
		OffsetSeconds: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "offset_seconds",
			Help:      "System clock offset from NTP time.",
		}),
		RMSSeconds: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "rms_offset_seconds",
			Help:      "Long-term RMS offset.",
		}),
		FrequencyPPM: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "frequency_ppm",
			Help:      "Clock frequency correction.",
		}),
		SkewPPM: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "skew_ppm",
			Help:      "Estimated frequency error bound.",
		}),
		Stratum: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "stratum",
			Help:      "Reported stratum of the local clock.",
		}),
		SourceCount: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "sources",
			Help:      "Configured NTP sources in the latest report.",
		}),
		ReachableSources: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "reachable_sources",
			Help:      "Sources with a non-zero reachability register.",
		}),
		SelectedScore: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "selected_source_score",
			Help:      "Trust score of the selected source, 0-100. -1 when none.",
		}),
		TemperatureC: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "cpu_temperature_celsius",
			Help:      "Maximum CPU temperature across discovered sensors.",
		}),
		ActiveAlerts: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "active_alerts",
			Help:      "Alerts active in the latest tick.",
		}),
	}
}

// observe pushes one snapshot into the instrument set.
func (m *Metrics) observe(s *Snapshot, reachable int) {
	m.Ticks.Inc()

	if s.Tracking == nil {
		m.QueryErrors.Inc()
	} else {
		m.OffsetSeconds.Set(s.Tracking.Offset)
		m.RMSSeconds.Set(s.Tracking.RMSOffset)
		m.FrequencyPPM.Set(s.Tracking.Frequency)
		m.SkewPPM.Set(s.Tracking.Skew)
		m.Stratum.Set(float64(s.Tracking.Stratum))
	}

	m.SourceCount.Set(float64(len(s.Sources)))
	m.ReachableSources.Set(float64(reachable))

	score := -1.0
	for _, src := range s.Sources {
		if src.Selected() {
			score = float64(src.Score)
			break
		}
	}
	m.SelectedScore.Set(score)

	if s.Temperature.Available {
		m.TemperatureC.Set(s.Temperature.MaxCelsius)
	}

	m.ActiveAlerts.Set(float64(len(s.Alerts)))
	for _, a := range s.Alerts {
		m.AlertsFired.WithLabelValues(a).Inc()
	}
}
