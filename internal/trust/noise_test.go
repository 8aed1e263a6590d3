package trust

import (
	"testing"

	"github.com/chronywatch/chronywatch/internal/chronyc"
)

// noisePool builds four 1ms-stddev sources plus a selected source with the
// given stddev (seconds).
func noisePool(selectedSD float64) []Source {
	mk := func(mode, name string, sd float64) Source {
		return Source{
			SourceRecord: chronyc.SourceRecord{Mode: mode, Name: name, Key: name},
			Stats:        &chronyc.SourceStats{Key: name, StdDev: fp(sd)},
		}
	}
	return []Source{
		mk("^*", "sel", selectedSD),
		mk("^+", "a", 1e-3),
		mk("^+", "b", 1e-3),
		mk("^-", "c", 1e-3),
		mk("^-", "d", 1e-3),
	}
}

func TestDetectNoise_Verdicts(t *testing.T) {
	tests := []struct {
		name       string
		selectedSD float64
		want       Verdict
	}{
		// ratio 2.5 >= 2, gap 1.5ms >= 0.2ms, but ratio < 3.
		{"elevated", 2.5e-3, VerdictElevated},
		// ratio 3.6 >= 3 and gap 2.6ms >= 0.5ms.
		{"outlier", 3.6e-3, VerdictOutlier},
		// ratio 1.1, below both bands.
		{"ok", 1.1e-3, VerdictOK},
		// ratio 2.2 with gap 1.2ms: elevated holds, outlier ratio does not.
		{"elevated upper", 2.2e-3, VerdictElevated},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := DetectNoise(noisePool(tc.selectedSD))
			if got.Verdict != tc.want {
				t.Errorf("verdict = %s, want %s (sd=%v med=%v ratio=%v)",
					got.Verdict, tc.want, got.SelectedStdDev, got.Median, got.Ratio)
			}
		})
	}
}

func TestDetectNoise_RatioAloneInsufficient(t *testing.T) {
	// All deviations microscopic: huge ratio but a gap far below 0.2ms must
	// stay OK; this is what the additive condition is for.
	sources := noisePool(0)
	for i := range sources {
		sources[i].Stats.StdDev = fp(10e-6)
	}
	sources[0].Stats.StdDev = fp(60e-6) // ratio vs floor: 1.2; gap 50µs

	if got := DetectNoise(sources); got.Verdict != VerdictOK {
		t.Errorf("verdict = %s, want OK for sub-threshold absolute gap", got.Verdict)
	}
}

func TestDetectNoise_Undetermined(t *testing.T) {
	t.Run("no selected source", func(t *testing.T) {
		sources := noisePool(2.5e-3)
		sources[0].Mode = "^+"
		if got := DetectNoise(sources); got.Verdict != VerdictUndetermined {
			t.Errorf("verdict = %s", got.Verdict)
		}
	})

	t.Run("selected lacks stddev", func(t *testing.T) {
		sources := noisePool(2.5e-3)
		sources[0].Stats = nil
		if got := DetectNoise(sources); got.Verdict != VerdictUndetermined {
			t.Errorf("verdict = %s", got.Verdict)
		}
	})

	t.Run("fewer than two known deviations", func(t *testing.T) {
		sources := noisePool(2.5e-3)[:1]
		if got := DetectNoise(sources); got.Verdict != VerdictUndetermined {
			t.Errorf("verdict = %s", got.Verdict)
		}
	})

	t.Run("empty set", func(t *testing.T) {
		if got := DetectNoise(nil); got.Verdict != VerdictUndetermined {
			t.Errorf("verdict = %s", got.Verdict)
		}
	})
}

func TestMedian_EvenCount(t *testing.T) {
	if got := median([]float64{4, 1, 3, 2}); got != 2.5 {
		t.Errorf("median = %v, want 2.5", got)
	}
	if got := median([]float64{3, 1, 2}); got != 2 {
		t.Errorf("median = %v, want 2", got)
	}
}
