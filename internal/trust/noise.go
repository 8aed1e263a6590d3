package trust

import "sort"

// Verdict classifies the selected source's standard deviation against the
// population of all known deviations.
type Verdict string

const (
	// VerdictUndetermined means no source is selected, the selected source
	// has no deviation, or fewer than two deviations are known.
	VerdictUndetermined Verdict = "UNDETERMINED"
	VerdictOK           Verdict = "OK"
	VerdictElevated     Verdict = "ELEVATED"
	VerdictOutlier      Verdict = "OUTLIER"
)

// medianFloor keeps the ratio test meaningful when the median deviation is
// near zero (a LAN full of sub-50µs sources).
const medianFloor = 50e-6

// Noise detector thresholds: both the ratio and the absolute gap must hold,
// since a pure ratio test misfires when the median itself is tiny.
const (
	outlierRatio = 3.0
	outlierGapS  = 0.5e-3
	elevatedRatio = 2.0
	elevatedGapS  = 0.2e-3
)

// Noise is the detector's full output, exposed for display.
type Noise struct {
	Verdict Verdict `json:"verdict"`

	// SelectedStdDev and Median are in seconds; Ratio is their quotient
	// after the median floor. Zero when the verdict is undetermined.
	SelectedStdDev float64 `json:"selected_std_dev_s,omitempty"`
	Median         float64 `json:"median_s,omitempty"`
	Ratio          float64 `json:"ratio,omitempty"`
}

// DetectNoise compares the selected source's deviation with the median of
// every known deviation in the merged set.
func DetectNoise(sources []Source) Noise {
	var selected *Source
	for i := range sources {
		if sources[i].Selected() {
			selected = &sources[i]
			break
		}
	}
	if selected == nil || selected.Stats == nil || selected.Stats.StdDev == nil {
		return Noise{Verdict: VerdictUndetermined}
	}

	var devs []float64
	for _, s := range sources {
		if s.Stats != nil && s.Stats.StdDev != nil {
			devs = append(devs, *s.Stats.StdDev)
		}
	}
	if len(devs) < 2 {
		return Noise{Verdict: VerdictUndetermined}
	}

	med := median(devs)
	sel := *selected.Stats.StdDev
	ratio := sel / max(med, medianFloor)
	gap := sel - med

	verdict := VerdictOK
	switch {
	case ratio >= outlierRatio && gap >= outlierGapS:
		verdict = VerdictOutlier
	case ratio >= elevatedRatio && gap >= elevatedGapS:
		verdict = VerdictElevated
	}

	return Noise{
		Verdict:        verdict,
		SelectedStdDev: sel,
		Median:         med,
		Ratio:          ratio,
	}
}

// median returns the middle value for odd counts and the mean of the two
// middle values for even counts.
func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
