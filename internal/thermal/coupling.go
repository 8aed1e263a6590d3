package thermal

// CouplingVerdict classifies the joint movement of CPU temperature and the
// daemon's frequency correction over the recent window. Advisory only; it
// never becomes an alert.
type CouplingVerdict string

const (
	// CouplingUnknown means there is not enough history to judge.
	CouplingUnknown CouplingVerdict = "UNKNOWN"

	// CouplingStable means neither series moved meaningfully.
	CouplingStable CouplingVerdict = "STABLE"

	// CouplingRising / CouplingFalling mean both series moved past their
	// thresholds in the same direction: thermal drift is likely steering
	// the oscillator.
	CouplingRising  CouplingVerdict = "COUPLED_RISING"
	CouplingFalling CouplingVerdict = "COUPLED_FALLING"

	// CouplingDiverging means the series moved in unrelated directions.
	CouplingDiverging CouplingVerdict = "DIVERGING"
)

// Coupling is the correlation result exposed for display.
type Coupling struct {
	Verdict CouplingVerdict `json:"verdict"`

	// DTemp (degrees C) and DFreq (ppm) are the first-to-last deltas over
	// the window.
	DTemp float64 `json:"d_temp_c"`
	DFreq float64 `json:"d_freq_ppm"`
}

// Correlate compares the window's first and last samples of the temperature
// and frequency histories. Deltas below tempThresh/freqThresh count as no
// movement.
func Correlate(temps, freqs []float64, window int, tempThresh, freqThresh float64) Coupling {
	if len(temps) < 3 || len(freqs) < 3 {
		return Coupling{Verdict: CouplingUnknown}
	}

	n := window
	if n > len(temps) {
		n = len(temps)
	}
	if n > len(freqs) {
		n = len(freqs)
	}

	dTemp := temps[len(temps)-1] - temps[len(temps)-n]
	dFreq := freqs[len(freqs)-1] - freqs[len(freqs)-n]

	out := Coupling{DTemp: dTemp, DFreq: dFreq}
	switch {
	case abs(dTemp) < tempThresh && abs(dFreq) < freqThresh:
		out.Verdict = CouplingStable
	case dTemp > tempThresh && dFreq > freqThresh:
		out.Verdict = CouplingRising
	case dTemp < -tempThresh && dFreq < -freqThresh:
		out.Verdict = CouplingFalling
	default:
		out.Verdict = CouplingDiverging
	}
	return out
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
