package trust

import "math"

// Flag strings attached to a score. Thresholds embedded in the name (e.g.
// OFF>50ms) state the band that was crossed.
const (
	FlagUnreach     = "UNREACH"
	FlagBad         = "BAD"
	FlagTooVariable = "TOO_VAR"
	FlagNoReach     = "NO_RCH"
	FlagReachZero   = "RCH=0"
	FlagLowReach    = "LOW_RCH"
	FlagNoRx        = "NO_RX"
	FlagStale       = "STALE"
	FlagAging       = "AGING"
	FlagNoOffset    = "NO_OFF"
	FlagNoStdDev    = "NO_SD"
	FlagHighStratum = "HI_STR"
	FlagFalseticker = "FALSETICKER?"
)

// Penalty bands. All upper-bound comparisons are strict; a value exactly at
// a band edge stays in the lower band.
const (
	// reachRecentMask covers the 4 most recent polls; a register with no
	// bit set there earns LOW_RCH even when older bits are set.
	reachRecentMask = 0o17

	staleRxSeconds = 256
	agingRxSeconds = 64
)

// Evaluate computes the 0–100 trust score and flags for one merged source.
// The score is recomputed from scratch every pass; it is never stored.
//
// Independent penalty factors accumulate from a base of 100: state flags,
// reachability, sample age, offset magnitude, estimated error, standard
// deviation, frequency skew and stratum. Unknown fields take a small fixed
// penalty rather than the value-based bands, so unknown stats never improve
// a score. The selected-source bonus is small enough that reachability or
// staleness penalties always dominate it.
func Evaluate(src Source) (int, []string) {
	score := 100.0
	var flags []string

	bad := false
	outlying := false

	if src.Unusable() {
		flags = append(flags, FlagUnreach)
		score -= 55
	}
	if src.Bad() {
		flags = append(flags, FlagBad)
		score -= 45
		bad = true
	}
	if src.TooVariable() {
		flags = append(flags, FlagTooVariable)
		score -= 20
	}
	if src.Selected() {
		score += 5
	}
	if src.Combined() {
		score += 2
	}

	switch {
	case src.Reach == nil:
		score -= 10
		flags = append(flags, FlagNoReach)
	case *src.Reach == 0:
		score -= 45
		flags = append(flags, FlagReachZero)
	case *src.Reach&reachRecentMask == 0:
		score -= 15
		flags = append(flags, FlagLowReach)
	}

	switch {
	case src.LastRx == nil:
		score -= 10
		flags = append(flags, FlagNoRx)
	case *src.LastRx > staleRxSeconds:
		score -= 25
		flags = append(flags, FlagStale)
	case *src.LastRx > agingRxSeconds:
		score -= 15
		flags = append(flags, FlagAging)
	}

	if src.Offset == nil {
		score -= 6
		flags = append(flags, FlagNoOffset)
	} else {
		switch offMS := math.Abs(*src.Offset) * 1000; {
		case offMS > 50:
			score -= 35
			flags = append(flags, "OFF>50ms")
			outlying = true
		case offMS > 10:
			score -= 15
			flags = append(flags, "OFF>10ms")
		case offMS > 2:
			score -= 5
		}
	}

	if src.Err != nil {
		switch errMS := *src.Err * 1000; {
		case errMS > 100:
			score -= 18
			flags = append(flags, "ERR>100ms")
		case errMS > 50:
			score -= 12
			flags = append(flags, "ERR>50ms")
		case errMS > 10:
			score -= 6
			flags = append(flags, "ERR>10ms")
		}
	}

	var stddev, fskew *float64
	if src.Stats != nil {
		stddev = src.Stats.StdDev
		fskew = src.Stats.FreqSkew
	}

	if stddev == nil {
		score -= 6
		flags = append(flags, FlagNoStdDev)
	} else {
		switch sdMS := *stddev * 1000; {
		case sdMS > 15:
			score -= 30
			flags = append(flags, "SD>15ms")
			outlying = true
		case sdMS > 5:
			score -= 18
			flags = append(flags, "SD>5ms")
		case sdMS > 1:
			score -= 7
			flags = append(flags, "SD>1ms")
		}
	}

	if fskew == nil {
		score -= 3
	} else {
		switch {
		case *fskew > 2:
			score -= 12
			flags = append(flags, "FSKEW>2")
		case *fskew > 1:
			score -= 7
			flags = append(flags, "FSKEW>1")
		case *fskew > 0.5:
			score -= 3
		}
	}

	switch {
	case src.Stratum == nil:
		score -= 3
	case *src.Stratum <= 2:
		score += 2
	case *src.Stratum >= 10:
		score -= 8
		flags = append(flags, FlagHighStratum)
	}

	// A source the daemon marks bad that is also an offset or deviation
	// outlier is a falseticker candidate.
	if bad && outlying {
		flags = append(flags, FlagFalseticker)
	}

	return int(clamp(score, 0, 100)), flags
}

// clamp restricts v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
