package chronyc

import (
	"regexp"
	"strconv"
	"time"
)

// TrackingSample is one parsed snapshot of the daemon's clock-correction
// state. Immutable once created; each tracking poll supersedes the last.
type TrackingSample struct {
	// ReferenceID is the reference clock identifier (hex) with the
	// resolved name, as reported.
	ReferenceID   string `json:"reference_id"`
	ReferenceName string `json:"reference_name,omitempty"`

	// Offset is the system clock offset from NTP time in seconds;
	// positive means the local clock is fast.
	Offset float64 `json:"offset_s"`

	// RMSOffset is the long-term RMS of the offset in seconds.
	RMSOffset float64 `json:"rms_offset_s"`

	// Frequency is the clock frequency correction in ppm; positive means
	// the local clock gains time.
	Frequency float64 `json:"frequency_ppm"`

	// Skew is the estimated frequency error bound in ppm.
	Skew float64 `json:"skew_ppm"`

	Stratum int `json:"stratum,omitempty"`

	// CapturedAt is the wall-clock capture time. Values produced by the
	// engine come from time.Now and therefore also carry the monotonic
	// reading.
	CapturedAt time.Time `json:"captured_at"`
}

var (
	trackingRefRe    = regexp.MustCompile(`Reference ID\s+:\s+([0-9A-Fa-f]+)(?:\s+\(([^)]*)\))?`)
	trackingSysRe    = regexp.MustCompile(`System time\s+:\s+([-\d.]+)\s+seconds\s+(slow|fast)`)
	trackingRMSRe    = regexp.MustCompile(`RMS offset\s+:\s+([-\d.]+)`)
	trackingFreqRe   = regexp.MustCompile(`Frequency\s+:\s+([-\d.]+)\s+ppm\s+(slow|fast)`)
	trackingSkewRe   = regexp.MustCompile(`Skew\s+:\s+([-\d.]+)`)
	trackingStratRe  = regexp.MustCompile(`Stratum\s+:\s+(\d+)`)
)

// ParseTracking parses `chronyc tracking` output. It returns (nil, false)
// when the input is empty or carries none of the expected labels, the
// signal that the daemon produced no report at all, as opposed to a
// partially garbled one.
func ParseTracking(out string, capturedAt time.Time) (*TrackingSample, bool) {
	if out == "" {
		return nil, false
	}

	s := &TrackingSample{CapturedAt: capturedAt}
	recognized := false

	if m := trackingRefRe.FindStringSubmatch(out); m != nil {
		s.ReferenceID = m[1]
		s.ReferenceName = m[2]
		recognized = true
	}
	if m := trackingSysRe.FindStringSubmatch(out); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			// "slow" means the system clock is behind NTP time.
			if m[2] == "slow" {
				v = -v
			}
			s.Offset = v
			recognized = true
		}
	}
	if m := trackingRMSRe.FindStringSubmatch(out); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			s.RMSOffset = v
			recognized = true
		}
	}
	if m := trackingFreqRe.FindStringSubmatch(out); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			if m[2] == "slow" {
				v = -v
			}
			s.Frequency = v
			recognized = true
		}
	}
	if m := trackingSkewRe.FindStringSubmatch(out); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			s.Skew = v
			recognized = true
		}
	}
	if m := trackingStratRe.FindStringSubmatch(out); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			s.Stratum = v
		}
	}

	if !recognized {
		return nil, false
	}
	return s, true
}
