package chronyc

import (
	"strconv"
	"strings"
)

// SourceStats is the statistical companion to a SourceRecord, from
// `chronyc sourcestats -v`, keyed by the same normalized name. It is
// rebuilt on its own, slower poll cycle.
type SourceStats struct {
	Name string `json:"name"`
	Key  string `json:"key"`

	// Samples (NP) and Runs (NR) describe the regression sample set.
	Samples *int `json:"samples,omitempty"`
	Runs    *int `json:"runs,omitempty"`

	// Span is the measurement set length in seconds.
	Span *float64 `json:"span_s,omitempty"`

	// Frequency is the estimated residual frequency in ppm, FreqSkew its
	// estimated error bound in ppm.
	Frequency *float64 `json:"frequency_ppm,omitempty"`
	FreqSkew  *float64 `json:"freq_skew_ppm,omitempty"`

	// Offset and StdDev are in seconds.
	Offset *float64 `json:"offset_s,omitempty"`
	StdDev *float64 `json:"std_dev_s,omitempty"`
}

// ParseSourcestats parses `chronyc sourcestats -v` output into a map keyed
// by normalized source name. The bool result is false when the input is
// empty or the table divider never appears. Rows before the divider are
// legend text; garbled rows after it are skipped individually.
func ParseSourcestats(out string) (map[string]SourceStats, bool) {
	if strings.TrimSpace(out) == "" {
		return nil, false
	}

	stats := make(map[string]SourceStats)
	inTable := false

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.HasPrefix(line, "====") {
			inTable = true
			continue
		}
		if !inTable || strings.TrimSpace(line) == "" || strings.HasPrefix(line, "Name/IP") {
			continue
		}

		if st, ok := parseSourcestatsLine(line); ok {
			stats[st.Key] = st
		}
	}

	if !inTable {
		return nil, false
	}
	return stats, true
}

func parseSourcestatsLine(line string) (SourceStats, bool) {
	parts := strings.Fields(line)
	if len(parts) < 8 {
		return SourceStats{}, false
	}

	st := SourceStats{
		Name: parts[0],
		Key:  normalizeName(parts[0]),
	}

	if v, err := strconv.Atoi(parts[1]); err == nil {
		st.Samples = intPtr(v)
	}
	if v, err := strconv.Atoi(parts[2]); err == nil {
		st.Runs = intPtr(v)
	}
	if v, ok := parseSpan(parts[3]); ok {
		st.Span = floatPtr(v)
	}
	if v, err := strconv.ParseFloat(parts[4], 64); err == nil {
		st.Frequency = floatPtr(v)
	}
	if v, err := strconv.ParseFloat(parts[5], 64); err == nil {
		st.FreqSkew = floatPtr(v)
	}
	if v, ok := parseUnitValue(parts[6]); ok {
		st.Offset = floatPtr(v)
	}
	if v, ok := parseUnitValue(parts[7]); ok {
		st.StdDev = floatPtr(v)
	}

	return st, true
}
