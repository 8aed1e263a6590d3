package chronyc

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	unitValueRe = regexp.MustCompile(`^([+\-]?\d+(?:\.\d+)?)(ns|us|ms|s)$`)
	spanRe      = regexp.MustCompile(`^(\d+)([smhd])?$`)
)

// toSeconds converts a value carrying a chronyc time-unit suffix to seconds.
// Unknown units pass the value through unchanged.
func toSeconds(value float64, unit string) float64 {
	switch strings.ToLower(unit) {
	case "ms":
		return value / 1e3
	case "us":
		return value / 1e6
	case "ns":
		return value / 1e9
	default:
		return value
	}
}

// parseUnitValue parses strings like "-43us", "+1.2ms" or "0.5s" into
// seconds.
func parseUnitValue(s string) (float64, bool) {
	m := unitValueRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return toSeconds(v, m[2]), true
}

// parseSpan parses chronyc span/interval fields ("258", "17m", "12h", "3d")
// into seconds. A bare number is seconds.
func parseSpan(s string) (float64, bool) {
	m := spanRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, false
	}
	v, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	switch m[2] {
	case "m":
		return float64(v) * 60, true
	case "h":
		return float64(v) * 3600, true
	case "d":
		return float64(v) * 86400, true
	default:
		return float64(v), true
	}
}

// parseReach parses the octal reachability register ("377", "17", "0").
func parseReach(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '7' {
			return 0, false
		}
	}
	v, err := strconv.ParseInt(s, 8, 32)
	if err != nil {
		return 0, false
	}
	return int(v), true
}

// normalizeName strips the truncation marker chronyc appends to names that
// did not fit its column ("long.host.name>"). The stripped form is the merge
// key shared by the sources and sourcestats reports.
func normalizeName(name string) string {
	return strings.TrimRight(name, ">")
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }
