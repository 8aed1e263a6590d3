package chronyc

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// SourceRecord is one configured NTP source from `chronyc sources -v`.
// The set is rebuilt wholesale on every successful sources poll; Key is the
// identity shared with the sourcestats report.
//
// Optional columns that failed to parse are nil, never zero; a zero offset
// and an unknown offset are different things to the scorer.
type SourceRecord struct {
	// Mode holds the two leading state characters, e.g. "^*" for a server
	// that is the current best source.
	Mode string `json:"mode"`

	Name string `json:"name"`
	Key  string `json:"key"`

	Stratum *int `json:"stratum,omitempty"`

	// PollExp is the log2 polling interval exponent as reported.
	PollExp *int `json:"poll_exp,omitempty"`

	// Reach is the 8-bit reachability register; bit 0 is the most recent
	// poll. ReachOctal preserves the reported octal text.
	Reach      *int   `json:"reach,omitempty"`
	ReachOctal string `json:"reach_octal,omitempty"`

	// LastRx is seconds since the last valid sample.
	LastRx *int `json:"last_rx_s,omitempty"`

	// Offset is the adjusted offset estimate in seconds, Err the estimated
	// error bound in seconds.
	Offset *float64 `json:"offset_s,omitempty"`
	Err    *float64 `json:"err_s,omitempty"`
}

// State flag accessors, decoded from the Mode column.
func (r SourceRecord) Selected() bool    { return strings.Contains(r.Mode, "*") }
func (r SourceRecord) Combined() bool    { return strings.Contains(r.Mode, "+") }
func (r SourceRecord) Unusable() bool    { return strings.Contains(r.Mode, "?") }
func (r SourceRecord) Bad() bool         { return strings.Contains(r.Mode, "x") }
func (r SourceRecord) TooVariable() bool { return strings.Contains(r.Mode, "~") }

// PollSeconds returns the poll interval in seconds (2^PollExp), or 0 when
// the exponent is unknown.
func (r SourceRecord) PollSeconds() float64 {
	if r.PollExp == nil {
		return 0
	}
	return math.Pow(2, float64(*r.PollExp))
}

var (
	// sourceLineRe matches data rows: a mode char, an optional state char,
	// then whitespace. Header and legend lines never match.
	sourceLineRe = regexp.MustCompile(`^[\^=#?~\-+]{1,2}[*+\-?x]?\s`)

	sourceOffsetRe = regexp.MustCompile(`([+\-]?\d+(?:\.\d+)?)(ns|us|ms|s)\[`)
	sourceErrRe    = regexp.MustCompile(`\+/-\s*([+\-]?\d+(?:\.\d+)?)(ns|us|ms|s)`)
)

// ParseSources parses `chronyc sources -v` output. The bool result is false
// when the input is empty or the table header never appears: the report is
// missing, not merely partial. Garbled data rows are skipped individually.
func ParseSources(out string) ([]SourceRecord, bool) {
	if strings.TrimSpace(out) == "" {
		return nil, false
	}

	headerSeen := false
	records := make([]SourceRecord, 0, 8)

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		switch {
		case strings.HasPrefix(line, "===="):
			headerSeen = true
			continue
		case strings.HasPrefix(line, "MS ") || strings.HasPrefix(line, "Name/IP"):
			headerSeen = true
			continue
		case strings.TrimSpace(line) == "":
			continue
		case !sourceLineRe.MatchString(line):
			continue
		}

		if rec, ok := parseSourceLine(line); ok {
			records = append(records, rec)
		}
	}

	if !headerSeen {
		return nil, false
	}
	return records, true
}

func parseSourceLine(line string) (SourceRecord, bool) {
	parts := strings.Fields(line)
	if len(parts) < 6 {
		return SourceRecord{}, false
	}

	rec := SourceRecord{
		Mode: parts[0],
		Name: parts[1],
		Key:  normalizeName(parts[1]),
	}

	if v, err := strconv.Atoi(parts[2]); err == nil {
		rec.Stratum = intPtr(v)
	}
	if v, err := strconv.Atoi(parts[3]); err == nil {
		rec.PollExp = intPtr(v)
	}
	if v, ok := parseReach(parts[4]); ok {
		rec.Reach = intPtr(v)
		rec.ReachOctal = parts[4]
	}
	if span, ok := parseSpan(parts[5]); ok {
		rec.LastRx = intPtr(int(span))
	}

	rest := strings.Join(parts[6:], " ")
	if m := sourceOffsetRe.FindStringSubmatch(rest); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			rec.Offset = floatPtr(toSeconds(v, m[2]))
		}
	}
	if m := sourceErrRe.FindStringSubmatch(rest); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			rec.Err = floatPtr(toSeconds(v, m[2]))
		}
	}

	return rec, true
}
