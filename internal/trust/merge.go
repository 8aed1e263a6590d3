package trust

import (
	"sort"

	"github.com/chronywatch/chronywatch/internal/chronyc"
)

// Source is a SourceRecord joined with its statistical companion.
// Stats is nil when the sourcestats report had no row for this source:
// unknown, not zero, so missing stats can never improve a score.
type Source struct {
	chronyc.SourceRecord
	Stats *chronyc.SourceStats `json:"stats,omitempty"`
}

// Merge outer-joins the sources set with the sourcestats set on the
// normalized name. Sources without stats are kept; stats without a matching
// source are discarded.
func Merge(records []chronyc.SourceRecord, stats map[string]chronyc.SourceStats) []Source {
	out := make([]Source, 0, len(records))
	for _, rec := range records {
		s := Source{SourceRecord: rec}
		if st, found := stats[rec.Key]; found {
			stCopy := st
			s.Stats = &stCopy
		}
		out = append(out, s)
	}
	return out
}

// Scored pairs a merged source with its freshly computed trust score.
type Scored struct {
	Source
	Score int      `json:"score"`
	Flags []string `json:"flags,omitempty"`
}

// Rank scores every source and orders the result for display: the selected
// source first, then descending score, then ascending name so equal scores
// order deterministically. The list is capped at maxRows; pass 0 for no cap.
func Rank(sources []Source, maxRows int) []Scored {
	out := make([]Scored, 0, len(sources))
	for _, s := range sources {
		score, flags := Evaluate(s)
		out = append(out, Scored{Source: s, Score: score, Flags: flags})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Selected() != out[j].Selected() {
			return out[i].Selected()
		}
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Name < out[j].Name
	})

	if maxRows > 0 && len(out) > maxRows {
		out = out[:maxRows]
	}
	return out
}
