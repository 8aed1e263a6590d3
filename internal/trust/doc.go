// Package trust fuses the sources and sourcestats record sets and derives a
// 0–100 trust score per source, plus the network-noise verdict for the
// currently selected source.
//
// Scores are derived, never stored: every pass recomputes them from the
// current merged set so they always reflect the freshest inputs. Unknown
// fields (a source with no sourcestats row, an unparsed column) take small
// fixed penalties instead of being read as zero.
package trust
