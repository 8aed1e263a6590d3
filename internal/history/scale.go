package history

// Scale is an inclusive display range for mapping values to sparkline
// levels.
type Scale struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Clip marks a value falling outside the active scale.
type Clip int

const (
	ClipNone Clip = iota
	ClipBelow
	ClipAbove
)

// Cell is one rendered sample: the raw value, its discrete level 0..8, and
// whether it was clipped to a scale boundary. Rendering is a pure function
// of (values, scale), so the same samples under the same scale always
// produce identical cells.
type Cell struct {
	Value float64 `json:"value"`
	Level int     `json:"level"`
	Clip  Clip    `json:"clip,omitempty"`
}

// levels is the number of discrete sparkline steps above blank.
const levels = 8

// autoscalePad is the margin added around the observed min/max.
const autoscalePad = 0.10

// Autoscale derives a display scale from the newest window values. The
// span is padded by 10%; for signed metrics the result is symmetric around
// zero. Degenerate inputs (fewer than 2 samples, zero span after padding)
// fall back to the fixed scale.
func Autoscale(values []float64, window int, signed bool, fixed Scale) Scale {
	if len(values) < 2 || window < 2 {
		return fixed
	}
	if window < len(values) {
		values = values[len(values)-window:]
	}

	mn, mx := values[0], values[0]
	for _, v := range values[1:] {
		if v < mn {
			mn = v
		}
		if v > mx {
			mx = v
		}
	}

	if mn == mx {
		if mn == 0 {
			mn, mx = -1e-6, 1e-6
		} else {
			pad := abs(mn) * autoscalePad
			mn -= pad
			mx += pad
		}
	} else {
		pad := (mx - mn) * autoscalePad
		mn -= pad
		mx += pad
	}

	if signed {
		m := max(abs(mn), abs(mx))
		mn, mx = -m, m
	}

	if mx <= mn {
		return fixed
	}
	return Scale{Min: mn, Max: mx}
}

// Render maps the newest width values onto sc. Values outside the scale are
// clipped to the boundary level and tagged so the renderer can mark them.
// Width <= 0 renders every value.
func Render(values []float64, sc Scale, width int) []Cell {
	if sc.Max <= sc.Min {
		return nil
	}
	if width > 0 && len(values) > width {
		values = values[len(values)-width:]
	}

	cells := make([]Cell, len(values))
	span := sc.Max - sc.Min
	for i, v := range values {
		c := Cell{Value: v}
		switch {
		case v < sc.Min:
			c.Clip = ClipBelow
			c.Level = 0
		case v > sc.Max:
			c.Clip = ClipAbove
			c.Level = levels
		default:
			n := int((v - sc.Min) / span * levels)
			if n > levels {
				n = levels
			}
			// A value above the floor always gets at least one step so
			// small-but-present samples remain visible.
			if n == 0 && v > sc.Min {
				n = 1
			}
			c.Level = n
		}
		cells[i] = c
	}
	return cells
}

// sparkRunes maps levels 0..8 to block characters.
var sparkRunes = []rune(" ▁▂▃▄▅▆▇█")

// Sparkline renders cells to a string for terminal display, with ▲/▼
// marking clipped values.
func Sparkline(cells []Cell) string {
	out := make([]rune, len(cells))
	for i, c := range cells {
		switch c.Clip {
		case ClipBelow:
			out[i] = '▼'
		case ClipAbove:
			out[i] = '▲'
		default:
			out[i] = sparkRunes[c.Level]
		}
	}
	return string(out)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
