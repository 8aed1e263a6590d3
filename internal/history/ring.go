package history

import "time"

// Point is one recorded sample.
type Point struct {
	Value float64   `json:"value"`
	At    time.Time `json:"at"`
}

// Ring is a fixed-capacity sample buffer. Appending past capacity evicts
// the oldest sample. The zero value is not usable; use NewRing.
type Ring struct {
	buf   []Point
	start int
	size  int
}

// NewRing returns a Ring holding at most capacity samples.
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{buf: make([]Point, capacity)}
}

// Append records a sample, evicting the oldest when full.
func (r *Ring) Append(v float64, at time.Time) {
	idx := (r.start + r.size) % len(r.buf)
	r.buf[idx] = Point{Value: v, At: at}
	if r.size < len(r.buf) {
		r.size++
	} else {
		r.start = (r.start + 1) % len(r.buf)
	}
}

// Len returns the number of stored samples, Cap the fixed capacity.
func (r *Ring) Len() int { return r.size }
func (r *Ring) Cap() int { return len(r.buf) }

// Last returns the newest sample.
func (r *Ring) Last() (Point, bool) {
	if r.size == 0 {
		return Point{}, false
	}
	return r.buf[(r.start+r.size-1)%len(r.buf)], true
}

// Values returns the stored values oldest first, as a copy.
func (r *Ring) Values() []float64 {
	out := make([]float64, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)].Value
	}
	return out
}

// Points returns the stored samples oldest first, as a copy.
func (r *Ring) Points() []Point {
	out := make([]Point, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

// Tail returns the newest n values, oldest first. n larger than Len returns
// everything.
func (r *Ring) Tail(n int) []float64 {
	if n > r.size {
		n = r.size
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = r.buf[(r.start+r.size-n+i)%len(r.buf)].Value
	}
	return out
}
