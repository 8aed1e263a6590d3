package history

import (
	"testing"
	"time"
)

func at(sec int) time.Time {
	return time.Date(2025, 8, 26, 12, 0, sec, 0, time.UTC)
}

func TestRing_AppendAndEvict(t *testing.T) {
	r := NewRing(3)

	for i := 0; i < 5; i++ {
		r.Append(float64(i), at(i))
		if r.Len() > r.Cap() {
			t.Fatalf("Len %d exceeded Cap %d", r.Len(), r.Cap())
		}
	}

	if r.Len() != 3 {
		t.Fatalf("Len = %d, want 3", r.Len())
	}
	// Oldest samples (0, 1) were evicted.
	want := []float64{2, 3, 4}
	got := r.Values()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Values = %v, want %v", got, want)
		}
	}

	last, ok := r.Last()
	if !ok || last.Value != 4 || !last.At.Equal(at(4)) {
		t.Errorf("Last = %+v, ok=%v", last, ok)
	}
}

func TestRing_Tail(t *testing.T) {
	r := NewRing(5)
	for i := 0; i < 5; i++ {
		r.Append(float64(i), at(i))
	}

	tail := r.Tail(2)
	if len(tail) != 2 || tail[0] != 3 || tail[1] != 4 {
		t.Errorf("Tail(2) = %v, want [3 4]", tail)
	}
	if got := r.Tail(99); len(got) != 5 {
		t.Errorf("Tail(99) length = %d, want 5", len(got))
	}
}

func TestRing_Empty(t *testing.T) {
	r := NewRing(4)
	if r.Len() != 0 {
		t.Errorf("Len = %d", r.Len())
	}
	if _, ok := r.Last(); ok {
		t.Error("Last ok on empty ring")
	}
	if got := r.Values(); len(got) != 0 {
		t.Errorf("Values = %v", got)
	}
}
