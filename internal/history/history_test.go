package history

import (
	"testing"
	"time"
)

func TestHistory(t *testing.T) {
	h := NewBuffer(5)

	now := time.Now()
	for i := 0; i < 7; i++ {
		h.Push(float64(30+i), now.Add(time.Duration(i)*time.Second))
	}

	if len(h.Points) != 5 {
		t.Errorf("expected 5 points, got %d", len(h.Points))
	}

	if h.Last() != 36.0 {
		t.Errorf("Last(): got %f, want 36.0", h.Last())
	}

	if h.Min != 30.0 {
		t.Errorf("Min: got %f, want 30.0", h.Min)
	}

	if h.Peak != 36.0 {
		t.Errorf("Peak: got %f, want 36.0", h.Peak)
	}

	if got := h.Avg(); got != 34.0 {
		t.Errorf("Avg(): got %f, want 34.0", got)
	}

	vals := h.LastN(3)
	if len(vals) != 3 {
		t.Errorf("LastN(3): got %d values, want 3", len(vals))
	}
}

func TestEvictsOldestFirst(t *testing.T) {
	h := NewBuffer(3)
	base := time.Unix(1700000000, 0)

	for i := 0; i < 5; i++ {
		h.Push(float64(i), base.Add(time.Duration(i)*time.Second))
		if h.Len() > 3 {
			t.Fatalf("push %d: length %d exceeds capacity", i, h.Len())
		}
	}

	if !h.Full() {
		t.Fatal("expected buffer to be full")
	}
	want := []float64{2, 3, 4}
	for i, p := range h.Points {
		if p.Temp != want[i] {
			t.Errorf("point %d: got %f, want %f", i, p.Temp, want[i])
		}
	}
}

func TestZeroCapacity(t *testing.T) {
	h := NewBuffer(0)
	h.Push(10, time.Now())
	h.Push(20, time.Now())
	if h.Len() != 1 || h.Last() != 20 {
		t.Errorf("got len=%d last=%f, want len=1 last=20", h.Len(), h.Last())
	}
}

func TestLastNPoints(t *testing.T) {
	h := NewBuffer(100)
	base := time.Date(2026, 2, 21, 14, 0, 0, 0, time.Local)

	for i := 0; i < 120; i++ {
		h.Push(float64(30+i%10), base.Add(time.Duration(i)*time.Second))
	}

	pts := h.LastNPoints(5)
	if len(pts) != 5 {
		t.Fatalf("LastNPoints(5): got %d, want 5", len(pts))
	}

	for _, p := range pts {
		if p.Time.IsZero() {
			t.Error("expected non-zero timestamp")
		}
	}

	last := pts[len(pts)-1]
	if last.Time != base.Add(119*time.Second) {
		t.Errorf("last point time: got %v, want %v", last.Time, base.Add(119*time.Second))
	}

	pts[0].Temp = -1
	if h.Points[95].Temp == -1 {
		t.Error("LastNPoints must return a copy")
	}
}
