// Package history provides a bounded FIFO of timestamped temperature points
// with running min/peak statistics. The roast aggregator keeps its sample
// windows in it and the displays draw their sparklines from it.
package history

import (
	"math"
	"time"
)

// Point is a single data point in the temperature history.
type Point struct {
	Temp float64
	Time time.Time
}

// Buffer keeps the most recent Max points, oldest evicted first.
// Min and Peak track every value ever pushed, not only the retained ones.
type Buffer struct {
	Points []Point
	Max    int // capacity
	Min    float64
	Peak   float64
}

// NewBuffer creates a new history buffer with the given capacity.
// A capacity below one is treated as one.
func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{
		Points: make([]Point, 0, capacity),
		Max:    capacity,
		Min:    math.MaxFloat64,
		Peak:   -math.MaxFloat64,
	}
}

// Push appends a point, evicting the oldest one when the buffer is full.
func (b *Buffer) Push(temp float64, t time.Time) {
	p := Point{Temp: temp, Time: t}
	if len(b.Points) >= b.Max {
		copy(b.Points, b.Points[1:])
		b.Points[len(b.Points)-1] = p
	} else {
		b.Points = append(b.Points, p)
	}

	if temp < b.Min {
		b.Min = temp
	}
	if temp > b.Peak {
		b.Peak = temp
	}
}

// Len returns the number of retained points.
func (b *Buffer) Len() int {
	return len(b.Points)
}

// Full reports whether the buffer holds Max points.
func (b *Buffer) Full() bool {
	return len(b.Points) >= b.Max
}

// Last returns the most recent temperature, or 0 if empty.
func (b *Buffer) Last() float64 {
	if len(b.Points) == 0 {
		return 0
	}
	return b.Points[len(b.Points)-1].Temp
}

// Avg returns the mean temperature across the retained points, or 0 if empty.
func (b *Buffer) Avg() float64 {
	if len(b.Points) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range b.Points {
		sum += p.Temp
	}
	return sum / float64(len(b.Points))
}

// LastN returns the last n temperature values (for chart rendering).
func (b *Buffer) LastN(n int) []float64 {
	if n <= 0 || len(b.Points) == 0 {
		return nil
	}
	start := len(b.Points) - n
	if start < 0 {
		start = 0
	}
	vals := make([]float64, 0, n)
	for _, p := range b.Points[start:] {
		vals = append(vals, p.Temp)
	}
	return vals
}

// LastNPoints returns a copy of the last n points.
func (b *Buffer) LastNPoints(n int) []Point {
	if n <= 0 || len(b.Points) == 0 {
		return nil
	}
	start := len(b.Points) - n
	if start < 0 {
		start = 0
	}
	out := make([]Point, len(b.Points[start:]))
	copy(out, b.Points[start:])
	return out
}
