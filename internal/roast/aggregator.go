package roast

import (
	"time"

	"github.com/luki/roaster/internal/history"
)

// DefaultWindow is the number of raw readings averaged into one smoothed
// temperature.
const DefaultWindow = 10

// Aggregator turns raw sensor readings into a smoothed bean temperature and
// a rate-of-rise. It keeps two FIFOs of equal length: the raw readings and
// the (time, smoothed) points derived from them.
//
// An Aggregator is owned by a single goroutine and is not safe for
// concurrent use.
type Aggregator struct {
	clock    Clock
	raw      *history.Buffer
	averaged *history.Buffer
	smoothed float64
}

// NewAggregator creates an aggregator over the last window readings.
// A nil clock uses the wall clock; a window below one uses DefaultWindow.
func NewAggregator(window int, clock Clock) *Aggregator {
	if window < 1 {
		window = DefaultWindow
	}
	if clock == nil {
		clock = RealClock{}
	}
	return &Aggregator{
		clock:    clock,
		raw:      history.NewBuffer(window),
		averaged: history.NewBuffer(window),
	}
}

// RecordSample pushes a raw reading, recomputes the smoothed temperature as
// the mean of the window and appends it to the averaged history.
func (a *Aggregator) RecordSample(raw float64) float64 {
	now := a.clock.Now()
	a.raw.Push(raw, now)
	a.smoothed = a.raw.Avg()
	a.averaged.Push(a.smoothed, now)
	return a.smoothed
}

// RateOfRise returns degrees per minute between the two newest averaged
// points, or 0 when there are fewer than two or they share a timestamp.
func (a *Aggregator) RateOfRise() float64 {
	n := a.averaged.Len()
	if n < 2 {
		return 0
	}
	prev, last := a.averaged.Points[n-2], a.averaged.Points[n-1]
	dt := last.Time.Sub(prev.Time).Seconds()
	if dt == 0 {
		return 0
	}
	return (last.Temp - prev.Temp) / dt * 60
}

// Smoothed returns the most recent smoothed temperature.
func (a *Aggregator) Smoothed() float64 { return a.smoothed }

// Peak returns the highest smoothed temperature seen, or 0 before the first
// sample.
func (a *Aggregator) Peak() float64 {
	if a.averaged.Len() == 0 {
		return 0
	}
	return a.averaged.Peak
}

// Latest returns the time of the newest sample, or the zero time.
func (a *Aggregator) Latest() time.Time {
	n := a.averaged.Len()
	if n == 0 {
		return time.Time{}
	}
	return a.averaged.Points[n-1].Time
}

// Len returns the number of readings currently in the window.
func (a *Aggregator) Len() int { return a.raw.Len() }

// Window returns the configured window size.
func (a *Aggregator) Window() int { return a.raw.Max }

// History returns a copy of the averaged points, oldest first.
func (a *Aggregator) History() []history.Point {
	return a.averaged.LastNPoints(a.averaged.Len())
}
