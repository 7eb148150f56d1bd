package roast

import (
	"context"
	"time"
)

// Sensor yields one raw temperature per call. Implementations may return a
// sentinel value together with an error; the engine records the value as-is.
type Sensor interface {
	Read(ctx context.Context) (float64, error)
}

// Display receives the operator summary after every tick. Refresh must not
// block for long; it runs on the sampling goroutine.
type Display interface {
	Refresh(Status)
}

// Sender delivers one batch as a unit. A nil error means every record in the
// batch was accepted.
type Sender interface {
	Send(ctx context.Context, batch []Record) error
}

// Indicator is switched on for the duration of each delivery attempt.
type Indicator interface {
	SetActive(active bool)
}

// Status is the per-tick summary shown to the operator.
type Status struct {
	Elapsed string // MM:SS since the session started
	Temp    float64
	RoR     float64
	Peak    float64
	Note    Stage
	Pending int // records waiting for upload
	Time    time.Time
}

// DisplayFunc adapts a function to Display.
type DisplayFunc func(Status)

func (f DisplayFunc) Refresh(s Status) { f(s) }

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, batch []Record) error

func (f SenderFunc) Send(ctx context.Context, batch []Record) error { return f(ctx, batch) }

type nopDisplay struct{}

func (nopDisplay) Refresh(Status) {}

type nopIndicator struct{}

func (nopIndicator) SetActive(bool) {}
