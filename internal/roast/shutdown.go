package roast

import (
	"context"
	"sync"
	"sync/atomic"
)

// Shutdown is the running/finished handshake between the orchestrator and
// the sampler. The orchestrator calls Stop and then Wait; the sampler checks
// Running once per tick and calls finish when it leaves its loop.
type Shutdown struct {
	running  atomic.Bool
	finished atomic.Bool

	stopOnce   sync.Once
	finishOnce sync.Once
	stopping   chan struct{}
	done       chan struct{}
}

// NewShutdown returns a coordinator in the running state.
func NewShutdown() *Shutdown {
	s := &Shutdown{
		stopping: make(chan struct{}),
		done:     make(chan struct{}),
	}
	s.running.Store(true)
	return s
}

// Running reports whether a stop has not been requested yet.
func (s *Shutdown) Running() bool { return s.running.Load() }

// Finished reports whether the sampler has left its loop.
func (s *Shutdown) Finished() bool { return s.finished.Load() }

// Stop requests the sampler to stop after its current tick. Idempotent.
func (s *Shutdown) Stop() {
	s.stopOnce.Do(func() {
		s.running.Store(false)
		close(s.stopping)
	})
}

// Stopping is closed once Stop has been called.
func (s *Shutdown) Stopping() <-chan struct{} { return s.stopping }

// Done is closed once the sampler has finished.
func (s *Shutdown) Done() <-chan struct{} { return s.done }

// Wait blocks until the sampler has finished or ctx ends.
func (s *Shutdown) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Shutdown) finish() {
	s.finishOnce.Do(func() {
		s.finished.Store(true)
		close(s.done)
	})
}
