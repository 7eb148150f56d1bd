package roast

import (
	"sync"
	"sync/atomic"
)

// Mailbox is a single-slot holder for the latest stage marker. Writers
// overwrite any unread marker; the sampler takes and clears it once per
// tick, so bursts within one tick collapse to the newest marker.
type Mailbox struct {
	mu    sync.Mutex
	stage Stage
	full  bool

	overwritten atomic.Uint64
}

// NewMailbox returns an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{}
}

// Write stores s, replacing an unread marker. Safe to call from any
// goroutine.
func (m *Mailbox) Write(s Stage) {
	m.mu.Lock()
	if m.full {
		m.overwritten.Add(1)
	}
	m.stage = s
	m.full = true
	m.mu.Unlock()
}

// Take returns the pending marker and empties the slot. ok is false when
// nothing was written since the last Take.
func (m *Mailbox) Take() (s Stage, ok bool) {
	m.mu.Lock()
	s, ok = m.stage, m.full
	m.stage, m.full = StageNone, false
	m.mu.Unlock()
	return s, ok
}

// Overwritten counts markers replaced before the sampler read them.
func (m *Mailbox) Overwritten() uint64 {
	return m.overwritten.Load()
}
