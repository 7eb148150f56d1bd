package roast

import "sync"

// Buffer is the ordered record queue shared by the sampler (appends at the
// tail) and the uploader (removes prefixes at the head).
type Buffer struct {
	mu      sync.Mutex
	records []Record
	notify  chan struct{}
}

// NewBuffer returns an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{notify: make(chan struct{}, 1)}
}

// Append adds r at the tail. It never blocks.
func (b *Buffer) Append(r Record) {
	b.mu.Lock()
	b.records = append(b.records, r)
	b.mu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
	}
}

// Len returns the number of buffered records.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.records)
}

// Peek returns a copy of the oldest n records, or nil if fewer than n are
// buffered.
func (b *Buffer) Peek(n int) []Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n <= 0 || len(b.records) < n {
		return nil
	}
	out := make([]Record, n)
	copy(out, b.records[:n])
	return out
}

// DropPrefix removes the oldest n records and returns how many remain.
// n is clamped to the buffer length.
func (b *Buffer) DropPrefix(n int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n <= 0 {
		return len(b.records)
	}
	if n > len(b.records) {
		n = len(b.records)
	}
	rest := copy(b.records, b.records[n:])
	clear(b.records[rest:])
	b.records = b.records[:rest]
	return rest
}

// Snapshot returns a copy of every buffered record, oldest first.
func (b *Buffer) Snapshot() []Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Record, len(b.records))
	copy(out, b.records)
	return out
}

// Notify fires after appends. Signals coalesce: one receive may stand for
// several appends.
func (b *Buffer) Notify() <-chan struct{} {
	return b.notify
}
