package roast

import (
	"context"
	"errors"
	"sync"
	"time"
)

// mockClock returns a fixed time until advanced.
type mockClock struct {
	mu      sync.Mutex
	current time.Time
}

func newMockClock() *mockClock {
	return &mockClock{current: time.Unix(1700000000, 0)}
}

func (m *mockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *mockClock) Advance(d time.Duration) {
	m.mu.Lock()
	m.current = m.current.Add(d)
	m.mu.Unlock()
}

// steppingClock moves forward by step on every read.
type steppingClock struct {
	mu      sync.Mutex
	current time.Time
	step    time.Duration
}

func (s *steppingClock) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.current
	s.current = s.current.Add(s.step)
	return now
}

// scriptedSensor replays values, repeating the last one when exhausted.
type scriptedSensor struct {
	mu     sync.Mutex
	values []float64
	err    error
	reads  int
}

func (s *scriptedSensor) Read(context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.reads
	if i >= len(s.values) {
		i = len(s.values) - 1
	}
	s.reads++
	return s.values[i], s.err
}

// recordingSender captures delivered batches and can be told to fail.
type recordingSender struct {
	mu      sync.Mutex
	batches [][]Record
	failN   int
	calls   int
}

var errCollectorDown = errors.New("collector down")

func (s *recordingSender) Send(_ context.Context, batch []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failN > 0 {
		s.failN--
		return errCollectorDown
	}
	s.batches = append(s.batches, append([]Record(nil), batch...))
	return nil
}

func (s *recordingSender) delivered() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Record
	for _, b := range s.batches {
		out = append(out, b...)
	}
	return out
}

func (s *recordingSender) batchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

// recordingIndicator remembers every toggle.
type recordingIndicator struct {
	mu     sync.Mutex
	states []bool
}

func (r *recordingIndicator) SetActive(active bool) {
	r.mu.Lock()
	r.states = append(r.states, active)
	r.mu.Unlock()
}

func (r *recordingIndicator) toggles() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.states...)
}

// statusLog collects display refreshes.
type statusLog struct {
	mu       sync.Mutex
	statuses []Status
}

func (l *statusLog) Refresh(s Status) {
	l.mu.Lock()
	l.statuses = append(l.statuses, s)
	l.mu.Unlock()
}

func (l *statusLog) all() []Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Status(nil), l.statuses...)
}

func recordsAt(times ...int64) []Record {
	out := make([]Record, len(times))
	for i, t := range times {
		out[i] = Record{Temp: float64(100 + t), Time: t}
	}
	return out
}
