package delay

import (
	"sort"
	"sync"
	"time"
)

// Manual is a clock that only moves when Advance is called. It is meant for tests.
type Manual struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*manualTimer
}

type manualTimer struct {
	m       *Manual
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func NewManual() *Manual {
	return &Manual{}
}

// AfterFunc has the signature of delay.AfterFunc.
func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := &manualTimer{m: m, at: m.now + d, f: f}
	m.timers = append(m.timers, t)
	return t
}

// Advance moves the clock forward by d and runs, in order, every timer that became due.
// Timer funcs run on the caller's goroutine.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now += d

	var due []*manualTimer
	rest := m.timers[:0]
	for _, t := range m.timers {
		switch {
		case t.stopped:
		case t.at <= m.now:
			t.fired = true
			due = append(due, t)
		default:
			rest = append(rest, t)
		}
	}
	m.timers = rest
	m.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })
	for _, t := range due {
		t.f()
	}
}

func (t *manualTimer) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}
