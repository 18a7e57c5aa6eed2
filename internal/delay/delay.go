// Package delay runs cancellable delayed tasks tied to the lifetime of their owner.
package delay

import (
	"sync"
	"time"
)

type Timer interface {
	Stop() bool
}

// AfterFunc schedules f to run after d. time.AfterFunc satisfies it through RealAfterFunc.
type AfterFunc func(d time.Duration, f func()) Timer

func RealAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Group owns the delayed tasks of one component. Once the group is closed no task runs.
type Group struct {
	after AfterFunc

	mu      sync.Mutex
	next    uint64
	pending map[uint64]Timer
	closed  bool
}

func NewGroup(after AfterFunc) *Group {
	if after == nil {
		after = RealAfterFunc
	}

	return &Group{
		after:   after,
		pending: make(map[uint64]Timer),
	}
}

// After runs f once d has elapsed, unless the returned cancel func or Close is called first.
func (g *Group) After(d time.Duration, f func()) (cancel func()) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return func() {}
	}

	id := g.next
	g.next++

	g.pending[id] = g.after(d, func() {
		if !g.take(id) {
			return
		}
		f()
	})

	return func() { g.cancel(id) }
}

// take removes the task from the pending set, reporting whether it was still due to run.
func (g *Group) take(id uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return false
	}

	if _, ok := g.pending[id]; !ok {
		return false
	}
	delete(g.pending, id)
	return true
}

func (g *Group) cancel(id uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if t, ok := g.pending[id]; ok {
		t.Stop()
		delete(g.pending, id)
	}
}

// Pending returns the number of tasks that have neither run nor been cancelled.
func (g *Group) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.pending)
}

// Close cancels every pending task. It is safe to call more than once.
func (g *Group) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()

	for id, t := range g.pending {
		t.Stop()
		delete(g.pending, id)
	}
	g.closed = true
}
