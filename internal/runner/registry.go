package runner

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/usfbank/surveyweb/internal/delay"
	"github.com/usfbank/surveyweb/internal/telemetry"
)

const defaultIdleTimeout = 30 * time.Minute

type key struct {
	session string
	survey  string
}

type RegistryConfig struct {
	IdleTimeout time.Duration
	After       delay.AfterFunc
	Publisher   Publisher
	Now         func() time.Time
}

// Registry keeps the live runners, one per browser session and survey.
type Registry struct {
	idle  time.Duration
	after delay.AfterFunc
	pub   Publisher
	now   func() time.Time

	mu      sync.Mutex
	runners map[key]*Runner
}

func NewRegistry(c RegistryConfig) *Registry {
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = defaultIdleTimeout
	}
	if c.Now == nil {
		c.Now = time.Now
	}

	return &Registry{
		idle:    c.IdleTimeout,
		after:   c.After,
		pub:     c.Publisher,
		now:     c.Now,
		runners: make(map[key]*Runner),
	}
}

// Get returns the runner of a session for a survey, creating it in mode m when missing.
func (g *Registry) Get(sessionID, surveyID string, m Mode) *Runner {
	g.mu.Lock()
	defer g.mu.Unlock()

	k := key{session: sessionID, survey: surveyID}
	if r, ok := g.runners[k]; ok {
		return r
	}

	var r *Runner
	r = New(Config{
		SurveyID:  surveyID,
		Mode:      m,
		After:     g.after,
		Publisher: g.pub,
		Now:       g.now,
		OnDone:    func() { g.remove(k, r) },
	})
	g.runners[k] = r
	telemetry.SetOpenRunners(len(g.runners))
	return r
}

// Lookup returns an existing runner without creating one.
func (g *Registry) Lookup(sessionID, surveyID string) (*Runner, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	r, ok := g.runners[key{session: sessionID, survey: surveyID}]
	return r, ok
}

// DropSession tears down every runner of a browser session.
func (g *Registry) DropSession(sessionID string) {
	g.mu.Lock()
	var drop []*Runner
	for k, r := range g.runners {
		if k.session == sessionID {
			drop = append(drop, r)
			delete(g.runners, k)
		}
	}
	telemetry.SetOpenRunners(len(g.runners))
	g.mu.Unlock()

	for _, r := range drop {
		r.Close()
	}
}

func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.runners)
}

// Sweep tears down the runners idle for longer than the idle timeout and returns how many it removed.
func (g *Registry) Sweep() int {
	deadline := g.now().Add(-g.idle)

	g.mu.Lock()
	var drop []*Runner
	for k, r := range g.runners {
		if r.IdleSince().Before(deadline) {
			drop = append(drop, r)
			delete(g.runners, k)
		}
	}
	telemetry.SetOpenRunners(len(g.runners))
	g.mu.Unlock()

	for _, r := range drop {
		r.Close()
	}
	return len(drop)
}

// Run sweeps idle runners until ctx is done, then closes every runner.
func (g *Registry) Run(ctx context.Context) error {
	t := time.NewTicker(g.idle / 2)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			g.closeAll()
			return nil
		case <-t.C:
			if n := g.Sweep(); n > 0 {
				slog.InfoContext(ctx, "runner: swept idle runners", "count", n)
			}
		}
	}
}

func (g *Registry) remove(k key, r *Runner) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.runners[k] == r {
		delete(g.runners, k)
		telemetry.SetOpenRunners(len(g.runners))
	}
}

func (g *Registry) closeAll() {
	g.mu.Lock()
	rs := g.runners
	g.runners = make(map[key]*Runner)
	telemetry.SetOpenRunners(0)
	g.mu.Unlock()

	for _, r := range rs {
		r.Close()
	}
}
