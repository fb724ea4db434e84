// Package autosave periodically asks a session to persist a draft. The
// session decides whether there is anything to save; the scheduler only owns
// the timer and its teardown.
package autosave

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/untillpro/goutils/logger"
)

// DefaultInterval is the tick period used when none is configured.
const DefaultInterval = 30 * time.Second

// Target is implemented by session.Session.
type Target interface {
	Autosave(ctx context.Context) (saved bool, err error)
}

// Outcome describes one tick.
type Outcome struct {
	Saved bool
	Err   error
	At    time.Time
}

// Scheduler ticks a Target at a fixed interval. It is safe for concurrent use.
type Scheduler struct {
	target   Target
	interval time.Duration
	onSave   func(Outcome)
	clock    func() time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool

	failures atomic.Int64
	saves    atomic.Int64
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithInterval sets the tick period. Non-positive values are ignored.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// OnSave registers a hook called after every tick.
func OnSave(fn func(Outcome)) Option {
	return func(s *Scheduler) {
		s.onSave = fn
	}
}

// WithClock overrides time.Now for outcomes.
func WithClock(clock func() time.Time) Option {
	return func(s *Scheduler) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// New builds a stopped scheduler.
func New(target Target, options ...Option) *Scheduler {
	s := &Scheduler{
		target:   target,
		interval: DefaultInterval,
		clock:    time.Now,
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Interval returns the tick period.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Start launches the tick loop. Calling Start on a running or stopped
// scheduler does nothing.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil || s.stopped {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(loopCtx, s.done)
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			s.Tick(ctx)
		}
	}
}

// Stop ends the loop and waits for a tick in progress. No tick runs after
// Stop returns, including direct calls to Tick.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Tick runs one autosave. Failures are logged and counted, never returned:
// autosave is best effort.
func (s *Scheduler) Tick(ctx context.Context) Outcome {
	s.mu.Lock()
	stopped := s.stopped
	s.mu.Unlock()
	if stopped {
		return Outcome{At: s.clock()}
	}

	saved, err := s.target.Autosave(ctx)
	out := Outcome{Saved: saved, Err: err, At: s.clock()}
	switch {
	case err != nil:
		s.failures.Add(1)
		logger.Verbose("autosave: draft not saved:", err)
	case saved:
		s.saves.Add(1)
		if logger.IsVerbose() {
			logger.Verbose("autosave: draft saved at", out.At.Format(time.RFC3339))
		}
	}
	if s.onSave != nil {
		s.onSave(out)
	}
	return out
}

// Failures returns the number of failed ticks.
func (s *Scheduler) Failures() int64 {
	return s.failures.Load()
}

// Saves returns the number of ticks that wrote a draft.
func (s *Scheduler) Saves() int64 {
	return s.saves.Load()
}
