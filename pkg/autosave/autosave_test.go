package autosave

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goliatone/go-formstate/pkg/session"
	"github.com/goliatone/go-formstate/pkg/store"
	"github.com/goliatone/go-formstate/pkg/testsupport"
)

type countingTarget struct {
	calls atomic.Int64
	err   error
}

func (c *countingTarget) Autosave(context.Context) (bool, error) {
	c.calls.Add(1)
	if c.err != nil {
		return false, c.err
	}
	return true, nil
}

func TestDefaultInterval(t *testing.T) {
	t.Parallel()

	if got := New(&countingTarget{}).Interval(); got != 30*time.Second {
		t.Fatalf("expected 30s default, got %v", got)
	}
	if got := New(&countingTarget{}, WithInterval(-1)).Interval(); got != 30*time.Second {
		t.Fatalf("expected non-positive interval to be ignored, got %v", got)
	}
}

func TestTickCountsOutcomes(t *testing.T) {
	t.Parallel()

	var outcomes []Outcome
	target := &countingTarget{}
	s := New(target, OnSave(func(o Outcome) { outcomes = append(outcomes, o) }))

	if out := s.Tick(context.Background()); !out.Saved || out.Err != nil {
		t.Fatalf("unexpected outcome %+v", out)
	}
	target.err = errors.New("offline")
	if out := s.Tick(context.Background()); out.Saved || out.Err == nil {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if s.Saves() != 1 || s.Failures() != 1 {
		t.Fatalf("expected 1 save and 1 failure, got %d/%d", s.Saves(), s.Failures())
	}
	if len(outcomes) != 2 {
		t.Fatalf("expected hook per tick, got %d", len(outcomes))
	}
}

func TestStartStop(t *testing.T) {
	t.Parallel()

	target := &countingTarget{}
	ticked := make(chan struct{}, 16)
	s := New(target, WithInterval(time.Millisecond), OnSave(func(Outcome) {
		select {
		case ticked <- struct{}{}:
		default:
		}
	}))
	s.Start(context.Background())
	s.Start(context.Background())

	select {
	case <-ticked:
	case <-time.After(2 * time.Second):
		t.Fatalf("scheduler never ticked")
	}

	s.Stop()
	after := target.calls.Load()
	time.Sleep(20 * time.Millisecond)
	if got := target.calls.Load(); got != after {
		t.Fatalf("tick ran after Stop: %d -> %d", after, got)
	}
	s.Tick(context.Background())
	if got := target.calls.Load(); got != after {
		t.Fatalf("direct Tick ran after Stop")
	}

	s.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	if got := target.calls.Load(); got != after {
		t.Fatalf("Start after Stop must not restart the loop")
	}
	s.Stop()
}

func TestStopWithoutStart(t *testing.T) {
	t.Parallel()

	s := New(&countingTarget{})
	s.Stop()
	s.Stop()
}

func TestCancelledParentStopsLoop(t *testing.T) {
	t.Parallel()

	target := &countingTarget{}
	ctx, cancel := context.WithCancel(context.Background())
	s := New(target, WithInterval(time.Millisecond))
	s.Start(ctx)
	cancel()
	s.Stop()
	after := target.calls.Load()
	time.Sleep(10 * time.Millisecond)
	if target.calls.Load() != after {
		t.Fatalf("tick ran after cancellation")
	}
}

func TestSchedulerDrivesSession(t *testing.T) {
	t.Parallel()

	mem := store.NewMemory()
	sess, err := session.New(testsupport.SafetyInspection(), session.WithStore(mem), session.WithID("s-1"))
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}

	var mu sync.Mutex
	var saved int
	s := New(sess, OnSave(func(o Outcome) {
		if o.Saved {
			mu.Lock()
			saved++
			mu.Unlock()
		}
	}))

	s.Tick(context.Background())
	if err := sess.SetValue("jobsite", "js-1"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	s.Tick(context.Background())

	mu.Lock()
	defer mu.Unlock()
	if saved != 1 {
		t.Fatalf("expected only the dirty tick to save, got %d", saved)
	}
	if _, err := mem.LoadDraft(context.Background(), "s-1"); err != nil {
		t.Fatalf("expected a draft, got %v", err)
	}
}
