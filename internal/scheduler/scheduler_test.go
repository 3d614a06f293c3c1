package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestScheduler() *Scheduler {
	return New(zerolog.Nop())
}

func TestRegisterValidation(t *testing.T) {
	s := newTestScheduler()
	run := func(context.Context) error { return nil }

	cases := []struct {
		name string
		job  JobSpec
	}{
		{"missing name", JobSpec{Interval: time.Second, Run: run}},
		{"zero interval", JobSpec{Name: "a", Run: run}},
		{"missing run", JobSpec{Name: "a", Interval: time.Second}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if err := s.Register(c.job); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestRegisterDuplicate(t *testing.T) {
	s := newTestScheduler()
	job := JobSpec{Name: "dup", Interval: time.Second, Run: func(context.Context) error { return nil }}

	if err := s.Register(job); err != nil {
		t.Fatal(err)
	}
	if err := s.Register(job); !errors.Is(err, ErrJobExists) {
		t.Fatalf("expected ErrJobExists, got %v", err)
	}
}

func TestRegisterAfterStart(t *testing.T) {
	s := newTestScheduler()
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer s.Stop(time.Second)

	job := JobSpec{Name: "late", Interval: time.Second, Run: func(context.Context) error { return nil }}
	if err := s.Register(job); !errors.Is(err, ErrSchedulerStart) {
		t.Fatalf("expected ErrSchedulerStart, got %v", err)
	}
}

func TestStartTwice(t *testing.T) {
	s := newTestScheduler()
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer s.Stop(time.Second)

	if err := s.Start(context.Background()); !errors.Is(err, ErrSchedulerStart) {
		t.Fatalf("expected ErrSchedulerStart, got %v", err)
	}
}

func TestRunOnStartAndTicks(t *testing.T) {
	s := newTestScheduler()
	var runs atomic.Int64
	job := JobSpec{
		Name:       "ticker",
		Interval:   10 * time.Millisecond,
		RunOnStart: true,
		Run: func(context.Context) error {
			runs.Add(1)
			return nil
		},
	}
	if err := s.Register(job); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for runs.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if err := s.Stop(time.Second); err != nil {
		t.Fatal(err)
	}
	if got := runs.Load(); got < 3 {
		t.Fatalf("expected at least 3 runs, got %d", got)
	}

	snap := s.Snapshot()
	if len(snap) != 1 || snap[0].Name != "ticker" {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap[0].Runs < 3 || snap[0].LastError != "" {
		t.Fatalf("status = %+v", snap[0])
	}
}

func TestJobErrorRecordedInStatus(t *testing.T) {
	s := newTestScheduler()
	job := JobSpec{
		Name:       "failing",
		Interval:   time.Hour,
		RunOnStart: true,
		Run: func(context.Context) error {
			return errors.New("boom")
		},
	}
	if err := s.Register(job); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if snap := s.Snapshot(); len(snap) == 1 && snap[0].Runs > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err := s.Stop(time.Second); err != nil {
		t.Fatal(err)
	}

	snap := s.Snapshot()
	if snap[0].Runs == 0 {
		t.Fatal("job never ran")
	}
	if snap[0].LastError != "boom" {
		t.Fatalf("last error = %q", snap[0].LastError)
	}
}

func TestJobTimeoutCancelsContext(t *testing.T) {
	s := newTestScheduler()
	var sawDeadline atomic.Bool
	job := JobSpec{
		Name:       "slow",
		Interval:   time.Hour,
		Timeout:    10 * time.Millisecond,
		RunOnStart: true,
		Run: func(ctx context.Context) error {
			select {
			case <-ctx.Done():
				sawDeadline.Store(true)
				return ctx.Err()
			case <-time.After(2 * time.Second):
				return nil
			}
		},
	}
	if err := s.Register(job); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for !sawDeadline.Load() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if err := s.Stop(time.Second); err != nil {
		t.Fatal(err)
	}
	if !sawDeadline.Load() {
		t.Fatal("job context was never cancelled by the timeout")
	}
}

func TestStopWithoutStart(t *testing.T) {
	s := newTestScheduler()
	if err := s.Stop(time.Second); err != nil {
		t.Fatalf("stop before start should be a no-op, got %v", err)
	}
}
