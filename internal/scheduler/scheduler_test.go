package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNewRejectsNonPositiveInterval(t *testing.T) {
	if _, err := New(Options{}, zerolog.Nop()); err == nil {
		t.Fatal("expected error for zero interval")
	}
}

func TestRunTicksUntilCancelled(t *testing.T) {
	s, err := New(Options{Interval: 10 * time.Millisecond, RunOnStart: true}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	var ticks atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, func(ctx context.Context, at time.Time) error {
			if ticks.Add(1) >= 3 {
				cancel()
			}
			return errors.New("tick errors are logged, not fatal")
		})
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		cancel()
		t.Fatal("scheduler did not stop")
	}
	if ticks.Load() < 3 {
		t.Fatalf("expected at least 3 ticks, got %d", ticks.Load())
	}
}

func TestRunOnStartFiresImmediately(t *testing.T) {
	s, _ := New(Options{Interval: time.Hour, RunOnStart: true}, zerolog.Nop())

	fired := make(chan struct{}, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = s.Run(ctx, func(ctx context.Context, at time.Time) error {
			fired <- struct{}{}
			return nil
		})
	}()

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("first tick should not wait for the interval")
	}
}

func TestNextTickAligned(t *testing.T) {
	s, _ := New(Options{Interval: 30 * time.Second, AlignToStart: true}, zerolog.Nop())
	now := time.Date(2025, 3, 14, 10, 0, 12, 0, time.UTC)
	if got := s.nextTick(now); !got.Equal(time.Date(2025, 3, 14, 10, 0, 30, 0, time.UTC)) {
		t.Fatalf("unexpected next tick %v", got)
	}
	onBoundary := time.Date(2025, 3, 14, 10, 0, 30, 0, time.UTC)
	if got := s.nextTick(onBoundary); !got.Equal(onBoundary.Add(30 * time.Second)) {
		t.Fatalf("boundary should roll to the next interval, got %v", got)
	}
}
