package rollout

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

var now = time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)

func mustSchedule(t *testing.T, stages ...int) Schedule {
	t.Helper()
	s, err := NewSchedule("hero_cta_color", stages)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return s
}

func TestNewScheduleValidation(t *testing.T) {
	cases := map[string][]int{
		"empty":      {},
		"negative":   {-1, 10},
		"above 100":  {10, 101},
		"decreasing": {10, 50, 25},
	}
	for name, stages := range cases {
		if _, err := NewSchedule("exp", stages); !errors.Is(err, ErrInvalidSchedule) {
			t.Fatalf("%s: expected ErrInvalidSchedule, got %v", name, err)
		}
	}
	if _, err := NewSchedule("", []int{10}); !errors.Is(err, ErrInvalidSchedule) {
		t.Fatalf("missing id: expected ErrInvalidSchedule, got %v", err)
	}
	if _, err := NewSchedule("exp", []int{5, 5, 100}); err != nil {
		t.Fatalf("non-decreasing stages should be accepted: %v", err)
	}
}

func TestAdvanceThroughStages(t *testing.T) {
	s := mustSchedule(t, 5, 25, 50, 100)
	if s.Status != StatusReady || s.CurrentPercentage() != 5 {
		t.Fatalf("unexpected initial state %+v", s)
	}

	var err error
	for _, want := range []int{25, 50, 100} {
		s, err = s.Advance(now)
		if err != nil {
			t.Fatalf("advance %d: %v", want, err)
		}
		if s.Status != StatusActive || s.CurrentPercentage() != want {
			t.Fatalf("advance to %d%%: got %s at %d%%", want, s.Status, s.CurrentPercentage())
		}
	}
	if s.CurrentPercentage() != 100 || !s.IsLastStage() {
		t.Fatalf("expected last stage at 100%%, got %+v", s)
	}
	if s.Status != StatusActive {
		t.Fatalf("reaching the last stage must not complete automatically, got %s", s.Status)
	}

	if _, err := s.Advance(now); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("advancing past the last stage must fail, got %v", err)
	}

	done, err := s.Complete(now, "variant_b")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != StatusCompleted || done.Winner != "variant_b" {
		t.Fatalf("unexpected completed schedule %+v", done)
	}
	if _, err := done.Advance(now); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("completed rollout must reject advance, got %v", err)
	}
	if _, err := done.Abort(now); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("completed rollout must reject abort, got %v", err)
	}
}

func TestAdvanceDoesNotMutateReceiver(t *testing.T) {
	s := mustSchedule(t, 10, 50)
	next, err := s.Advance(now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.CurrentStage != 0 || s.Status != StatusReady {
		t.Fatalf("receiver changed: %+v", s)
	}
	next.Stages[0] = 99
	if s.Stages[0] != 10 {
		t.Fatal("stages slice must not be shared")
	}
	if !next.UpdatedAt.Equal(now) {
		t.Fatalf("expected UpdatedAt to be stamped, got %v", next.UpdatedAt)
	}
}

func TestPauseFreezesExposure(t *testing.T) {
	s := mustSchedule(t, 10, 30, 60)
	s, _ = s.Advance(now)

	paused, err := s.Pause(now)
	if err != nil {
		t.Fatalf("pause: %v", err)
	}
	if paused.CurrentPercentage() != 30 {
		t.Fatalf("paused rollout should keep 30%%, got %d", paused.CurrentPercentage())
	}
	if _, err := paused.Advance(now); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("paused rollout must reject advance, got %v", err)
	}

	resumed, err := paused.Resume(now)
	if err != nil || resumed.Status != StatusActive {
		t.Fatalf("resume: %v %+v", err, resumed)
	}
}

func TestAbortDropsExposure(t *testing.T) {
	for _, start := range []Status{StatusReady, StatusActive, StatusPaused} {
		s := mustSchedule(t, 20, 40)
		s.Status = start
		aborted, err := s.Abort(now)
		if err != nil {
			t.Fatalf("abort from %s: %v", start, err)
		}
		if aborted.CurrentPercentage() != 0 {
			t.Fatalf("aborted rollout must expose 0%%, got %d", aborted.CurrentPercentage())
		}
		if _, err := aborted.Resume(now); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("aborted rollout must reject resume, got %v", err)
		}
	}
}

func TestIllegalTransitions(t *testing.T) {
	ready := mustSchedule(t, 10, 20)
	if _, err := ready.Pause(now); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("ready rollout cannot pause, got %v", err)
	}
	if _, err := ready.Resume(now); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("ready rollout cannot resume, got %v", err)
	}
	if _, err := ready.Complete(now, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("ready rollout cannot complete, got %v", err)
	}

	var terr *TransitionError
	_, err := ready.Pause(now)
	if !errors.As(err, &terr) || terr.Action != "pause" || terr.From != StatusReady {
		t.Fatalf("expected descriptive TransitionError, got %#v", err)
	}
}

func TestIsIncludedDeterministic(t *testing.T) {
	s := mustSchedule(t, 50)
	for i := 0; i < 200; i++ {
		id := fmt.Sprintf("session-%d", i)
		if s.IsIncluded(id) != s.IsIncluded(id) {
			t.Fatalf("inclusion flipped for %s", id)
		}
	}
}

func TestIsIncludedMonotonic(t *testing.T) {
	s := mustSchedule(t, 1, 5, 25, 50, 100)
	previous := map[string]bool{}
	for stage := range s.Stages {
		s.CurrentStage = stage
		s.Status = StatusActive
		for i := 0; i < 500; i++ {
			id := fmt.Sprintf("user-%d", i)
			included := s.IsIncluded(id)
			if previous[id] && !included {
				t.Fatalf("%s dropped out when exposure rose to %d%%", id, s.CurrentPercentage())
			}
			previous[id] = included
		}
	}
	for id, included := range previous {
		if !included {
			t.Fatalf("%s must be included at 100%%", id)
		}
	}
}

func TestIsIncludedBounds(t *testing.T) {
	zero := mustSchedule(t, 0)
	if zero.IsIncluded("anyone") {
		t.Fatal("0% exposure includes nobody")
	}

	s := mustSchedule(t, 30)
	included := 0
	for i := 0; i < 5000; i++ {
		if s.IsIncluded(fmt.Sprintf("visitor-%d", i)) {
			included++
		}
	}
	share := float64(included) / 5000
	if share < 0.25 || share > 0.35 {
		t.Fatalf("expected roughly 30%% inclusion, got %.3f", share)
	}
}

func TestBucketRange(t *testing.T) {
	for i := 0; i < 1000; i++ {
		b := Bucket("exp", fmt.Sprintf("id-%d", i))
		if b < 0 || b >= 100 {
			t.Fatalf("bucket %v outside [0,100)", b)
		}
	}
}

func TestDescribe(t *testing.T) {
	s := mustSchedule(t, 10, 50, 100)
	s, _ = s.Advance(now)
	v := s.Describe()
	if v.Stage != 2 || v.StageCount != 3 || v.Percentage != 50 || v.NextPercentage != 100 || !v.CanAdvance {
		t.Fatalf("unexpected view %+v", v)
	}

	paused, _ := s.Pause(now)
	if paused.Describe().CanAdvance {
		t.Fatal("paused rollout cannot advance")
	}
}
