package rollout

import (
	"errors"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Status of a staged rollout.
type Status string

const (
	StatusReady     Status = "ready"
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusAborted   Status = "aborted"
)

// Terminal reports whether no further transitions are accepted.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusAborted
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusReady, StatusActive, StatusPaused, StatusCompleted, StatusAborted:
		return true
	}
	return false
}

var (
	// ErrInvalidTransition is matched by every rejected stage change.
	ErrInvalidTransition = errors.New("rollout: invalid transition")
	// ErrInvalidSchedule reports a malformed stage list.
	ErrInvalidSchedule = errors.New("rollout: invalid schedule")
)

// TransitionError describes a rejected action.
type TransitionError struct {
	ExperimentID string
	Action       string
	From         Status
	Stage        int
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("rollout %s: cannot %s from %s at stage %d", e.ExperimentID, e.Action, e.From, e.Stage+1)
}

// Is reports ErrInvalidTransition equivalence.
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// Schedule is a progressive exposure plan for one experiment.
type Schedule struct {
	ExperimentID string    `json:"experiment_id"`
	Stages       []int     `json:"stages"`
	CurrentStage int       `json:"current_stage"`
	Status       Status    `json:"status"`
	Winner       string    `json:"winner,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewSchedule builds a ready schedule at its first stage.
func NewSchedule(experimentID string, stages []int) (Schedule, error) {
	s := Schedule{
		ExperimentID: experimentID,
		Stages:       append([]int(nil), stages...),
		Status:       StatusReady,
	}
	if err := s.Validate(); err != nil {
		return Schedule{}, err
	}
	return s, nil
}

// Validate checks the stage list, index and status.
func (s Schedule) Validate() error {
	if s.ExperimentID == "" {
		return fmt.Errorf("%w: experiment id is required", ErrInvalidSchedule)
	}
	if len(s.Stages) == 0 {
		return fmt.Errorf("%w: at least one stage is required", ErrInvalidSchedule)
	}
	for i, pct := range s.Stages {
		if pct < 0 || pct > 100 {
			return fmt.Errorf("%w: stage %d percentage %d outside 0-100", ErrInvalidSchedule, i+1, pct)
		}
		if i > 0 && pct < s.Stages[i-1] {
			return fmt.Errorf("%w: stage %d decreases from %d to %d", ErrInvalidSchedule, i+1, s.Stages[i-1], pct)
		}
	}
	if s.CurrentStage < 0 || s.CurrentStage >= len(s.Stages) {
		return fmt.Errorf("%w: current stage %d out of range", ErrInvalidSchedule, s.CurrentStage)
	}
	if !s.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidSchedule, s.Status)
	}
	return nil
}

// CurrentPercentage is the exposure of the current stage. Pausing freezes
// exposure; aborting drops it to zero.
func (s Schedule) CurrentPercentage() int {
	if s.Status == StatusAborted {
		return 0
	}
	if s.CurrentStage < 0 || s.CurrentStage >= len(s.Stages) {
		return 0
	}
	return s.Stages[s.CurrentStage]
}

// IsLastStage reports whether no further advance is possible.
func (s Schedule) IsLastStage() bool {
	return s.CurrentStage >= len(s.Stages)-1
}

// NextPercentage returns the exposure of the following stage, if any.
func (s Schedule) NextPercentage() (int, bool) {
	if s.IsLastStage() {
		return 0, false
	}
	return s.Stages[s.CurrentStage+1], true
}

// IsIncluded reports whether identifier falls inside the current exposure.
// The decision only depends on the experiment, the identifier and the
// percentage, so raising the percentage never excludes anyone.
func (s Schedule) IsIncluded(identifier string) bool {
	return Bucket(s.ExperimentID, identifier) < float64(s.CurrentPercentage())
}

// Bucket maps an identifier to a stable position in [0, 100) with a 0.01 step.
func Bucket(experimentID, identifier string) float64 {
	h := xxhash.Sum64String(experimentID + ":" + identifier)
	return float64(h%10000) / 100
}

func (s Schedule) reject(action string) error {
	return &TransitionError{ExperimentID: s.ExperimentID, Action: action, From: s.Status, Stage: s.CurrentStage}
}

func (s Schedule) touched(now time.Time) Schedule {
	s.Stages = append([]int(nil), s.Stages...)
	s.UpdatedAt = now
	return s
}

// Advance moves to the next stage and activates the rollout.
func (s Schedule) Advance(now time.Time) (Schedule, error) {
	if s.Status != StatusReady && s.Status != StatusActive {
		return s, s.reject("advance")
	}
	if s.IsLastStage() {
		return s, s.reject("advance")
	}
	next := s.touched(now)
	next.CurrentStage++
	next.Status = StatusActive
	return next, nil
}

// Start activates a ready rollout at its current stage.
func (s Schedule) Start(now time.Time) (Schedule, error) {
	if s.Status != StatusReady {
		return s, s.reject("start")
	}
	next := s.touched(now)
	next.Status = StatusActive
	return next, nil
}

// Pause freezes an active rollout at its current exposure.
func (s Schedule) Pause(now time.Time) (Schedule, error) {
	if s.Status != StatusActive {
		return s, s.reject("pause")
	}
	next := s.touched(now)
	next.Status = StatusPaused
	return next, nil
}

// Resume reactivates a paused rollout.
func (s Schedule) Resume(now time.Time) (Schedule, error) {
	if s.Status != StatusPaused {
		return s, s.reject("resume")
	}
	next := s.touched(now)
	next.Status = StatusActive
	return next, nil
}

// Abort terminates the rollout; exposure drops to zero.
func (s Schedule) Abort(now time.Time) (Schedule, error) {
	if s.Status.Terminal() {
		return s, s.reject("abort")
	}
	next := s.touched(now)
	next.Status = StatusAborted
	return next, nil
}

// Complete is the operator action that closes an active rollout on its last stage.
func (s Schedule) Complete(now time.Time, winner string) (Schedule, error) {
	if s.Status != StatusActive || !s.IsLastStage() {
		return s, s.reject("complete")
	}
	next := s.touched(now)
	next.Status = StatusCompleted
	if winner != "" {
		next.Winner = winner
	}
	return next, nil
}

// View is the read-only state shown on the dashboard rollout panel.
type View struct {
	ExperimentID   string `json:"experiment_id"`
	Status         Status `json:"status"`
	Stage          int    `json:"stage"`
	StageCount     int    `json:"stage_count"`
	Percentage     int    `json:"percentage"`
	NextPercentage int    `json:"next_percentage,omitempty"`
	CanAdvance     bool   `json:"can_advance"`
	Winner         string `json:"winner,omitempty"`
}

// Describe renders the schedule as a dashboard view. Stage is 1-based.
func (s Schedule) Describe() View {
	v := View{
		ExperimentID: s.ExperimentID,
		Status:       s.Status,
		Stage:        s.CurrentStage + 1,
		StageCount:   len(s.Stages),
		Percentage:   s.CurrentPercentage(),
		Winner:       s.Winner,
	}
	if next, ok := s.NextPercentage(); ok {
		v.NextPercentage = next
		v.CanAdvance = s.Status == StatusReady || s.Status == StatusActive
	}
	return v
}
