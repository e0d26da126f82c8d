package storage

import "bankcompare/internal/rollout"

// RolloutRecordFrom flattens a schedule for persistence.
func RolloutRecordFrom(s rollout.Schedule) RolloutRecord {
	stages := make([]int32, len(s.Stages))
	for i, pct := range s.Stages {
		stages[i] = int32(pct)
	}
	rec := RolloutRecord{
		ExperimentID: s.ExperimentID,
		Stages:       stages,
		CurrentStage: s.CurrentStage,
		Status:       string(s.Status),
		UpdatedAt:    s.UpdatedAt,
	}
	if s.Winner != "" {
		winner := s.Winner
		rec.Winner = &winner
	}
	return rec
}

// Schedule rebuilds the domain schedule and validates it.
func (r RolloutRecord) Schedule() (rollout.Schedule, error) {
	stages := make([]int, len(r.Stages))
	for i, pct := range r.Stages {
		stages[i] = int(pct)
	}
	s := rollout.Schedule{
		ExperimentID: r.ExperimentID,
		Stages:       stages,
		CurrentStage: r.CurrentStage,
		Status:       rollout.Status(r.Status),
		UpdatedAt:    r.UpdatedAt,
	}
	if r.Winner != nil {
		s.Winner = *r.Winner
	}
	if err := s.Validate(); err != nil {
		return rollout.Schedule{}, err
	}
	return s, nil
}
