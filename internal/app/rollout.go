package app

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"bankcompare/internal/rollout"
	"bankcompare/internal/storage"
)

// Rollout actions accepted by RolloutAction.
const (
	RolloutCreate   = "create"
	RolloutStart    = "start"
	RolloutAdvance  = "advance"
	RolloutPause    = "pause"
	RolloutResume   = "resume"
	RolloutAbort    = "abort"
	RolloutComplete = "complete"
)

// RolloutStatus prints one rollout, or all of them when no experiment is given.
func (a *App) RolloutStatus(ctx context.Context, opts RolloutOptions) error {
	store, closeStore, err := a.requireStore(ctx, "read rollouts")
	if err != nil {
		return err
	}
	defer closeStore()

	var records []storage.RolloutRecord
	if opts.ExperimentID == "" {
		records, err = store.ListRollouts(ctx)
	} else {
		var rec storage.RolloutRecord
		rec, err = store.GetRollout(ctx, opts.ExperimentID)
		records = []storage.RolloutRecord{rec}
	}
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("rollout %s not found", opts.ExperimentID)
	}
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(a.Out, "no rollouts found")
		return nil
	}

	views := make([]rollout.View, 0, len(records))
	for _, rec := range records {
		schedule, err := rec.Schedule()
		if err != nil {
			a.Logger.Warn().Err(err).Str("experiment_id", rec.ExperimentID).Msg("skipping invalid rollout record")
			continue
		}
		views = append(views, schedule.Describe())
	}
	return a.writeRollouts(views)
}

// RolloutAction applies one operator action to a persisted rollout.
func (a *App) RolloutAction(ctx context.Context, action string, opts RolloutOptions) error {
	store, closeStore, err := a.requireStore(ctx, action+" rollout")
	if err != nil {
		return err
	}
	defer closeStore()

	view, err := a.applyRollout(ctx, store, action, opts, time.Now().UTC())
	if err != nil {
		return err
	}
	a.Logger.Info().
		Str("experiment_id", view.ExperimentID).
		Str("action", action).
		Str("status", string(view.Status)).
		Int("percentage", view.Percentage).
		Msg("rollout updated")
	return a.writeRollouts([]rollout.View{view})
}

// applyRollout loads the schedule, creating it from the given or default
// stages when create, start or advance target an unknown experiment. The read,
// transition and write run under the store's row lock.
func (a *App) applyRollout(ctx context.Context, store storage.RolloutStore, action string, opts RolloutOptions, now time.Time) (rollout.View, error) {
	if opts.ExperimentID == "" {
		return rollout.View{}, errors.New("experiment id is required")
	}

	var schedule rollout.Schedule
	_, err := store.UpdateRollout(ctx, opts.ExperimentID, func(rec storage.RolloutRecord, found bool) (storage.RolloutRecord, error) {
		current, err := a.loadOrCreateSchedule(rec, found, action, opts, now)
		if err != nil {
			return storage.RolloutRecord{}, err
		}
		schedule, err = transition(current, action, opts, now)
		if err != nil {
			return storage.RolloutRecord{}, err
		}
		return storage.RolloutRecordFrom(schedule), nil
	})
	if errors.Is(err, storage.ErrConflict) {
		return rollout.View{}, fmt.Errorf("rollout %s was changed concurrently; retry: %w", opts.ExperimentID, err)
	}
	if err != nil {
		return rollout.View{}, err
	}
	return schedule.Describe(), nil
}

func (a *App) loadOrCreateSchedule(rec storage.RolloutRecord, found bool, action string, opts RolloutOptions, now time.Time) (rollout.Schedule, error) {
	if found {
		if action == RolloutCreate {
			return rollout.Schedule{}, fmt.Errorf("rollout %s already exists", opts.ExperimentID)
		}
		return rec.Schedule()
	}

	if action != RolloutCreate && action != RolloutStart && action != RolloutAdvance {
		return rollout.Schedule{}, fmt.Errorf("rollout %s not found", opts.ExperimentID)
	}
	stages := opts.Stages
	if len(stages) == 0 {
		stages = a.Config.Rollout.DefaultStages
	}
	schedule, err := rollout.NewSchedule(opts.ExperimentID, stages)
	if err != nil {
		return rollout.Schedule{}, err
	}
	schedule.UpdatedAt = now
	return schedule, nil
}

func transition(schedule rollout.Schedule, action string, opts RolloutOptions, now time.Time) (rollout.Schedule, error) {
	switch action {
	case RolloutCreate:
		return schedule, nil
	case RolloutStart:
		return schedule.Start(now)
	case RolloutAdvance:
		return schedule.Advance(now)
	case RolloutPause:
		return schedule.Pause(now)
	case RolloutResume:
		return schedule.Resume(now)
	case RolloutAbort:
		return schedule.Abort(now)
	case RolloutComplete:
		return schedule.Complete(now, opts.Winner)
	default:
		return rollout.Schedule{}, fmt.Errorf("unknown rollout action %q", action)
	}
}

// RolloutCheck reports whether an identifier is exposed to the experiment.
func (a *App) RolloutCheck(ctx context.Context, opts RolloutOptions) error {
	store, closeStore, err := a.requireStore(ctx, "check rollout")
	if err != nil {
		return err
	}
	defer closeStore()

	rec, err := store.GetRollout(ctx, opts.ExperimentID)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("rollout %s not found", opts.ExperimentID)
	}
	if err != nil {
		return err
	}
	schedule, err := rec.Schedule()
	if err != nil {
		return err
	}
	return a.writeInclusion(schedule, opts.Identifier)
}

func (a *App) writeInclusion(schedule rollout.Schedule, identifier string) error {
	if identifier == "" {
		return errors.New("identifier is required")
	}
	bucket := rollout.Bucket(schedule.ExperimentID, identifier)
	included := schedule.IsIncluded(identifier)
	fmt.Fprintf(a.Out, "%s in %s: included=%t (bucket %.2f, exposure %d%%, %s)\n",
		identifier, schedule.ExperimentID, included, bucket, schedule.CurrentPercentage(), schedule.Status)
	return nil
}

func (a *App) writeRollouts(views []rollout.View) error {
	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Experiment\tStatus\tStage\tExposure\tNext\tWinner")
	for _, v := range views {
		next := "-"
		if v.CanAdvance {
			next = fmt.Sprintf("%d%%", v.NextPercentage)
		}
		winner := v.Winner
		if winner == "" {
			winner = "-"
		}
		fmt.Fprintf(writer, "%s\t%s\t%d/%d\t%d%%\t%s\t%s\n",
			v.ExperimentID, v.Status, v.Stage, v.StageCount, v.Percentage, next, winner)
	}
	return writer.Flush()
}
