package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("storage: not found")
	// ErrConflict indicates a concurrent writer created the row first.
	ErrConflict = errors.New("storage: concurrent update")
)

const (
	insertSnapshotSQL = `INSERT INTO slo_snapshots (
        id,
        taken_at,
        summary_date,
        overall_status,
        compliance_pct,
        pass_count,
        warn_count,
        fail_count,
        results,
        rollouts,
        status,
        error
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
    );`

	snapshotColumns = `id::text,
        taken_at,
        summary_date,
        overall_status,
        compliance_pct::text,
        pass_count,
        warn_count,
        fail_count,
        results,
        rollouts,
        status,
        error,
        created_at`

	listSnapshotsBetweenSQL = `SELECT ` + snapshotColumns + `
    FROM slo_snapshots
    WHERE taken_at >= $1
      AND taken_at < $2
    ORDER BY taken_at;`

	listRecentSnapshotsSQL = `SELECT ` + snapshotColumns + `
    FROM slo_snapshots
    ORDER BY taken_at DESC
    LIMIT $1;`

	countSnapshotsSQL = `SELECT COUNT(*) FROM slo_snapshots;`

	upsertRolloutSQL = `INSERT INTO rollouts (
        experiment_id,
        stages,
        current_stage,
        status,
        winner,
        updated_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6
    )
    ON CONFLICT (experiment_id) DO UPDATE
    SET
        stages        = EXCLUDED.stages,
        current_stage = EXCLUDED.current_stage,
        status        = EXCLUDED.status,
        winner        = EXCLUDED.winner,
        updated_at    = EXCLUDED.updated_at;`

	insertRolloutSQL = `INSERT INTO rollouts (
        experiment_id,
        stages,
        current_stage,
        status,
        winner,
        updated_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6
    )
    ON CONFLICT (experiment_id) DO NOTHING;`

	rolloutColumns = `experiment_id, stages, current_stage, status, winner, updated_at`

	getRolloutSQL = `SELECT ` + rolloutColumns + ` FROM rollouts WHERE experiment_id = $1;`

	lockRolloutSQL = `SELECT ` + rolloutColumns + ` FROM rollouts WHERE experiment_id = $1 FOR UPDATE;`

	listRolloutsSQL = `SELECT ` + rolloutColumns + ` FROM rollouts ORDER BY experiment_id;`

	insertAlertSQL = `INSERT INTO slo_alerts (
        snapshot_id,
        overall_status,
        compliance_pct,
        failing_metrics,
        channels
    ) VALUES (
        $1,$2,$3,$4,$5
    )
    RETURNING id, snapshot_id::text, overall_status, compliance_pct::text, failing_metrics, channels, created_at;`

	listRecentAlertsSQL = `SELECT
        id,
        snapshot_id::text,
        overall_status,
        compliance_pct::text,
        failing_metrics,
        channels,
        created_at
    FROM slo_alerts
    ORDER BY created_at DESC
    LIMIT $1;`

	deleteAlertsBeforeSQL = `DELETE FROM slo_alerts WHERE created_at < $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// SnapshotStore defines operations for dashboard snapshot persistence.
type SnapshotStore interface {
	InsertSnapshot(ctx context.Context, snap Snapshot) error
	ListSnapshotsBetween(ctx context.Context, from, to time.Time) ([]Snapshot, error)
	ListRecentSnapshots(ctx context.Context, limit int) ([]Snapshot, error)
	CountSnapshots(ctx context.Context) (int64, error)
}

// RolloutStore defines operations for rollout schedule persistence.
type RolloutStore interface {
	GetRollout(ctx context.Context, experimentID string) (RolloutRecord, error)
	ListRollouts(ctx context.Context) ([]RolloutRecord, error)
	SaveRollout(ctx context.Context, rec RolloutRecord) error
	UpdateRollout(ctx context.Context, experimentID string, apply RolloutUpdate) (RolloutRecord, error)
}

// RolloutUpdate derives the next record from the stored one. found is false
// when the experiment has no row yet. Returning an error aborts the update.
type RolloutUpdate func(current RolloutRecord, found bool) (RolloutRecord, error)

// AlertStore defines operations for alert auditing.
type AlertStore interface {
	InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error)
	ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error)
	DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to snapshots, rollouts and alerts.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// session locks die with the connection if this fails
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// InsertSnapshot persists a dashboard snapshot.
func (s *Store) InsertSnapshot(ctx context.Context, snap Snapshot) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	var summaryDate interface{}
	if !snap.SummaryDate.IsZero() {
		summaryDate = snap.SummaryDate
	}

	var errMsg interface{}
	if snap.Error != nil {
		errMsg = *snap.Error
	}

	_, execErr := pool.Exec(ctx, insertSnapshotSQL,
		snap.ID.String(),
		snap.TakenAt,
		summaryDate,
		snap.OverallStatus,
		snap.CompliancePct.String(),
		snap.PassCount,
		snap.WarnCount,
		snap.FailCount,
		jsonOrEmpty(snap.Results),
		jsonOrEmpty(snap.Rollouts),
		snap.Status,
		errMsg,
	)
	if execErr != nil {
		return fmt.Errorf("insert snapshot: %w", execErr)
	}
	return nil
}

// ListSnapshotsBetween lists snapshots taken within a time window.
func (s *Store) ListSnapshotsBetween(ctx context.Context, from, to time.Time) ([]Snapshot, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listSnapshotsBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list snapshots between: %w", queryErr)
	}
	defer rows.Close()

	return collectSnapshots(rows, 0)
}

// ListRecentSnapshots lists the most recent snapshots, newest first.
func (s *Store) ListRecentSnapshots(ctx context.Context, limit int) ([]Snapshot, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentSnapshotsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent snapshots: %w", queryErr)
	}
	defer rows.Close()

	return collectSnapshots(rows, limit)
}

// CountSnapshots counts stored snapshots.
func (s *Store) CountSnapshots(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countSnapshotsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count snapshots: %w", scanErr)
	}
	return count, nil
}

// GetRollout loads one experiment's schedule.
func (s *Store) GetRollout(ctx context.Context, experimentID string) (RolloutRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return RolloutRecord{}, err
	}

	rec, scanErr := scanRollout(pool.QueryRow(ctx, getRolloutSQL, experimentID))
	if errors.Is(scanErr, pgx.ErrNoRows) {
		return RolloutRecord{}, fmt.Errorf("rollout %q: %w", experimentID, ErrNotFound)
	}
	if scanErr != nil {
		return RolloutRecord{}, fmt.Errorf("get rollout: %w", scanErr)
	}
	return rec, nil
}

// ListRollouts lists every stored schedule.
func (s *Store) ListRollouts(ctx context.Context) ([]RolloutRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRolloutsSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list rollouts: %w", queryErr)
	}
	defer rows.Close()

	records := make([]RolloutRecord, 0)
	for rows.Next() {
		rec, scanErr := scanRollout(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

// SaveRollout inserts or replaces a schedule.
func (s *Store) SaveRollout(ctx context.Context, rec RolloutRecord) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	if _, execErr := pool.Exec(ctx, upsertRolloutSQL, rolloutArgs(rec)...); execErr != nil {
		return fmt.Errorf("save rollout: %w", execErr)
	}
	return nil
}

// UpdateRollout runs apply against the stored schedule while holding its row
// lock, then writes the result in the same transaction. When two callers race
// to create the same experiment the loser gets ErrConflict.
func (s *Store) UpdateRollout(ctx context.Context, experimentID string, apply RolloutUpdate) (RolloutRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return RolloutRecord{}, err
	}

	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return RolloutRecord{}, fmt.Errorf("begin rollout update: %w", err)
	}
	// no-op once committed
	defer func() { _ = tx.Rollback(ctx) }()

	found := true
	current, scanErr := scanRollout(tx.QueryRow(ctx, lockRolloutSQL, experimentID))
	switch {
	case errors.Is(scanErr, pgx.ErrNoRows):
		found = false
		current = RolloutRecord{}
	case scanErr != nil:
		return RolloutRecord{}, fmt.Errorf("lock rollout: %w", scanErr)
	}

	next, err := apply(current, found)
	if err != nil {
		return RolloutRecord{}, err
	}
	if next.ExperimentID != experimentID {
		return RolloutRecord{}, fmt.Errorf("rollout update changed experiment %q to %q", experimentID, next.ExperimentID)
	}

	query := upsertRolloutSQL
	if !found {
		query = insertRolloutSQL
	}
	tag, execErr := tx.Exec(ctx, query, rolloutArgs(next)...)
	if execErr != nil {
		return RolloutRecord{}, fmt.Errorf("save rollout: %w", execErr)
	}
	if tag.RowsAffected() == 0 {
		return RolloutRecord{}, fmt.Errorf("rollout %q: %w", experimentID, ErrConflict)
	}

	if err := tx.Commit(ctx); err != nil {
		return RolloutRecord{}, fmt.Errorf("commit rollout update: %w", err)
	}
	return next, nil
}

func rolloutArgs(rec RolloutRecord) []any {
	var winner interface{}
	if rec.Winner != nil {
		winner = *rec.Winner
	}
	return []any{
		rec.ExperimentID,
		rec.Stages,
		rec.CurrentStage,
		rec.Status,
		winner,
		rec.UpdatedAt,
	}
}

// InsertAlert persists an alert emission.
func (s *Store) InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return AlertRecord{}, err
	}

	row := pool.QueryRow(ctx, insertAlertSQL,
		alert.SnapshotID.String(),
		alert.OverallStatus,
		alert.CompliancePct.String(),
		nonNil(alert.FailingMetrics),
		nonNil(alert.Channels),
	)

	rec, scanErr := scanAlert(row)
	if scanErr != nil {
		return AlertRecord{}, fmt.Errorf("insert alert: %w", scanErr)
	}
	return rec, nil
}

// ListRecentAlerts lists most recent alerts.
func (s *Store) ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentAlertsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent alerts: %w", queryErr)
	}
	defer rows.Close()

	alerts := make([]AlertRecord, 0, limit)
	for rows.Next() {
		rec, scanErr := scanAlert(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		alerts = append(alerts, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

// DeleteAlertsBefore deletes historical alerts.
func (s *Store) DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteAlertsBeforeSQL, olderThan); execErr != nil {
		return fmt.Errorf("delete alerts before: %w", execErr)
	}
	return nil
}

func collectSnapshots(rows pgx.Rows, capacity int) ([]Snapshot, error) {
	snaps := make([]Snapshot, 0, capacity)
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return snaps, nil
}

func scanSnapshot(row pgx.Row) (Snapshot, error) {
	var (
		idStr         string
		takenAt       time.Time
		summaryDate   sql.NullTime
		overall       string
		complianceStr string
		pass          int
		warn          int
		fail          int
		results       json.RawMessage
		rollouts      json.RawMessage
		status        string
		errMsg        sql.NullString
		createdAt     time.Time
	)

	if err := row.Scan(
		&idStr,
		&takenAt,
		&summaryDate,
		&overall,
		&complianceStr,
		&pass,
		&warn,
		&fail,
		&results,
		&rollouts,
		&status,
		&errMsg,
		&createdAt,
	); err != nil {
		return Snapshot{}, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return Snapshot{}, fmt.Errorf("parse snapshot id: %w", err)
	}
	compliance, err := decimal.NewFromString(complianceStr)
	if err != nil {
		return Snapshot{}, fmt.Errorf("parse compliance pct: %w", err)
	}

	snap := Snapshot{
		ID:            id,
		TakenAt:       takenAt,
		OverallStatus: overall,
		CompliancePct: compliance,
		PassCount:     pass,
		WarnCount:     warn,
		FailCount:     fail,
		Results:       results,
		Rollouts:      rollouts,
		Status:        status,
		CreatedAt:     createdAt,
	}
	if summaryDate.Valid {
		snap.SummaryDate = summaryDate.Time
	}
	if errMsg.Valid {
		msg := errMsg.String
		snap.Error = &msg
	}
	return snap, nil
}

func scanRollout(row pgx.Row) (RolloutRecord, error) {
	var (
		rec    RolloutRecord
		winner sql.NullString
	)
	if err := row.Scan(
		&rec.ExperimentID,
		&rec.Stages,
		&rec.CurrentStage,
		&rec.Status,
		&winner,
		&rec.UpdatedAt,
	); err != nil {
		return RolloutRecord{}, err
	}
	if winner.Valid {
		w := winner.String
		rec.Winner = &w
	}
	return rec, nil
}

func scanAlert(row pgx.Row) (AlertRecord, error) {
	var (
		rec           AlertRecord
		snapshotStr   string
		complianceStr string
	)
	if err := row.Scan(
		&rec.ID,
		&snapshotStr,
		&rec.OverallStatus,
		&complianceStr,
		&rec.FailingMetrics,
		&rec.Channels,
		&rec.CreatedAt,
	); err != nil {
		return AlertRecord{}, err
	}

	var err error
	rec.SnapshotID, err = uuid.Parse(snapshotStr)
	if err != nil {
		return AlertRecord{}, fmt.Errorf("parse snapshot id: %w", err)
	}
	rec.CompliancePct, err = decimal.NewFromString(complianceStr)
	if err != nil {
		return AlertRecord{}, fmt.Errorf("parse compliance pct: %w", err)
	}
	return rec, nil
}

func jsonOrEmpty(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return []byte("[]")
	}
	return raw
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
