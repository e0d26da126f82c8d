package storage

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Snapshot is one persisted dashboard evaluation.
type Snapshot struct {
	ID            uuid.UUID
	TakenAt       time.Time
	SummaryDate   time.Time
	OverallStatus string
	CompliancePct decimal.Decimal
	PassCount     int
	WarnCount     int
	FailCount     int
	Results       json.RawMessage
	Rollouts      json.RawMessage
	Status        string
	Error         *string
	CreatedAt     time.Time
}

// RolloutRecord is the stored state of an experiment's staged exposure.
type RolloutRecord struct {
	ExperimentID string
	Stages       []int32
	CurrentStage int
	Status       string
	Winner       *string
	UpdatedAt    time.Time
}

// AlertRecord captures an emitted SLO alert for cooldown and auditing.
type AlertRecord struct {
	ID             int64
	SnapshotID     uuid.UUID
	OverallStatus  string
	CompliancePct  decimal.Decimal
	FailingMetrics []string
	Channels       []string
	CreatedAt      time.Time
}
