package model

import (
	"encoding/json"
	"time"

	api "github.com/apc-foundation/exam-pipeline/api/v1alpha1"
	"github.com/google/uuid"
)

// Run is one ledger entry of the ingestion pipeline.
type Run struct {
	ID         uuid.UUID      `gorm:"primaryKey;column:id;type:VARCHAR(255);"`
	RunType    string         `gorm:"not null;type:VARCHAR(32)"`
	Status     string         `gorm:"not null;type:VARCHAR(32);index:pipeline_runs_status_started_idx,priority:1"`
	Sources    []string       `gorm:"serializer:json;type:text"`
	Found      int            `gorm:"column:exams_found;not null;default:0"`
	New        int            `gorm:"column:exams_new;not null;default:0"`
	Updated    int            `gorm:"column:exams_updated;not null;default:0"`
	Closed     int            `gorm:"column:exams_closed;not null;default:0"`
	Errors     int            `gorm:"not null;default:0"`
	ErrorLog   *string        `gorm:"type:text"`
	StartedAt  time.Time      `gorm:"not null;index:pipeline_runs_status_started_idx,priority:2"`
	FinishedAt *time.Time
	DurationMs *int64
	Metadata   map[string]any `gorm:"serializer:json;type:text"`
}

func (Run) TableName() string {
	return "pipeline_runs"
}

type RunList []Run

func (r Run) Terminal() bool {
	return api.RunStatus(r.Status).Terminal()
}

func (r Run) String() string {
	val, _ := json.Marshal(r)
	return string(val)
}
