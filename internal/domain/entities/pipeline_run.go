package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// PipelineRunStatus tracks a run through the orchestrator
type PipelineRunStatus string

const (
	PipelineRunStatusRunning   PipelineRunStatus = "running"
	PipelineRunStatusCompleted PipelineRunStatus = "completed"
	PipelineRunStatusDegraded  PipelineRunStatus = "degraded"
	PipelineRunStatusFailed    PipelineRunStatus = "failed"
	PipelineRunStatusSkipped   PipelineRunStatus = "skipped"
)

// RecipientOutcome records the fan-out result for a single recipient
type RecipientOutcome struct {
	RecipientID string `json:"recipient_id"`
	DisplayName string `json:"display_name,omitempty"`
	IsOrganizer bool   `json:"is_organizer"`
	Uploaded    bool   `json:"uploaded"`
	Error       string `json:"error,omitempty"`
}

// PipelineRun is the journal record for one orchestration run
type PipelineRun struct {
	ID               uuid.UUID                            `json:"id" gorm:"type:uuid;primary_key"`
	TranscriptID     string                               `json:"transcript_id" gorm:"type:varchar(255);index"`
	MeetingID        string                               `json:"meeting_id" gorm:"type:varchar(255);index"`
	UserID           string                               `json:"user_id" gorm:"type:varchar(255)"`
	Subject          string                               `json:"subject,omitempty" gorm:"type:text"`
	Status           PipelineRunStatus                    `json:"status" gorm:"type:varchar(20);not null;index"`
	SummaryGenerated bool                                 `json:"summary_generated" gorm:"default:false"`
	Recipients       datatypes.JSONType[[]RecipientOutcome] `json:"recipients,omitempty" gorm:"type:jsonb"`
	LastError        string                               `json:"last_error,omitempty" gorm:"type:text"`
	StartedAt        time.Time                            `json:"started_at" gorm:"autoCreateTime"`
	FinishedAt       *time.Time                           `json:"finished_at,omitempty"`
}

// TableName specifies the table name for GORM
func (PipelineRun) TableName() string {
	return "pipeline_runs"
}

// NewPipelineRun creates a run record for the given locator
func NewPipelineRun(locator ResourceLocator) *PipelineRun {
	return &PipelineRun{
		ID:           uuid.New(),
		TranscriptID: locator.TranscriptID,
		MeetingID:    locator.MeetingID,
		UserID:       locator.UserID,
		Status:       PipelineRunStatusRunning,
		StartedAt:    time.Now().UTC(),
	}
}

// Finish marks the run terminal with the given status
func (r *PipelineRun) Finish(status PipelineRunStatus) {
	now := time.Now().UTC()
	r.Status = status
	r.FinishedAt = &now
}
