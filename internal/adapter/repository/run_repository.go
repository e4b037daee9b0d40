package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/meetingscribe/transcript-relay/internal/domain/entities"
)

// RunRepository persists pipeline run journal records
type RunRepository struct {
	db *gorm.DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

// CreateRun inserts a new run record
func (r *RunRepository) CreateRun(ctx context.Context, run *entities.PipelineRun) error {
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("failed to create pipeline run: %w", err)
	}
	return nil
}

// UpdateRun saves the run's terminal state and recipient outcomes
func (r *RunRepository) UpdateRun(ctx context.Context, run *entities.PipelineRun) error {
	if err := r.db.WithContext(ctx).Save(run).Error; err != nil {
		return fmt.Errorf("failed to update pipeline run: %w", err)
	}
	return nil
}

// GetRunByID fetches one run record
func (r *RunRepository) GetRunByID(ctx context.Context, id uuid.UUID) (*entities.PipelineRun, error) {
	var run entities.PipelineRun
	err := r.db.WithContext(ctx).First(&run, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pipeline run: %w", err)
	}
	return &run, nil
}

// GetRunsByTranscriptID lists runs for a transcript, newest first
func (r *RunRepository) GetRunsByTranscriptID(ctx context.Context, transcriptID string) ([]entities.PipelineRun, error) {
	var runs []entities.PipelineRun
	err := r.db.WithContext(ctx).
		Where("transcript_id = ?", transcriptID).
		Order("started_at DESC").
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pipeline runs: %w", err)
	}
	return runs, nil
}

// HasCompletedRun reports whether a transcript already has a successful run
func (r *RunRepository) HasCompletedRun(ctx context.Context, transcriptID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entities.PipelineRun{}).
		Where("transcript_id = ? AND status IN ?", transcriptID,
			[]entities.PipelineRunStatus{entities.PipelineRunStatusCompleted, entities.PipelineRunStatusDegraded}).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to count pipeline runs: %w", err)
	}
	return count > 0, nil
}
