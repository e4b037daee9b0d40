package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/meetingscribe/transcript-relay/errors"
	"github.com/meetingscribe/transcript-relay/internal/domain/entities"
)

// RunReader reads pipeline run journal records
type RunReader interface {
	GetRunByID(ctx context.Context, id uuid.UUID) (*entities.PipelineRun, error)
	GetRunsByTranscriptID(ctx context.Context, transcriptID string) ([]entities.PipelineRun, error)
}

// RunHandler exposes read-only access to the run journal for
// operational debugging (did this transcript's delivery land, and
// for which recipients).
type RunHandler struct {
	runs   RunReader
	logger *zap.Logger
}

// NewRunHandler creates the run journal handler
func NewRunHandler(runs RunReader, logger *zap.Logger) *RunHandler {
	return &RunHandler{runs: runs, logger: logger}
}

// GetByID returns one run record
func (h *RunHandler) GetByID(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return handleError(c, h.logger, errors.ErrInvalidArgument("run id must be a uuid"))
	}

	run, err := h.runs.GetRunByID(c.Request().Context(), id)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	if run == nil {
		return handleError(c, h.logger, errors.ErrNotFound("pipeline run"))
	}
	return handleSuccess(c, h.logger, http.StatusOK, run)
}

// ListByTranscript returns every run recorded for a transcript id,
// newest first
func (h *RunHandler) ListByTranscript(c echo.Context) error {
	transcriptID := c.QueryParam("transcript_id")
	if transcriptID == "" {
		return handleError(c, h.logger, errors.ErrInvalidArgument("transcript_id is required"))
	}

	runs, err := h.runs.GetRunsByTranscriptID(c.Request().Context(), transcriptID)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return handleSuccess(c, h.logger, http.StatusOK, runs)
}
