package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/meetingscribe/transcript-relay/internal/domain/entities"
)

type fakeRunReader struct {
	byID map[uuid.UUID]*entities.PipelineRun
}

func (f *fakeRunReader) GetRunByID(ctx context.Context, id uuid.UUID) (*entities.PipelineRun, error) {
	return f.byID[id], nil
}

func (f *fakeRunReader) GetRunsByTranscriptID(ctx context.Context, transcriptID string) ([]entities.PipelineRun, error) {
	var runs []entities.PipelineRun
	for _, run := range f.byID {
		if run.TranscriptID == transcriptID {
			runs = append(runs, *run)
		}
	}
	return runs, nil
}

func TestRunGetByID(t *testing.T) {
	id := uuid.New()
	reader := &fakeRunReader{byID: map[uuid.UUID]*entities.PipelineRun{
		id: {ID: id, TranscriptID: "t-1", Status: entities.PipelineRunStatusCompleted},
	}}
	h := NewRunHandler(reader, nil)

	c, rec := newWebhookContext(t, http.MethodGet, "/v1/runs/"+id.String(), "")
	c.SetParamNames("id")
	c.SetParamValues(id.String())

	if err := h.GetByID(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestRunGetByIDNotFound(t *testing.T) {
	h := NewRunHandler(&fakeRunReader{byID: map[uuid.UUID]*entities.PipelineRun{}}, nil)

	c, rec := newWebhookContext(t, http.MethodGet, "/v1/runs/"+uuid.NewString(), "")
	c.SetParamNames("id")
	c.SetParamValues(uuid.NewString())

	if err := h.GetByID(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestRunGetByIDBadUUID(t *testing.T) {
	h := NewRunHandler(&fakeRunReader{}, nil)

	c, rec := newWebhookContext(t, http.MethodGet, "/v1/runs/not-a-uuid", "")
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")

	if err := h.GetByID(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRunListRequiresTranscriptID(t *testing.T) {
	h := NewRunHandler(&fakeRunReader{}, nil)

	c, rec := newWebhookContext(t, http.MethodGet, "/v1/runs", "")
	if err := h.ListByTranscript(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
