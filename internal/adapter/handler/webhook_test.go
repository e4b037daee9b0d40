package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/meetingscribe/transcript-relay/internal/domain/entities"
	"github.com/meetingscribe/transcript-relay/pkg/config"
	pkgvalidator "github.com/meetingscribe/transcript-relay/pkg/validator"
)

type fakePublisher struct {
	mu        sync.Mutex
	published [][]byte
	err       error
}

func (f *fakePublisher) Publish(ctx context.Context, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, data)
	return nil
}

func receiverConfig() *config.Config {
	return &config.Config{
		Receiver: config.ReceiverConfig{
			AllowedTenants: []string{"tenant-ok"},
		},
		Subscription: config.SubscriptionConfig{
			ClientState: "expected-state",
		},
	}
}

func newWebhookContext(t *testing.T, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = pkgvalidator.New()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func batchBody(t *testing.T, notifications ...entities.Notification) string {
	t.Helper()
	data, err := json.Marshal(entities.NotificationBatch{Value: notifications})
	if err != nil {
		t.Fatalf("marshal batch: %v", err)
	}
	return string(data)
}

func TestHandle_ValidationHandshake(t *testing.T) {
	h := NewNotificationHandler(&fakePublisher{}, nil, receiverConfig(), nil)
	c, rec := newWebhookContext(t, http.MethodPost, "/v1/notifications?validationToken=abc%20123", "")

	if err := h.Handle(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != "abc 123" {
		t.Fatalf("body = %q, want decoded token echoed back", got)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); !strings.HasPrefix(ct, echo.MIMETextPlain) {
		t.Fatalf("content type = %q, want text/plain", ct)
	}
}

func TestHandle_AcceptsBatch(t *testing.T) {
	publisher := &fakePublisher{}
	h := NewNotificationHandler(publisher, nil, receiverConfig(), nil)

	body := batchBody(t,
		entities.Notification{TenantID: "tenant-ok", Resource: "users('u')/onlineMeetings('m')/transcripts('t1')"},
		entities.Notification{TenantID: "tenant-ok", Resource: "users('u')/onlineMeetings('m')/transcripts('t2')"},
	)
	c, rec := newWebhookContext(t, http.MethodPost, "/v1/notifications", body)

	if err := h.Handle(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if len(publisher.published) != 2 {
		t.Fatalf("published %d messages, want one per batch entry", len(publisher.published))
	}

	var first entities.Notification
	if err := json.Unmarshal(publisher.published[0], &first); err != nil {
		t.Fatalf("published payload not a notification: %v", err)
	}
	if first.Resource != "users('u')/onlineMeetings('m')/transcripts('t1')" {
		t.Fatalf("unexpected first resource: %q", first.Resource)
	}
}

func TestHandle_UnauthorizedTenantRejectsWholeBatch(t *testing.T) {
	publisher := &fakePublisher{}
	h := NewNotificationHandler(publisher, nil, receiverConfig(), nil)

	body := batchBody(t,
		entities.Notification{TenantID: "tenant-ok", Resource: "users('u')/onlineMeetings('m')/transcripts('t1')"},
		entities.Notification{TenantID: "tenant-evil", Resource: "users('u')/onlineMeetings('m')/transcripts('t2')"},
	)
	c, rec := newWebhookContext(t, http.MethodPost, "/v1/notifications", body)

	if err := h.Handle(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if len(publisher.published) != 0 {
		t.Fatalf("published %d messages, want none from a rejected batch", len(publisher.published))
	}
}

func TestHandle_MissingTenantRejected(t *testing.T) {
	h := NewNotificationHandler(&fakePublisher{}, nil, receiverConfig(), nil)

	body := batchBody(t, entities.Notification{Resource: "users('u')/onlineMeetings('m')/transcripts('t')"})
	c, rec := newWebhookContext(t, http.MethodPost, "/v1/notifications", body)

	if err := h.Handle(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	// TenantID is required; its absence is a payload problem, not an
	// authorization decision.
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandle_MalformedBody(t *testing.T) {
	h := NewNotificationHandler(&fakePublisher{}, nil, receiverConfig(), nil)
	c, rec := newWebhookContext(t, http.MethodPost, "/v1/notifications", "{not json")

	if err := h.Handle(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandle_EmptyBatchRejected(t *testing.T) {
	h := NewNotificationHandler(&fakePublisher{}, nil, receiverConfig(), nil)
	c, rec := newWebhookContext(t, http.MethodPost, "/v1/notifications", `{"value":[]}`)

	if err := h.Handle(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandle_PublishFailure(t *testing.T) {
	publisher := &fakePublisher{err: errors.New("stream unavailable")}
	h := NewNotificationHandler(publisher, nil, receiverConfig(), nil)

	body := batchBody(t, entities.Notification{TenantID: "tenant-ok", Resource: "users('u')/onlineMeetings('m')/transcripts('t')"})
	c, rec := newWebhookContext(t, http.MethodPost, "/v1/notifications", body)

	if err := h.Handle(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestHandle_ClientStateVerification(t *testing.T) {
	cfg := receiverConfig()
	cfg.Receiver.VerifyClientState = true
	h := NewNotificationHandler(&fakePublisher{}, nil, cfg, nil)

	body := batchBody(t, entities.Notification{
		TenantID:    "tenant-ok",
		Resource:    "users('u')/onlineMeetings('m')/transcripts('t')",
		ClientState: "wrong-state",
	})
	c, rec := newWebhookContext(t, http.MethodPost, "/v1/notifications", body)

	if err := h.Handle(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
