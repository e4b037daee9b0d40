package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/meetingscribe/transcript-relay/errors"
	"github.com/meetingscribe/transcript-relay/internal/domain/entities"
	"github.com/meetingscribe/transcript-relay/internal/infrastructure/obs"
	"github.com/meetingscribe/transcript-relay/internal/usecase/pipeline"
	"github.com/meetingscribe/transcript-relay/pkg/config"
)

// Publisher hands accepted notifications to the work queue
type Publisher interface {
	Publish(ctx context.Context, data []byte) error
}

// NotificationHandler terminates the change-notification webhook. It
// answers validation handshakes, authorizes tenants, and enqueues each
// accepted notification for asynchronous processing. When no publisher
// is configured it falls back to dispatching runs in-process.
type NotificationHandler struct {
	publisher Publisher
	pipeline  pipeline.Service
	cfg       *config.Config
	logger    *zap.Logger
}

// NewNotificationHandler creates the webhook handler. publisher may be
// nil to run notifications inline.
func NewNotificationHandler(publisher Publisher, pipelineSvc pipeline.Service, cfg *config.Config, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		publisher: publisher,
		pipeline:  pipelineSvc,
		cfg:       cfg,
		logger:    logger,
	}
}

// Handle processes one webhook delivery. The upstream platform sends
// two kinds of requests on the same URL: a validation handshake
// carrying a validationToken query parameter, and notification batches
// in the body. The handshake must be echoed back as plain text before
// anything else is inspected.
func (h *NotificationHandler) Handle(c echo.Context) error {
	if token := c.QueryParam("validationToken"); token != "" {
		obs.NotificationsReceived.WithLabelValues("validation").Inc()
		if h.logger != nil {
			h.logger.Info("answering subscription validation handshake",
				zap.String("request_id", getRequestID(c)),
			)
		}
		return c.String(http.StatusOK, token)
	}

	var batch entities.NotificationBatch
	if err := c.Bind(&batch); err != nil {
		obs.NotificationsReceived.WithLabelValues("invalid").Inc()
		return handleError(c, h.logger, errors.ErrInvalidPayload())
	}
	if err := c.Validate(&batch); err != nil {
		obs.NotificationsReceived.WithLabelValues("invalid").Inc()
		return handleError(c, h.logger, errors.ErrInvalidPayload())
	}

	// Authorization is all-or-nothing over the batch: a single entry
	// from an unknown tenant rejects the whole delivery.
	for _, notification := range batch.Value {
		if !h.tenantAllowed(notification.TenantID) {
			obs.NotificationsReceived.WithLabelValues("unauthorized").Inc()
			if h.logger != nil {
				h.logger.Warn("rejecting notification from unauthorized tenant",
					zap.String("tenant_id", notification.TenantID),
					zap.String("subscription_id", notification.SubscriptionID),
				)
			}
			return handleError(c, h.logger, errors.ErrUnauthorizedTenant(notification.TenantID))
		}
		if h.cfg.Receiver.VerifyClientState && notification.ClientState != h.cfg.Subscription.ClientState {
			obs.NotificationsReceived.WithLabelValues("unauthorized").Inc()
			return handleError(c, h.logger, errors.ErrInvalidClientState())
		}
	}

	for _, notification := range batch.Value {
		if err := h.dispatch(c.Request().Context(), notification); err != nil {
			obs.NotificationsReceived.WithLabelValues("publish_failed").Inc()
			return handleError(c, h.logger, errors.ErrPublishFailed(err))
		}
	}

	obs.NotificationsReceived.WithLabelValues("accepted").Add(float64(len(batch.Value)))
	if h.logger != nil {
		h.logger.Info("notification batch accepted",
			zap.String("request_id", getRequestID(c)),
			zap.Int("entries", len(batch.Value)),
		)
	}
	return handleSuccess(c, h.logger, http.StatusAccepted, map[string]int{"accepted": len(batch.Value)})
}

// dispatch enqueues one notification, or runs it inline when no queue
// is configured.
func (h *NotificationHandler) dispatch(ctx context.Context, notification entities.Notification) error {
	if h.publisher == nil {
		go func() {
			if err := h.pipeline.Consume(context.Background(), mustMarshal(notification), 1); err != nil && h.logger != nil {
				h.logger.Error("inline notification processing failed",
					zap.String("resource", notification.Resource),
					zap.Error(err),
				)
			}
		}()
		return nil
	}

	data, err := json.Marshal(notification)
	if err != nil {
		return err
	}
	return h.publisher.Publish(ctx, data)
}

func (h *NotificationHandler) tenantAllowed(tenantID string) bool {
	if tenantID == "" {
		return false
	}
	for _, allowed := range h.cfg.Receiver.AllowedTenants {
		if tenantID == allowed {
			return true
		}
	}
	return false
}

func mustMarshal(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
