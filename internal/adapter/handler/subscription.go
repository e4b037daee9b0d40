package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/meetingscribe/transcript-relay/errors"
)

// Reconciler brings webhook subscriptions to their desired state
type Reconciler interface {
	Reconcile(ctx context.Context) error
}

// SubscriptionHandler exposes an operational trigger for subscription
// reconciliation, useful after changing the notification URL or when a
// subscription was deleted out-of-band.
type SubscriptionHandler struct {
	manager Reconciler
	logger  *zap.Logger
}

// NewSubscriptionHandler creates the subscription handler
func NewSubscriptionHandler(manager Reconciler, logger *zap.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		manager: manager,
		logger:  logger,
	}
}

// Reconcile runs one reconciliation pass synchronously
func (h *SubscriptionHandler) Reconcile(c echo.Context) error {
	if err := h.manager.Reconcile(c.Request().Context()); err != nil {
		return handleError(c, h.logger, errors.ErrSubscriptionFailed("all", err))
	}
	return handleSuccess(c, h.logger, http.StatusOK, map[string]string{"status": "reconciled"})
}
