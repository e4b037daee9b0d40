package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/meetingscribe/transcript-relay/internal/infrastructure/obs"
	"github.com/meetingscribe/transcript-relay/pkg/config"
)

// Router holds all handlers
type Router struct {
	cfg                 *config.Config
	notificationHandler *NotificationHandler
	subscriptionHandler *SubscriptionHandler
	runHandler          *RunHandler
}

// NewRouter creates a new router with all handlers
func NewRouter(cfg *config.Config, notificationHandler *NotificationHandler, subscriptionHandler *SubscriptionHandler, runHandler *RunHandler) *Router {
	return &Router{
		cfg:                 cfg,
		notificationHandler: notificationHandler,
		subscriptionHandler: subscriptionHandler,
		runHandler:          runHandler,
	}
}

// Setup configures all application routes
func (rt *Router) Setup(e *echo.Echo) {
	e.GET("/health", rt.healthCheck)
	e.GET("/metrics", echo.WrapHandler(obs.Handler()))

	v1 := e.Group("/v1")

	// The platform posts both validation handshakes and notification
	// batches to the same URL; some validation probes arrive as GET.
	v1.POST("/notifications", rt.notificationHandler.Handle)
	v1.GET("/notifications", rt.notificationHandler.Handle)

	if rt.subscriptionHandler != nil {
		v1.POST("/subscriptions/reconcile", rt.subscriptionHandler.Reconcile)
	}

	// Run journal endpoints exist only when the journal is configured.
	if rt.runHandler != nil {
		v1.GET("/runs", rt.runHandler.ListByTranscript)
		v1.GET("/runs/:id", rt.runHandler.GetByID)
	}
}

// healthCheck returns health status
func (rt *Router) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"environment": rt.cfg.Server.Environment,
	})
}
