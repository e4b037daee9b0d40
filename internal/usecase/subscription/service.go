package subscription

import (
	"context"
	"fmt"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meetingscribe/transcript-relay/internal/domain/entities"
	"github.com/meetingscribe/transcript-relay/internal/infrastructure/obs"
	"github.com/meetingscribe/transcript-relay/pkg/config"
)

// SubscriptionAPI is the slice of the platform client the lifecycle
// manager consumes
type SubscriptionAPI interface {
	ListSubscriptions(ctx context.Context) ([]entities.Subscription, error)
	CreateSubscription(ctx context.Context, sub entities.Subscription) (*entities.Subscription, error)
	RenewSubscription(ctx context.Context, subscriptionID string, expiration time.Time) error
}

// DefaultResources are the resource descriptors this deployment keeps
// subscribed: transcripts for all online meetings and for all ad-hoc
// calls.
var DefaultResources = []string{
	"communications/onlineMeetings/getAllTranscripts",
	"communications/adhocCalls/getAllTranscripts",
}

// Manager keeps one active, non-duplicated webhook subscription per
// resource descriptor. Each reconcile run is fully idempotent: a
// matching subscription is renewed, a missing one is created.
type Manager struct {
	platform    SubscriptionAPI
	resources   []string
	notifyURL   string
	clientState string
	window      time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

// NewManager constructs the lifecycle manager. When no client-state
// secret is configured one is generated for the process lifetime, so
// created subscriptions always carry one.
func NewManager(platform SubscriptionAPI, cfg *config.SubscriptionConfig, logger *zap.Logger) *Manager {
	clientState := cfg.ClientState
	if clientState == "" {
		clientState = uuid.NewString()
	}
	return &Manager{
		platform:    platform,
		resources:   DefaultResources,
		notifyURL:   cfg.NotificationURL,
		clientState: clientState,
		window:      cfg.ExpirationWindow,
		logger:      logger,
		now:         time.Now,
	}
}

// Reconcile brings every resource descriptor to the desired state:
// exactly one subscription, expiring no earlier than now plus the
// renewal window. Transient platform errors are retried with
// exponential backoff; descriptors are independent, so one failure
// does not block the others.
func (m *Manager) Reconcile(ctx context.Context) error {
	existing, err := m.listWithRetry(ctx)
	if err != nil {
		return fmt.Errorf("failed to list subscriptions: %w", err)
	}

	byResource := make(map[string]entities.Subscription, len(existing))
	for _, sub := range existing {
		byResource[sub.Resource] = sub
	}

	var firstErr error
	for _, resource := range m.resources {
		if err := m.ensure(ctx, resource, byResource); err != nil {
			obs.SubscriptionOps.WithLabelValues("failed").Inc()
			if m.logger != nil {
				m.logger.Error("failed to reconcile subscription",
					zap.String("resource", resource),
					zap.Error(err),
				)
			}
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// ensure renews the matching subscription or creates a new one
func (m *Manager) ensure(ctx context.Context, resource string, byResource map[string]entities.Subscription) error {
	expiration := m.now().UTC().Add(m.window)

	if sub, ok := byResource[resource]; ok {
		op := func() error {
			return m.platform.RenewSubscription(ctx, sub.ID, expiration)
		}
		if err := backoff.Retry(op, m.newBackoff(ctx)); err != nil {
			return fmt.Errorf("failed to renew subscription %s: %w", sub.ID, err)
		}
		obs.SubscriptionOps.WithLabelValues("renewed").Inc()
		if m.logger != nil {
			m.logger.Info("subscription renewed",
				zap.String("subscription_id", sub.ID),
				zap.String("resource", resource),
				zap.Time("expiration", expiration),
			)
		}
		return nil
	}

	sub := entities.Subscription{
		Resource:                 resource,
		ChangeType:               "created",
		NotificationURL:          m.notifyURL,
		LifecycleNotificationURL: m.notifyURL,
		ExpirationDateTime:       expiration,
		ClientState:              m.clientState,
	}

	var created *entities.Subscription
	op := func() error {
		var err error
		created, err = m.platform.CreateSubscription(ctx, sub)
		return err
	}
	if err := backoff.Retry(op, m.newBackoff(ctx)); err != nil {
		return fmt.Errorf("failed to create subscription for %s: %w", resource, err)
	}

	obs.SubscriptionOps.WithLabelValues("created").Inc()
	if m.logger != nil {
		m.logger.Info("subscription created",
			zap.String("subscription_id", created.ID),
			zap.String("resource", resource),
			zap.Time("expiration", created.ExpirationDateTime),
		)
	}
	return nil
}

func (m *Manager) listWithRetry(ctx context.Context) ([]entities.Subscription, error) {
	var subs []entities.Subscription
	op := func() error {
		var err error
		subs, err = m.platform.ListSubscriptions(ctx)
		return err
	}
	if err := backoff.Retry(op, m.newBackoff(ctx)); err != nil {
		return nil, err
	}
	return subs, nil
}

func (m *Manager) newBackoff(ctx context.Context) backoff.BackOffContext {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 2 * time.Second
	bo.MaxInterval = 10 * time.Second
	bo.MaxElapsedTime = 30 * time.Second
	return backoff.WithContext(bo, ctx)
}

// Run reconciles immediately and then on every tick until the context
// is cancelled. The platform enforces a maximum subscription lifetime
// shorter than typical run intervals, so the renew path dominates.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if err := m.Reconcile(ctx); err != nil && m.logger != nil {
		m.logger.Error("initial subscription reconciliation failed", zap.Error(err))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.Reconcile(ctx); err != nil && m.logger != nil {
				m.logger.Error("subscription reconciliation failed", zap.Error(err))
			}
		}
	}
}
