package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/meetingscribe/transcript-relay/pkg/config"
)

// Handler processes one delivered notification payload. Returning a
// non-nil error requests redelivery (Nak); nil acknowledges the message.
type Handler func(ctx context.Context, data []byte, attempt int) error

// Queue is the durable at-least-once channel between the notification
// receiver and the transcript orchestrator
type Queue struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	stream  string
	subject string
	durable string
	logger  *zap.Logger
}

// New connects to NATS and ensures the notification stream exists
func New(cfg *config.QueueConfig, logger *zap.Logger) (*Queue, error) {
	conn, err := nats.Connect(
		cfg.URL,
		nats.DrainTimeout(10*time.Second),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			if logger != nil {
				logger.Error("nats async error", zap.Error(err))
			}
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if logger != nil {
				logger.Info("nats connection closed")
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      cfg.Stream,
		Subjects:  []string{cfg.Subject},
		Retention: jetstream.WorkQueuePolicy,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ensure stream %s: %w", cfg.Stream, err)
	}

	return &Queue{
		conn:    conn,
		js:      js,
		stream:  cfg.Stream,
		subject: cfg.Subject,
		durable: cfg.Durable,
		logger:  logger,
	}, nil
}

// Publish puts one raw notification payload onto the stream
func (q *Queue) Publish(ctx context.Context, data []byte) error {
	if _, err := q.js.Publish(ctx, q.subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", q.subject, err)
	}
	return nil
}

// Consume starts a durable consumer with explicit acks. Messages whose
// handler reports an error are Nak'd so the server redelivers them;
// ordering across distinct notifications is not guaranteed.
func (q *Queue) Consume(ctx context.Context, handler Handler) (jetstream.ConsumeContext, error) {
	consumer, err := q.js.CreateOrUpdateConsumer(ctx, q.stream, jetstream.ConsumerConfig{
		Durable:       q.durable,
		FilterSubject: q.subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		attempt := 1
		if meta, err := msg.Metadata(); err == nil {
			attempt = int(meta.NumDelivered)
		}

		if err := handler(ctx, msg.Data(), attempt); err != nil {
			if q.logger != nil {
				q.logger.Warn("notification processing failed, requesting redelivery",
					zap.Int("attempt", attempt),
					zap.Error(err),
				)
			}
			if err := msg.Nak(); err != nil && q.logger != nil {
				q.logger.Error("failed to nak message", zap.Error(err))
			}
			return
		}

		if err := msg.Ack(); err != nil && q.logger != nil {
			q.logger.Error("failed to acknowledge message", zap.Error(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start consumer: %w", err)
	}
	return cc, nil
}

// Close drains the connection, letting in-flight handlers finish
func (q *Queue) Close() {
	if q.conn == nil || q.conn.IsClosed() || q.conn.IsDraining() {
		return
	}
	if err := q.conn.Drain(); err != nil && q.logger != nil {
		q.logger.Error("error draining NATS connection", zap.Error(err))
	}
}
