// Package consumers is the event ingestion pipeline: one worker per topic,
// each owning its reader and processing its partition sequentially. A bad
// message is logged and dropped; only an unreachable broker at startup is
// fatal.
package consumers

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/interestgraph-backend/internal/observability"
	"github.com/yungbote/interestgraph-backend/internal/platform/errs"
	"github.com/yungbote/interestgraph-backend/internal/platform/logger"
)

const (
	TopicPhotoUpload           = "photo-upload"
	TopicUserInteraction       = "user-interaction-topic"
	TopicRecommendationRequest = "recommendation-request-topic"
)

type State string

const (
	StateDisconnected State = "DISCONNECTED"
	StateConnecting   State = "CONNECTING"
	StateSubscribed   State = "SUBSCRIBED"
	StateConsuming    State = "CONSUMING"
	StateReconnecting State = "RECONNECTING"
	StateStopped      State = "STOPPED"
)

type Config struct {
	Brokers           []string
	Topic             string
	GroupID           string
	ConnectRetries    int
	ConnectRetryDelay time.Duration
}

// handleFunc processes one decoded message body. Returned errors are
// classified by errs.Kind and only ever affect that single message.
type handleFunc func(ctx context.Context, value []byte) error

type Consumer struct {
	name   string
	cfg    Config
	log    *logger.Logger
	handle handleFunc
	state  atomic.Value
}

func newConsumer(name string, cfg Config, log *logger.Logger, handle handleFunc) *Consumer {
	if cfg.ConnectRetries <= 0 {
		cfg.ConnectRetries = 10
	}
	if cfg.ConnectRetryDelay <= 0 {
		cfg.ConnectRetryDelay = 5 * time.Second
	}
	c := &Consumer{name: name, cfg: cfg, log: log, handle: handle}
	c.state.Store(StateDisconnected)
	return c
}

func (c *Consumer) Name() string { return c.name }

func (c *Consumer) State() State {
	return c.state.Load().(State)
}

func (c *Consumer) setState(s State) {
	c.state.Store(s)
}

// Run blocks until ctx is cancelled or startup connection retries are
// exhausted. The in-flight handler always completes before Run returns.
func (c *Consumer) Run(ctx context.Context) error {
	c.setState(StateConnecting)
	if err := c.waitForBroker(ctx); err != nil {
		c.setState(StateStopped)
		return err
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     c.cfg.Brokers,
		Topic:       c.cfg.Topic,
		GroupID:     c.cfg.GroupID,
		MinBytes:    1e3,
		MaxBytes:    10e6,
		MaxWait:     500 * time.Millisecond,
		StartOffset: kafka.LastOffset,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			c.log.Warn(fmt.Sprintf(msg, args...))
		}),
	})
	defer reader.Close()

	c.setState(StateSubscribed)
	c.log.Info("subscribed", "topic", c.cfg.Topic, "group_id", c.cfg.GroupID)

	for {
		c.setState(StateConsuming)
		m, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.setState(StateStopped)
				c.log.Info("consumer stopped", "topic", c.cfg.Topic)
				return nil
			}
			// The reader re-establishes group membership itself; just
			// surface the hiccup and go around again.
			c.setState(StateReconnecting)
			c.log.Warn("fetch message failed", "topic", c.cfg.Topic, "error", err)
			continue
		}

		c.process(ctx, m)

		// Commit even when the handler failed: at-least-once delivery with
		// no redelivery of poison messages.
		if err := reader.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				c.setState(StateStopped)
				return nil
			}
			c.log.Warn("commit failed", "topic", c.cfg.Topic, "offset", m.Offset, "error", err)
		}
	}
}

func (c *Consumer) process(ctx context.Context, m kafka.Message) {
	ctx, span := observability.StartSpan(ctx, "consume "+c.cfg.Topic,
		attribute.String("messaging.kafka.topic", c.cfg.Topic),
		attribute.Int64("messaging.kafka.offset", m.Offset),
		attribute.Int("messaging.kafka.partition", m.Partition),
	)
	defer span.End()

	if len(m.Value) == 0 {
		c.log.Error("message value is empty", "topic", c.cfg.Topic, "offset", m.Offset)
		return
	}

	err := c.handle(ctx, m.Value)
	if err == nil {
		return
	}
	switch errs.KindOf(err) {
	case errs.KindValidation:
		c.log.Error("invalid message dropped", "topic", c.cfg.Topic, "offset", m.Offset, "error", err)
	case errs.KindNotFound:
		c.log.Error("message abandoned, referenced entity missing", "topic", c.cfg.Topic, "offset", m.Offset, "error", err)
	default:
		c.log.Error("message handling failed", "topic", c.cfg.Topic, "offset", m.Offset, "error", err)
	}
}

// waitForBroker probes the broker with a bounded number of fixed-delay
// attempts before the reader is created, so a dead broker fails fast and
// loud instead of spinning inside the reader forever.
func (c *Consumer) waitForBroker(ctx context.Context) error {
	if len(c.cfg.Brokers) == 0 {
		return errs.Connection(c.name, fmt.Errorf("no brokers configured"))
	}
	var lastErr error
	for attempt := 1; attempt <= c.cfg.ConnectRetries; attempt++ {
		conn, err := kafka.DialContext(ctx, "tcp", c.cfg.Brokers[0])
		if err == nil {
			_ = conn.Close()
			return nil
		}
		lastErr = err
		c.log.Warn("broker dial failed",
			"topic", c.cfg.Topic,
			"attempt", attempt,
			"max_attempts", c.cfg.ConnectRetries,
			"error", err,
		)
		select {
		case <-ctx.Done():
			return errs.Connection(c.name, ctx.Err())
		case <-time.After(c.cfg.ConnectRetryDelay):
		}
	}
	return errs.Connection(c.name, lastErr)
}
