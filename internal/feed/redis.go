package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/studytools/internal/events"
	"github.com/phrazzld/studytools/internal/metrics"
	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
)

// DefaultChannel is the Redis pub/sub channel carrying task change events.
const DefaultChannel = "studytools:task-events"

// RedisPublisher forwards change events to a Redis channel.
type RedisPublisher struct {
	client  redis.UniversalClient
	channel string
	logger  *slog.Logger
}

var _ events.EventHandler = (*RedisPublisher)(nil)

// NewRedisPublisher creates a publisher. An empty channel uses DefaultChannel.
func NewRedisPublisher(client redis.UniversalClient, channel string, logger *slog.Logger) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{
		client:  client,
		channel: channel,
		logger:  logger.With(slog.String("component", "redis_publisher")),
	}
}

// HandleEvent implements events.EventHandler.
func (p *RedisPublisher) HandleEvent(ctx context.Context, event *events.TaskChangeEvent) error {
	data, err := events.Encode(event)
	if err != nil {
		return err
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("publish task event: %w", err)
	}
	return nil
}

const (
	defaultReconnectBase = 100 * time.Millisecond
	defaultReconnectMax  = 5 * time.Second
)

// RedisRelay subscribes to a Redis channel and hands decoded events to a
// local handler, typically a Broker.
type RedisRelay struct {
	client        redis.UniversalClient
	channel       string
	target        events.EventHandler
	reconnectBase time.Duration
	reconnectMax  time.Duration
	ready         chan struct{}
	readyOnce     sync.Once
	logger        *slog.Logger
}

// RelayOption customizes a RedisRelay.
type RelayOption func(*RedisRelay)

// WithReconnectBackoff sets the first and the largest wait between
// subscription attempts.
func WithReconnectBackoff(base, maxWait time.Duration) RelayOption {
	return func(r *RedisRelay) {
		if base > 0 {
			r.reconnectBase = base
		}
		if maxWait > 0 {
			r.reconnectMax = maxWait
		}
	}
}

// NewRedisRelay creates a relay. An empty channel uses DefaultChannel.
func NewRedisRelay(
	client redis.UniversalClient,
	channel string,
	target events.EventHandler,
	logger *slog.Logger,
	opts ...RelayOption,
) *RedisRelay {
	if channel == "" {
		channel = DefaultChannel
	}
	r := &RedisRelay{
		client:        client,
		channel:       channel,
		target:        target,
		reconnectBase: defaultReconnectBase,
		reconnectMax:  defaultReconnectMax,
		ready:         make(chan struct{}),
		logger:        logger.With(slog.String("component", "redis_relay")),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Ready is closed once the relay's first subscription is confirmed by Redis.
func (r *RedisRelay) Ready() <-chan struct{} {
	return r.ready
}

// Run relays events until ctx is done, subscribing again with backoff
// whenever the subscription cannot be made or is lost. It returns nil on
// cancellation.
func (r *RedisRelay) Run(ctx context.Context) error {
	backoff := retry.NewExponential(r.reconnectBase)
	backoff = retry.WithJitterPercent(20, backoff)
	backoff = retry.WithCappedDuration(r.reconnectMax, backoff)

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := r.relay(ctx)
		if err == nil || ctx.Err() != nil {
			return nil
		}
		metrics.FeedRelayFailures.Inc()
		r.logger.WarnContext(ctx, "task event subscription failed, retrying",
			slog.String("channel", r.channel),
			slog.Any("error", err))
		return retry.RetryableError(err)
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// relay runs one subscription. It returns nil only when ctx is done.
func (r *RedisRelay) relay(ctx context.Context) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer func() {
		if err := pubsub.Close(); err != nil {
			r.logger.Debug("failed to close subscription", slog.Any("error", err))
		}
	}()

	if _, err := pubsub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("subscribe to %s: %w", r.channel, err)
	}
	r.readyOnce.Do(func() { close(r.ready) })
	r.logger.Info("relaying task events", slog.String("channel", r.channel))

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return errors.New("redis subscription closed")
			}
			event, err := events.Decode([]byte(msg.Payload))
			if err != nil {
				r.logger.WarnContext(ctx, "discarding malformed task event", slog.Any("error", err))
				continue
			}
			if err := r.target.HandleEvent(ctx, event); err != nil {
				r.logger.WarnContext(ctx, "local handler rejected task event",
					slog.String("task_id", event.Task.ID.String()),
					slog.Any("error", err))
			}
		}
	}
}
