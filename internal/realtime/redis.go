package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const channelPrefix = "tickets:changes:"

// RedisBroker relays changes through Redis pub/sub so every server instance
// sees every change. Local subscribers are fed by Run, including for changes
// this instance published.
type RedisBroker struct {
	client *redis.Client
	local  *LocalBroker
	logger *zap.SugaredLogger
}

var _ Broker = (*RedisBroker)(nil)

func NewRedisBroker(client *redis.Client, logger *zap.SugaredLogger) *RedisBroker {
	return &RedisBroker{
		client: client,
		local:  NewLocalBroker(),
		logger: logger,
	}
}

// DialRedis parses url and verifies the server answers.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func channelFor(t Table) string {
	return channelPrefix + string(t)
}

func (b *RedisBroker) Publish(ctx context.Context, c Change) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal change: %w", err)
	}
	if err := b.client.Publish(ctx, channelFor(c.Table), data).Err(); err != nil {
		b.logger.Errorw("failed to publish change",
			"table", c.Table,
			"row_id", c.RowID,
			"error", err,
		)
		return fmt.Errorf("failed to publish change: %w", err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(table Table, fn Handler) func() {
	return b.local.Subscribe(table, fn)
}

func (b *RedisBroker) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}

// Run relays Redis messages to local subscribers until ctx is done,
// reconnecting with exponential backoff.
func (b *RedisBroker) Run(ctx context.Context) error {
	backoff := time.Second
	maxBackoff := 30 * time.Second

	for {
		err := b.relay(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		b.logger.Warnw("change subscription disconnected, reconnecting",
			"error", err,
			"backoff", backoff,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff = min(backoff*2, maxBackoff)
	}
}

func (b *RedisBroker) relay(ctx context.Context) error {
	pubsub := b.client.PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to changes: %w", err)
	}
	b.logger.Infow("subscribed to change channels", "pattern", channelPrefix+"*")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.dispatch(msg.Channel, msg.Payload)
		}
	}
}

func (b *RedisBroker) dispatch(channel, payload string) {
	var c Change
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		b.logger.Warnw("failed to unmarshal change",
			"channel", channel,
			"error", err,
		)
		return
	}
	if string(c.Table) != strings.TrimPrefix(channel, channelPrefix) {
		b.logger.Warnw("change table does not match channel",
			"channel", channel,
			"table", c.Table,
		)
		return
	}
	b.local.deliver(c)
}
