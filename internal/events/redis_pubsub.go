package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisBus carries events over redis pub/sub so several gateway replicas see
// the same auth lifecycle stream.
type RedisBus struct {
	client *redis.Client
	log    *zap.Logger
}

func NewRedisBus(client *redis.Client, log *zap.Logger) *RedisBus {
	return &RedisBus{client: client, log: log}
}

func (b *RedisBus) Publish(ctx context.Context, stream string, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, stream, data).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

func (b *RedisBus) Subscribe(ctx context.Context, stream string) (<-chan Event, func(), error) {
	pubsub := b.client.Subscribe(ctx, stream)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", stream, err)
	}

	out := make(chan Event, 16)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.log.Warn("skipping malformed event payload",
					zap.String("stream", stream),
					zap.Error(err),
				)
				continue
			}
			out <- ev
		}
	}()

	cancel := func() { _ = pubsub.Close() }
	return out, cancel, nil
}
