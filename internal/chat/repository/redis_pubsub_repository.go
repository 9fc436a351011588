package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"club_chat_service/internal/chat/domain"
	"club_chat_service/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// PubSub cross-node fan-out of confirmed messages
type PubSub interface {
	Publish(ctx context.Context, channel string, message domain.Message) error
	// Subscribe call handler for every message published on channel until ctx is done
	Subscribe(ctx context.Context, channel string, handler func(domain.Message)) error
}

// RedisPubSub definition redis pub/sub
type RedisPubSub struct {
	client *redis.Client
}

// NewRedisPubSub create RedisPubSub
func NewRedisPubSub(client *redis.Client) *RedisPubSub {
	return &RedisPubSub{client: client}
}

// Publish serialize message and publish it on channel
func (r *RedisPubSub) Publish(ctx context.Context, channel string, message domain.Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, channel, data).Err()
}

// Subscribe returns once redis confirmed the subscription
func (r *RedisPubSub) Subscribe(ctx context.Context, channel string, handler func(domain.Message)) error {
	sub := r.client.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return fmt.Errorf("subscribe %s: %w", channel, err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()

		for {
			select {
			case m, ok := <-ch:
				if !ok {
					return
				}

				var msg domain.Message
				if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
					logger.Log.Error("pubsub payload decode failed", zap.String("channel", channel), zap.Error(err))
					continue
				}
				handler(msg)
			case <-ctx.Done():
				logger.Log.Debug("sub close", zap.String("channel", channel))
				return
			}
		}
	}()
	return nil
}
