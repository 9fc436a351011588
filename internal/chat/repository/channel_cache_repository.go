package repository

import (
	"context"
	"errors"
	"time"

	"club_chat_service/internal/chat/domain"
	"club_chat_service/pkg/database"
	"club_chat_service/pkg/logger"

	"go.uber.org/zap"
)

type cachedChannelRepository struct {
	base  ChannelRepository
	cache database.RedisRepository[domain.Channel]
	ttl   time.Duration
}

// NewCachedChannelRepository read-through redis cache in front of base.
// Cache failures fall back to base.
func NewCachedChannelRepository(base ChannelRepository, cache database.RedisRepository[domain.Channel], ttl time.Duration) ChannelRepository {
	return &cachedChannelRepository{base: base, cache: cache, ttl: ttl}
}

func channelCacheKey(channelID string) string {
	return "chat:channel:" + channelID
}

func (r *cachedChannelRepository) CreateChannel(ctx context.Context, channel *domain.Channel) error {
	if err := r.base.CreateChannel(ctx, channel); err != nil {
		return err
	}
	if err := r.cache.Del(ctx, channelCacheKey(channel.ID)); err != nil {
		logger.Log.Warn("channel cache del failed", zap.String("channel_id", channel.ID), zap.Error(err))
	}
	return nil
}

func (r *cachedChannelRepository) FindByID(ctx context.Context, channelID string) (*domain.Channel, error) {
	cached, err := r.cache.Get(ctx, channelCacheKey(channelID))
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, database.ErrCacheMiss) {
		logger.Log.Warn("channel cache get failed", zap.String("channel_id", channelID), zap.Error(err))
	}

	channel, err := r.base.FindByID(ctx, channelID)
	if err != nil || channel == nil {
		return channel, err
	}

	if err := r.cache.Set(ctx, channelCacheKey(channelID), *channel, r.ttl); err != nil {
		logger.Log.Warn("channel cache set failed", zap.String("channel_id", channelID), zap.Error(err))
	}
	return channel, nil
}
