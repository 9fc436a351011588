package repository

import (
	"context"
	"errors"

	"club_chat_service/internal/chat/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ChannelRepository definition chat channel; FindByID returns (nil, nil) when missing
type ChannelRepository interface {
	CreateChannel(ctx context.Context, channel *domain.Channel) error
	FindByID(ctx context.Context, channelID string) (*domain.Channel, error)
}

type channelRepository struct {
	coll *mongo.Collection
}

// NewMongoChannelRepository create new mongo channel repository
func NewMongoChannelRepository(db *mongo.Database) ChannelRepository {
	return &channelRepository{
		coll: db.Collection(string(domain.Channels)),
	}
}

// CreateChannel create channel
func (r *channelRepository) CreateChannel(ctx context.Context, channel *domain.Channel) error {
	_, err := r.coll.InsertOne(ctx, channel)
	return err
}

// FindByID find channel by id
func (r *channelRepository) FindByID(ctx context.Context, channelID string) (*domain.Channel, error) {
	var channel domain.Channel
	err := r.coll.FindOne(ctx, bson.M{"_id": channelID}).Decode(&channel)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &channel, nil
}
