package repository

import (
	"context"
	"errors"
	"fmt"

	"club_chat_service/internal/chat/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MessageRepository day bucketed message store
type MessageRepository interface {
	// InsertMessage push msg into the bucket of its UTC date, creating the bucket when missing
	InsertMessage(ctx context.Context, roomID string, msg domain.Message) error
	// FindBucket one channel's bucket for date
	FindBucket(ctx context.Context, roomID, date string) (*domain.MessageBucket, error)
	// FindPage 1-based page of messages across buckets
	FindPage(ctx context.Context, roomID string, page, size int, order domain.SortOrder) ([]domain.Message, error)
	// EnsureIndexes create the (room_id, date) unique index
	EnsureIndexes(ctx context.Context) error
}

type chatMessageRepository struct {
	coll *mongo.Collection
}

// NewMongoChatMessageRepository create a MessageRepository
func NewMongoChatMessageRepository(db *mongo.Database) MessageRepository {
	return &chatMessageRepository{
		coll: db.Collection(string(domain.Messages)),
	}
}

func (r *chatMessageRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "room_id", Value: 1}, {Key: "date", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *chatMessageRepository) InsertMessage(ctx context.Context, roomID string, msg domain.Message) error {
	date := msg.CreatedAt.UTC().Format(domain.DateLayout)
	filter := bson.M{"room_id": roomID, "date": date}
	update := bson.M{"$push": bson.M{"messages": msg}}

	_, err := r.coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("push message into bucket %s/%s: %w", roomID, date, err)
	}
	return nil
}

func (r *chatMessageRepository) FindBucket(ctx context.Context, roomID, date string) (*domain.MessageBucket, error) {
	var bucket domain.MessageBucket
	err := r.coll.FindOne(ctx, bson.M{"room_id": roomID, "date": date}).Decode(&bucket)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bucket, nil
}

func (r *chatMessageRepository) FindPage(ctx context.Context, roomID string, page, size int, order domain.SortOrder) ([]domain.Message, error) {
	if page < 1 {
		page = 1
	}
	dir := -1
	if order == domain.OrderAsc {
		dir = 1
	}

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{{Key: "room_id", Value: roomID}}}},
		// one document per message
		bson.D{{Key: "$unwind", Value: "$messages"}},
		bson.D{{Key: "$replaceRoot", Value: bson.D{{Key: "newRoot", Value: "$messages"}}}},
		bson.D{{Key: "$sort", Value: bson.D{
			{Key: "created_at", Value: dir},
			{Key: "id", Value: dir},
		}}},
		bson.D{{Key: "$skip", Value: int64((page - 1) * size)}},
		bson.D{{Key: "$limit", Value: int64(size)}},
	}

	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate error: %w", err)
	}

	messages := make([]domain.Message, 0, size)
	if err := cur.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("cursor All error: %w", err)
	}
	return messages, nil
}
