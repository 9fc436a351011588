package database

import (
	"context"
	"fmt"
	"time"

	"club_chat_service/pkg/logger"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// NewMongoDB connect and ping mongo, retrying c.RetryCount times
func NewMongoDB(ctx context.Context, c Connection, dbName string) (*MongoDB, error) {
	clientOpts := options.Client().ApplyURI(c.ConnectStr)

	var err error
	for i := 0; i <= c.RetryCount; i++ {
		var client *mongo.Client
		client, err = mongo.Connect(ctx, clientOpts)
		if err == nil {
			if err = client.Ping(ctx, readpref.Primary()); err == nil {
				return &MongoDB{
					Client:   client,
					Database: client.Database(dbName),
				}, nil
			}
			_ = client.Disconnect(ctx)
		}

		logger.Log.Warn("mongo connect failed, retrying",
			zap.Int("attempt", i+1),
			zap.Error(err),
		)
		if i < c.RetryCount {
			time.Sleep(c.RetryInterval)
		}
	}

	return nil, fmt.Errorf("failed to connect to MongoDB after retries: %w", err)
}

// Close disconnect mongo
func (m *MongoDB) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}
