package database

import (
	"context"
	"fmt"
	"time"

	"club_chat_service/pkg/logger"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// NewKafkaWriterWithRetry dial the first broker until it answers, then build a writer
// keyed by hash so one key always lands on one partition
func NewKafkaWriterWithRetry(ctx context.Context, k KafkaConnection) (*kafka.Writer, error) {
	if len(k.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: no brokers configured")
	}

	attempts := max(k.RetryCount, 1)
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		var conn *kafka.Conn
		conn, err = kafka.DialContext(ctx, "tcp", k.Brokers[0])
		if err == nil {
			_, err = conn.Controller()
			conn.Close()
		}
		if err == nil {
			logger.Log.Info("kafka broker reachable", zap.Strings("brokers", k.Brokers), zap.Int("attempt", attempt))
			return &kafka.Writer{
				Addr:         kafka.TCP(k.Brokers...),
				Topic:        k.Topic,
				Balancer:     &kafka.Hash{},
				RequiredAcks: kafka.RequireOne,
			}, nil
		}

		logger.Log.Warn("kafka dial failed",
			zap.Int("attempt", attempt),
			zap.Int("max", attempts),
			zap.Error(err),
		)
		time.Sleep(k.RetryInterval)
	}

	return nil, fmt.Errorf("kafka writer not ready after %d attempts: %w", attempts, err)
}
