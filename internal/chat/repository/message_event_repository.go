package repository

import (
	"context"
	"encoding/json"
	"time"

	"club_chat_service/internal/chat/domain"

	"github.com/segmentio/kafka-go"
)

// MessageEventRepository downstream notification of stored messages
type MessageEventRepository interface {
	PublishMessageCreated(ctx context.Context, msg domain.Message) error
	Close() error
}

// KafkaWriter subset of *kafka.Writer used here
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaMessageEventRepository struct {
	writer KafkaWriter
}

// NewKafkaMessageEventRepository events keyed by channel id, so one channel keeps its order
func NewKafkaMessageEventRepository(writer KafkaWriter) MessageEventRepository {
	return &kafkaMessageEventRepository{writer: writer}
}

func (r *kafkaMessageEventRepository) PublishMessageCreated(ctx context.Context, msg domain.Message) error {
	data, err := json.Marshal(domain.MessageEvent{
		Type:       domain.EventMessageCreated,
		Message:    msg,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return r.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.ChannelID),
		Value: data,
	})
}

func (r *kafkaMessageEventRepository) Close() error {
	return r.writer.Close()
}
