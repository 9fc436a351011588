package repository

import (
	"context"
	"errors"

	"club_chat_service/internal/chat/domain"
)

// ErrConnectionClosed live connection is gone
var ErrConnectionClosed = errors.New("live connection closed")

// HistoryRepository remote paged history, newest first
type HistoryRepository interface {
	FetchPage(ctx context.Context, channelID string, page int) ([]domain.Message, error)
}

// LiveRepository push transport for one authenticated user
type LiveRepository interface {
	// Subscribe join channelID; the channel is closed once ctx is done or the connection drops
	Subscribe(ctx context.Context, channelID string) (<-chan domain.Message, error)
	// Emit write one request without waiting for its ack
	Emit(ctx context.Context, req domain.WSRequest) error
	// OnSendError register the handler for rejected send_message acks
	OnSendError(handler func(clientMsgID string, err error))
	Close() error
}
