package app

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"club_chat_service/internal/chat/domain"
	"club_chat_service/internal/chat/repository"
	"club_chat_service/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrEmptyMessage blank message text
	ErrEmptyMessage = errors.New("empty message")
	// ErrChannelNotFound unknown channel id
	ErrChannelNotFound = errors.New("channel not found")
	// ErrNotChannelMember caller is not listed in the channel members
	ErrNotChannelMember = errors.New("not a channel member")
	// ErrInvalidOrder order other than ASC / DESC
	ErrInvalidOrder = errors.New("invalid order")
)

// authorize load channelID and check memberID may use it.
// A channel without a member list is open to every authenticated member.
func authorize(ctx context.Context, channelRepo repository.ChannelRepository, channelID, memberID string) (*domain.Channel, error) {
	if channelID == "" {
		return nil, ErrChannelNotFound
	}
	channel, err := channelRepo.FindByID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if channel == nil {
		return nil, ErrChannelNotFound
	}
	if len(channel.Members) > 0 && !slices.Contains(channel.Members, memberID) {
		return nil, ErrNotChannelMember
	}
	return channel, nil
}

// SendMessageUseCase store and fan out chat messages
type SendMessageUseCase struct {
	channelRepo repository.ChannelRepository
	msgRepo     repository.MessageRepository
	pubSub      repository.PubSub
	events      repository.MessageEventRepository

	now   func() time.Time
	newID func() string
}

// NewSendMessageUseCase init send message use case; events may be nil
func NewSendMessageUseCase(
	channelRepo repository.ChannelRepository,
	msgRepo repository.MessageRepository,
	pub repository.PubSub,
	events repository.MessageEventRepository,
) *SendMessageUseCase {
	return &SendMessageUseCase{
		channelRepo: channelRepo,
		msgRepo:     msgRepo,
		pubSub:      pub,
		events:      events,
		now:         time.Now,
		newID:       func() string { return uuid.New().String() },
	}
}

// Execute validate, store and publish one message; clientMsgID is echoed back untouched
func (uc *SendMessageUseCase) Execute(ctx context.Context, channelID string, author domain.Author, text, clientMsgID string) (*domain.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}
	if _, err := authorize(ctx, uc.channelRepo, channelID, author.ID); err != nil {
		return nil, err
	}

	msg := domain.Message{
		ID:          uc.newID(),
		Text:        text,
		CreatedAt:   uc.now().UTC().Truncate(time.Millisecond),
		Author:      author,
		ChannelID:   channelID,
		ClientMsgID: clientMsgID,
	}

	if err := uc.msgRepo.InsertMessage(ctx, channelID, msg); err != nil {
		return nil, err
	}

	// stored is the source of truth; fan-out and events are best effort
	if err := uc.pubSub.Publish(ctx, domain.RoomKey(channelID), msg); err != nil {
		logger.Log.Error("publish message failed",
			zap.String("channel_id", channelID),
			zap.String("message_id", msg.ID),
			zap.Error(err),
		)
	}
	if uc.events != nil {
		if err := uc.events.PublishMessageCreated(ctx, msg); err != nil {
			logger.Log.Warn("message event failed", zap.String("message_id", msg.ID), zap.Error(err))
		}
	}

	return &msg, nil
}

// HistoryUseCase paged history reads
type HistoryUseCase struct {
	channelRepo repository.ChannelRepository
	msgRepo     repository.MessageRepository
	pageSize    int
}

// NewHistoryUseCase init history use case with the page size contract
func NewHistoryUseCase(channelRepo repository.ChannelRepository, msgRepo repository.MessageRepository, pageSize int) *HistoryUseCase {
	return &HistoryUseCase{
		channelRepo: channelRepo,
		msgRepo:     msgRepo,
		pageSize:    pageSize,
	}
}

// PageSize page size contract
func (uc *HistoryUseCase) PageSize() int {
	return uc.pageSize
}

// Authorize check memberID may read channelID
func (uc *HistoryUseCase) Authorize(ctx context.Context, channelID, memberID string) error {
	_, err := authorize(ctx, uc.channelRepo, channelID, memberID)
	return err
}

// GetPage 1-based page; page below 1 reads page 1, empty order reads newest first
func (uc *HistoryUseCase) GetPage(ctx context.Context, channelID, memberID string, page int, order domain.SortOrder) ([]domain.Message, error) {
	switch order {
	case "":
		order = domain.OrderDesc
	case domain.OrderAsc, domain.OrderDesc:
	default:
		return nil, ErrInvalidOrder
	}
	if page < 1 {
		page = 1
	}
	if err := uc.Authorize(ctx, channelID, memberID); err != nil {
		return nil, err
	}
	return uc.msgRepo.FindPage(ctx, channelID, page, uc.pageSize, order)
}
