package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"club_chat_service/internal/chat/domain"
	"club_chat_service/internal/chat/repository"
	"club_chat_service/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)

func newTestSendUseCase(ch *MockChannelRepository, msgs *MockMessageRepository, pub *MockPubSub, events *MockMessageEventRepository) *SendMessageUseCase {
	var ev repository.MessageEventRepository
	if events != nil {
		ev = events
	}
	uc := NewSendMessageUseCase(ch, msgs, pub, ev)
	uc.now = func() time.Time { return fixedNow }
	uc.newID = func() string { return "msg-1" }
	return uc
}

func TestSendMessageUseCase_Execute(t *testing.T) {
	ctx := context.Background()
	logger.SetNewNop()
	author := domain.Author{ID: "member-1", Name: "Kim"}
	channel := &domain.Channel{ID: "chan-1", Members: []string{"member-1", "member-2"}}

	t.Run("stores, publishes and emits event", func(t *testing.T) {
		chRepo := new(MockChannelRepository)
		msgRepo := new(MockMessageRepository)
		pub := new(MockPubSub)
		events := new(MockMessageEventRepository)

		want := domain.Message{
			ID:          "msg-1",
			Text:        "hello",
			CreatedAt:   fixedNow,
			Author:      author,
			ChannelID:   "chan-1",
			ClientMsgID: "client-1",
		}
		chRepo.On("FindByID", ctx, "chan-1").Return(channel, nil).Once()
		msgRepo.On("InsertMessage", ctx, "chan-1", want).Return(nil).Once()
		pub.On("Publish", ctx, "chat:room:chan-1", want).Return(nil).Once()
		events.On("PublishMessageCreated", ctx, want).Return(nil).Once()

		uc := newTestSendUseCase(chRepo, msgRepo, pub, events)
		got, err := uc.Execute(ctx, "chan-1", author, "hello", "client-1")

		require.NoError(t, err)
		assert.Equal(t, want, *got)
		chRepo.AssertExpectations(t)
		msgRepo.AssertExpectations(t)
		pub.AssertExpectations(t)
		events.AssertExpectations(t)
	})

	t.Run("blank text is rejected before any lookup", func(t *testing.T) {
		chRepo := new(MockChannelRepository)
		uc := newTestSendUseCase(chRepo, new(MockMessageRepository), new(MockPubSub), nil)

		_, err := uc.Execute(ctx, "chan-1", author, "   ", "")
		assert.ErrorIs(t, err, ErrEmptyMessage)
		chRepo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("unknown channel", func(t *testing.T) {
		chRepo := new(MockChannelRepository)
		chRepo.On("FindByID", ctx, "nope").Return(nil, nil).Once()
		uc := newTestSendUseCase(chRepo, new(MockMessageRepository), new(MockPubSub), nil)

		_, err := uc.Execute(ctx, "nope", author, "hi", "")
		assert.ErrorIs(t, err, ErrChannelNotFound)
	})

	t.Run("sender outside member list", func(t *testing.T) {
		chRepo := new(MockChannelRepository)
		chRepo.On("FindByID", ctx, "chan-1").Return(channel, nil).Once()
		uc := newTestSendUseCase(chRepo, new(MockMessageRepository), new(MockPubSub), nil)

		_, err := uc.Execute(ctx, "chan-1", domain.Author{ID: "stranger"}, "hi", "")
		assert.ErrorIs(t, err, ErrNotChannelMember)
	})

	t.Run("store failure is returned and nothing is published", func(t *testing.T) {
		chRepo := new(MockChannelRepository)
		msgRepo := new(MockMessageRepository)
		pub := new(MockPubSub)
		chRepo.On("FindByID", ctx, "chan-1").Return(channel, nil).Once()
		msgRepo.On("InsertMessage", ctx, "chan-1", mock.Anything).Return(errors.New("db down")).Once()

		uc := newTestSendUseCase(chRepo, msgRepo, pub, nil)
		_, err := uc.Execute(ctx, "chan-1", author, "hi", "")

		assert.EqualError(t, err, "db down")
		pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("publish failure keeps the stored message", func(t *testing.T) {
		chRepo := new(MockChannelRepository)
		msgRepo := new(MockMessageRepository)
		pub := new(MockPubSub)
		chRepo.On("FindByID", ctx, "chan-1").Return(channel, nil).Once()
		msgRepo.On("InsertMessage", ctx, "chan-1", mock.Anything).Return(nil).Once()
		pub.On("Publish", ctx, "chat:room:chan-1", mock.Anything).Return(errors.New("redis down")).Once()

		uc := newTestSendUseCase(chRepo, msgRepo, pub, nil)
		got, err := uc.Execute(ctx, "chan-1", author, "hi", "")

		require.NoError(t, err)
		assert.Equal(t, "msg-1", got.ID)
	})
}

func TestHistoryUseCase_GetPage(t *testing.T) {
	ctx := context.Background()
	open := &domain.Channel{ID: "chan-1"}
	page := []domain.Message{{ID: "a"}, {ID: "b"}}

	t.Run("defaults to newest first", func(t *testing.T) {
		chRepo := new(MockChannelRepository)
		msgRepo := new(MockMessageRepository)
		chRepo.On("FindByID", ctx, "chan-1").Return(open, nil).Once()
		msgRepo.On("FindPage", ctx, "chan-1", 1, 20, domain.OrderDesc).Return(page, nil).Once()

		uc := NewHistoryUseCase(chRepo, msgRepo, 20)
		got, err := uc.GetPage(ctx, "chan-1", "anyone", 0, "")

		require.NoError(t, err)
		assert.Equal(t, page, got)
		msgRepo.AssertExpectations(t)
	})

	t.Run("ascending order passes through", func(t *testing.T) {
		chRepo := new(MockChannelRepository)
		msgRepo := new(MockMessageRepository)
		chRepo.On("FindByID", ctx, "chan-1").Return(open, nil).Once()
		msgRepo.On("FindPage", ctx, "chan-1", 3, 20, domain.OrderAsc).Return(page, nil).Once()

		uc := NewHistoryUseCase(chRepo, msgRepo, 20)
		_, err := uc.GetPage(ctx, "chan-1", "anyone", 3, domain.OrderAsc)
		require.NoError(t, err)
		msgRepo.AssertExpectations(t)
	})

	t.Run("bad order", func(t *testing.T) {
		uc := NewHistoryUseCase(new(MockChannelRepository), new(MockMessageRepository), 20)
		_, err := uc.GetPage(ctx, "chan-1", "anyone", 1, "SIDEWAYS")
		assert.ErrorIs(t, err, ErrInvalidOrder)
	})

	t.Run("empty channel id", func(t *testing.T) {
		uc := NewHistoryUseCase(new(MockChannelRepository), new(MockMessageRepository), 20)
		_, err := uc.GetPage(ctx, "", "anyone", 1, domain.OrderDesc)
		assert.ErrorIs(t, err, ErrChannelNotFound)
	})
}
