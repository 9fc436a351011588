package app

import (
	"context"

	"club_chat_service/internal/chat/domain"

	"github.com/stretchr/testify/mock"
)

// MockChannelRepository Mock ChannelRepository
type MockChannelRepository struct {
	mock.Mock
}

// CreateChannel mock create channel
func (m *MockChannelRepository) CreateChannel(ctx context.Context, channel *domain.Channel) error {
	args := m.Called(ctx, channel)
	return args.Error(0)
}

// FindByID mock find channel by id
func (m *MockChannelRepository) FindByID(ctx context.Context, channelID string) (*domain.Channel, error) {
	args := m.Called(ctx, channelID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Channel), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockMessageRepository Mock MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

// InsertMessage mock insert message
func (m *MockMessageRepository) InsertMessage(ctx context.Context, roomID string, msg domain.Message) error {
	args := m.Called(ctx, roomID, msg)
	return args.Error(0)
}

// FindBucket mock find bucket
func (m *MockMessageRepository) FindBucket(ctx context.Context, roomID, date string) (*domain.MessageBucket, error) {
	args := m.Called(ctx, roomID, date)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.MessageBucket), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindPage mock find page
func (m *MockMessageRepository) FindPage(ctx context.Context, roomID string, page, size int, order domain.SortOrder) ([]domain.Message, error) {
	args := m.Called(ctx, roomID, page, size, order)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// EnsureIndexes mock ensure indexes
func (m *MockMessageRepository) EnsureIndexes(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockPubSub Mock PubSub
type MockPubSub struct {
	mock.Mock
}

// Publish mock publisher
func (m *MockPubSub) Publish(ctx context.Context, channel string, message domain.Message) error {
	args := m.Called(ctx, channel, message)
	return args.Error(0)
}

// Subscribe mock subscriber
func (m *MockPubSub) Subscribe(ctx context.Context, channel string, handler func(domain.Message)) error {
	args := m.Called(ctx, channel, handler)
	return args.Error(0)
}

// MockMessageEventRepository Mock MessageEventRepository
type MockMessageEventRepository struct {
	mock.Mock
}

// PublishMessageCreated mock event publish
func (m *MockMessageEventRepository) PublishMessageCreated(ctx context.Context, msg domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// Close mock close
func (m *MockMessageEventRepository) Close() error {
	args := m.Called()
	return args.Error(0)
}
