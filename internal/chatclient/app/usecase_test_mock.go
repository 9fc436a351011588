package app

import (
	"context"
	"sync"

	"club_chat_service/internal/chat/domain"

	"github.com/stretchr/testify/mock"
)

// MockHistoryRepository Mock HistoryRepository
type MockHistoryRepository struct {
	mock.Mock
}

// FetchPage mock fetch page
func (m *MockHistoryRepository) FetchPage(ctx context.Context, channelID string, page int) ([]domain.Message, error) {
	args := m.Called(ctx, channelID, page)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockLiveRepository Mock LiveRepository; Push feeds the open subscription
type MockLiveRepository struct {
	mock.Mock

	mu          sync.Mutex
	subs        map[string]chan domain.Message
	onSendError func(clientMsgID string, err error)
}

// Subscribe mock subscribe
func (m *MockLiveRepository) Subscribe(ctx context.Context, channelID string) (<-chan domain.Message, error) {
	args := m.Called(ctx, channelID)
	if err := args.Error(0); err != nil {
		return nil, err
	}
	ch := make(chan domain.Message, 16)
	m.mu.Lock()
	if m.subs == nil {
		m.subs = make(map[string]chan domain.Message)
	}
	m.subs[channelID] = ch
	m.mu.Unlock()
	return ch, nil
}

// Push deliver msg on the channelID subscription
func (m *MockLiveRepository) Push(channelID string, msg domain.Message) {
	m.mu.Lock()
	ch := m.subs[channelID]
	m.mu.Unlock()
	ch <- msg
}

// Emit mock emit
func (m *MockLiveRepository) Emit(ctx context.Context, req domain.WSRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

// OnSendError store handler
func (m *MockLiveRepository) OnSendError(handler func(clientMsgID string, err error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onSendError = handler
}

// RejectSend play a failed send_message ack
func (m *MockLiveRepository) RejectSend(clientMsgID string, err error) {
	m.mu.Lock()
	handler := m.onSendError
	m.mu.Unlock()
	handler(clientMsgID, err)
}

// Close mock close
func (m *MockLiveRepository) Close() error {
	return nil
}
