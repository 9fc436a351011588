package repository

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"club_chat_service/internal/chat/domain"
)

// In-process stores for single node runs (store: memory) and tests.

type memoryChannelRepository struct {
	mu       sync.RWMutex
	channels map[string]domain.Channel
}

// NewMemoryChannelRepository in-process ChannelRepository
func NewMemoryChannelRepository() ChannelRepository {
	return &memoryChannelRepository{channels: make(map[string]domain.Channel)}
}

func (r *memoryChannelRepository) CreateChannel(ctx context.Context, channel *domain.Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.channels[channel.ID]; ok {
		return errors.New("channel already exists")
	}
	c := *channel
	c.Members = slices.Clone(channel.Members)
	r.channels[channel.ID] = c
	return nil
}

func (r *memoryChannelRepository) FindByID(ctx context.Context, channelID string) (*domain.Channel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.channels[channelID]
	if !ok {
		return nil, nil
	}
	c.Members = slices.Clone(c.Members)
	return &c, nil
}

type memoryMessageRepository struct {
	mu      sync.RWMutex
	buckets map[string]*domain.MessageBucket // room_id/date
}

// NewMemoryMessageRepository in-process MessageRepository
func NewMemoryMessageRepository() MessageRepository {
	return &memoryMessageRepository{buckets: make(map[string]*domain.MessageBucket)}
}

func (r *memoryMessageRepository) EnsureIndexes(ctx context.Context) error {
	return nil
}

func (r *memoryMessageRepository) InsertMessage(ctx context.Context, roomID string, msg domain.Message) error {
	date := msg.CreatedAt.UTC().Format(domain.DateLayout)
	key := roomID + "/" + date

	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.buckets[key]
	if !ok {
		b = &domain.MessageBucket{RoomID: roomID, Date: date}
		r.buckets[key] = b
	}
	b.Messages = append(b.Messages, msg)
	return nil
}

func (r *memoryMessageRepository) FindBucket(ctx context.Context, roomID, date string) (*domain.MessageBucket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.buckets[roomID+"/"+date]
	if !ok {
		return nil, nil
	}
	cp := *b
	cp.Messages = slices.Clone(b.Messages)
	return &cp, nil
}

func (r *memoryMessageRepository) FindPage(ctx context.Context, roomID string, page, size int, order domain.SortOrder) ([]domain.Message, error) {
	if page < 1 {
		page = 1
	}

	r.mu.RLock()
	var all []domain.Message
	for _, b := range r.buckets {
		if b.RoomID == roomID {
			all = append(all, b.Messages...)
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(all, func(a, b domain.Message) int {
		c := a.CreatedAt.Compare(b.CreatedAt)
		if c == 0 {
			c = strings.Compare(a.ID, b.ID)
		}
		if order == domain.OrderAsc {
			return c
		}
		return -c
	})

	start := (page - 1) * size
	if start >= len(all) {
		return []domain.Message{}, nil
	}
	end := min(start+size, len(all))
	return all[start:end], nil
}

// MemoryPubSub in-process PubSub
type MemoryPubSub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]func(domain.Message)
}

// NewMemoryPubSub create MemoryPubSub
func NewMemoryPubSub() *MemoryPubSub {
	return &MemoryPubSub{subs: make(map[string]map[int]func(domain.Message))}
}

// Publish deliver message to every current subscriber of channel
func (p *MemoryPubSub) Publish(ctx context.Context, channel string, message domain.Message) error {
	p.mu.RLock()
	handlers := make([]func(domain.Message), 0, len(p.subs[channel]))
	for _, h := range p.subs[channel] {
		handlers = append(handlers, h)
	}
	p.mu.RUnlock()

	for _, h := range handlers {
		h(message)
	}
	return nil
}

// Subscribe register handler until ctx is done
func (p *MemoryPubSub) Subscribe(ctx context.Context, channel string, handler func(domain.Message)) error {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	if p.subs[channel] == nil {
		p.subs[channel] = make(map[int]func(domain.Message))
	}
	p.subs[channel][id] = handler
	p.mu.Unlock()

	go func() {
		<-ctx.Done()
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subs[channel], id)
		if len(p.subs[channel]) == 0 {
			delete(p.subs, channel)
		}
	}()
	return nil
}
