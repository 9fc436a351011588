package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"club_chat_service/internal/chat/domain"
	"club_chat_service/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHistory serves a channel's messages newest first in pages of size
type fakeHistory struct {
	mu       sync.Mutex
	size     int
	channels map[string][]domain.Message
	calls    []string
	fail     error
}

func newFakeHistory(size int) *fakeHistory {
	return &fakeHistory{size: size, channels: make(map[string][]domain.Message)}
}

func (f *fakeHistory) FetchPage(ctx context.Context, channelID string, page int) ([]domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("%s#%d", channelID, page))
	if f.fail != nil {
		return nil, f.fail
	}
	all := f.channels[channelID]
	start := (page - 1) * f.size
	if start >= len(all) {
		return []domain.Message{}, nil
	}
	end := min(start+f.size, len(all))
	out := make([]domain.Message, end-start)
	copy(out, all[start:end])
	return out, nil
}

func (f *fakeHistory) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// postingHistory runs afterFetch once a page has been read, like a member posting mid-fetch
type postingHistory struct {
	*fakeHistory
	afterFetch func()
}

func (p *postingHistory) FetchPage(ctx context.Context, channelID string, page int) ([]domain.Message, error) {
	msgs, err := p.fakeHistory.FetchPage(ctx, channelID, page)
	if p.afterFetch != nil {
		p.afterFetch()
	}
	return msgs, err
}

// fakeLive loops send_message back as a confirmed push unless reject is set
type fakeLive struct {
	mu          sync.Mutex
	subs        map[string]chan domain.Message
	onSendError func(string, error)
	reject      error
	nextID      int
	now         time.Time
}

func newFakeLive(now time.Time) *fakeLive {
	return &fakeLive{subs: make(map[string]chan domain.Message), now: now}
}

func (f *fakeLive) Subscribe(ctx context.Context, channelID string) (<-chan domain.Message, error) {
	ch := make(chan domain.Message, 16)
	f.mu.Lock()
	f.subs[channelID] = ch
	f.mu.Unlock()
	go func() {
		<-ctx.Done()
		f.mu.Lock()
		if f.subs[channelID] == ch {
			delete(f.subs, channelID)
		}
		f.mu.Unlock()
	}()
	return ch, nil
}

func (f *fakeLive) Emit(ctx context.Context, req domain.WSRequest) error {
	f.mu.Lock()
	reject, handler := f.reject, f.onSendError
	f.nextID++
	id := fmt.Sprintf("srv-%d", f.nextID)
	f.mu.Unlock()

	if reject != nil {
		go handler(req.ClientMsgID, reject)
		return nil
	}
	f.push(domain.Message{
		ID: id, Text: req.Message, CreatedAt: f.now,
		Author: domain.Author{ID: "me"}, ChannelID: req.ChatID, ClientMsgID: req.ClientMsgID,
	})
	return nil
}

func (f *fakeLive) push(m domain.Message) {
	f.mu.Lock()
	ch := f.subs[m.ChannelID]
	f.mu.Unlock()
	if ch != nil {
		ch <- m
	}
}

func (f *fakeLive) OnSendError(handler func(string, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onSendError = handler
}

func (f *fakeLive) Close() error { return nil }

func seedChannel(h *fakeHistory, channelID string, n int, newest time.Time) {
	msgs := make([]domain.Message, 0, n)
	for i := 0; i < n; i++ {
		msgs = append(msgs, domain.Message{
			ID:        fmt.Sprintf("%s-%d", channelID, i),
			Text:      fmt.Sprintf("message %d", i),
			CreatedAt: newest.Add(-time.Duration(i) * 6 * time.Hour),
			Author:    domain.Author{ID: "someone"},
			ChannelID: channelID,
		})
	}
	h.channels[channelID] = msgs
}

func TestSession(t *testing.T) {
	logger.SetNewNop()
	ctx := context.Background()
	newest := time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)

	t.Run("open, scroll to the end, send", func(t *testing.T) {
		history := newFakeHistory(4)
		seedChannel(history, "team-1", 10, newest)
		live := newFakeLive(newest.Add(time.Minute))

		s := NewSession(history, live, SessionConfig{UserID: "me", PageSize: 4})
		defer s.Close()
		require.NoError(t, s.Open(ctx, "team-1"))
		assert.Len(t, s.Messages(), 4)

		require.NoError(t, s.OnScrollToTop(ctx))
		require.NoError(t, s.OnScrollToTop(ctx))
		assert.True(t, s.EndOfHistory())
		require.NoError(t, s.OnScrollToTop(ctx))
		assert.Equal(t, 3, history.callCount())
		assert.Len(t, s.Messages(), 10)

		_, err := s.OnSubmit(ctx, "hello")
		require.NoError(t, err)
		assert.Eventually(t, func() bool {
			m := s.Messages()
			return len(m) == 11 && m[0].ID != "" && m[0].Status == domain.StatusSent
		}, time.Second, 5*time.Millisecond)

		sections := s.Sections()
		total := 0
		for i, sec := range sections {
			if i > 0 {
				assert.Less(t, sections[i-1].DateKey, sec.DateKey)
			}
			total += len(sec.Messages)
		}
		assert.Equal(t, 11, total)
		last := sections[len(sections)-1]
		assert.Equal(t, "hello", last.Messages[len(last.Messages)-1].Text)
	})

	t.Run("rejected send stays visible as failed", func(t *testing.T) {
		history := newFakeHistory(4)
		live := newFakeLive(newest)
		live.reject = errors.New("not a channel member")

		s := NewSession(history, live, SessionConfig{UserID: "me", PageSize: 4})
		defer s.Close()
		require.NoError(t, s.Open(ctx, "team-1"))

		_, err := s.OnSubmit(ctx, "hello")
		require.NoError(t, err)
		assert.Eventually(t, func() bool {
			m := s.Messages()
			return len(m) == 1 && m[0].Status == domain.StatusFailed
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("switching channel resets the working set", func(t *testing.T) {
		history := newFakeHistory(4)
		seedChannel(history, "team-1", 2, newest)
		seedChannel(history, "team-2", 1, newest)
		live := newFakeLive(newest)

		s := NewSession(history, live, SessionConfig{UserID: "me", PageSize: 4})
		defer s.Close()
		require.NoError(t, s.Open(ctx, "team-1"))
		require.NoError(t, s.Open(ctx, "team-2"))

		assert.Equal(t, []string{"team-2-0"}, idsOf(s.Messages()))
		live.push(domain.Message{ID: "late", ChannelID: "team-1", CreatedAt: newest})
		time.Sleep(20 * time.Millisecond)
		assert.Equal(t, []string{"team-2-0"}, idsOf(s.Messages()))
	})

	t.Run("message posted while the first page loads is kept", func(t *testing.T) {
		inner := newFakeHistory(4)
		seedChannel(inner, "team-1", 2, newest)
		live := newFakeLive(newest)
		history := &postingHistory{fakeHistory: inner, afterFetch: func() {
			live.push(domain.Message{ID: "fresh", Text: "just now", ChannelID: "team-1", CreatedAt: newest.Add(time.Minute)})
			live.push(domain.Message{ID: "team-1-0", Text: "message 0", ChannelID: "team-1", CreatedAt: newest})
		}}

		s := NewSession(history, live, SessionConfig{UserID: "me", PageSize: 4})
		defer s.Close()
		require.NoError(t, s.Open(ctx, "team-1"))

		assert.Eventually(t, func() bool {
			return len(s.Messages()) == 3
		}, time.Second, 5*time.Millisecond)
		assert.ElementsMatch(t, []string{"fresh", "team-1-0", "team-1-1"}, idsOf(s.Messages()))
	})

	t.Run("failed first page is retried by scrolling", func(t *testing.T) {
		history := newFakeHistory(4)
		seedChannel(history, "team-1", 2, newest)
		history.fail = errors.New("offline")
		live := newFakeLive(newest)

		s := NewSession(history, live, SessionConfig{UserID: "me", PageSize: 4})
		defer s.Close()
		require.NoError(t, s.Open(ctx, "team-1"))
		assert.Empty(t, s.Messages())

		history.mu.Lock()
		history.fail = nil
		history.mu.Unlock()
		require.NoError(t, s.OnScrollToTop(ctx))
		assert.Len(t, s.Messages(), 2)
		assert.Equal(t, []string{"team-1#1", "team-1#1"}, history.calls)
	})

	t.Run("empty channel id does nothing", func(t *testing.T) {
		history := newFakeHistory(4)
		s := NewSession(history, newFakeLive(newest), SessionConfig{UserID: "me"})
		require.NoError(t, s.Open(ctx, ""))
		require.NoError(t, s.OnScrollToTop(ctx))
		_, err := s.OnSubmit(ctx, "hello")
		require.NoError(t, err)
		assert.Equal(t, 0, history.callCount())
		assert.Empty(t, s.Messages())
	})
}
