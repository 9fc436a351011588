package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"club_chat_service/internal/chat/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedMessages(t *testing.T, repo MessageRepository, roomID string, n int, start time.Time) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, repo.InsertMessage(context.Background(), roomID, domain.Message{
			ID:        fmt.Sprintf("m%02d", i),
			Text:      fmt.Sprintf("text %d", i),
			CreatedAt: start.Add(time.Duration(i) * time.Hour),
			ChannelID: roomID,
		}))
	}
}

func TestMemoryMessageRepository_FindPage(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryMessageRepository()
	start := time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC)
	seedMessages(t, repo, "room", 5, start) // spans two UTC days
	seedMessages(t, repo, "other", 2, start)

	page1, err := repo.FindPage(ctx, "room", 1, 2, domain.OrderDesc)
	require.NoError(t, err)
	assert.Equal(t, []string{"m04", "m03"}, ids(page1))

	page3, err := repo.FindPage(ctx, "room", 3, 2, domain.OrderDesc)
	require.NoError(t, err)
	assert.Equal(t, []string{"m00"}, ids(page3))

	page4, err := repo.FindPage(ctx, "room", 4, 2, domain.OrderDesc)
	require.NoError(t, err)
	assert.Empty(t, page4)

	asc, err := repo.FindPage(ctx, "room", 1, 2, domain.OrderAsc)
	require.NoError(t, err)
	assert.Equal(t, []string{"m00", "m01"}, ids(asc))

	b, err := repo.FindBucket(ctx, "room", "2024-01-02")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Len(t, b.Messages, 1)
}

func TestMemoryPubSub(t *testing.T) {
	ps := NewMemoryPubSub()
	ctx, cancel := context.WithCancel(context.Background())

	got := make(chan domain.Message, 1)
	require.NoError(t, ps.Subscribe(ctx, "chat:room:a", func(m domain.Message) { got <- m }))
	require.NoError(t, ps.Publish(context.Background(), "chat:room:a", domain.Message{ID: "x"}))
	assert.Equal(t, "x", (<-got).ID)

	cancel()
	assert.Eventually(t, func() bool {
		ps.mu.RLock()
		defer ps.mu.RUnlock()
		return len(ps.subs) == 0
	}, time.Second, 10*time.Millisecond)
}

func ids(msgs []domain.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ID)
	}
	return out
}
