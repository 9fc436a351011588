package app

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"club_chat_service/internal/chat/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeSections_Scenario(t *testing.T) {
	messages := []domain.Message{
		msg("1", "a", time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)),
		msg("2", "b", time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)),
		msg("3", "c", time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC)),
	}

	sections := MakeSections(messages, time.UTC)

	require.Len(t, sections, 2)
	assert.Equal(t, "2024-01-01", sections[0].DateKey)
	assert.Equal(t, []string{"1", "3"}, idsOf(sections[0].Messages))
	assert.Equal(t, "2024-01-02", sections[1].DateKey)
	assert.Equal(t, []string{"2"}, idsOf(sections[1].Messages))
}

func TestMakeSections_Location(t *testing.T) {
	seoul := time.FixedZone("KST", 9*60*60)

	// 2024-01-01T20:00Z is already the 2nd in Seoul
	messages := []domain.Message{
		msg("1", "a", time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)),
		msg("2", "b", time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC)),
	}

	utc := MakeSections(messages, nil)
	require.Len(t, utc, 1)

	local := MakeSections(messages, seoul)
	require.Len(t, local, 2)
	assert.Equal(t, "2024-01-01", local[0].DateKey)
	assert.Equal(t, "2024-01-02", local[1].DateKey)
}

func TestMakeSections_EqualTimestampsOldestInsertedFirst(t *testing.T) {
	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	// newest first: c was inserted last
	input := []domain.Message{msg("c", "", at), msg("b", "", at), msg("x", "", at.Add(-time.Minute)), msg("a", "", at)}
	sections := MakeSections(input, time.UTC)
	require.Len(t, sections, 1)
	assert.Equal(t, []string{"x", "a", "b", "c"}, idsOf(sections[0].Messages))
	assert.Equal(t, []string{"c", "b", "x", "a"}, idsOf(input))
}

func TestMakeSections_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	loc := time.FixedZone("UTC-6", -6*60*60)

	for round := 0; round < 50; round++ {
		n := r.Intn(40)
		messages := make([]domain.Message, 0, n)
		for i := 0; i < n; i++ {
			at := base.Add(time.Duration(r.Int63n(int64(5 * 24 * time.Hour))))
			messages = append(messages, msg(fmt.Sprintf("%d-%d", round, i), "", at))
		}

		sections := MakeSections(messages, loc)

		seen := make(map[string]int)
		for si, s := range sections {
			if si > 0 {
				assert.Less(t, sections[si-1].DateKey, s.DateKey)
			}
			for i, m := range s.Messages {
				seen[m.ID]++
				assert.Equal(t, s.DateKey, m.CreatedAt.In(loc).Format(domain.DateLayout))
				if i > 0 {
					assert.False(t, m.CreatedAt.Before(s.Messages[i-1].CreatedAt))
				}
			}
		}
		assert.Len(t, seen, n)
		for id, count := range seen {
			assert.Equal(t, 1, count, id)
		}
	}
}

func TestMakeSections_Empty(t *testing.T) {
	assert.Empty(t, MakeSections(nil, time.UTC))
}
