package app

import (
	"slices"
	"time"

	"club_chat_service/internal/chat/domain"
)

// MakeSections group messages by calendar date in loc (UTC when nil).
// Sections and the messages inside each one are oldest first. Input is
// newest first, so messages with equal timestamps come out in reverse input
// order, the one inserted first leading.
func MakeSections(messages []domain.Message, loc *time.Location) []domain.DateSection {
	if loc == nil {
		loc = time.UTC
	}

	groups := make(map[string][]domain.Message)
	keys := make([]string, 0)
	for _, m := range messages {
		key := m.CreatedAt.In(loc).Format(domain.DateLayout)
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], m)
	}
	slices.Sort(keys)

	sections := make([]domain.DateSection, 0, len(keys))
	for _, key := range keys {
		group := groups[key]
		slices.Reverse(group)
		slices.SortStableFunc(group, func(a, b domain.Message) int {
			return a.CreatedAt.Compare(b.CreatedAt)
		})
		sections = append(sections, domain.DateSection{DateKey: key, Messages: group})
	}
	return sections
}
