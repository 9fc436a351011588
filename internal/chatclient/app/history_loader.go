package app

import (
	"context"
	"sync"
	"time"

	"club_chat_service/internal/chat/domain"
	"club_chat_service/internal/chatclient/repository"
	"club_chat_service/pkg/config"
	"club_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// HistoryLoader pulls older pages of one channel into the working set
type HistoryLoader struct {
	repo     repository.HistoryRepository
	set      *WorkingSet
	loc      *time.Location
	pageSize int

	mu           sync.Mutex
	channelID    string
	page         int // last page merged, 0 before the first success
	endOfHistory bool
	inFlight     bool
	generation   uint64
}

// NewHistoryLoader create HistoryLoader; pageSize <= 0 uses the service default
func NewHistoryLoader(repo repository.HistoryRepository, set *WorkingSet, pageSize int, loc *time.Location) *HistoryLoader {
	if pageSize <= 0 {
		pageSize = config.DefaultPageSize
	}
	if loc == nil {
		loc = time.UTC
	}
	return &HistoryLoader{repo: repo, set: set, loc: loc, pageSize: pageSize}
}

// LoadInitialPage reset paging for channelID and merge its newest page.
// Fetch errors are logged and returned; the working set is left as is.
func (l *HistoryLoader) LoadInitialPage(ctx context.Context, channelID string) error {
	if channelID == "" {
		return nil
	}

	l.mu.Lock()
	l.generation++
	gen := l.generation
	l.channelID = channelID
	l.page = 0
	l.endOfHistory = false
	l.inFlight = true
	l.mu.Unlock()

	return l.fetch(ctx, gen, channelID, 1)
}

// LoadNextPage merge the next older page of channelID. No-op while a load
// is in flight, after the end of history, or for a channel other than the
// one LoadInitialPage opened.
func (l *HistoryLoader) LoadNextPage(ctx context.Context, channelID string) error {
	l.mu.Lock()
	if channelID == "" || channelID != l.channelID || l.inFlight || l.endOfHistory {
		l.mu.Unlock()
		return nil
	}
	l.inFlight = true
	gen := l.generation
	next := l.page + 1
	l.mu.Unlock()

	return l.fetch(ctx, gen, channelID, next)
}

func (l *HistoryLoader) fetch(ctx context.Context, gen uint64, channelID string, page int) error {
	msgs, err := l.repo.FetchPage(ctx, channelID, page)

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.generation {
		logger.Log.Debug("stale history page dropped",
			zap.String("chat_id", channelID), zap.Int("page", page))
		return nil
	}
	l.inFlight = false

	if err != nil {
		logger.Log.Errorf("load history page error:", err,
			zap.String("chat_id", channelID), zap.Int("page", page))
		return err
	}

	for i := range msgs {
		msgs[i].CreatedAt = msgs[i].CreatedAt.In(l.loc)
		msgs[i].Status = domain.StatusSent
		if msgs[i].ChannelID == "" {
			msgs[i].ChannelID = channelID
		}
	}
	l.set.AppendIfNew(msgs)
	l.page = page
	if len(msgs) < l.pageSize {
		l.endOfHistory = true
	}
	return nil
}

// Reset forget the open channel; results still in flight are discarded
func (l *HistoryLoader) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.generation++
	l.channelID = ""
	l.page = 0
	l.endOfHistory = false
	l.inFlight = false
}

// EndOfHistory true once a short or empty page arrived
func (l *HistoryLoader) EndOfHistory() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.endOfHistory
}

// Page last page merged
func (l *HistoryLoader) Page() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.page
}

// Loading true while a page request is outstanding
func (l *HistoryLoader) Loading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inFlight
}
