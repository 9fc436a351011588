package app

import (
	"context"
	"sync"
	"time"

	"club_chat_service/internal/chat/domain"
	"club_chat_service/internal/chatclient/repository"
)

// SessionConfig per user client settings
type SessionConfig struct {
	UserID   string
	PageSize int
	Location *time.Location
}

// Session one user's view of one channel at a time
type Session struct {
	set      *WorkingSet
	loader   *HistoryLoader
	receiver *LiveReceiver
	loc      *time.Location

	mu        sync.Mutex
	channelID string
}

// NewSession wire loader, receiver and working set over the given transports
func NewSession(history repository.HistoryRepository, live repository.LiveRepository, cfg SessionConfig) *Session {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	set := NewWorkingSet()
	return &Session{
		set:      set,
		loader:   NewHistoryLoader(history, set, cfg.PageSize, loc),
		receiver: NewLiveReceiver(live, set, cfg.UserID, loc),
		loc:      loc,
	}
}

// Open switch to channelID: clear the working set, subscribe, then load the newest page.
// Subscribing first means nothing stored after the page fetch is missed; overlap is dropped by id.
// A failed first page is logged and left for OnScrollToTop to retry.
func (s *Session) Open(ctx context.Context, channelID string) error {
	s.receiver.Unsubscribe()
	s.loader.Reset()
	s.set.Reset()

	s.mu.Lock()
	s.channelID = channelID
	s.mu.Unlock()

	if channelID == "" {
		return nil
	}
	err := s.receiver.Subscribe(ctx, channelID)
	_ = s.loader.LoadInitialPage(ctx, channelID)
	return err
}

// ChannelID channel currently open
func (s *Session) ChannelID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channelID
}

// OnScrollToTop request the next older page
func (s *Session) OnScrollToTop(ctx context.Context) error {
	return s.loader.LoadNextPage(ctx, s.ChannelID())
}

// OnSubmit send text to the open channel
func (s *Session) OnSubmit(ctx context.Context, text string) (*domain.Message, error) {
	return s.receiver.SendMessage(ctx, s.ChannelID(), text)
}

// Sections date sections of the working set in the display location
func (s *Session) Sections() []domain.DateSection {
	return MakeSections(s.set.Snapshot(), s.loc)
}

// Messages working set snapshot, newest first
func (s *Session) Messages() []domain.Message {
	return s.set.Snapshot()
}

// EndOfHistory no older page left to load
func (s *Session) EndOfHistory() bool {
	return s.loader.EndOfHistory()
}

// Changes fires after every working set change; bursts coalesce
func (s *Session) Changes() <-chan struct{} {
	return s.set.Changes()
}

// Close stop the subscription; later page results are discarded
func (s *Session) Close() {
	s.receiver.Unsubscribe()
	s.loader.Reset()
	s.mu.Lock()
	s.channelID = ""
	s.mu.Unlock()
}
