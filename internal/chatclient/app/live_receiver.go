package app

import (
	"context"
	"strings"
	"sync"
	"time"

	"club_chat_service/internal/chat/domain"
	"club_chat_service/internal/chatclient/repository"
	"club_chat_service/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LiveReceiver merges pushed messages and optimistic echoes into the working set
type LiveReceiver struct {
	repo   repository.LiveRepository
	set    *WorkingSet
	loc    *time.Location
	userID string

	now            func() time.Time
	newClientMsgID func() string

	mu        sync.Mutex
	channelID string
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewLiveReceiver create LiveReceiver for userID; rejected sends mark their echo failed
func NewLiveReceiver(repo repository.LiveRepository, set *WorkingSet, userID string, loc *time.Location) *LiveReceiver {
	if loc == nil {
		loc = time.UTC
	}
	r := &LiveReceiver{
		repo:           repo,
		set:            set,
		loc:            loc,
		userID:         userID,
		now:            time.Now,
		newClientMsgID: func() string { return uuid.New().String() },
	}
	repo.OnSendError(r.sendFailed)
	return r
}

// Subscribe start receiving channelID, cancelling any previous subscription first
func (r *LiveReceiver) Subscribe(ctx context.Context, channelID string) error {
	r.Unsubscribe()
	if channelID == "" {
		return nil
	}

	subCtx, cancel := context.WithCancel(ctx)
	ch, err := r.repo.Subscribe(subCtx, channelID)
	if err != nil {
		cancel()
		logger.Log.Errorf("subscribe error:", err, zap.String("chat_id", channelID))
		return err
	}

	done := make(chan struct{})
	r.mu.Lock()
	r.channelID = channelID
	r.cancel = cancel
	r.done = done
	r.mu.Unlock()

	go r.consume(subCtx, channelID, ch, done)
	return nil
}

// Unsubscribe stop the current subscription and wait for its consumer to exit
func (r *LiveReceiver) Unsubscribe() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.channelID = ""
	r.cancel = nil
	r.done = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (r *LiveReceiver) consume(ctx context.Context, channelID string, ch <-chan domain.Message, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			r.receive(channelID, m)
		}
	}
}

func (r *LiveReceiver) receive(channelID string, m domain.Message) {
	r.mu.Lock()
	current := r.channelID
	r.mu.Unlock()

	if current != channelID || (m.ChannelID != "" && m.ChannelID != channelID) {
		logger.Log.Debug("stale delivery dropped",
			zap.String("chat_id", m.ChannelID), zap.String("subscribed", current))
		return
	}

	m.ChannelID = channelID
	m.CreatedAt = m.CreatedAt.In(r.loc)
	m.Status = domain.StatusSent
	r.set.Prepend(m)
}

// SendMessage show text at once as a pending echo and emit it.
// Blank text is ignored and returns nil.
func (r *LiveReceiver) SendMessage(ctx context.Context, channelID, text string) (*domain.Message, error) {
	if strings.TrimSpace(text) == "" || channelID == "" {
		return nil, nil
	}

	echo := domain.Message{
		Text:        text,
		CreatedAt:   r.now().In(r.loc),
		Author:      domain.Author{ID: r.userID},
		ChannelID:   channelID,
		ClientMsgID: r.newClientMsgID(),
		Status:      domain.StatusPending,
	}
	r.set.Prepend(echo)

	err := r.repo.Emit(ctx, domain.WSRequest{
		Action:      string(domain.SendMessage),
		ChatID:      channelID,
		Message:     text,
		ClientMsgID: echo.ClientMsgID,
	})
	if err != nil {
		r.sendFailed(echo.ClientMsgID, err)
		echo.Status = domain.StatusFailed
		return &echo, err
	}
	return &echo, nil
}

func (r *LiveReceiver) sendFailed(clientMsgID string, err error) {
	logger.Log.Errorf("send message error:", err, zap.String("client_msg_id", clientMsgID))
	r.set.MarkFailed(clientMsgID)
}
