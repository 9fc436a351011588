package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"club_chat_service/internal/chat/domain"
	"club_chat_service/pkg/logger"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	subscriptionBuffer = 64
	writeWait          = 10 * time.Second
)

type subscription struct {
	ctx context.Context
	ch  chan domain.Message

	mu     sync.Mutex
	closed bool
}

// deliver blocks until the consumer takes m or the subscription is cancelled
func (s *subscription) deliver(m domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- m:
	case <-s.ctx.Done():
	}
}

func (s *subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// WebsocketLiveRepository LiveRepository over one gorilla websocket connection.
// A single read pump dispatches pushes; writes share writeMu.
type WebsocketLiveRepository struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	mu           sync.Mutex
	subs         map[string]*subscription
	pendingJoins map[string]chan error
	onSendError  func(clientMsgID string, err error)

	done      chan struct{}
	closeOnce sync.Once
}

// DialWebsocketLiveRepository connect to {wsURL}/ws?auth=token and start the read pump
func DialWebsocketLiveRepository(ctx context.Context, wsURL, token string) (*WebsocketLiveRepository, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("parse websocket url: %w", err)
	}
	if !strings.HasSuffix(u.Path, "/ws") {
		u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	}
	q := u.Query()
	q.Set("auth", token)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.Redacted(), err)
	}

	r := &WebsocketLiveRepository{
		conn:         conn,
		subs:         make(map[string]*subscription),
		pendingJoins: make(map[string]chan error),
		done:         make(chan struct{}),
	}
	conn.SetPingHandler(func(appData string) error {
		r.writeMu.Lock()
		defer r.writeMu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
	})

	go r.readPump()
	return r, nil
}

// OnSendError register the handler for rejected send_message acks
func (r *WebsocketLiveRepository) OnSendError(handler func(clientMsgID string, err error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onSendError = handler
}

// Subscribe join channelID and wait for the service to accept it.
// A second Subscribe on the same channel replaces the first.
func (r *WebsocketLiveRepository) Subscribe(ctx context.Context, channelID string) (<-chan domain.Message, error) {
	joined := make(chan error, 1)
	sub := &subscription{ctx: ctx, ch: make(chan domain.Message, subscriptionBuffer)}

	r.mu.Lock()
	old := r.subs[channelID]
	r.subs[channelID] = sub
	r.pendingJoins[channelID] = joined
	r.mu.Unlock()
	if old != nil {
		old.close()
	}

	if err := r.Emit(ctx, domain.WSRequest{Action: string(domain.JoinChannel), ChatID: channelID}); err != nil {
		r.unsubscribe(channelID, sub)
		return nil, err
	}

	select {
	case err := <-joined:
		if err != nil {
			r.unsubscribe(channelID, sub)
			return nil, err
		}
	case <-ctx.Done():
		r.unsubscribe(channelID, sub)
		return nil, ctx.Err()
	case <-r.done:
		return nil, ErrConnectionClosed
	}

	go func() {
		select {
		case <-ctx.Done():
		case <-r.done:
			return
		}
		r.leave(channelID, sub)
	}()
	return sub.ch, nil
}

// unsubscribe drop sub if it is still the current one for channelID
func (r *WebsocketLiveRepository) unsubscribe(channelID string, sub *subscription) {
	r.mu.Lock()
	if r.subs[channelID] == sub {
		delete(r.subs, channelID)
		delete(r.pendingJoins, channelID)
	}
	r.mu.Unlock()
	sub.close()
}

// leave drop sub and tell the service. The service keeps one joined channel per
// connection and a join replaces it, so no frame is sent while another channel is
// subscribed. The frame is written under mu, so a Subscribe that registers later
// writes its join after it.
func (r *WebsocketLiveRepository) leave(channelID string, sub *subscription) {
	r.mu.Lock()
	if r.subs[channelID] == sub {
		delete(r.subs, channelID)
		delete(r.pendingJoins, channelID)
		if len(r.subs) == 0 {
			if err := r.Emit(context.Background(), domain.WSRequest{Action: string(domain.LeaveChannel), ChatID: channelID}); err != nil {
				logger.Log.Debug("leave channel not sent", zap.String("chat_id", channelID), zap.Error(err))
			}
		}
	}
	r.mu.Unlock()
	sub.close()
}

// Emit write req as one text frame
func (r *WebsocketLiveRepository) Emit(ctx context.Context, req domain.WSRequest) error {
	select {
	case <-r.done:
		return ErrConnectionClosed
	default:
	}

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	if err := r.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	if err := r.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("emit %s: %w", req.Action, err)
	}
	return nil
}

// Close send a close frame and stop the read pump
func (r *WebsocketLiveRepository) Close() error {
	r.writeMu.Lock()
	err := r.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	r.writeMu.Unlock()
	r.shutdown()
	if errors.Is(err, websocket.ErrCloseSent) {
		return nil
	}
	return err
}

func (r *WebsocketLiveRepository) shutdown() {
	r.closeOnce.Do(func() {
		close(r.done)
		r.conn.Close()

		r.mu.Lock()
		subs := r.subs
		r.subs = make(map[string]*subscription)
		r.pendingJoins = make(map[string]chan error)
		r.mu.Unlock()

		for _, sub := range subs {
			sub.close()
		}
	})
}

func (r *WebsocketLiveRepository) readPump() {
	defer r.shutdown()
	for {
		_, data, err := r.conn.ReadMessage()
		if err != nil {
			select {
			case <-r.done:
			default:
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Log.Errorf("websocket read error:", err)
				} else {
					logger.Log.Info("websocket closed", zap.Error(err))
				}
			}
			return
		}

		var resp domain.WSResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			logger.Log.Warn("malformed push skipped", zap.Error(err))
			continue
		}
		r.dispatch(resp)
	}
}

func (r *WebsocketLiveRepository) dispatch(resp domain.WSResponse) {
	switch domain.Action(resp.Action) {
	case domain.ReceiveMessage:
		if resp.Message == nil {
			logger.Log.Warn("receive_message without message", zap.String("chat_id", resp.ChatID))
			return
		}
		chatID := resp.Message.ChannelID
		if chatID == "" {
			chatID = resp.ChatID
			resp.Message.ChannelID = chatID
		}
		r.mu.Lock()
		sub := r.subs[chatID]
		r.mu.Unlock()
		if sub == nil {
			logger.Log.Debug("push for unsubscribed channel dropped", zap.String("chat_id", chatID))
			return
		}
		sub.deliver(*resp.Message)

	case domain.JoinChannel:
		r.mu.Lock()
		joined, ok := r.pendingJoins[resp.ChatID]
		delete(r.pendingJoins, resp.ChatID)
		r.mu.Unlock()
		if !ok {
			return
		}
		if resp.Success {
			joined <- nil
		} else {
			joined <- fmt.Errorf("join %s: %s", resp.ChatID, resp.Error)
		}

	case domain.SendMessage:
		if resp.Success {
			return
		}
		r.mu.Lock()
		handler := r.onSendError
		r.mu.Unlock()
		if handler != nil {
			handler(resp.ClientMsgID, errors.New(resp.Error))
		}

	case domain.ErrorAction:
		logger.Log.Warn("service error", zap.String("err", resp.Error))
	}
}
