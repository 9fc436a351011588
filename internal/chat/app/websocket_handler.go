package app

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"club_chat_service/internal/chat/domain"
	"club_chat_service/internal/chat/repository"
	errprocess "club_chat_service/pkg/err"
	"club_chat_service/pkg/logger"
	"club_chat_service/pkg/middlewares"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// ChatWebsocketHandler websocket entry of the chat service
type ChatWebsocketHandler struct {
	historyUC    *HistoryUseCase
	messageUC    *SendMessageUseCase
	pubSub       repository.PubSub
	pingInterval time.Duration
}

// NewChatWebsocketHandler create ChatWebsocketHandler
func NewChatWebsocketHandler(
	historyUC *HistoryUseCase,
	messageUC *SendMessageUseCase,
	pubSub repository.PubSub,
	pingInterval time.Duration,
) *ChatWebsocketHandler {
	return &ChatWebsocketHandler{
		historyUC:    historyUC,
		messageUC:    messageUC,
		pubSub:       pubSub,
		pingInterval: pingInterval,
	}
}

// wsSession per connection state; writes from the read loop, the ping loop
// and pub/sub deliveries share mu
type wsSession struct {
	conn   *websocket.Conn
	author domain.Author

	mu        sync.Mutex
	channelID string
	leaveRoom context.CancelFunc
}

func (s *wsSession) send(resp domain.WSResponse) {
	b, err := json.Marshal(resp)
	if err != nil {
		logger.Log.Errorf("marshal response error:", err)
		return
	}
	s.write(websocket.TextMessage, b)
}

func (s *wsSession) write(messageType int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.WriteMessage(messageType, data); err != nil {
		logger.Log.Errorf("write message error:", err, zap.String("member_id", s.author.ID))
		return err
	}
	return nil
}

func (s *wsSession) join(channelID string, cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.leaveRoom != nil {
		s.leaveRoom()
	}
	s.channelID = channelID
	s.leaveRoom = cancel
}

// leave drop the joined channel when it is channelID; empty channelID leaves whatever is joined.
// A leave for a channel already replaced by a later join is a no-op.
func (s *wsSession) leave(channelID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if channelID != "" && channelID != s.channelID {
		return ""
	}
	left := s.channelID
	if s.leaveRoom != nil {
		s.leaveRoom()
	}
	s.channelID = ""
	s.leaveRoom = nil
	return left
}

// HandleConnection websocket connection entry, returns when the peer goes away
func (h *ChatWebsocketHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	memberID, _ := conn.Locals(middlewares.TokenMemberID).(string)
	memberName, _ := conn.Locals(middlewares.TokenMemberName).(string)
	logger.Log.Info("websocket open", zap.String("member_id", memberID))

	s := &wsSession{conn: conn, author: domain.Author{ID: memberID, Name: memberName}}
	ctxClose, cancel := context.WithCancel(ctx)
	ticker := time.NewTicker(h.pingInterval)

	defer func() {
		ticker.Stop()
		s.leave("")
		cancel()
		conn.Close()
		logger.Log.Info("websocket close", zap.String("member_id", memberID))
	}()

	// fiber answers pings itself; the handlers only surface them
	conn.SetPongHandler(func(appData string) error {
		logger.Log.Debug("received pong", zap.String("member_id", memberID))
		return nil
	})
	conn.SetPingHandler(func(appData string) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(time.Second))
	})

	go func() {
		for {
			select {
			case <-ticker.C:
				if err := s.write(websocket.PingMessage, []byte("ping")); err != nil {
					return
				}
			case <-ctxClose.Done():
				return
			}
		}
	}()

	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Log.Info("connection closed", zap.String("member_id", memberID))
			} else {
				logger.Log.Errorf("websocket read error:", err, zap.String("member_id", memberID))
			}
			return
		}

		if mt != websocket.TextMessage {
			h.sendError(s, "unsupported message type")
			continue
		}
		h.textMessageAction(ctxClose, s, message)
	}
}

func (h *ChatWebsocketHandler) textMessageAction(ctx context.Context, s *wsSession, msg []byte) {
	var req domain.WSRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		h.sendError(s, "malformed request")
		return
	}

	resp := domain.WSResponse{Action: req.Action, ChatID: req.ChatID}
	switch domain.Action(req.Action) {
	case domain.JoinChannel:
		if err := h.historyUC.Authorize(ctx, req.ChatID, s.author.ID); err != nil {
			resp.Error = err.Error()
			break
		}
		roomCtx, leave := context.WithCancel(ctx)
		err := h.pubSub.Subscribe(roomCtx, domain.RoomKey(req.ChatID), func(m domain.Message) {
			s.send(domain.WSResponse{
				Action:  string(domain.ReceiveMessage),
				Success: true,
				ChatID:  m.ChannelID,
				Message: &m,
			})
		})
		if err != nil {
			leave()
			resp.Error = err.Error()
			break
		}
		s.join(req.ChatID, leave)
		resp.Success = true

	case domain.LeaveChannel:
		s.leave(req.ChatID)
		resp.Success = true

	case domain.SendMessage:
		resp.ClientMsgID = req.ClientMsgID
		stored, err := h.messageUC.Execute(ctx, req.ChatID, s.author, req.Message, req.ClientMsgID)
		if err != nil {
			resp.Error = err.Error()
			break
		}
		resp.Success = true
		resp.Message = stored

	default:
		h.sendError(s, errprocess.Set("unknown action: "+req.Action).Error())
		return
	}

	if resp.Error != "" {
		logger.Log.Error("websocket err",
			zap.String("member_id", s.author.ID),
			zap.String("action", req.Action),
			zap.String("err", resp.Error),
		)
	}
	s.send(resp)
}

func (h *ChatWebsocketHandler) sendError(s *wsSession, errorMsg string) {
	s.send(domain.WSResponse{
		Action:  string(domain.ErrorAction),
		Success: false,
		Error:   errorMsg,
	})
}
