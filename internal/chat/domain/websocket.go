package domain

// Action websocket request/push action
type Action string

const (
	// JoinChannel subscribe this connection to a channel
	JoinChannel Action = "join_channel"
	// LeaveChannel drop the channel subscription
	LeaveChannel Action = "leave_channel"
	// SendMessage post a message
	SendMessage Action = "send_message"
	// ReceiveMessage server push of a confirmed message
	ReceiveMessage Action = "receive_message"
	// ErrorAction unparseable request
	ErrorAction Action = "error"
)

// WSRequest websocket Request
type WSRequest struct {
	Action      string `json:"action"`
	ChatID      string `json:"chatId"`
	Message     string `json:"message,omitempty"`
	ClientMsgID string `json:"clientMsgId,omitempty"`
}

// WSResponse websocket Response
type WSResponse struct {
	Action      string                 `json:"action"`
	Success     bool                   `json:"success"`
	ChatID      string                 `json:"chatId,omitempty"`
	ClientMsgID string                 `json:"clientMsgId,omitempty"`
	Message     *Message               `json:"message,omitempty"`
	Payload     map[string]interface{} `json:"payload,omitempty"`
	Error       string                 `json:"error,omitempty"`
}
