package domain

import "time"

// DateLayout calendar date key used for buckets and sections
const DateLayout = "2006-01-02"

// MessageStatus delivery state of a message held by a client
type MessageStatus string

const (
	// StatusPending optimistic echo waiting for the server copy
	StatusPending MessageStatus = "pending"
	// StatusSent confirmed by the server
	StatusSent MessageStatus = "sent"
	// StatusFailed the transport rejected the send
	StatusFailed MessageStatus = "failed"
)

// Author sender reference; Name may be empty on optimistic echoes
type Author struct {
	ID   string `bson:"id" json:"id"`
	Name string `bson:"name,omitempty" json:"name,omitempty"`
}

// Message one chat message
type Message struct {
	ID          string        `bson:"id" json:"id,omitempty"`
	Text        string        `bson:"message" json:"message"`
	CreatedAt   time.Time     `bson:"created_at" json:"createdAt"`
	Author      Author        `bson:"author" json:"author"`
	ChannelID   string        `bson:"chat_id" json:"chatId,omitempty"`
	ClientMsgID string        `bson:"client_msg_id,omitempty" json:"clientMsgId,omitempty"`
	Status      MessageStatus `bson:"-" json:"-"`
}

// IsEcho true while the message has no server id
func (m Message) IsEcho() bool {
	return m.ID == ""
}

// MessageBucket one channel's messages for one UTC day
type MessageBucket struct {
	RoomID   string    `bson:"room_id" json:"room_id"`
	Date     string    `bson:"date" json:"date"` // "2025-01-23"
	Messages []Message `bson:"messages" json:"messages"`
}

// MessagePage body of GET /chats/{id}/messages
type MessagePage struct {
	Data []Message `json:"data"`
}

// SortOrder history page order
type SortOrder string

const (
	// OrderDesc newest first
	OrderDesc SortOrder = "DESC"
	// OrderAsc oldest first
	OrderAsc SortOrder = "ASC"
)

// DateSection messages of one calendar date, oldest first
type DateSection struct {
	DateKey  string    `json:"dateKey"`
	Messages []Message `json:"messages"`
}
