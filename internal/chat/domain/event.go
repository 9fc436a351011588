package domain

import "time"

// EventMessageCreated event type of a stored message
const EventMessageCreated = "message.created"

// MessageEvent kafka payload
type MessageEvent struct {
	Type       string    `json:"type"`
	Message    Message   `json:"message"`
	OccurredAt time.Time `json:"occurredAt"`
}
