package domain

// ChannelType collection names
type ChannelType string

const (
	// Channels team chat channel collection
	Channels ChannelType = "channels"
	// Messages day bucket collection
	Messages ChannelType = "chat_messages"
)

// Channel the chat scope of one team
type Channel struct {
	ID        string   `bson:"_id" json:"id"`
	TeamID    string   `bson:"team_id" json:"team_id"`
	Name      string   `bson:"name,omitempty" json:"name,omitempty"`
	Members   []string `bson:"members,omitempty" json:"members,omitempty"`
	CreatedAt int64    `bson:"created_at,omitempty" json:"created_at,omitempty"`
}

// RoomKey redis pub/sub channel of a chat channel
func RoomKey(channelID string) string {
	return "chat:room:" + channelID
}
