package config

import "time"

// Chat definition chat_service YAML structure
type Chat struct {
	Port      string          `mapstructure:"port"`
	JWTSecret string          `mapstructure:"jwt_secret"`
	Store     string          `mapstructure:"store"` // "mongo" or "memory"
	History   HistoryConfig   `mapstructure:"history"`
	MongoSQL  DatabaseConfig  `mapstructure:"mongo"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Channels  []ChannelSeed   `mapstructure:"channels"`
}

// ChannelSeed channel created at startup when missing
type ChannelSeed struct {
	ID      string   `mapstructure:"id"`
	TeamID  string   `mapstructure:"team_id"`
	Name    string   `mapstructure:"name"`
	Members []string `mapstructure:"members"`
}

const (
	// StoreMongo mongo buckets + redis fan-out
	StoreMongo = "mongo"
	// StoreMemory single process, nothing persisted
	StoreMemory = "memory"
)

// ChatClient definition chat_client YAML structure
type ChatClient struct {
	BaseURL         string        `mapstructure:"base_url"`
	WebsocketURL    string        `mapstructure:"websocket_url"`
	AuthToken       string        `mapstructure:"auth_token"`
	UserID          string        `mapstructure:"user_id"`
	ChannelID       string        `mapstructure:"channel_id"`
	PageSize        int           `mapstructure:"page_size"`
	DisplayTimezone string        `mapstructure:"display_timezone"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
}

// HistoryConfig page contract shared with clients
type HistoryConfig struct {
	PageSize int `mapstructure:"page_size"`
}

// WebSocketConfig keepalive setting
type WebSocketConfig struct {
	PingInterval time.Duration `mapstructure:"ping_interval"`
}

// RedisConfig definition redis setting
type RedisConfig struct {
	Addr            string        `mapstructure:"addr"`
	RedisDB         int           `mapstructure:"redis_db"`
	ChannelCacheTTL time.Duration `mapstructure:"channel_cache_ttl"`
}

// KafkaConfig definition message event sink, disabled when Brokers is empty
type KafkaConfig struct {
	Brokers       []string `mapstructure:"brokers"`
	Topic         string   `mapstructure:"topic"`
	RetryInterval int      `mapstructure:"retry_interval"`
	RetryCount    int      `mapstructure:"retry_count"`
}

// DatabaseConfig definition db setting
type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Database      string `mapstructure:"database"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

const (
	// DefaultPageSize server page size contract when the YAML leaves it unset
	DefaultPageSize = 20
	// DefaultPingInterval websocket keepalive when the YAML leaves it unset
	DefaultPingInterval = 10 * time.Minute
)

// PageSizeOrDefault page size with fallback
func (h HistoryConfig) PageSizeOrDefault() int {
	if h.PageSize <= 0 {
		return DefaultPageSize
	}
	return h.PageSize
}

// PingIntervalOrDefault keepalive with fallback
func (w WebSocketConfig) PingIntervalOrDefault() time.Duration {
	if w.PingInterval <= 0 {
		return DefaultPingInterval
	}
	return w.PingInterval
}

// Location resolve the display timezone, UTC when unset
func (c ChatClient) Location() (*time.Location, error) {
	if c.DisplayTimezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.DisplayTimezone)
}
