package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Chat(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TEST_CHAT_SECRET", "s3cret")
	yaml := `
port: "9000"
jwt_secret: "${TEST_CHAT_SECRET}"
store: memory
history:
  page_size: 30
websocket:
  ping_interval: 30s
redis:
  addr: "localhost:6379"
  channel_cache_ttl: 1m
kafka:
  brokers: ["k1:9092", "k2:9092"]
  topic: events
channels:
  - id: team-1
    members: [alice, bob]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chat_test.yaml"), []byte(yaml), 0644))

	cfg, err := LoadConfig[Chat]("chat_test", dir)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, 30, cfg.History.PageSizeOrDefault())
	assert.Equal(t, 30*time.Second, cfg.WebSocket.PingIntervalOrDefault())
	assert.Equal(t, time.Minute, cfg.Redis.ChannelCacheTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	require.Len(t, cfg.Channels, 1)
	assert.Equal(t, []string{"alice", "bob"}, cfg.Channels[0].Members)
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig[Chat]("does_not_exist", t.TempDir())
	assert.Error(t, err)
}

func TestDefaults(t *testing.T) {
	assert.Equal(t, DefaultPageSize, HistoryConfig{}.PageSizeOrDefault())
	assert.Equal(t, DefaultPingInterval, WebSocketConfig{}.PingIntervalOrDefault())

	loc, err := ChatClient{}.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	_, err = ChatClient{DisplayTimezone: "Not/AZone"}.Location()
	assert.Error(t, err)
}
