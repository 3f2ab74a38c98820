package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(t.TempDir(), "missing")
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, "activity8", cfg.Database.DBName)
	assert.Equal(t, 30*time.Second, cfg.WebSocket.PingInterval)
	assert.Equal(t, 60*time.Second, cfg.WebSocket.PongWait)
	assert.Equal(t, int64(4096), cfg.WebSocket.MaxMessageSize)
	assert.Equal(t, 256, cfg.WebSocket.SendBuffer)
	assert.Equal(t, 5*time.Second, cfg.Gateway.PersistTimeout)
	assert.True(t, cfg.Gateway.DefaultRooms)
	assert.Equal(t, "none", cfg.PubSub.Driver)
	assert.NotEmpty(t, cfg.Gateway.InstanceID)
	assert.Equal(t, "chat-gateway-"+cfg.Gateway.InstanceID, cfg.PubSub.Kafka.GroupID)
	assert.Equal(t, cfg.Gateway.InstanceID, cfg.Log.InstanceID)
}

func TestLoadFrom_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("REDIS_ADDRESS", "redis:6380")
	t.Setenv("PUBSUB_DRIVER", "REDIS")
	t.Setenv("INSTANCE_ID", "gw-1")

	cfg, err := LoadFrom(t.TempDir(), "missing")
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "redis:6380", cfg.PubSub.Redis.Address)
	assert.Equal(t, "redis", cfg.PubSub.Driver)
	assert.Equal(t, "gw-1", cfg.Gateway.InstanceID)
}

func TestLoadFrom_File(t *testing.T) {
	dir := t.TempDir()
	body := `
websocket:
  ping_interval: 90s
  pong_wait: 20s
cache:
  enabled: true
  ttl: 1m
gateway:
  default_rooms: false
  persist_timeout: 2s
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o600))

	cfg, err := LoadFrom(dir, "config")
	require.NoError(t, err)

	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.False(t, cfg.Gateway.DefaultRooms)
	assert.Equal(t, 2*time.Second, cfg.Gateway.PersistTimeout)
	assert.Equal(t, 20*time.Second, cfg.WebSocket.PongWait)
	assert.Equal(t, 18*time.Second, cfg.WebSocket.PingInterval, "ping interval clamps below pong wait")
}
