package config

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"

	pkgconfig "github.com/CVSU-IMUS-BSIT-4A/chat-gateway/pkg/config"
	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/pkg/database"
	pkglog "github.com/CVSU-IMUS-BSIT-4A/chat-gateway/pkg/log"
	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/pkg/pubsub"
)

type Config struct {
	Server    ServerConfig
	GRPC      GRPCConfig
	WebSocket WebSocketConfig
	Database  database.Config
	Redis     RedisConfig
	Cache     CacheConfig
	PubSub    pubsub.Config `mapstructure:"pubsub"`
	Gateway   GatewayConfig
	Log       pkglog.Config
}

type ServerConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type GRPCConfig struct {
	Enabled bool
	Host    string
	Port    int
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	SendBuffer     int           `mapstructure:"send_buffer"`
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

type CacheConfig struct {
	Enabled bool
	Prefix  string
	TTL     time.Duration
}

// GatewayConfig tunes the realtime session handler.
type GatewayConfig struct {
	InstanceID     string        `mapstructure:"instance_id"`
	PersistTimeout time.Duration `mapstructure:"persist_timeout"`
	DefaultRooms   bool          `mapstructure:"default_rooms"`
}

func Load() (*Config, error) {
	return LoadFrom("./config", "config")
}

// LoadFrom reads configName.yaml from configPath, then applies defaults and
// environment overrides.
func LoadFrom(configPath, configName string) (*Config, error) {
	v, err := pkgconfig.Load(configPath, configName)
	if err != nil {
		return nil, err
	}

	setDefaults(v)

	if err := pkgconfig.BindEnvs(v, map[string]string{
		"server.port":          "PORT",
		"grpc.port":            "GRPC_PORT",
		"database.driver":      "DB_DRIVER",
		"database.host":        "DB_HOST",
		"database.port":        "DB_PORT",
		"database.user":        "DB_USER",
		"database.password":    "DB_PASSWORD",
		"database.dbname":      "DB_NAME",
		"database.file_path":   "DB_FILE_PATH",
		"redis.address":        "REDIS_ADDRESS",
		"redis.password":       "REDIS_PASSWORD",
		"cache.enabled":        "CACHE_ENABLED",
		"pubsub.driver":        "PUBSUB_DRIVER",
		"pubsub.kafka.brokers": "KAFKA_BROKERS",
		"gateway.instance_id":  "INSTANCE_ID",
		"log.level":            "LOG_LEVEL",
		"log.pretty":           "LOG_PRETTY",
	}); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.Server.ShutdownTimeout = pkgconfig.Duration(v, "server.shutdown_timeout", 30*time.Second)
	cfg.WebSocket.PingInterval = pkgconfig.Duration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = pkgconfig.Duration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = pkgconfig.Duration(v, "websocket.write_wait", 10*time.Second)
	cfg.Cache.TTL = pkgconfig.Duration(v, "cache.ttl", 30*time.Second)
	cfg.Gateway.PersistTimeout = pkgconfig.Duration(v, "gateway.persist_timeout", 5*time.Second)

	// Pings must go out before the peer's read deadline expires.
	if cfg.WebSocket.PingInterval >= cfg.WebSocket.PongWait {
		cfg.WebSocket.PingInterval = cfg.WebSocket.PongWait * 9 / 10
	}

	// The relay shares the cache's redis endpoint.
	cfg.PubSub.Redis.Address = cfg.Redis.Address
	cfg.PubSub.Redis.Password = cfg.Redis.Password
	cfg.PubSub.Redis.DB = cfg.Redis.DB
	cfg.PubSub.Driver = strings.ToLower(cfg.PubSub.Driver)

	if cfg.Gateway.InstanceID == "" {
		cfg.Gateway.InstanceID = uuid.New().String()
	}
	if cfg.PubSub.Kafka.GroupID == "" {
		// Every instance needs every relayed event, so each gets its own group.
		cfg.PubSub.Kafka.GroupID = "chat-gateway-" + cfg.Gateway.InstanceID
	}
	cfg.Log.ServiceName = "chat-gateway"
	cfg.Log.InstanceID = cfg.Gateway.InstanceID

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("grpc.enabled", true)
	v.SetDefault("grpc.host", "0.0.0.0")
	v.SetDefault("grpc.port", 50060)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 4096)
	v.SetDefault("websocket.send_buffer", 256)
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.user", "root")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "activity8")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.file_path", "chat-gateway.db")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", 30)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.prefix", "chat-gateway:rooms")
	v.SetDefault("cache.ttl", "30s")
	v.SetDefault("pubsub.driver", pubsub.DriverNone)
	v.SetDefault("pubsub.channel_prefix", pubsub.DefaultChannelPrefix)
	v.SetDefault("pubsub.kafka.brokers", "localhost:9092")
	v.SetDefault("pubsub.kafka.partitions", 4)
	v.SetDefault("gateway.instance_id", "")
	v.SetDefault("gateway.persist_timeout", "5s")
	v.SetDefault("gateway.default_rooms", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}
