package pubsub

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Drivers.
const (
	DriverNone  = "none"
	DriverRedis = "redis"
	DriverKafka = "kafka"
)

// ErrDisabled is returned by NewPubSub when the driver is "none".
var ErrDisabled = errors.New("pubsub disabled")

// KafkaConfig holds Kafka-specific configuration.
type KafkaConfig struct {
	Brokers    string   `mapstructure:"brokers"`
	GroupID    string   `mapstructure:"group_id"`
	Partitions int      `mapstructure:"partitions"`
	Topics     []string `mapstructure:"topics"`
}

// Config holds the configuration for the pub/sub system.
type Config struct {
	Driver        string      `mapstructure:"driver"` // none, redis, kafka
	ChannelPrefix string      `mapstructure:"channel_prefix"`
	Redis         RedisConfig `mapstructure:"redis"`
	Kafka         KafkaConfig `mapstructure:"kafka"`
}

// RedisConfig holds Redis-specific configuration.
type RedisConfig struct {
	Address      string        `mapstructure:"address"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Driver:        DriverNone,
		ChannelPrefix: DefaultChannelPrefix,
		Redis: RedisConfig{
			Address:      "localhost:6379",
			PoolSize:     10,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:    "localhost:9092",
			Partitions: 4,
		},
	}
}

// NewPubSub creates a new PubSub instance based on the configuration.
func NewPubSub(cfg Config) (PubSub, error) {
	switch strings.ToLower(cfg.Driver) {
	case DriverNone, "":
		return nil, ErrDisabled
	case DriverKafka:
		if len(cfg.Kafka.Topics) == 0 {
			cfg.Kafka.Topics = []string{GatewayTopic(cfg.ChannelPrefix)}
		}
		return NewKafkaPubSub(cfg.Kafka)
	case DriverRedis:
		return NewRedisPubSub(cfg.Redis)
	default:
		return nil, fmt.Errorf("unsupported pubsub driver: %s", cfg.Driver)
	}
}
