package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	pkglog "github.com/CVSU-IMUS-BSIT-4A/chat-gateway/pkg/log"
)

const (
	defaultKafkaGroup      = "chat-gateway"
	defaultKafkaPartitions = 4
	kafkaPollMillis        = 500
	kafkaFlushMillis       = 5000
	kafkaEventBuffer       = 100
)

var groupIDRegexp = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// topicForChannel maps a gateway channel onto the shared Kafka topic and the
// room key that partitions it.
//
//	"gateway:room:7:to_gateway"   → "gateway-to-gateway", "7"
//	"gateway:room:all:to_gateway" → "gateway-to-gateway", "all"
func topicForChannel(channel string) (topic, key string, err error) {
	parts := strings.Split(channel, ":")
	if len(parts) != 4 || parts[0] == "" || parts[1] != "room" || !strings.HasPrefix(parts[3], "to_") {
		return "", "", fmt.Errorf("invalid channel format: %s", channel)
	}
	return parts[0] + "-" + strings.ReplaceAll(parts[3], "_", "-"), parts[2], nil
}

// topicForPattern maps a room wildcard pattern onto its topic.
func topicForPattern(pattern string) (string, error) {
	topic, _, err := topicForChannel(strings.ReplaceAll(pattern, "*", "any"))
	return topic, err
}

// consumerGroup picks the group a subscription joins. Pattern subscriptions
// share the base group so instances split partitions; single-room
// subscriptions get their own group so they see every record.
func consumerGroup(base, subKey, roomKey string) string {
	if base == "" {
		base = defaultKafkaGroup
	}
	if roomKey == "" {
		return base
	}
	return base + "-" + sanitizeGroupID(subKey)
}

func sanitizeGroupID(s string) string {
	return groupIDRegexp.ReplaceAllString(s, "-")
}

// encodeRelayMessage builds the record published for an event on channel.
func encodeRelayMessage(channel string, event *Event) (*kafka.Message, error) {
	topic, key, err := topicForChannel(channel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse channel: %w", err)
	}
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            []byte(key),
		Value:          data,
	}, nil
}

// decodeRelayMessage turns a consumed record back into an event. Records
// keyed for another room are skipped when roomKey is set.
func decodeRelayMessage(msg *kafka.Message, roomKey string) (*Event, bool) {
	if roomKey != "" && string(msg.Key) != roomKey {
		return nil, false
	}
	var event Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		pkglog.L().Warn().Err(err).Str("key", string(msg.Key)).Msg("dropping undecodable relay record")
		return nil, false
	}
	return &event, true
}

// poller is the part of *kafka.Consumer the pump reads from.
type poller interface {
	Poll(timeoutMs int) kafka.Event
}

// pumpEvents forwards decoded records from src to out until ctx ends or the
// client reports a fatal error. out is closed on return. A full out drops
// the record rather than stalling the consumer.
func pumpEvents(ctx context.Context, src poller, out chan<- *Event, roomKey string) {
	defer close(out)

	for ctx.Err() == nil {
		switch e := src.Poll(kafkaPollMillis).(type) {
		case nil:
		case *kafka.Message:
			event, ok := decodeRelayMessage(e, roomKey)
			if !ok {
				continue
			}
			select {
			case out <- event:
			case <-ctx.Done():
				return
			default:
				pkglog.L().Warn().Str("type", event.Type).Str("room_id", event.RoomID).Msg("relay subscriber full, record dropped")
			}
		case kafka.Error:
			pkglog.L().Error().
				Str("error", e.String()).
				Int("code", int(e.Code())).
				Bool("fatal", e.IsFatal()).
				Msg("kafka consumer error")
			if e.IsFatal() {
				return
			}
		}
	}
}

type kafkaSubscription struct {
	consumer *kafka.Consumer
	cancel   context.CancelFunc
}

func (s *kafkaSubscription) stop() error {
	s.cancel()
	return s.consumer.Close()
}

// KafkaPubSub relays gateway events over a single Kafka topic keyed by room.
type KafkaPubSub struct {
	cfg      KafkaConfig
	producer *kafka.Producer
	reported chan struct{}

	mu   sync.Mutex
	subs map[string]*kafkaSubscription
}

// NewKafkaPubSub connects a producer and makes sure the configured topics exist.
func NewKafkaPubSub(cfg KafkaConfig) (*KafkaPubSub, error) {
	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.Brokers,
		"acks":              "1",
		"linger.ms":         5,
		"compression.type":  "snappy",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	k := &KafkaPubSub{
		cfg:      cfg,
		producer: producer,
		reported: make(chan struct{}),
		subs:     make(map[string]*kafkaSubscription),
	}
	go k.watchDeliveries()

	if err := k.createTopics(); err != nil {
		pkglog.L().Warn().Err(err).Strs("topics", cfg.Topics).Msg("could not create relay topics")
	}
	return k, nil
}

func topicSpecs(cfg KafkaConfig) []kafka.TopicSpecification {
	partitions := cfg.Partitions
	if partitions <= 0 {
		partitions = defaultKafkaPartitions
	}
	specs := make([]kafka.TopicSpecification, 0, len(cfg.Topics))
	for _, name := range cfg.Topics {
		specs = append(specs, kafka.TopicSpecification{Topic: name, NumPartitions: partitions, ReplicationFactor: 1})
	}
	return specs
}

func (k *KafkaPubSub) createTopics() error {
	specs := topicSpecs(k.cfg)
	if len(specs) == 0 {
		return nil
	}

	admin, err := kafka.NewAdminClient(&kafka.ConfigMap{"bootstrap.servers": k.cfg.Brokers})
	if err != nil {
		return fmt.Errorf("failed to create admin client: %w", err)
	}
	defer admin.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	results, err := admin.CreateTopics(ctx, specs)
	if err != nil {
		return fmt.Errorf("failed to create topics: %w", err)
	}
	for _, r := range results {
		switch r.Error.Code() {
		case kafka.ErrNoError, kafka.ErrTopicAlreadyExists:
		default:
			pkglog.L().Warn().Str("topic", r.Topic).Str("error", r.Error.String()).Msg("relay topic not created")
		}
	}
	return nil
}

func (k *KafkaPubSub) watchDeliveries() {
	defer close(k.reported)
	for e := range k.producer.Events() {
		if m, ok := e.(*kafka.Message); ok && m.TopicPartition.Error != nil {
			pkglog.L().Error().Err(m.TopicPartition.Error).Str("key", string(m.Key)).Msg("relay record not delivered")
		}
	}
}

// Publish produces event on the topic backing channel, keyed by room.
func (k *KafkaPubSub) Publish(ctx context.Context, channel string, event *Event) error {
	msg, err := encodeRelayMessage(channel, event)
	if err != nil {
		return err
	}
	if err := k.producer.Produce(msg, nil); err != nil {
		return fmt.Errorf("failed to produce message: %w", err)
	}
	return nil
}

// Subscribe consumes the channel's topic, keeping only records for its room.
func (k *KafkaPubSub) Subscribe(ctx context.Context, channel string) (<-chan *Event, error) {
	topic, roomKey, err := topicForChannel(channel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse channel: %w", err)
	}
	return k.subscribe(ctx, channel, topic, roomKey)
}

// SubscribePattern consumes every room on the pattern's topic.
func (k *KafkaPubSub) SubscribePattern(ctx context.Context, pattern string) (<-chan *Event, error) {
	topic, err := topicForPattern(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pattern: %w", err)
	}
	return k.subscribe(ctx, pattern, topic, "")
}

func (k *KafkaPubSub) subscribe(ctx context.Context, subKey, topic, roomKey string) (<-chan *Event, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if prev, ok := k.subs[subKey]; ok {
		_ = prev.stop()
		delete(k.subs, subKey)
	}

	consumer, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":       k.cfg.Brokers,
		"group.id":                consumerGroup(k.cfg.GroupID, subKey, roomKey),
		"auto.offset.reset":       "latest",
		"enable.auto.commit":      true,
		"auto.commit.interval.ms": 5000,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}
	if err := consumer.Subscribe(topic, nil); err != nil {
		_ = consumer.Close()
		return nil, fmt.Errorf("failed to subscribe to topic %s: %w", topic, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	out := make(chan *Event, kafkaEventBuffer)
	k.subs[subKey] = &kafkaSubscription{consumer: consumer, cancel: cancel}

	go pumpEvents(subCtx, consumer, out, roomKey)
	return out, nil
}

// Unsubscribe stops the subscription registered under channel, if any.
func (k *KafkaPubSub) Unsubscribe(ctx context.Context, channel string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	sub, ok := k.subs[channel]
	if !ok {
		return nil
	}
	delete(k.subs, channel)
	if err := sub.stop(); err != nil {
		return fmt.Errorf("failed to close consumer: %w", err)
	}
	return nil
}

// Close stops every subscription, flushes pending records and closes the producer.
func (k *KafkaPubSub) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	for key, sub := range k.subs {
		_ = sub.stop()
		delete(k.subs, key)
	}

	if left := k.producer.Flush(kafkaFlushMillis); left > 0 {
		pkglog.L().Warn().Int("pending", left).Msg("relay records left unflushed")
	}
	k.producer.Close()
	<-k.reported
	return nil
}
