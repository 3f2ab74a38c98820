package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/internal/domain"
	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/pkg/log"
	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/pkg/pubsub"
)

const reconnectDelay = 2 * time.Second

// Broadcaster delivers an event to every local client.
type Broadcaster interface {
	BroadcastAll(message interface{}) error
}

// Relay forwards newRoom and newMessage events between gateway instances
// over the shared event bus.
type Relay struct {
	bus         pubsub.PubSub
	prefix      string
	instanceID  string
	broadcaster Broadcaster
	retryDelay  time.Duration
	doneCh      chan struct{}
}

func New(bus pubsub.PubSub, prefix, instanceID string, broadcaster Broadcaster) *Relay {
	return &Relay{
		bus:         bus,
		prefix:      prefix,
		instanceID:  instanceID,
		broadcaster: broadcaster,
		retryDelay:  reconnectDelay,
		doneCh:      make(chan struct{}),
	}
}

// Done is closed when Run exits.
func (r *Relay) Done() <-chan struct{} { return r.doneCh }

// Publish sends a locally produced event to the other instances.
func (r *Relay) Publish(ctx context.Context, roomID uint, event *domain.OutboundEvent) error {
	busType, ok := toBusType(event.Type)
	if !ok {
		return fmt.Errorf("event %q is not relayed", event.Type)
	}

	ev, err := pubsub.NewEvent(busType, roomKey(roomID), r.instanceID, event.Data)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event.Type, err)
	}
	return r.bus.Publish(ctx, pubsub.GatewayRoomChannel(r.prefix, roomID), ev)
}

// Run rebroadcasts events from other instances to local clients until ctx is
// done, resubscribing when the subscription drops.
func (r *Relay) Run(ctx context.Context) {
	defer close(r.doneCh)
	l := log.L()

	for {
		err := r.runSubscription(ctx)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			err = errors.New("subscription closed")
		}
		l.Warn().Err(err).Msg("relay subscription lost, reconnecting")

		select {
		case <-ctx.Done():
			return
		case <-time.After(r.retryDelay):
		}
	}
}

func (r *Relay) runSubscription(ctx context.Context) error {
	pattern := pubsub.GatewayRoomsPattern(r.prefix)
	events, err := r.bus.SubscribePattern(ctx, pattern)
	if err != nil {
		return err
	}
	defer func() { _ = r.bus.Unsubscribe(context.Background(), pattern) }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			r.handleEvent(ev)
		}
	}
}

func (r *Relay) handleEvent(ev *pubsub.Event) {
	l := log.L()

	if ev.Origin == r.instanceID {
		return
	}
	eventType, ok := fromBusType(ev.Type)
	if !ok {
		l.Debug().Str(log.FieldEvent, ev.Type).Msg("relay: ignoring unknown event")
		return
	}

	msg := domain.NewEvent(eventType, json.RawMessage(ev.Payload))
	if err := r.broadcaster.BroadcastAll(msg); err != nil {
		l.Error().Err(err).Str(log.FieldEvent, eventType).Msg("relay: broadcast error")
	}
}

func toBusType(eventType string) (string, bool) {
	switch eventType {
	case domain.EventNewRoom:
		return pubsub.EventNewRoom, true
	case domain.EventNewMessage:
		return pubsub.EventNewMessage, true
	}
	return "", false
}

func fromBusType(busType string) (string, bool) {
	switch busType {
	case pubsub.EventNewRoom:
		return domain.EventNewRoom, true
	case pubsub.EventNewMessage:
		return domain.EventNewMessage, true
	}
	return "", false
}

func roomKey(roomID uint) string {
	if roomID == 0 {
		return ""
	}
	return fmt.Sprintf("%d", roomID)
}
