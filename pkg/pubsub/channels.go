package pubsub

import "fmt"

// Channel naming: {prefix}:room:{roomID}:to_gateway. Every gateway instance
// pattern-subscribes to {prefix}:room:*:to_gateway; on Kafka the same channel
// maps to topic "{prefix}-to-gateway" keyed by room id.
const (
	ChannelGatewayRoom   = "%s:room:%s:to_gateway"
	PatternGatewayRooms  = "%s:room:*:to_gateway"
	DefaultChannelPrefix = "gateway"
	gatewayTopicSuffix   = "-to-gateway"
	relayRoomIDForGlobal = "all"
)

// Event types relayed between gateway instances.
const (
	EventNewRoom    = "new_room"
	EventNewMessage = "new_message"
)

// GatewayRoomChannel returns the channel name a room-scoped event is published on.
// A zero roomID (room-less events such as newRoom) maps to the "all" segment.
func GatewayRoomChannel(prefix string, roomID uint) string {
	id := relayRoomIDForGlobal
	if roomID != 0 {
		id = fmt.Sprintf("%d", roomID)
	}
	return fmt.Sprintf(ChannelGatewayRoom, normalizePrefix(prefix), id)
}

// GatewayRoomsPattern returns the subscribe pattern covering every room channel.
func GatewayRoomsPattern(prefix string) string {
	return fmt.Sprintf(PatternGatewayRooms, normalizePrefix(prefix))
}

// GatewayTopic returns the Kafka topic backing the gateway channels.
func GatewayTopic(prefix string) string {
	return normalizePrefix(prefix) + gatewayTopicSuffix
}

func normalizePrefix(prefix string) string {
	if prefix == "" {
		return DefaultChannelPrefix
	}
	return prefix
}
