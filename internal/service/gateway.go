package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/internal/audit"
	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/internal/config"
	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/internal/domain"
	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/internal/identity"
	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/internal/presence"
	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/pkg/log"
)

// UnknownSender names messages from connections without an identity.
const UnknownSender = "Unknown"

var synthesizedRoomName = regexp.MustCompile(`^Room(\d+)$`)

// Gateway owns the realtime session state of one instance: display names,
// room presence and the broadcasts they trigger.
type Gateway struct {
	identity    *identity.Allocator
	presence    *presence.Tracker
	rooms       RoomRegistry
	messages    MessageStore
	broadcaster Broadcaster
	relay       Relay
	cfg         config.GatewayConfig

	createMu  sync.Mutex
	persistWG sync.WaitGroup
	now       func() time.Time

	// stopping is set by Stop; no persist is added to persistWG after it.
	stopMu   sync.Mutex
	stopping bool
}

func NewGateway(rooms RoomRegistry, messages MessageStore, broadcaster Broadcaster, cfg config.GatewayConfig) *Gateway {
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = 5 * time.Second
	}
	return &Gateway{
		identity:    identity.NewAllocator(),
		presence:    presence.NewTracker(),
		rooms:       rooms,
		messages:    messages,
		broadcaster: broadcaster,
		cfg:         cfg,
		now:         time.Now,
	}
}

// SetRelay enables cross-instance fan-out of newRoom and newMessage.
func (g *Gateway) SetRelay(r Relay) {
	g.relay = r
}

// Start seeds the default rooms when the registry is empty.
func (g *Gateway) Start(ctx context.Context) error {
	l := log.Ctx(ctx)
	if !g.cfg.DefaultRooms {
		return nil
	}

	count, err := g.rooms.CountRooms(ctx)
	if err != nil {
		return fmt.Errorf("count rooms: %w", err)
	}
	if count > 0 {
		l.Info().Int64("rooms", count).Msg("room registry already seeded")
		return nil
	}

	for _, req := range domain.DefaultRooms() {
		if _, err := g.rooms.CreateRoom(ctx, &req); err != nil {
			return fmt.Errorf("create default room %s: %w", req.Name, err)
		}
	}
	l.Info().Msg("default rooms created")
	return nil
}

// Stop waits for in-flight message writes, bounded by ctx. Messages sent
// after Stop are still broadcast but no longer persisted.
func (g *Gateway) Stop(ctx context.Context) error {
	g.stopMu.Lock()
	g.stopping = true
	g.stopMu.Unlock()

	done := make(chan struct{})
	go func() {
		g.persistWG.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HandleConnect names the connection and sends it the room list and its identity.
func (g *Gateway) HandleConnect(ctx context.Context, c Conn) error {
	l := log.Ctx(ctx)

	name := g.identity.Allocate()
	c.Session().SetDisplayName(name)

	rooms, err := g.rooms.ListRooms(ctx)
	if err != nil {
		l.Error().Err(err).Msg("failed to load rooms for new connection")
		_ = c.SendMessage(domain.NewErrorEvent(domain.ErrCodeInternalError, "failed to load rooms"))
	} else {
		occupancy := g.presence.Snapshot()
		list := make([]domain.RoomResponse, len(rooms))
		for i := range rooms {
			list[i] = rooms[i].ToResponse(occupancy[rooms[i].ID])
		}
		if err := c.SendMessage(domain.NewEvent(domain.EventRoomsList, list)); err != nil {
			l.Warn().Err(err).Msg("failed to send rooms list")
		}
	}

	if err := c.SendMessage(domain.NewEvent(domain.EventAssignIdentity, domain.AssignIdentityData{DisplayName: name})); err != nil {
		l.Warn().Err(err).Msg("failed to send identity")
	}

	audit.Log(ctx, audit.ActionConnect, name, "client connected")
	return nil
}

// HandleJoinRoom moves the connection into roomID and announces the new counts.
func (g *Gateway) HandleJoinRoom(ctx context.Context, c Conn, roomID uint) error {
	if _, err := g.rooms.GetRoom(ctx, roomID); err != nil {
		if errors.Is(err, ErrRoomNotFound) {
			return c.SendMessage(domain.NewErrorEvent(domain.ErrCodeRoomNotFound, fmt.Sprintf("room %d does not exist", roomID)))
		}
		_ = c.SendMessage(domain.NewErrorEvent(domain.ErrCodeInternalError, "failed to join room"))
		return fmt.Errorf("get room %d: %w", roomID, err)
	}

	res := g.presence.Join(c.ID(), roomID)
	if res.Moved {
		g.broadcastRoomUpdate(ctx, res.PreviousRoomID, res.PreviousOccupancy)
	}
	g.broadcastRoomUpdate(ctx, res.RoomID, res.Occupancy)

	audit.LogRoom(ctx, audit.ActionJoinRoom, c.Session().DisplayName(), roomID, "joined room")
	return nil
}

// HandleCreateRoom creates a room, synthesising RoomN when no name is given,
// and announces it to everyone. The caller's membership is unchanged.
func (g *Gateway) HandleCreateRoom(ctx context.Context, c Conn, data domain.CreateRoomData) error {
	room, err := g.createRoom(ctx, data)
	if err != nil {
		_ = c.SendMessage(domain.NewErrorEvent(domain.ErrCodeInternalError, "failed to create room"))
		return err
	}

	g.AnnounceRoom(ctx, room)
	audit.LogWithDetail(ctx, audit.ActionCreateRoom, c.Session().DisplayName(), room.Name, "room created")
	return nil
}

func (g *Gateway) createRoom(ctx context.Context, data domain.CreateRoomData) (*domain.Room, error) {
	// Serialised so two unnamed creates do not pick the same RoomN.
	g.createMu.Lock()
	defer g.createMu.Unlock()

	name := strings.TrimSpace(data.Name)
	if name == "" {
		rooms, err := g.rooms.ListRoomsFresh(ctx)
		if err != nil {
			return nil, fmt.Errorf("list rooms: %w", err)
		}
		name = NextRoomName(rooms)
	}

	room, err := g.rooms.CreateRoom(ctx, &domain.CreateRoomRequest{
		Name:        name,
		Description: data.Description,
		Icon:        data.Icon,
	})
	if err != nil {
		return nil, fmt.Errorf("create room %q: %w", name, err)
	}
	return room, nil
}

// AnnounceRoom broadcasts a freshly created room with zero occupancy.
func (g *Gateway) AnnounceRoom(ctx context.Context, room *domain.Room) {
	event := domain.NewEvent(domain.EventNewRoom, room.ToResponse(0))
	g.broadcast(ctx, event)
	g.publish(ctx, 0, event)
}

// HandleSendMessage broadcasts a chat message and persists it in the
// background. A failed write is logged and never delays or blocks delivery.
func (g *Gateway) HandleSendMessage(ctx context.Context, c Conn, text string, roomID uint) error {
	if strings.TrimSpace(text) == "" {
		return c.SendMessage(domain.NewErrorEvent(domain.ErrCodeBadRequest, "message text must not be empty"))
	}

	sender := c.Session().DisplayName()
	if sender == "" {
		sender = UnknownSender
	}

	g.persist(ctx, roomID, sender, text)

	event := domain.NewEvent(domain.EventNewMessage, domain.NewMessageData{
		Sender:    sender,
		Text:      text,
		Timestamp: g.now().UnixMilli(),
		RoomID:    roomID,
	})
	g.broadcast(ctx, event)
	g.publish(ctx, roomID, event)

	audit.LogRoom(ctx, audit.ActionSendMessage, sender, roomID, "message sent")
	return nil
}

func (g *Gateway) persist(ctx context.Context, roomID uint, sender, text string) {
	g.stopMu.Lock()
	if g.stopping {
		g.stopMu.Unlock()
		l := log.Ctx(ctx)
		l.Warn().Uint(log.FieldRoomID, roomID).Str(log.FieldDisplayName, sender).Msg("gateway stopping, message not persisted")
		return
	}
	g.persistWG.Add(1)
	g.stopMu.Unlock()

	go func() {
		defer g.persistWG.Done()

		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.cfg.PersistTimeout)
		defer cancel()

		if _, err := g.messages.AppendMessage(pctx, roomID, sender, text); err != nil {
			l := log.Ctx(pctx)
			l.Error().Err(err).Uint(log.FieldRoomID, roomID).Str(log.FieldDisplayName, sender).Msg("failed to persist message")
		}
	}()
}

// HandleDisconnect removes the connection from its room, announces the new
// count (zero included) and frees its name.
func (g *Gateway) HandleDisconnect(ctx context.Context, c Conn) {
	if res, ok := g.presence.Leave(c.ID()); ok {
		g.broadcastRoomUpdate(ctx, res.RoomID, res.Occupancy)
	}

	session := c.Session()
	name := session.ClearDisplayName()
	g.identity.Release(name)

	now := g.now()
	audit.LogSession(ctx, audit.ActionDisconnect, name, now.Sub(session.ConnectedAt()), now.Sub(session.LastActiveAt()), "client disconnected")
}

// Occupancy returns the live member count of roomID on this instance.
func (g *Gateway) Occupancy(roomID uint) int {
	return g.presence.Occupancy(roomID)
}

// OccupancySnapshot returns the live member count of every occupied room.
func (g *Gateway) OccupancySnapshot() map[uint]int {
	return g.presence.Snapshot()
}

func (g *Gateway) broadcastRoomUpdate(ctx context.Context, roomID uint, occupancy int) {
	g.broadcast(ctx, domain.NewEvent(domain.EventRoomUpdate, domain.RoomUpdateData{RoomID: roomID, Occupancy: occupancy}))
}

func (g *Gateway) broadcast(ctx context.Context, event *domain.OutboundEvent) {
	if err := g.broadcaster.BroadcastAll(event); err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldEvent, event.Type).Msg("broadcast failed")
	}
}

func (g *Gateway) publish(ctx context.Context, roomID uint, event *domain.OutboundEvent) {
	if g.relay == nil {
		return
	}
	if err := g.relay.Publish(ctx, roomID, event); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldEvent, event.Type).Msg("relay publish failed")
	}
}

// NextRoomName returns Room{N+1} where N is the largest suffix among names of
// the form RoomN, or Room1 when there are none.
func NextRoomName(rooms []domain.Room) string {
	highest := 0
	for _, r := range rooms {
		m := synthesizedRoomName.FindStringSubmatch(r.Name)
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > highest {
			highest = n
		}
	}
	return "Room" + strconv.Itoa(highest+1)
}
