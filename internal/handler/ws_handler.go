package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/internal/config"
	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/internal/domain"
	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/internal/hub"
	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/internal/service"
	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/pkg/log"
)

type eventHandler func(ctx context.Context, c *hub.Client, data json.RawMessage) error

// WSHandler upgrades connections and dispatches their events to the gateway.
type WSHandler struct {
	hub      *hub.Hub
	gateway  *service.Gateway
	cfg      config.WebSocketConfig
	upgrader websocket.Upgrader
	handlers map[string]eventHandler
}

func NewWSHandler(h *hub.Hub, gateway *service.Gateway, cfg config.WebSocketConfig) *WSHandler {
	ws := &WSHandler{
		hub:     h,
		gateway: gateway,
		cfg:     cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	ws.handlers = map[string]eventHandler{
		domain.EventJoinRoom:    ws.joinRoom,
		domain.EventCreateRoom:  ws.createRoom,
		domain.EventSendMessage: ws.sendMessage,
		domain.EventPing:        ws.ping,
	}
	return ws
}

// RegisterRoutes mounts the WebSocket endpoint and the health probe.
func (h *WSHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/ws", h.HandleWebSocket)
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
}

// Health reports liveness and the number of connected clients.
func (h *WSHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"clients": h.hub.ClientCount(),
	})
}

// HandleWebSocket upgrades the request and runs the connection until it closes.
func (h *WSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	l := log.Ctx(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	clientID := uuid.New().String()
	client := hub.NewClient(clientID, h.hub, conn, h.cfg)
	if err := h.hub.Register(client); err != nil {
		l.Warn().Err(err).Msg("rejecting connection")
		_ = conn.Close()
		return
	}

	// The request context ends with ServeHTTP; the connection outlives it.
	ctx := log.WithConn(context.WithoutCancel(r.Context()), clientID)

	go client.WritePump()
	if err := h.gateway.HandleConnect(ctx, client); err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("connect failed")
	}
	go client.ReadPump(
		func(c *hub.Client, message []byte) { h.dispatch(ctx, c, message) },
		func(c *hub.Client) { h.gateway.HandleDisconnect(ctx, c) },
	)
}

func (h *WSHandler) dispatch(ctx context.Context, c *hub.Client, message []byte) {
	l := log.Ctx(ctx)

	var env domain.Envelope
	if err := json.Unmarshal(message, &env); err != nil || env.Type == "" {
		h.reject(c, "invalid message format")
		return
	}

	handle, ok := h.handlers[env.Type]
	if !ok {
		h.reject(c, "unknown event type: "+env.Type)
		return
	}
	if err := handle(ctx, c, env.Data); err != nil {
		l.Error().Err(err).Str(log.FieldEvent, env.Type).Msg("event handling failed")
	}
}

func (h *WSHandler) joinRoom(ctx context.Context, c *hub.Client, data json.RawMessage) error {
	var msg domain.JoinRoomData
	if err := decodeData(data, &msg); err != nil {
		h.reject(c, "invalid joinRoom payload")
		return nil
	}
	roomID, ok := msg.RoomID.ID()
	if !ok {
		h.reject(c, "roomId must be a positive integer")
		return nil
	}
	return h.gateway.HandleJoinRoom(ctx, c, roomID)
}

func (h *WSHandler) createRoom(ctx context.Context, c *hub.Client, data json.RawMessage) error {
	var msg domain.CreateRoomData
	if err := decodeData(data, &msg); err != nil {
		h.reject(c, "invalid createRoom payload")
		return nil
	}
	return h.gateway.HandleCreateRoom(ctx, c, msg)
}

func (h *WSHandler) sendMessage(ctx context.Context, c *hub.Client, data json.RawMessage) error {
	var msg domain.SendMessageData
	if err := decodeData(data, &msg); err != nil {
		h.reject(c, "invalid sendMessage payload")
		return nil
	}
	return h.gateway.HandleSendMessage(ctx, c, msg.Text, msg.RoomID.IDOrFallback())
}

func (h *WSHandler) ping(ctx context.Context, c *hub.Client, _ json.RawMessage) error {
	return c.SendMessage(domain.NewEvent(domain.EventPong, nil))
}

func (h *WSHandler) reject(c *hub.Client, msg string) {
	_ = c.SendMessage(domain.NewErrorEvent(domain.ErrCodeBadRequest, msg))
}

// decodeData treats a missing or null payload as empty.
func decodeData(data json.RawMessage, v interface{}) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	return json.Unmarshal(data, v)
}
