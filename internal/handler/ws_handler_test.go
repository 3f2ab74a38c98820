package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/internal/config"
	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/internal/domain"
	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/internal/hub"
)

type wsFixture struct {
	base string
	url  string
	svc  *services
	hub  *hub.Hub
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()
	cfg := config.WebSocketConfig{
		PingInterval:   time.Second,
		PongWait:       5 * time.Second,
		WriteWait:      time.Second,
		MaxMessageSize: 4096,
		SendBuffer:     64,
	}

	h := hub.NewHub(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	svc := newServices(t, h)
	router := mux.NewRouter()
	NewWSHandler(h, svc.gateway, cfg).RegisterRoutes(router)
	srv := httptest.NewServer(router)

	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-h.Done()
	})
	return &wsFixture{
		base: srv.URL,
		url:  "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
		svc:  svc,
		hub:  h,
	}
}

func (f *wsFixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(f.url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// dialNamed connects and consumes the greeting, returning the display name.
func (f *wsFixture) dialNamed(t *testing.T) (*websocket.Conn, string) {
	t.Helper()
	conn := f.dial(t)
	expect(t, conn, domain.EventRoomsList)
	var id domain.AssignIdentityData
	require.NoError(t, json.Unmarshal(expect(t, conn, domain.EventAssignIdentity).Data, &id))
	return conn, id.DisplayName
}

func send(t *testing.T, conn *websocket.Conn, frame string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
}

func read(t *testing.T, conn *websocket.Conn) domain.Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var env domain.Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

// expect reads frames until one of eventType arrives.
func expect(t *testing.T, conn *websocket.Conn, eventType string) domain.Envelope {
	t.Helper()
	for {
		env := read(t, conn)
		if env.Type == eventType {
			return env
		}
	}
}

func expectError(t *testing.T, conn *websocket.Conn) domain.ErrorData {
	t.Helper()
	var e domain.ErrorData
	require.NoError(t, json.Unmarshal(expect(t, conn, domain.EventError).Data, &e))
	return e
}

func TestWS_Greeting(t *testing.T) {
	f := newWSFixture(t)
	conn := f.dial(t)

	first := read(t, conn)
	require.Equal(t, domain.EventRoomsList, first.Type)
	var rooms []domain.RoomResponse
	require.NoError(t, json.Unmarshal(first.Data, &rooms))
	require.Len(t, rooms, 2)
	assert.Equal(t, "General", rooms[0].Name)
	assert.Equal(t, "Random", rooms[1].Name)

	second := read(t, conn)
	require.Equal(t, domain.EventAssignIdentity, second.Type)
	assert.JSONEq(t, `{"displayName":"Person1"}`, string(second.Data))
}

func TestWS_JoinAndMessageBroadcast(t *testing.T) {
	f := newWSFixture(t)
	a, nameA := f.dialNamed(t)
	b, nameB := f.dialNamed(t)
	assert.Equal(t, "Person1", nameA)
	assert.Equal(t, "Person2", nameB)

	send(t, a, `{"type":"joinRoom","data":{"roomId":1}}`)
	for _, conn := range []*websocket.Conn{a, b} {
		assert.JSONEq(t, `{"roomId":1,"occupancy":1}`, string(expect(t, conn, domain.EventRoomUpdate).Data))
	}

	send(t, a, `{"type":"sendMessage","data":{"text":"hello","roomId":"1"}}`)
	for _, conn := range []*websocket.Conn{a, b} {
		var msg domain.NewMessageData
		require.NoError(t, json.Unmarshal(expect(t, conn, domain.EventNewMessage).Data, &msg))
		assert.Equal(t, "Person1", msg.Sender)
		assert.Equal(t, "hello", msg.Text)
		assert.Equal(t, uint(1), msg.RoomID)
		assert.NotZero(t, msg.Timestamp)
	}

	room := uint(1)
	assert.Eventually(t, func() bool {
		stored, err := f.svc.messages.ListMessages(context.Background(), &room)
		return err == nil && len(stored) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWS_MoveBetweenRooms(t *testing.T) {
	f := newWSFixture(t)
	a, _ := f.dialNamed(t)

	send(t, a, `{"type":"joinRoom","data":{"roomId":1}}`)
	expect(t, a, domain.EventRoomUpdate)

	send(t, a, `{"type":"joinRoom","data":{"roomId":"2"}}`)
	assert.JSONEq(t, `{"roomId":1,"occupancy":0}`, string(expect(t, a, domain.EventRoomUpdate).Data))
	assert.JSONEq(t, `{"roomId":2,"occupancy":1}`, string(expect(t, a, domain.EventRoomUpdate).Data))
}

func TestWS_DisconnectUpdatesOccupancy(t *testing.T) {
	f := newWSFixture(t)
	a, _ := f.dialNamed(t)
	b, _ := f.dialNamed(t)

	send(t, a, `{"type":"joinRoom","data":{"roomId":1}}`)
	expect(t, b, domain.EventRoomUpdate)
	send(t, b, `{"type":"joinRoom","data":{"roomId":1}}`)
	assert.JSONEq(t, `{"roomId":1,"occupancy":2}`, string(expect(t, b, domain.EventRoomUpdate).Data))

	require.NoError(t, a.Close())
	assert.JSONEq(t, `{"roomId":1,"occupancy":1}`, string(expect(t, b, domain.EventRoomUpdate).Data))
	assert.Eventually(t, func() bool { return f.hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestWS_CreateRoomSynthesisesName(t *testing.T) {
	f := newWSFixture(t)
	a, _ := f.dialNamed(t)
	b, _ := f.dialNamed(t)

	send(t, a, `{"type":"createRoom","data":{}}`)
	for _, conn := range []*websocket.Conn{a, b} {
		var room domain.RoomResponse
		require.NoError(t, json.Unmarshal(expect(t, conn, domain.EventNewRoom).Data, &room))
		assert.Equal(t, "Room1", room.Name)
		assert.Equal(t, 0, room.Occupancy)
		assert.Equal(t, domain.DefaultRoomIcon, *room.Icon)
	}

	send(t, a, `{"type":"createRoom"}`)
	var room domain.RoomResponse
	require.NoError(t, json.Unmarshal(expect(t, a, domain.EventNewRoom).Data, &room))
	assert.Equal(t, "Room2", room.Name)
}

func TestWS_ErrorsKeepConnectionOpen(t *testing.T) {
	f := newWSFixture(t)
	conn, _ := f.dialNamed(t)

	tests := []struct {
		name  string
		frame string
		code  string
	}{
		{"not json", `hello`, domain.ErrCodeBadRequest},
		{"missing type", `{"data":{}}`, domain.ErrCodeBadRequest},
		{"unknown type", `{"type":"shout"}`, domain.ErrCodeBadRequest},
		{"bad payload", `{"type":"joinRoom","data":"x"}`, domain.ErrCodeBadRequest},
		{"bad room id", `{"type":"joinRoom","data":{"roomId":"abc"}}`, domain.ErrCodeBadRequest},
		{"unknown room", `{"type":"joinRoom","data":{"roomId":99}}`, domain.ErrCodeRoomNotFound},
		{"empty text", `{"type":"sendMessage","data":{"text":"  ","roomId":1}}`, domain.ErrCodeBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			send(t, conn, tt.frame)
			assert.Equal(t, tt.code, expectError(t, conn).Code)
		})
	}

	send(t, conn, `{"type":"ping"}`)
	assert.Equal(t, domain.EventPong, read(t, conn).Type)
}

func TestWS_MessageRoomFallback(t *testing.T) {
	f := newWSFixture(t)
	conn, _ := f.dialNamed(t)

	send(t, conn, `{"type":"sendMessage","data":{"text":"where","roomId":"lobby"}}`)
	var msg domain.NewMessageData
	require.NoError(t, json.Unmarshal(expect(t, conn, domain.EventNewMessage).Data, &msg))
	assert.Equal(t, domain.FallbackRoomID, msg.RoomID)
}

func TestWS_Health(t *testing.T) {
	f := newWSFixture(t)
	f.dialNamed(t)

	resp, err := http.Get(f.base + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok","clients":1}`, string(body))
}
