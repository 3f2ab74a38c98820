package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/internal/domain"
)

type fakeConn struct {
	id      string
	session *domain.Session

	mu   sync.Mutex
	sent []*domain.OutboundEvent
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id, session: domain.NewSession(id)}
}

func (c *fakeConn) ID() string               { return c.id }
func (c *fakeConn) Session() *domain.Session { return c.session }

func (c *fakeConn) SendMessage(message interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, message.(*domain.OutboundEvent))
	return nil
}

func (c *fakeConn) events() []*domain.OutboundEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*domain.OutboundEvent(nil), c.sent...)
}

func (c *fakeConn) last() *domain.OutboundEvent {
	ev := c.events()
	if len(ev) == 0 {
		return nil
	}
	return ev[len(ev)-1]
}

type fakeBroadcaster struct {
	mu   sync.Mutex
	sent []*domain.OutboundEvent
}

func (b *fakeBroadcaster) BroadcastAll(message interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, message.(*domain.OutboundEvent))
	return nil
}

func (b *fakeBroadcaster) ofType(eventType string) []*domain.OutboundEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []*domain.OutboundEvent
	for _, ev := range b.sent {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

func (b *fakeBroadcaster) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = nil
}

type fakeRegistry struct {
	mu        sync.Mutex
	rooms     []domain.Room
	nextID    uint
	listErr   error
	createErr error
	getErr    error
}

func newFakeRegistry(names ...string) *fakeRegistry {
	r := &fakeRegistry{nextID: 1}
	for _, n := range names {
		r.add(n)
	}
	return r
}

func (r *fakeRegistry) add(name string) domain.Room {
	room := domain.Room{ID: r.nextID, Name: name}
	r.nextID++
	r.rooms = append(r.rooms, room)
	return room
}

func (r *fakeRegistry) ListRooms(ctx context.Context) ([]domain.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	return append([]domain.Room(nil), r.rooms...), nil
}

func (r *fakeRegistry) ListRoomsFresh(ctx context.Context) ([]domain.Room, error) {
	return r.ListRooms(ctx)
}

func (r *fakeRegistry) CountRooms(ctx context.Context) (int64, error) {
	rooms, err := r.ListRooms(ctx)
	return int64(len(rooms)), err
}

func (r *fakeRegistry) GetRoom(ctx context.Context, id uint) (*domain.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	for _, room := range r.rooms {
		if room.ID == id {
			room := room
			return &room, nil
		}
	}
	return nil, ErrRoomNotFound
}

func (r *fakeRegistry) CreateRoom(ctx context.Context, req *domain.CreateRoomRequest) (*domain.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	room := r.add(req.Name)
	room.Description = req.Description
	room.Icon = req.Icon
	r.rooms[len(r.rooms)-1] = room
	return &room, nil
}

type appended struct {
	roomID uint
	sender string
	text   string
}

type fakeStore struct {
	err   error
	calls chan appended
}

func newFakeStore(err error) *fakeStore {
	return &fakeStore{err: err, calls: make(chan appended, 16)}
}

func (s *fakeStore) AppendMessage(ctx context.Context, roomID uint, sender, text string) (*domain.Message, error) {
	s.calls <- appended{roomID: roomID, sender: sender, text: text}
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Message{ChatroomID: roomID, Username: sender, Message: text}, nil
}

type published struct {
	roomID uint
	event  *domain.OutboundEvent
}

type fakeRelay struct {
	mu   sync.Mutex
	sent []published
}

func (r *fakeRelay) Publish(ctx context.Context, roomID uint, event *domain.OutboundEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, published{roomID: roomID, event: event})
	return nil
}

var errBoom = errors.New("boom")

// decode round-trips an event's data through JSON into v.
func decode(ev *domain.OutboundEvent, v interface{}) error {
	b, err := json.Marshal(ev.Data)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}
