package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/CVSU-IMUS-BSIT-4A/chat-gateway/internal/config"
	pkglog "github.com/CVSU-IMUS-BSIT-4A/chat-gateway/pkg/log"
)

var ErrHubClosed = errors.New("hub closed")

// Hub owns the set of live clients and fans broadcasts out to all of them.
type Hub struct {
	clients    map[string]*Client // clientID -> client
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}
	mu         sync.RWMutex
	config     config.WebSocketConfig
}

func NewHub(cfg config.WebSocketConfig) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
		config:     cfg,
	}
}

// Run serves register, unregister and broadcast requests until ctx is done,
// then closes every remaining client.
func (h *Hub) Run(ctx context.Context) {
	l := pkglog.L()
	defer func() {
		h.mu.Lock()
		for id, client := range h.clients {
			client.close()
			delete(h.clients, id)
		}
		h.mu.Unlock()
		close(h.done)
		l.Debug().Msg("hub stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			h.mu.Unlock()
			l.Debug().Str(pkglog.FieldConnID, client.id).Msg("client registered")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				client.close()
			}
			h.mu.Unlock()
			l.Debug().Str(pkglog.FieldConnID, client.id).Msg("client unregistered")

		case data := <-h.broadcast:
			h.mu.RLock()
			for _, client := range h.clients {
				if err := client.enqueue(data); err != nil {
					l.Warn().Err(err).Str(pkglog.FieldConnID, client.id).Msg("dropping slow client")
					go h.removeClient(client)
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) Register(client *Client) error {
	select {
	case h.register <- client:
		return nil
	case <-h.done:
		return ErrHubClosed
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// BroadcastAll delivers message to every registered client. Delivery to one
// client never waits on another.
func (h *Hub) BroadcastAll(message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	select {
	case <-h.done:
		return ErrHubClosed
	default:
	}

	select {
	case h.broadcast <- data:
		return nil
	case <-h.done:
		return ErrHubClosed
	}
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

func (h *Hub) removeClient(client *Client) {
	h.Unregister(client)
}
