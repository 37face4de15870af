package hub

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/huiqicai/hci-social-backend/internal/config"
	"github.com/huiqicai/hci-social-backend/pkg/log"
)

// Hub owns every live websocket client and the tenant-scoped room channels
// they subscribe to. Broadcasts reach every subscriber of a room channel
// except the excluded sender.
type Hub struct {
	clients    map[string]*Client            // socketID -> client
	rooms      map[string]map[string]*Client // "tenant/room_N" -> socketID -> client
	register   chan *Client
	unregister chan *Client
	broadcast  chan *roomMessage
	mu         sync.RWMutex
	config     config.WebSocketConfig
}

type roomMessage struct {
	Key     string
	Message []byte
	Exclude string // socket ID to exclude
}

func NewHub(cfg config.WebSocketConfig) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *roomMessage, 256),
		config:     cfg,
	}
}

// roomKey names the room channel inside a tenant namespace, so identical
// room ids under different tenants can never collide.
func roomKey(tenantID string, roomID uint) string {
	return fmt.Sprintf("%s/room_%d", tenantID, roomID)
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			l := log.L()
			l.Debug().Str(log.FieldSocketID, client.ID).Msg("client registered")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				for key, subscribers := range h.rooms {
					delete(subscribers, client.ID)
					if len(subscribers) == 0 {
						delete(h.rooms, key)
					}
				}
				delete(h.clients, client.ID)
				close(client.Send)
			}
			h.mu.Unlock()
			l := log.L()
			l.Debug().Str(log.FieldSocketID, client.ID).Msg("client unregistered")

		case msg := <-h.broadcast:
			h.mu.RLock()
			if subscribers, ok := h.rooms[msg.Key]; ok {
				for socketID, client := range subscribers {
					if socketID == msg.Exclude {
						continue
					}
					select {
					case client.Send <- msg.Message:
					default:
						go h.removeClient(client)
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Client returns the live client for a socket ID, if registered.
func (h *Hub) Client(socketID string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.clients[socketID]
	return client, ok
}

// JoinRoom subscribes a client to a tenant-scoped room channel.
func (h *Hub) JoinRoom(client *Client, tenantID string, roomID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := roomKey(tenantID, roomID)
	if _, ok := h.rooms[key]; !ok {
		h.rooms[key] = make(map[string]*Client)
	}
	h.rooms[key][client.ID] = client
	l := log.L()
	l.Debug().Str(log.FieldSocketID, client.ID).Str("room_channel", key).Msg("client joined room channel")
}

// LeaveRoom unsubscribes a client from a room channel.
func (h *Hub) LeaveRoom(client *Client, tenantID string, roomID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := roomKey(tenantID, roomID)
	if subscribers, ok := h.rooms[key]; ok {
		delete(subscribers, client.ID)
		if len(subscribers) == 0 {
			delete(h.rooms, key)
		}
	}
}

// BroadcastToRoom delivers a payload to every subscriber of a room channel
// except the excluded socket.
func (h *Hub) BroadcastToRoom(tenantID string, roomID uint, message interface{}, exclude string) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.broadcast <- &roomMessage{
		Key:     roomKey(tenantID, roomID),
		Message: data,
		Exclude: exclude,
	}
	return nil
}

// RoomSubscriberCount reports how many clients are subscribed to a room
// channel.
func (h *Hub) RoomSubscriberCount(tenantID string, roomID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if subscribers, ok := h.rooms[roomKey(tenantID, roomID)]; ok {
		return len(subscribers)
	}
	return 0
}

func (h *Hub) removeClient(client *Client) {
	h.unregister <- client
}
