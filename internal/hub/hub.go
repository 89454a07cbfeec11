package hub

import (
	"encoding/json"
	"sync"

	"github.com/wououoo/weddingalba-chat/internal/config"
	"github.com/wououoo/weddingalba-chat/pkg/log"
)

// Hub tracks live connections and routes pushed events to room subscribers
// and to per-user private channels. Delivery is push-only: no client acks,
// no backpressure, no offline queue. A client whose send buffer is full is
// dropped and must reconcile through the history API after reconnecting.
type Hub struct {
	clients    map[string]*Client            // clientID -> client
	rooms      map[string]map[string]*Client // roomID -> clientID -> client
	users      map[int64]map[string]*Client  // userID -> clientID -> client
	register   chan *Client
	unregister chan *Client
	broadcast  chan *pushEvent
	mu         sync.RWMutex
	config     config.WebSocketConfig
}

type pushEvent struct {
	roomID  string // non-empty for room pushes
	userID  int64  // non-zero for user pushes
	message []byte
}

func NewHub(cfg config.WebSocketConfig) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		users:      make(map[int64]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *pushEvent, 256),
		config:     cfg,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			if client.UserID != 0 {
				if _, ok := h.users[client.UserID]; !ok {
					h.users[client.UserID] = make(map[string]*Client)
				}
				h.users[client.UserID][client.ID] = client
			}
			h.mu.Unlock()
			l := log.L()
			l.Debug().Str("client_id", client.ID).Int64(log.FieldUserID, client.UserID).Msg("client registered")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				for roomID, members := range h.rooms {
					delete(members, client.ID)
					if len(members) == 0 {
						delete(h.rooms, roomID)
					}
				}
				if members, ok := h.users[client.UserID]; ok {
					delete(members, client.ID)
					if len(members) == 0 {
						delete(h.users, client.UserID)
					}
				}
				delete(h.clients, client.ID)
				close(client.Send)
			}
			h.mu.Unlock()
			l := log.L()
			l.Debug().Str("client_id", client.ID).Msg("client unregistered")

		case ev := <-h.broadcast:
			h.mu.RLock()
			if ev.roomID != "" {
				h.deliverLocked(h.rooms[ev.roomID], ev.message)
			}
			if ev.userID != 0 {
				h.deliverLocked(h.users[ev.userID], ev.message)
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) deliverLocked(members map[string]*Client, message []byte) {
	for _, client := range members {
		select {
		case client.Send <- message:
		default:
			go h.removeClient(client)
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Subscribe attaches a client to a room channel.
func (h *Hub) Subscribe(client *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[string]*Client)
	}
	h.rooms[roomID][client.ID] = client
	l := log.L()
	l.Info().Str("client_id", client.ID).Str(log.FieldRoomID, roomID).Msg("client subscribed to room")
}

// Unsubscribe detaches a client from a room channel.
func (h *Hub) Unsubscribe(client *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.rooms[roomID]; ok {
		delete(members, client.ID)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// BroadcastToRoom pushes a payload to all subscribers of a room.
func (h *Hub) BroadcastToRoom(roomID string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	h.broadcast <- &pushEvent{roomID: roomID, message: data}
	return nil
}

// SendToUser pushes a payload to every live connection of one user.
func (h *Hub) SendToUser(userID int64, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	h.broadcast <- &pushEvent{userID: userID, message: data}
	return nil
}

// RoomSubscriberCount returns the number of live subscribers of a room.
func (h *Hub) RoomSubscriberCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

func (h *Hub) removeClient(client *Client) {
	h.unregister <- client
}
