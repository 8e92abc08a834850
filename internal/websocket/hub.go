package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"penx/internal/shared"
)

const historySize = 50

// Client represents a single WebSocket connection
type Client struct {
	Hub  *Hub            // Reference to the central hub
	Conn *websocket.Conn // WebSocket connection
	Send chan []byte     // Outgoing message channel
	Room string          // Book the client follows
}

type envelope struct {
	room string
	data []byte
}

// Hub manages all WebSocket clients and book rooms
type Hub struct {
	clients    map[*Client]bool            // All connected clients
	rooms      map[string]map[*Client]bool // Room → clients mapping
	broadcast  chan envelope
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex // Protects clients & rooms

	history   map[string][][]byte // Last events per room
	historyMu sync.RWMutex

	done chan struct{} // Closed when Run returns
}

// Creates and initializes a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		broadcast:  make(chan envelope, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		history:    make(map[string][][]byte),
		done:       make(chan struct{}),
	}
}

// Run is the hub event loop. It returns when ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return

		case client := <-h.Register:
			h.mu.Lock()
			h.clients[client] = true
			if h.rooms[client.Room] == nil {
				h.rooms[client.Room] = make(map[*Client]bool)
			}
			h.rooms[client.Room][client] = true
			h.mu.Unlock()

			// Replay recent events so late joiners catch up
			for _, data := range h.History(client.Room) {
				select {
				case client.Send <- data:
				default:
				}
			}

		case client := <-h.Unregister:
			h.remove(client)

		case msg := <-h.broadcast:
			h.remember(msg)

			h.mu.RLock()
			var stale []*Client
			for client := range h.rooms[msg.room] {
				select {
				case client.Send <- msg.data:
				default:
					// Client send buffer full → disconnect
					stale = append(stale, client)
				}
			}
			h.mu.RUnlock()
			for _, client := range stale {
				h.remove(client)
			}
		}
	}
}

func (h *Hub) join(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.Send)

	if roomClients, exists := h.rooms[client.Room]; exists {
		delete(roomClients, client)
		if len(roomClients) == 0 {
			delete(h.rooms, client.Room)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.Send)
	}
	h.clients = make(map[*Client]bool)
	h.rooms = make(map[string]map[*Client]bool)
}

func (h *Hub) remember(msg envelope) {
	h.historyMu.Lock()
	defer h.historyMu.Unlock()
	events := append(h.history[msg.room], msg.data)
	if len(events) > historySize {
		events = events[len(events)-historySize:]
	}
	h.history[msg.room] = events
}

// Publish queues a comment event for every client following the book. It
// never blocks the caller; events are dropped when the queue is full.
func (h *Hub) Publish(event shared.CommentEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- envelope{room: event.BookID, data: data}:
	default:
	}
}

// History returns the recent events of a room, oldest first.
func (h *Hub) History(room string) [][]byte {
	h.historyMu.RLock()
	defer h.historyMu.RUnlock()
	return append([][]byte(nil), h.history[room]...)
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomSize returns the number of clients following one book
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
