package realtime

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/camden-git/requestsysbackend/models"
	"github.com/gorilla/websocket"
)

// Event represents a request lifecycle message sent to websocket
// clients. Events are emitted only after the underlying store
// transaction committed, so an auto-approved request is announced as
// approved and never as pending.
type Event struct {
	Type      string               `json:"type"`
	RequestID uint                 `json:"request_id,omitempty"`
	OwnerID   uint                 `json:"owner_id,omitempty"`
	CatalogID string               `json:"catalog_id,omitempty"`
	Kind      models.MediaKind     `json:"kind,omitempty"`
	Status    models.RequestStatus `json:"status,omitempty"`
	Title     string               `json:"title,omitempty"`
	Timestamp int64                `json:"timestamp"`
}

type Client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub is a simple global pubsub for websocket clients
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) Broadcast(event Event) {
	encoded, err := json.Marshal(event)
	if err != nil {
		log.Printf("realtime: failed to marshal event: %v", err)
		return
	}
	select {
	case h.broadcast <- encoded:
	default:
		log.Printf("realtime: dropping event, broadcast channel full")
	}
}

// NotifyRequestEvent satisfies the services.Notifier interface.
func (h *Hub) NotifyRequestEvent(eventType string, request *models.MediaRequest) {
	h.Broadcast(Event{
		Type:      eventType,
		RequestID: request.ID,
		OwnerID:   request.OwnerUserID,
		CatalogID: request.CatalogID,
		Kind:      request.Kind,
		Status:    request.Status,
		Title:     request.Title,
		Timestamp: time.Now().Unix(),
	})
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS upgrades the connection and registers a client
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("realtime: websocket upgrade error: %v", err)
		return
	}
	client := &Client{conn: conn, send: make(chan []byte, 256)}
	h.register <- client

	// writer
	go func() {
		for msg := range client.send {
			if err := client.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				break
			}
		}
		client.conn.Close()
	}()

	// reader (just consume pings/close)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.unregister <- client
}
