package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/podwave/podwave-backend/services"
)

type Client struct {
	Conn *websocket.Conn
	Send chan []byte
}

// Hub fans podcast status updates out to each user's open connections.
type Hub struct {
	Clients map[string]map[*websocket.Conn]*Client // keyed by userID
	Mutex   sync.RWMutex
}

var H = Hub{
	Clients: make(map[string]map[*websocket.Conn]*Client),
}

func (h *Hub) Register(userID string, conn *websocket.Conn) {
	h.Mutex.Lock()
	defer h.Mutex.Unlock()

	if _, ok := h.Clients[userID]; !ok {
		h.Clients[userID] = make(map[*websocket.Conn]*Client)
	}

	client := &Client{
		Conn: conn,
		Send: make(chan []byte, 256),
	}
	h.Clients[userID][conn] = client

	go h.writePump(client)
}

func (h *Hub) Unregister(userID string, conn *websocket.Conn) {
	h.Mutex.Lock()
	defer h.Mutex.Unlock()

	if clients, ok := h.Clients[userID]; ok {
		if client, ok := clients[conn]; ok {
			close(client.Send)
			delete(clients, conn)
		}
		if len(clients) == 0 {
			delete(h.Clients, userID)
		}
	}
}

// Broadcast queues data for every connection belonging to userID. Slow
// consumers are skipped rather than blocking the sender.
func (h *Hub) Broadcast(userID string, data []byte) {
	h.Mutex.RLock()
	defer h.Mutex.RUnlock()

	for _, client := range h.Clients[userID] {
		select {
		case client.Send <- data:
		default:
		}
	}
}

func (h *Hub) writePump(client *Client) {
	for msg := range client.Send {
		if err := client.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// GetStats reports connection counts for the health endpoint.
func (h *Hub) GetStats() map[string]interface{} {
	h.Mutex.RLock()
	defer h.Mutex.RUnlock()

	total := 0
	for _, clients := range h.Clients {
		total += len(clients)
	}
	return map[string]interface{}{
		"users":       len(h.Clients),
		"connections": total,
	}
}

// Notifier adapts the hub to the orchestrator's StatusNotifier interface.
type Notifier struct {
	hub *Hub
}

func NewNotifier() *Notifier {
	return &Notifier{hub: &H}
}

func (n *Notifier) NotifyPodcastStatus(userID string, update services.StatusUpdate) {
	data, err := json.Marshal(update)
	if err != nil {
		log.Println("JSON marshal error:", err)
		return
	}
	n.hub.Broadcast(userID, data)
}
