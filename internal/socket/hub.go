package socket

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Event is a report lifecycle notification pushed to connected admin
// dashboards.
type Event struct {
	Type    string      `json:"type"` // report.created, report.status, report.deleted
	Payload interface{} `json:"payload"`
}

// Hub tracks the WebSocket connections of logged-in admins and broadcasts
// report events to all of them. Connections are the map key so one admin can
// hold several dashboard tabs at once.
type Hub struct {
	clients map[*websocket.Conn]string
	mu      sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]string),
	}
}

// Register adds an admin connection to the hub.
func (h *Hub) Register(adminID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = adminID
	logrus.WithField("adminID", adminID).Info("dashboard client connected")
}

// Unregister removes a single connection from the hub. Other connections of
// the same admin stay subscribed.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if adminID, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		logrus.WithField("adminID", adminID).Info("dashboard client disconnected")
	}
}

// Broadcast sends an event to every connected dashboard. The hub lock is held
// across the writes: gorilla/websocket allows only one concurrent writer per
// connection, so concurrent broadcasts must be serialized. A failed write only
// affects that client; the event still reaches the others.
func (h *Hub) Broadcast(event Event) {
	message, err := json.Marshal(event)
	if err != nil {
		logrus.WithError(err).Error("failed to encode dashboard event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, adminID := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			logrus.WithError(err).WithField("adminID", adminID).Warn("failed to push dashboard event")
		}
	}
}
