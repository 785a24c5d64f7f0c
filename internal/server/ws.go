package server

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// DiceHandler pushes every frame result to WebSocket clients as JSON.
type DiceHandler struct {
	hub *Hub
}

// NewDiceHandler creates a new DiceHandler fed by hub.
func NewDiceHandler(hub *Hub) *DiceHandler {
	return &DiceHandler{hub: hub}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *DiceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	results, unsubscribe := h.hub.Subscribe()
	defer unsubscribe()

	// The client sends nothing; reading detects when it goes away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case msg := <-results:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}
}
