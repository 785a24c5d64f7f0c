package server

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/dicecount/internal/session"
)

// clientBuffer is the number of frame results queued per WebSocket client
// before new ones are dropped for that client.
const clientBuffer = 8

// Hub fans processed frames out to HTTP clients. It keeps the latest overlay
// frame as JPEG for the MJPEG stream and pushes every frame result to
// WebSocket subscribers.
type Hub struct {
	mu      sync.RWMutex
	jpeg    []byte
	seq     uint64
	updated chan struct{}
	clients map[chan []byte]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		updated: make(chan struct{}),
		clients: make(map[chan []byte]struct{}),
	}
}

// Publish implements session.Publisher.
func (h *Hub) Publish(frame *gocv.Mat, result session.FrameResult) {
	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		log.Printf("Error encoding frame: %v", err)
		return
	}
	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	buf.Close()

	h.publish(data, result)
}

func (h *Hub) publish(jpeg []byte, result session.FrameResult) {
	msg, err := json.Marshal(result)
	if err != nil {
		log.Printf("Error encoding frame result: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.jpeg = jpeg
	h.seq = result.Seq
	close(h.updated)
	h.updated = make(chan struct{})

	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
		}
	}
}

// Latest returns the most recent JPEG frame and its sequence number. A nil
// frame means nothing has been published yet.
func (h *Hub) Latest() ([]byte, uint64) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.jpeg, h.seq
}

// Next blocks until a frame newer than after is available or ctx is done.
func (h *Hub) Next(ctx context.Context, after uint64) ([]byte, uint64, bool) {
	for {
		h.mu.RLock()
		jpeg, seq, updated := h.jpeg, h.seq, h.updated
		h.mu.RUnlock()

		if jpeg != nil && seq != after {
			return jpeg, seq, true
		}

		select {
		case <-ctx.Done():
			return nil, 0, false
		case <-updated:
		}
	}
}

// Subscribe registers a client for frame results. The returned function
// unregisters it.
func (h *Hub) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, clientBuffer)

	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		delete(h.clients, ch)
		h.mu.Unlock()
	}
}

// Clients returns the number of subscribed clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
