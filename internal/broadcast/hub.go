package broadcast

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const clientBufferSize = 16

// Hub fans every published message out to all connected websocket clients.
// Delivery is unscoped: a cart update for one user reaches every client.
type Hub struct {
	log      *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]chan []byte
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[string]chan []byte),
	}
}

func (h *Hub) Publish(channel string, payload interface{}) {
	data, err := json.Marshal(Envelope{Event: channel, Data: payload})
	if err != nil {
		h.log.Error("broadcast marshal failed", "channel", channel, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.clients {
		select {
		case ch <- data:
		default:
			// Slow consumer, drop it rather than block the publisher.
			delete(h.clients, id)
			close(ch)
			h.log.Warn("dropping slow websocket client", "client_id", id)
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Serve upgrades the request and pumps published messages to the client
// until it disconnects. There is no replay of missed messages.
func (h *Hub) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	id := uuid.NewString()
	ch := make(chan []byte, clientBufferSize)

	h.mu.Lock()
	h.clients[id] = ch
	h.mu.Unlock()

	h.log.Info("websocket client connected", "client_id", id)

	go func() {
		defer conn.Close()
		for msg := range ch {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.remove(id)
	h.log.Info("websocket client disconnected", "client_id", id)
	return nil
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.clients[id]; ok {
		delete(h.clients, id)
		close(ch)
	}
}
