package handlers

import (
	"net/http"
	"sync"

	"airdrop-backend/internal/events"
	"airdrop-backend/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// origin policy is enforced by the CORS layer in front of us
	CheckOrigin: func(r *http.Request) bool { return true },
}

// EventHub fans distribution events out to connected websocket clients.
// It implements events.Sink. Slow clients are dropped rather than allowed
// to block the claim path.
type EventHub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]chan events.Event
}

// NewEventHub creates an empty hub
func NewEventHub() *EventHub {
	return &EventHub{clients: make(map[*websocket.Conn]chan events.Event)}
}

// Broadcast delivers an event to every connected client without blocking
func (h *EventHub) Broadcast(event events.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn, ch := range h.clients {
		select {
		case ch <- event:
		default:
			logrus.WithField("remote", conn.RemoteAddr().String()).Warn("Dropping slow websocket client")
			go h.remove(conn)
		}
	}
}

func (h *EventHub) add(conn *websocket.Conn) chan events.Event {
	ch := make(chan events.Event, 64)
	h.mu.Lock()
	h.clients[conn] = ch
	h.mu.Unlock()
	metrics.WebSocketClients.Inc()
	return ch
}

func (h *EventHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	ch, ok := h.clients[conn]
	if ok {
		delete(h.clients, conn)
		close(ch)
	}
	h.mu.Unlock()
	if ok {
		metrics.WebSocketClients.Dec()
		conn.Close()
	}
}

// ServeWS handles GET /ws - a live feed of claim and epoch events
func (h *EventHub) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	ch := h.add(conn)
	logrus.WithField("remote", conn.RemoteAddr().String()).Info("WebSocket client connected")

	// reader: only there to detect close
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.remove(conn)
				return
			}
		}
	}()

	go func() {
		for event := range ch {
			if err := conn.WriteJSON(event); err != nil {
				h.remove(conn)
				return
			}
		}
	}()
}
