package web

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/PancyStudios/PancyGuardGo/pkg/logger"
	"github.com/PancyStudios/PancyGuardGo/pkg/security"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 512
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The stream is authenticated by token, not by origin
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StreamEvent is the message pushed to stream clients.
type StreamEvent struct {
	Type   string             `json:"type"`
	Record security.LogRecord `json:"record"`
}

// Hub fans security log records out to websocket clients. It is a
// security.LogSink; a client may filter by guild with ?guild=.
type Hub struct {
	mu      sync.RWMutex
	clients map[*streamClient]struct{}
}

type streamClient struct {
	conn    *websocket.Conn
	guildID string
	send    chan []byte
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*streamClient]struct{})}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Emit queues the record for every interested client. Clients whose buffer
// is full are disconnected.
func (h *Hub) Emit(_ context.Context, rec security.LogRecord) error {
	data, err := json.Marshal(StreamEvent{Type: "security", Record: rec})
	if err != nil {
		return fmt.Errorf("encoding stream event: %w", err)
	}

	var slow []*streamClient
	h.mu.RLock()
	for c := range h.clients {
		if c.guildID != "" && c.guildID != rec.TenantID {
			continue
		}
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		logger.Warn("Cliente del stream demasiado lento, desconectado", "Stream")
		h.remove(c)
	}
	return nil
}

func (h *Hub) add(c *streamClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	logger.Debug(fmt.Sprintf("Cliente del stream conectado (%d activos)", n), "Stream")
}

// remove closes the send channel once; writePump then closes the socket.
func (h *Hub) remove(c *streamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Shutdown disconnects every client.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

// ServeWS upgrades the request and streams records until the client leaves.
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("No se pudo abrir el websocket: "+err.Error(), "Stream")
		return
	}
	client := &streamClient{
		conn:    conn,
		guildID: c.Query("guild"),
		send:    make(chan []byte, sendBufferSize),
	}
	h.add(client)

	go client.writePump()
	client.readPump(h)
}

// readPump only handles control frames; clients do not send data.
func (c *streamClient) readPump(h *Hub) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("Cierre inesperado del stream: "+err.Error(), "Stream")
			}
			return
		}
	}
}

func (c *streamClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
