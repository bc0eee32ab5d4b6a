// Package livereload tells browsers to reload pages whose templates changed.
//
// Pages served with the reload script open a WebSocket to the hub's handler.
// When a template changes, Notify sends every connected page a reload
// message.
package livereload

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/livefir/livelayout/internal/logging"
)

const writeTimeout = 5 * time.Second

// Message is sent to connected pages
type Message struct {
	Type     string `json:"type"`
	Template string `json:"template,omitempty"`
}

// Connection is a page connected to the hub
type Connection struct {
	Conn *websocket.Conn
	Page string // path of the page that opened the connection
	mu   sync.Mutex
}

// Send writes a message to the connection. It is safe for concurrent use.
func (c *Connection) Send(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.Conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.Conn.WriteMessage(messageType, data)
}

// Hub tracks connected pages, indexed by page path
type Hub struct {
	byPage   map[string][]*Connection
	mu       sync.RWMutex
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHub creates an empty hub. A nil logger disables logging.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		byPage: make(map[string][]*Connection),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logging.OrNop(logger),
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.byPage[conn.Page] = append(h.byPage[conn.Page], conn)
}

// Unregister removes a connection. Unknown connections are ignored.
func (h *Hub) Unregister(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := removeConnection(h.byPage[conn.Page], conn)
	if len(conns) == 0 {
		delete(h.byPage, conn.Page)
		return
	}
	h.byPage[conn.Page] = conns
}

// GetByPage returns a copy of the connections opened by page
func (h *Hub) GetByPage(page string) []*Connection {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make([]*Connection, len(h.byPage[page]))
	copy(result, h.byPage[page])
	return result
}

// GetAll returns every connection
func (h *Hub) GetAll() []*Connection {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var result []*Connection
	for _, conns := range h.byPage {
		result = append(result, conns...)
	}
	return result
}

// Count returns the number of connections
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, conns := range h.byPage {
		count += len(conns)
	}
	return count
}

// Broadcast sends msg to every connection and returns how many received it.
// Connections that fail are closed; their handlers unregister them.
func (h *Hub) Broadcast(msg Message) int {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to encode message", zap.Error(err))
		return 0
	}

	sent := 0
	for _, conn := range h.GetAll() {
		if err := conn.Send(websocket.TextMessage, data); err != nil {
			h.logger.Debug("dropping connection",
				zap.String("page", conn.Page),
				zap.Error(err))
			conn.Conn.Close()
			continue
		}
		sent++
	}
	return sent
}

// Notify tells every connected page that template changed. Its signature
// matches the engine's change hook.
func (h *Hub) Notify(template string) {
	n := h.Broadcast(Message{Type: "reload", Template: template})
	h.logger.Debug("sent reload",
		zap.String("template", template),
		zap.Int("connections", n))
}

// Close closes every connection
func (h *Hub) Close() {
	for _, conn := range h.GetAll() {
		conn.Conn.Close()
	}
}

// ServeHTTP upgrades the request to a WebSocket and holds it until the page
// goes away. The page query parameter names the page being viewed.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer ws.Close()

	conn := &Connection{Conn: ws, Page: r.URL.Query().Get("page")}
	h.Register(conn)
	defer h.Unregister(conn)

	h.logger.Debug("page connected",
		zap.String("page", conn.Page),
		zap.String("remote", ws.RemoteAddr().String()))

	// pages never send anything; reading detects when they go away
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket error", zap.Error(err))
			}
			return
		}
	}
}

func removeConnection(conns []*Connection, target *Connection) []*Connection {
	result := make([]*Connection, 0, len(conns))
	for _, conn := range conns {
		if conn != target {
			result = append(result, conn)
		}
	}
	return result
}
