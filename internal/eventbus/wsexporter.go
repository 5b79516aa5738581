// Package eventbus provides out-of-process subscribers for the Agent
// Runtime's event stream. Subscribers implement agent.EventSink and are
// fanned out to alongside any in-process sinks (see agent.MultiSink).
package eventbus

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/forge-ai/forge-core/pkg/models"
)

const (
	wsWriteWait    = 10 * time.Second
	wsPongWait     = 45 * time.Second
	wsPingInterval = 20 * time.Second
	wsSendBuffer   = 256
)

// WSExporter is an EventSink that broadcasts every emitted event as JSON to
// all currently connected WebSocket clients. Slow or disconnected clients
// never block event emission: a client whose send buffer is full is
// dropped rather than allowed to backpressure the Agent Runtime.
type WSExporter struct {
	mu       sync.RWMutex
	clients  map[*wsClient]struct{}
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWSExporter creates a WebSocket exporter ready to be mounted as an
// http.Handler and registered as an agent.EventSink.
func NewWSExporter(logger *slog.Logger) *WSExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSExporter{
		clients: make(map[*wsClient]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Emit implements agent.EventSink, broadcasting e to every connected client.
func (x *WSExporter) Emit(ctx context.Context, e models.AgentEvent) {
	data, err := json.Marshal(e)
	if err != nil {
		x.logger.Warn("eventbus: marshal event failed", "error", err, "type", e.Type)
		return
	}

	x.mu.RLock()
	defer x.mu.RUnlock()
	for c := range x.clients {
		select {
		case c.send <- data:
		default:
			x.logger.Warn("eventbus: dropping event for slow client", "type", e.Type)
		}
	}
}

// ServeHTTP upgrades the connection and registers it as a broadcast
// recipient until it disconnects or its write side errors.
func (x *WSExporter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := x.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, wsSendBuffer)}
	x.register(c)
	defer x.unregister(c)

	go c.writeLoop()
	c.readLoop()
}

func (x *WSExporter) register(c *wsClient) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.clients[c] = struct{}{}
}

func (x *WSExporter) unregister(c *wsClient) {
	x.mu.Lock()
	delete(x.clients, c)
	x.mu.Unlock()
	c.close()
}

// ClientCount reports how many exporters are currently connected, mainly
// for health/metrics reporting.
func (x *WSExporter) ClientCount() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.clients)
}

type wsClient struct {
	conn    *websocket.Conn
	send    chan []byte
	closeMu sync.Mutex
	closed  bool
}

// readLoop only exists to service control frames (pings/close); exporter
// clients are not expected to send application data.
func (c *wsClient) readLoop() {
	c.conn.SetReadLimit(1 << 16)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *wsClient) writeLoop() {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *wsClient) close() {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
}
