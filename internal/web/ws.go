package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/focusrank/focusrank/internal/metrics"
	"github.com/focusrank/focusrank/internal/models"
	"github.com/focusrank/focusrank/pkg/window"
)

const (
	// MessageWindowsChanged is pushed when the recommendation changes and once
	// on connect
	MessageWindowsChanged = "windows_changed"

	clientBuffer = 8
	writeWait    = 10 * time.Second
	pingPeriod   = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is the payload sent to WebSocket clients
type Message struct {
	Type    string                `json:"type"`
	Ranking *models.RankingReport `json:"ranking"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Broadcaster pushes the ranking to every connected WebSocket client.
// NotifyWindowsChanged only signals; Run builds and sends the message on its
// own goroutine.
type Broadcaster struct {
	build   func() *models.RankingReport
	logger  *zap.Logger
	metrics *metrics.Metrics

	notify     chan struct{}
	register   chan *wsClient
	unregister chan *wsClient
	clients    map[*wsClient]struct{}
}

// NewBroadcaster creates a broadcaster sending the reports built by build
func NewBroadcaster(build func() *models.RankingReport, logger *zap.Logger, m *metrics.Metrics) *Broadcaster {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broadcaster{
		build:      build,
		logger:     logger.Named("ws"),
		metrics:    m,
		notify:     make(chan struct{}, 1),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		clients:    make(map[*wsClient]struct{}),
	}
}

// NotifyWindowsChanged schedules a broadcast. It never blocks; changes that
// arrive before the pending broadcast is sent are coalesced.
func (b *Broadcaster) NotifyWindowsChanged([]window.Handle) {
	select {
	case b.notify <- struct{}{}:
	default:
	}
}

// Run serves registrations and broadcasts until ctx is cancelled
func (b *Broadcaster) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for c := range b.clients {
				b.drop(c)
			}
			return

		case c := <-b.register:
			b.clients[c] = struct{}{}
			if b.metrics != nil {
				b.metrics.WSConnections.Inc()
			}
			if data, ok := b.message(); ok {
				b.deliver(c, data)
			}

		case c := <-b.unregister:
			if _, ok := b.clients[c]; ok {
				b.drop(c)
			}

		case <-b.notify:
			if len(b.clients) == 0 {
				continue
			}
			data, ok := b.message()
			if !ok {
				continue
			}
			for c := range b.clients {
				b.deliver(c, data)
			}
		}
	}
}

func (b *Broadcaster) message() ([]byte, bool) {
	data, err := json.Marshal(Message{Type: MessageWindowsChanged, Ranking: b.build()})
	if err != nil {
		b.logger.Error("failed to marshal message", zap.Error(err))
		return nil, false
	}
	return data, true
}

// deliver queues data for c and drops clients that cannot keep up
func (b *Broadcaster) deliver(c *wsClient, data []byte) {
	select {
	case c.send <- data:
		if b.metrics != nil {
			b.metrics.WSMessages.Inc()
		}
	default:
		b.logger.Warn("dropping slow WebSocket client")
		b.drop(c)
	}
}

func (b *Broadcaster) drop(c *wsClient) {
	delete(b.clients, c)
	close(c.send)
	if b.metrics != nil {
		b.metrics.WSConnections.Dec()
	}
}

// ServeWS upgrades the request and streams messages until the client leaves
func (b *Broadcaster) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, clientBuffer)}
	select {
	case b.register <- c:
	case <-r.Context().Done():
		conn.Close()
		return
	}

	go b.writePump(c)
	b.readPump(c)
}

// readPump discards client messages and unregisters on disconnect
func (b *Broadcaster) readPump(c *wsClient) {
	defer func() {
		select {
		case b.unregister <- c:
		case <-time.After(writeWait):
		}
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (b *Broadcaster) writePump(c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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
