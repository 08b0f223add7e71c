package echoapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/edukanda/edukanda/core"
	"github.com/edukanda/edukanda/core/moderation"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = (wsPongWait * 9) / 10
	wsSendBufferSize = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // the admin token is checked before upgrading
	},
}

// activityHub pushes every recorded activity to the connected admin dashboards.
// Clients that cannot keep up are disconnected.
type activityHub struct {
	clients    map[*wsClient]bool
	broadcast  chan moderation.Activity
	register   chan *wsClient
	unregister chan *wsClient
	done       chan struct{}
	stopOnce   sync.Once
	logger     core.Logger
}

var _ moderation.Notifier = (*activityHub)(nil) // interface compliance check

func newActivityHub(logger core.Logger) *activityHub {
	return &activityHub{
		clients:    make(map[*wsClient]bool),
		broadcast:  make(chan moderation.Activity, wsSendBufferSize),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

func (h *activityHub) run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true

		case c := <-h.unregister:
			h.drop(c)

		case a := <-h.broadcast:
			data, err := json.Marshal(a)
			if err != nil {
				h.logger.Error(fmt.Sprintf("encoding activity %d: %v", a.ID, err), err)
				continue
			}
			for c := range h.clients {
				select {
				case c.send <- data:
				default:
					h.logger.Warn("activity feed client too slow, disconnecting")
					h.drop(c)
				}
			}

		case <-h.done:
			for c := range h.clients {
				h.drop(c)
			}
			return
		}
	}
}

func (h *activityHub) drop(c *wsClient) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *activityHub) stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Notify queues a for broadcasting. It never blocks: activities are dropped while the queue is full.
func (h *activityHub) Notify(a moderation.Activity) {
	select {
	case h.broadcast <- a:
	case <-h.done:
	default:
		h.logger.Warn(fmt.Sprintf("activity feed queue full, dropping activity %d", a.ID))
	}
}

func (h *activityHub) serveWS(ctx echo.Context) error {
	conn, err := upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		return nil // the upgrader already answered
	}

	c := &wsClient{hub: h, conn: conn, send: make(chan []byte, wsSendBufferSize)}
	select {
	case h.register <- c:
	case <-h.done:
		return conn.Close()
	}

	go c.writePump()
	go c.readPump()
	return nil
}

type wsClient struct {
	hub  *activityHub
	conn *websocket.Conn
	send chan []byte
}

// readPump discards incoming messages and unregisters the client once the connection is gone.
func (c *wsClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn(fmt.Sprintf("activity feed: %v", err))
			}
			return
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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
