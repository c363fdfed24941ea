package server

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	writeWait      = 2 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// -----------------------------------------------------------------------------
// Client Structure
// -----------------------------------------------------------------------------

// Client is one websocket subscriber. A client without subscriptions
// receives nothing.
type Client struct {
	hub  *APIServer
	conn *websocket.Conn
	send chan interface{}

	mu         sync.RWMutex
	categories map[string]bool
	all        bool
}

func newClient(hub *APIServer, conn *websocket.Conn) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan interface{}, 256),
		categories: make(map[string]bool),
	}
}

// -----------------------------------------------------------------------------

// subscribe adds categories; an empty list subscribes to everything.
func (c *Client) subscribe(categories []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(categories) == 0 {
		c.all = true
		return
	}
	for _, cat := range categories {
		c.categories[cat] = true
	}
}

func (c *Client) unsubscribe(categories []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(categories) == 0 {
		c.all = false
		c.categories = make(map[string]bool)
		return
	}
	for _, cat := range categories {
		delete(c.categories, cat)
	}
}

func (c *Client) subscribed(category string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.all || c.categories[category]
}

// -----------------------------------------------------------------------------
// readPump - handles incoming messages from client
// Act as a Watchdog for the connection
// -----------------------------------------------------------------------------

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.quit:
		}
		c.conn.Close()
		c.hub.Logger.Debug("Client disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.Logger.Info("WebSocket error: %v", err)
			}
			break
		}
		c.hub.HandleClientMessage(c, message)
	}
}

// -----------------------------------------------------------------------------
// writePump - sends messages to client
// -----------------------------------------------------------------------------

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.hub.Logger.Info("Write error: %v", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
