package ws

import (
	"encoding/json"
	"time"

	"raceledger/internal/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 25 * time.Second
)

// Client is one authenticated websocket connection.
type Client struct {
	Player string
	Conn   *websocket.Conn
	Send   chan []byte

	hub *Hub
}

func NewClient(player string, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		Player: player,
		Conn:   conn,
		Send:   make(chan []byte, 64),
		hub:    hub,
	}
}

// Run registers the client and starts both pumps. Returns when the
// connection drops.
func (c *Client) Run() {
	c.hub.register(c)
	go c.writePump()

	if b := marshalEvent(event{Type: EventReady}); b != nil {
		c.Send <- b
	}
	c.readPump()
}

// inbound is the only message shape clients send: subscribe or unsubscribe
// to a race address.
type inbound struct {
	Op   string `json:"op"`
	Race string `json:"race"`
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(1024)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.Conn.ReadMessage()
		if err != nil {
			break
		}
		var in inbound
		if err := json.Unmarshal(msg, &in); err != nil || in.Race == "" {
			logger.Debug("ws bad message", "player", c.Player)
			continue
		}
		switch in.Op {
		case "subscribe":
			c.hub.subscribe(c, in.Race)
		case "unsubscribe":
			c.hub.unsubscribe(c, in.Race)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
