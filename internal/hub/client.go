package hub

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wououoo/weddingalba-chat/pkg/log"
)

// Client is one websocket connection. Inbound frames are handed to OnFrame;
// outbound traffic flows through Send and is flushed by WritePump.
type Client struct {
	ID     string
	UserID int64
	Conn   *websocket.Conn
	Send   chan []byte
	Hub    *Hub

	// OnFrame handles a single inbound frame. Set by the websocket handler
	// before ReadPump starts.
	OnFrame func(data []byte)

	// OnClose runs once when the connection ends, before the client leaves
	// the hub.
	OnClose func()
}

func NewClient(id string, userID int64, conn *websocket.Conn, h *Hub) *Client {
	return &Client{
		ID:     id,
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, 256),
		Hub:    h,
	}
}

// SendJSON marshals payload onto the send buffer. A full buffer drops the
// frame rather than blocking the caller.
func (c *Client) SendJSON(payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	select {
	case c.Send <- data:
	default:
	}
}

func (c *Client) ReadPump() {
	defer func() {
		if c.OnClose != nil {
			c.OnClose()
		}
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Hub.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Hub.config.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Hub.config.PongWait))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				l := log.L()
				l.Warn().Err(err).Str("client_id", c.ID).Msg("websocket read error")
			}
			break
		}
		if c.OnFrame != nil {
			c.OnFrame(data)
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(c.Hub.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Hub.config.WriteWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Hub.config.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
