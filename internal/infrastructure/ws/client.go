package ws

import (
	"encoding/json"
	"log"

	"github.com/gorilla/websocket"
)

// Client is one websocket connection. Its ID is the opaque connection
// handle the game core identifies users by.
type Client struct {
	conn *connWrapper
	Send chan *Message
	ID   string
}

func NewClient(conn *websocket.Conn, id string) *Client {
	return &Client{
		conn: newConnWrapper(conn),
		Send: make(chan *Message, 64), // buffered to avoid dead-locks on slow clients
		ID:   id,
	}
}

func (c *Client) ReadPump(core *Core) {
	defer func() {
		core.drop(c)
		_ = c.conn.Close()
	}()

	for {
		_, raw, err := c.conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("ws read error (client %s): %v", c.ID, err)
			}
			break
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil || env.Type == "" {
			c.trySend(NewError("malformed frame"))
			continue
		}

		core.dispatch(c, env)
	}
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for msg := range c.Send {
		if err := c.conn.WriteJSON(msg); err != nil {
			log.Printf("ws write error (client %s): %v", c.ID, err)
			break
		}
	}
}

func (c *Client) trySend(msg *Message) {
	select {
	case c.Send <- msg:
	default:
		// Client is too slow; drop the message
		log.Printf("client %s buffer full, dropping message", c.ID)
	}
}
