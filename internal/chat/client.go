package chat

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Client is a middleman between one websocket connection and the engine.
type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	Send   chan []byte
	UserID string
	sub    *InboxSubscription
}

// wsCommand is what the frontend sends: a text message into a conversation.
type wsCommand struct {
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
}

type wsInboxUpdate struct {
	Type    string `json:"type"`
	Entries any    `json:"entries"`
}

// pumpInbox forwards subscription snapshots to the send channel. It is the
// only writer to Send and closes it on exit, so WritePump sees a clean end.
func (c *Client) pumpInbox() {
	defer close(c.Send)
	for entries := range c.sub.Updates() {
		payload, err := json.Marshal(wsInboxUpdate{Type: "inbox", Entries: entries})
		if err != nil {
			continue
		}
		select {
		case c.Send <- payload:
		default:
			// Slow consumer; the next snapshot supersedes this one anyway.
		}
	}
}

// ReadPump pumps commands from the websocket connection to the engine.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.log.Debug().Err(err).Str("user", c.UserID).Msg("websocket closed")
			}
			break
		}

		var cmd wsCommand
		if err := json.Unmarshal(raw, &cmd); err != nil {
			continue
		}
		if _, err := c.Hub.engine.PostTextMessage(context.Background(), cmd.ConversationID, c.UserID, cmd.Content); err != nil {
			c.Hub.log.Debug().Err(err).Str("user", c.UserID).Msg("websocket message rejected")
		}
	}
}

// WritePump pumps messages from the send channel to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
