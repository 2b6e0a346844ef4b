package ws

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/quickbite/arcade/internal/match"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second

	maxMessageSize = 65536
	maxChatLength  = 280
)

// WSMessage is the inbound envelope from clients.
type WSMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Client is one websocket connection bound to a seat in a live match.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	playerID string
	matchID  string
	machine  *match.Machine
	send     chan []byte
	onClose  func()
}

// readPump reads inbound messages until the connection drops.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
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
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WS] read error for player %s: %v", c.playerID, err)
			}
			break
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		c.handleMessage(msg)
	}
}

// handleMessage dispatches one inbound message to the match machine.
func (c *Client) handleMessage(msg WSMessage) {
	switch msg.Type {
	case "READY":
		if err := c.machine.Ready(c.playerID); err != nil {
			c.sendError(err.Error())
		}

	case "ACTION":
		var a match.Action
		if err := json.Unmarshal(msg.Data, &a); err != nil {
			c.sendError("invalid action payload")
			return
		}
		if err := c.machine.SubmitAction(context.Background(), c.playerID, a); err != nil {
			c.sendError(err.Error())
		}

	case "SNAPSHOT":
		c.sendSnapshot()

	case "CHAT":
		var chat struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(msg.Data, &chat); err != nil {
			c.sendError("invalid chat payload")
			return
		}
		text := strings.TrimSpace(chat.Message)
		if text == "" {
			return
		}
		if runes := []rune(text); len(runes) > maxChatLength {
			text = string(runes[:maxChatLength])
		}
		c.machine.Chat(c.playerID, text)

	default:
		c.sendError("unknown message type")
	}
}

// sendSnapshot replies with the full authoritative state. Clients request
// one whenever they detect a gap in event seq numbers.
func (c *Client) sendSnapshot() {
	snap, seq, err := c.machine.Snapshot(c.playerID)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	data, err := json.Marshal(match.Event{
		Seq:     seq,
		Type:    "SNAPSHOT",
		MatchID: c.matchID,
		Data:    snap,
	})
	if err != nil {
		log.Printf("[WS] failed to marshal snapshot for %s: %v", c.playerID, err)
		return
	}
	select {
	case c.send <- data:
	default:
		log.Printf("[WS] send buffer full for player %s, dropping snapshot", c.playerID)
	}
}

func (c *Client) sendError(message string) {
	data, _ := json.Marshal(match.Event{
		Type:    "ERROR",
		MatchID: c.matchID,
		Data:    map[string]interface{}{"message": message},
	})
	select {
	case c.send <- data:
	default:
	}
}

// writePump writes outbound messages and keeps the connection alive with
// pings.
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
				// channel closed: connection replaced or cleaned up
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[WS] write error for player %s: %v", c.playerID, err)
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
