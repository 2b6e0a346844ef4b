package ws

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/quickbite/arcade/internal/coordinator"
	"github.com/quickbite/arcade/internal/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origin filtering happens at the edge
	},
}

// Handler upgrades match connections and binds them to live machines.
type Handler struct {
	hub      *Hub
	coord    *coordinator.Coordinator
	sessions *session.Manager
}

func NewHandler(hub *Hub, coord *coordinator.Coordinator, sessions *session.Manager) *Handler {
	return &Handler{hub: hub, coord: coord, sessions: sessions}
}

// ServeWS handles GET /ws/match/:id?token=... The token is the session
// token; only seated players may attach.
func (h *Handler) ServeWS(c *gin.Context) {
	matchID := c.Param("id")
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token required"})
		return
	}

	playerID, err := h.sessions.Verify(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	machine, err := h.coord.Machine(matchID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "match is not live"})
		return
	}

	m, err := h.coord.MatchByID(matchID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "match not found"})
		return
	}
	seated := false
	for _, s := range m.Seats {
		if s.PlayerID == playerID {
			seated = true
			break
		}
	}
	if !seated {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a participant in this match"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] upgrade error for %s: %v", playerID, err)
		return
	}

	client := &Client{
		hub:      h.hub,
		conn:     conn,
		playerID: playerID,
		matchID:  matchID,
		machine:  machine,
		send:     make(chan []byte, 256),
		onClose:  func() { machine.Disconnect(playerID) },
	}
	h.hub.register <- client

	go client.writePump()
	go client.readPump()

	machine.Connect(playerID)
	client.sendSnapshot()
}
