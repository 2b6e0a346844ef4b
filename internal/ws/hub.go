package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/quickbite/arcade/internal/match"
)

// Hub maintains the set of active clients and fans match events out to
// them. Rooms are keyed by match ID. The hub is the coordinator's event
// sink: everything a machine publishes flows through Publish.
type Hub struct {
	node string

	clients map[string]*Client            // playerID -> Client
	rooms   map[string]map[string]*Client // matchID -> playerID -> Client

	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex

	rdb *redis.Client // optional; relays lifecycle events across nodes
}

// NewHub creates a hub. rdb may be nil for single-node deployments.
func NewHub(rdb *redis.Client) *Hub {
	return &Hub{
		node:       uuid.NewString(),
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rdb:        rdb,
	}
}

// Run processes connection churn until the context ends. Call it in its
// own goroutine before serving traffic.
func (h *Hub) Run(done <-chan struct{}) {
	for {
		select {
		case <-done:
			return

		case client := <-h.register:
			h.mu.Lock()
			if old, exists := h.clients[client.playerID]; exists {
				log.Printf("[WS] player %s reconnecting, closing old connection", client.playerID)
				old.conn.Close()
				select {
				case <-old.send:
				default:
					close(old.send)
				}
				if room, ok := h.rooms[old.matchID]; ok {
					delete(room, old.playerID)
				}
			}
			h.clients[client.playerID] = client
			if _, ok := h.rooms[client.matchID]; !ok {
				h.rooms[client.matchID] = make(map[string]*Client)
			}
			h.rooms[client.matchID][client.playerID] = client
			h.mu.Unlock()
			log.Printf("[WS] player %s connected to match %s", client.playerID, client.matchID)

		case client := <-h.unregister:
			h.mu.Lock()
			cur, ok := h.clients[client.playerID]
			current := ok && cur == client
			if current {
				delete(h.clients, client.playerID)
				if room, exists := h.rooms[client.matchID]; exists {
					delete(room, client.playerID)
					if len(room) == 0 {
						delete(h.rooms, client.matchID)
					}
				}
				select {
				case <-client.send:
				default:
					close(client.send)
				}
				log.Printf("[WS] player %s disconnected from match %s", client.playerID, client.matchID)
			}
			h.mu.Unlock()
			if current && client.onClose != nil {
				client.onClose()
			}
		}
	}
}

// Publish delivers one match event to the match's room. Lifecycle events
// from settlement are also relayed through redis so clients attached to
// another node see them.
func (h *Hub) Publish(matchID string, e match.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		log.Printf("[WS] failed to marshal event %s for %s: %v", e.Type, matchID, err)
		return
	}
	h.broadcast(matchID, data)

	if h.rdb != nil && isLifecycleEvent(e.Type) {
		h.relayOut(matchID, e)
	}
}

// SendToPlayer delivers a payload to one connected player, dropping it if
// their buffer is full.
func (h *Hub) SendToPlayer(playerID string, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("[WS] failed to marshal message for %s: %v", playerID, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	client, exists := h.clients[playerID]
	if !exists {
		return
	}
	select {
	case client.send <- data:
	default:
		log.Printf("[WS] send buffer full for player %s, dropping message", playerID)
	}
}

func (h *Hub) broadcast(matchID string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room, exists := h.rooms[matchID]
	if !exists {
		return
	}
	for _, client := range room {
		select {
		case client.send <- data:
		default:
			log.Printf("[WS] send buffer full for player %s in match %s, dropping message", client.playerID, matchID)
		}
	}
}
