package ws

import (
	"context"
	"encoding/json"
	"log"

	"github.com/quickbite/arcade/internal/match"
)

const relayChannel = "match_events"

// relayEnvelope wraps an event published across nodes. The node ID lets
// each hub skip its own publications.
type relayEnvelope struct {
	Node    string      `json:"node"`
	MatchID string      `json:"match_id"`
	Event   match.Event `json:"event"`
}

func isLifecycleEvent(eventType string) bool {
	switch eventType {
	case match.EventMatchEnded, "match_settled", "match_cancelled":
		return true
	}
	return false
}

func (h *Hub) relayOut(matchID string, e match.Event) {
	payload, err := json.Marshal(relayEnvelope{Node: h.node, MatchID: matchID, Event: e})
	if err != nil {
		log.Printf("[WS] failed to marshal relay envelope for %s: %v", matchID, err)
		return
	}
	if err := h.rdb.Publish(context.Background(), relayChannel, payload).Err(); err != nil {
		log.Printf("[WS] failed to relay %s event for %s: %v", e.Type, matchID, err)
	}
}

// StartEventRelay subscribes to the cross-node lifecycle channel and
// rebroadcasts events published by other nodes into local rooms.
func (h *Hub) StartEventRelay(ctx context.Context) {
	if h.rdb == nil {
		log.Printf("[WS] event relay disabled: no redis client")
		return
	}

	pubsub := h.rdb.Subscribe(ctx, relayChannel)
	log.Printf("[WS] event relay subscribed to %s", relayChannel)

	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				log.Printf("[WS] event relay stopped")
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var env relayEnvelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					log.Printf("[WS] bad relay payload: %v", err)
					continue
				}
				if env.Node == h.node {
					continue
				}
				data, err := json.Marshal(env.Event)
				if err != nil {
					continue
				}
				h.broadcast(env.MatchID, data)
			}
		}
	}()
}
