package coordinator

import (
	"context"
	"log"
	"time"

	"github.com/quickbite/arcade/internal/match"
)

// StartLobbySweeper cancels lobbies nobody filled. Runs until the context
// ends.
func (c *Coordinator) StartLobbySweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("[SWEEP] lobby sweeper started (every %v, timeout %v)", interval, c.cfg.LobbyTimeout)
	for {
		select {
		case <-ctx.Done():
			log.Printf("[SWEEP] lobby sweeper stopped")
			return
		case <-ticker.C:
			c.SweepLobbies(ctx)
		}
	}
}

// SweepLobbies cancels every LOBBY match older than the timeout, refunding
// the seated players.
func (c *Coordinator) SweepLobbies(ctx context.Context) int {
	cutoff := time.Now().Add(-c.cfg.LobbyTimeout)

	c.mu.Lock()
	var expired []string
	for id, m := range c.matches {
		if m.Status == match.StatusLobby && m.CreatedAt.Before(cutoff) {
			expired = append(expired, id)
		}
	}
	c.mu.Unlock()

	for _, id := range expired {
		if err := c.CancelMatch(ctx, id, "lobby_timeout"); err != nil {
			log.Printf("[SWEEP] failed to cancel %s: %v", id, err)
		}
	}
	if len(expired) > 0 {
		log.Printf("[SWEEP] cancelled %d stale lobbies", len(expired))
	}
	return len(expired)
}
