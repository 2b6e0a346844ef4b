package coordinator

import (
	"context"
	"log"

	"github.com/quickbite/arcade/internal/match"
)

// Row persistence is best-effort: the in-memory coordinator state is
// authoritative while the process lives, the rows feed history views.

func (c *Coordinator) persistMatch(ctx context.Context, m *Match) {
	if c.db == nil {
		return
	}
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO matches (id, game_type, mode, buy_in, max_seats, status, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 ON CONFLICT (id) DO NOTHING`,
		m.ID, m.GameType, m.Mode, m.BuyIn, m.MaxSeats, m.Status, m.CreatedAt)
	if err != nil {
		log.Printf("[DB] failed to persist match %s: %v", m.ID, err)
		return
	}
	c.persistSeatUpdate(ctx, m)
}

func (c *Coordinator) persistSeatUpdate(ctx context.Context, m *Match) {
	if c.db == nil {
		return
	}
	c.mu.Lock()
	seats := append([]match.Seat{}, m.Seats...)
	c.mu.Unlock()

	for _, s := range seats {
		if s.PlayerID == "" {
			continue
		}
		_, err := c.db.ExecContext(ctx,
			`INSERT INTO match_seats (match_id, seat_index, player_id)
			 VALUES ($1,$2,$3)
			 ON CONFLICT (match_id, seat_index) DO UPDATE SET player_id=EXCLUDED.player_id`,
			m.ID, s.Index, s.PlayerID)
		if err != nil {
			log.Printf("[DB] failed to persist seat %d of %s: %v", s.Index, m.ID, err)
		}
	}
}

func (c *Coordinator) persistStatus(ctx context.Context, matchID string, status match.Status, winner string) {
	if c.db == nil {
		return
	}
	var err error
	if winner != "" {
		_, err = c.db.ExecContext(ctx,
			`UPDATE matches SET status=$1, winner_id=$2, completed_at=NOW() WHERE id=$3`,
			status, winner, matchID)
	} else if status == match.StatusCompleted || status == match.StatusCancelled {
		_, err = c.db.ExecContext(ctx,
			`UPDATE matches SET status=$1, completed_at=NOW() WHERE id=$2`, status, matchID)
	} else {
		_, err = c.db.ExecContext(ctx,
			`UPDATE matches SET status=$1 WHERE id=$2`, status, matchID)
	}
	if err != nil {
		log.Printf("[DB] failed to update match %s status: %v", matchID, err)
	}
}
