package rating

import (
	"context"
	"fmt"
	"log"
	"math"

	"github.com/quickbite/arcade/internal/models"
)

const (
	// InitialRating is assigned to players with no ranking row.
	InitialRating = 1200
	// kFactor scales the rating exchange per match.
	kFactor = 32

	ModeRanked = "RANKED"
	ModeCasual = "CASUAL"
)

// Result describes a settled match from the rating engine's point of view.
// Participants is the full seat list; drawn outcomes carry empty
// winner/loser lists, so the draw path works off Participants.
type Result struct {
	GameType     string
	Mode         string
	Participants []string
	Winners      []string
	Losers       []string
	Draw         bool
}

// Store is the persistence boundary for rankings. MarkApplied must be
// atomic with respect to concurrent calls with the same key: exactly one
// caller observes first=true.
type Store interface {
	Get(ctx context.Context, playerID, gameType, mode string) (*models.PlayerRanking, error)
	Put(ctx context.Context, r *models.PlayerRanking) error
	MarkApplied(ctx context.Context, settlementKey string) (first bool, err error)
	Top(ctx context.Context, gameType, mode string, limit int) ([]models.PlayerRanking, error)
}

// Engine applies rating updates at match settlement, exactly once per
// settlement key. CASUAL matches never touch rating.
type Engine struct {
	store Store
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// expectedScore is the standard Elo expectation for a against b.
func expectedScore(a, b int) float64 {
	return 1.0 / (1.0 + math.Pow(10, float64(b-a)/400.0))
}

// exchange returns the points the winner takes from the loser. For a draw
// the exchange is computed against a 0.5 score, so the better-rated player
// loses what the other gains; the sum of deltas is always zero.
func exchange(winnerRating, loserRating int, draw bool) int {
	score := 1.0
	if draw {
		score = 0.5
	}
	return int(math.Round(kFactor * (score - expectedScore(winnerRating, loserRating))))
}

// Update adjusts each participant's ranking for a settled RANKED match.
// The settlement key is the same idempotency key used for wallet crediting;
// replays are no-ops.
func (e *Engine) Update(ctx context.Context, settlementKey string, res Result) error {
	if res.Mode != ModeRanked {
		return nil
	}

	first, err := e.store.MarkApplied(ctx, settlementKey)
	if err != nil {
		return fmt.Errorf("mark settlement %s: %w", settlementKey, err)
	}
	if !first {
		log.Printf("[RANK] settlement %s already applied, skipping", settlementKey)
		return nil
	}

	if res.Draw {
		return e.applyDraw(ctx, res)
	}
	return e.applyDecisive(ctx, res)
}

func (e *Engine) applyDecisive(ctx context.Context, res Result) error {
	// Pairwise exchange: each loser settles against each winner, so the
	// sum of deltas across the match is zero.
	rows := make(map[string]*models.PlayerRanking)
	get := func(id string) (*models.PlayerRanking, error) {
		if r, ok := rows[id]; ok {
			return r, nil
		}
		r, err := e.store.Get(ctx, id, res.GameType, res.Mode)
		if err != nil {
			return nil, err
		}
		rows[id] = r
		return r, nil
	}

	for _, w := range res.Winners {
		for _, l := range res.Losers {
			wr, err := get(w)
			if err != nil {
				return err
			}
			lr, err := get(l)
			if err != nil {
				return err
			}
			delta := exchange(wr.Rating, lr.Rating, false)
			wr.Rating += delta
			lr.Rating -= delta
			if lr.Rating < 0 {
				// floor at zero, give the difference back to keep the sum fixed
				wr.Rating += lr.Rating
				lr.Rating = 0
			}
		}
	}

	for _, w := range res.Winners {
		r := rows[w]
		r.MatchesPlayed++
		r.MatchesWon++
		r.WinStreak++
		if r.WinStreak > r.BestWinStreak {
			r.BestWinStreak = r.WinStreak
		}
	}
	for _, l := range res.Losers {
		r := rows[l]
		r.MatchesPlayed++
		r.MatchesLost++
		r.WinStreak = 0
	}

	for _, r := range rows {
		if err := e.store.Put(ctx, r); err != nil {
			return err
		}
		log.Printf("[RANK] %s %s/%s rating=%d streak=%d", r.PlayerID, r.GameType, r.Mode, r.Rating, r.WinStreak)
	}
	return nil
}

func (e *Engine) applyDraw(ctx context.Context, res Result) error {
	players := res.Participants
	if len(players) == 0 {
		players = append(append([]string{}, res.Winners...), res.Losers...)
	}

	seen := make(map[string]bool, len(players))
	rows := make([]*models.PlayerRanking, 0, len(players))
	for _, id := range players {
		if seen[id] {
			continue
		}
		seen[id] = true
		r, err := e.store.Get(ctx, id, res.GameType, res.Mode)
		if err != nil {
			return err
		}
		rows = append(rows, r)
	}

	// multiway draws exchange nothing
	if len(rows) == 2 {
		a, b := rows[0], rows[1]
		delta := exchange(a.Rating, b.Rating, true)
		a.Rating += delta
		b.Rating -= delta
	}

	for _, r := range rows {
		r.MatchesPlayed++
		r.WinStreak = 0
		if err := e.store.Put(ctx, r); err != nil {
			return err
		}
		log.Printf("[RANK] %s %s/%s rating=%d (draw)", r.PlayerID, r.GameType, r.Mode, r.Rating)
	}
	return nil
}

// Top returns the ranking leaderboard for a game type and mode.
func (e *Engine) Top(ctx context.Context, gameType, mode string, limit int) ([]models.PlayerRanking, error) {
	return e.store.Top(ctx, gameType, mode, limit)
}
