package match

import (
	"context"
	"fmt"

	"github.com/quickbite/arcade/internal/physics"
)

// StepResult is what a committed action produced. Frames are present only
// for shot-driven games; Summary carries game-specific facts for the delta
// broadcast (pocketed balls, fouls, group assignment, drawn cards).
type StepResult struct {
	NextTurn string                 `json:"next_turn"`
	Summary  map[string]interface{} `json:"summary,omitempty"`
	Frames   []physics.Frame        `json:"frames,omitempty"`
}

// Rules is one game's logic. Implementations hold per-match state and are
// never called concurrently: the state machine serializes all access on the
// match owner goroutine.
type Rules interface {
	// Init deals/racks/sets the board for the seated players, in seat order.
	// The first turn belongs to the player it returns.
	Init(players []string) (firstTurn string, err error)
	// Apply validates and commits one action for the player whose turn it is.
	Apply(ctx context.Context, playerID string, a Action) (*StepResult, error)
	// Terminal reports the outcome once the game has ended, nil before that.
	Terminal() *Outcome
	// DefaultAction is what the turn clock submits on the player's behalf.
	DefaultAction(playerID string) Action
	// Snapshot is the full authoritative state visible to viewerID.
	Snapshot(viewerID string) map[string]interface{}
}

// RulesFor builds the rule module for a game type. The resolver is only
// used by pool.
func RulesFor(gt GameType, resolver physics.ShotResolver) (Rules, error) {
	switch gt {
	case GameTicTacToe:
		return NewTicTacToe(), nil
	case GameCheckers:
		return NewCheckers(), nil
	case GameCards:
		return NewCardGame(), nil
	case GamePool:
		if resolver == nil {
			return nil, fmt.Errorf("pool requires a shot resolver")
		}
		return NewPool(resolver, DefaultPoolConfig()), nil
	default:
		return nil, fmt.Errorf("unsupported game type: %s", gt)
	}
}
