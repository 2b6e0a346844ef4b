package match

import (
	"encoding/json"
	"errors"
	"time"
)

// GameType selects the rule module for a match.
type GameType string

const (
	GameTicTacToe GameType = "TICTACTOE"
	GameCheckers  GameType = "CHECKERS"
	GameCards     GameType = "CARD_GAME"
	GamePool      GameType = "POOL"
)

// Mode separates rated play from casual play.
type Mode string

const (
	ModeRanked Mode = "RANKED"
	ModeCasual Mode = "CASUAL"
)

// Status is the lifecycle state of a match.
type Status string

const (
	StatusLobby      Status = "LOBBY"
	StatusReadyCheck Status = "READY_CHECK"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

var (
	ErrNotYourTurn   = errors.New("not your turn")
	ErrIllegalMove   = errors.New("illegal move")
	ErrStaleAction   = errors.New("match is no longer accepting actions")
	ErrUnknownAction = errors.New("unknown action type")
	ErrNotSeated     = errors.New("player is not seated in this match")
)

// SeatsFor returns the seat count for a game type.
func SeatsFor(gt GameType, requested int) int {
	switch gt {
	case GameCards:
		if requested >= 2 && requested <= 4 {
			return requested
		}
		return 2
	default:
		return 2
	}
}

// Seat is one player's slot in a match.
type Seat struct {
	Index          int        `json:"index"`
	PlayerID       string     `json:"player_id"`
	Connected      bool       `json:"connected"`
	Ready          bool       `json:"ready"`
	DisconnectedAt *time.Time `json:"-"`
}

// Action is a player input forwarded to the rule module. Data carries the
// game-specific payload.
type Action struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Outcome is the terminal result of a match.
type Outcome struct {
	Winners []string `json:"winners"`
	Losers  []string `json:"losers"`
	Draw    bool     `json:"draw"`
	WinType string   `json:"win_type,omitempty"`
}
