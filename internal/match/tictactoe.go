package match

import (
	"context"
	"encoding/json"
	"fmt"
)

// TicTacToe is the 3x3 grid game. Seat 0 plays X and moves first.
type TicTacToe struct {
	players [2]string
	board   [9]int // 0 empty, 1 seat0, 2 seat1
	turn    string
	moves   int
	outcome *Outcome
}

func NewTicTacToe() *TicTacToe {
	return &TicTacToe{}
}

func (t *TicTacToe) Init(players []string) (string, error) {
	if len(players) != 2 {
		return "", fmt.Errorf("tictactoe needs 2 players, got %d", len(players))
	}
	t.players[0], t.players[1] = players[0], players[1]
	t.turn = players[0]
	return t.turn, nil
}

type ticTacToeMove struct {
	Cell int `json:"cell"`
}

func (t *TicTacToe) Apply(ctx context.Context, playerID string, a Action) (*StepResult, error) {
	if t.outcome != nil {
		return nil, ErrStaleAction
	}
	if playerID != t.turn {
		return nil, ErrNotYourTurn
	}
	if a.Type != "MOVE" {
		return nil, ErrUnknownAction
	}

	var mv ticTacToeMove
	if err := json.Unmarshal(a.Data, &mv); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIllegalMove, err)
	}
	if mv.Cell < 0 || mv.Cell > 8 || t.board[mv.Cell] != 0 {
		return nil, ErrIllegalMove
	}

	mark := t.markOf(playerID)
	t.board[mv.Cell] = mark
	t.moves++

	if t.hasLine(mark) {
		opponent := t.opponentOf(playerID)
		t.outcome = &Outcome{Winners: []string{playerID}, Losers: []string{opponent}, WinType: "line"}
		t.turn = ""
	} else if t.moves == 9 {
		t.outcome = &Outcome{Winners: nil, Losers: nil, Draw: true, WinType: "full_board"}
		t.turn = ""
	} else {
		t.turn = t.opponentOf(playerID)
	}

	return &StepResult{
		NextTurn: t.turn,
		Summary:  map[string]interface{}{"cell": mv.Cell, "mark": mark},
	}, nil
}

func (t *TicTacToe) Terminal() *Outcome {
	return t.outcome
}

// DefaultAction plays the lowest-index empty cell.
func (t *TicTacToe) DefaultAction(playerID string) Action {
	for i, v := range t.board {
		if v == 0 {
			data, _ := json.Marshal(ticTacToeMove{Cell: i})
			return Action{Type: "MOVE", Data: data}
		}
	}
	return Action{Type: "MOVE", Data: json.RawMessage(`{"cell":0}`)}
}

func (t *TicTacToe) Snapshot(viewerID string) map[string]interface{} {
	board := make([]int, 9)
	copy(board, t.board[:])
	return map[string]interface{}{
		"board":        board,
		"current_turn": t.turn,
		"players":      []string{t.players[0], t.players[1]},
		"moves":        t.moves,
	}
}

func (t *TicTacToe) markOf(playerID string) int {
	if playerID == t.players[0] {
		return 1
	}
	return 2
}

func (t *TicTacToe) opponentOf(playerID string) string {
	if playerID == t.players[0] {
		return t.players[1]
	}
	return t.players[0]
}

var ticTacToeLines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

func (t *TicTacToe) hasLine(mark int) bool {
	for _, ln := range ticTacToeLines {
		if t.board[ln[0]] == mark && t.board[ln[1]] == mark && t.board[ln[2]] == mark {
			return true
		}
	}
	return false
}
