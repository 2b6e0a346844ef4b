package match

import (
	"context"
	"encoding/json"
	"fmt"
)

// Board cell contents for checkers.
const (
	ckEmpty int8 = iota
	ckMan1
	ckMan2
	ckKing1
	ckKing2
)

// Checkers is 8x8 draughts with forced captures and single-step kings.
// Seat 0 starts on rows 0-2 and advances toward row 7.
type Checkers struct {
	players [2]string
	board   [8][8]int8
	turn    string
	outcome *Outcome
	// set while a multi-jump is in progress: the piece that must keep capturing
	chainRow, chainCol int
	chaining           bool
}

func NewCheckers() *Checkers {
	return &Checkers{}
}

func (c *Checkers) Init(players []string) (string, error) {
	if len(players) != 2 {
		return "", fmt.Errorf("checkers needs 2 players, got %d", len(players))
	}
	c.players[0], c.players[1] = players[0], players[1]

	for r := 0; r < 8; r++ {
		for col := 0; col < 8; col++ {
			if (r+col)%2 != 1 {
				continue
			}
			if r < 3 {
				c.board[r][col] = ckMan1
			} else if r > 4 {
				c.board[r][col] = ckMan2
			}
		}
	}
	c.turn = players[0]
	return c.turn, nil
}

type checkersMove struct {
	FromRow int `json:"from_row"`
	FromCol int `json:"from_col"`
	ToRow   int `json:"to_row"`
	ToCol   int `json:"to_col"`
}

type ckStep struct {
	fromRow, fromCol int
	toRow, toCol     int
	capRow, capCol   int
	capture          bool
}

func (c *Checkers) Apply(ctx context.Context, playerID string, a Action) (*StepResult, error) {
	if c.outcome != nil {
		return nil, ErrStaleAction
	}
	if playerID != c.turn {
		return nil, ErrNotYourTurn
	}
	if a.Type != "MOVE" {
		return nil, ErrUnknownAction
	}

	var mv checkersMove
	if err := json.Unmarshal(a.Data, &mv); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIllegalMove, err)
	}

	seat := c.seatOf(playerID)
	legal := c.legalMoves(seat)
	var step *ckStep
	for i := range legal {
		s := &legal[i]
		if s.fromRow == mv.FromRow && s.fromCol == mv.FromCol && s.toRow == mv.ToRow && s.toCol == mv.ToCol {
			step = s
			break
		}
	}
	if step == nil {
		return nil, ErrIllegalMove
	}

	piece := c.board[step.fromRow][step.fromCol]
	c.board[step.fromRow][step.fromCol] = ckEmpty
	if step.capture {
		c.board[step.capRow][step.capCol] = ckEmpty
	}

	promoted := false
	if piece == ckMan1 && step.toRow == 7 {
		piece = ckKing1
		promoted = true
	} else if piece == ckMan2 && step.toRow == 0 {
		piece = ckKing2
		promoted = true
	}
	c.board[step.toRow][step.toCol] = piece

	summary := map[string]interface{}{
		"from":     []int{step.fromRow, step.fromCol},
		"to":       []int{step.toRow, step.toCol},
		"capture":  step.capture,
		"promoted": promoted,
	}

	// a capture chain continues with the same piece unless it just promoted
	c.chaining = false
	if step.capture && !promoted {
		if len(c.capturesFrom(seat, step.toRow, step.toCol)) > 0 {
			c.chaining = true
			c.chainRow, c.chainCol = step.toRow, step.toCol
			summary["chain"] = true
			return &StepResult{NextTurn: playerID, Summary: summary}, nil
		}
	}

	opponent := c.opponentOf(playerID)
	oppSeat := 1 - seat
	if !c.hasPieces(oppSeat) || len(c.legalMoves(oppSeat)) == 0 {
		winType := "no_moves"
		if !c.hasPieces(oppSeat) {
			winType = "captured_all"
		}
		c.outcome = &Outcome{Winners: []string{playerID}, Losers: []string{opponent}, WinType: winType}
		c.turn = ""
		return &StepResult{NextTurn: "", Summary: summary}, nil
	}

	c.turn = opponent
	return &StepResult{NextTurn: c.turn, Summary: summary}, nil
}

func (c *Checkers) Terminal() *Outcome {
	return c.outcome
}

// DefaultAction plays the first legal move; forced captures sort first.
func (c *Checkers) DefaultAction(playerID string) Action {
	seat := c.seatOf(playerID)
	legal := c.legalMoves(seat)
	if len(legal) == 0 {
		return Action{Type: "MOVE", Data: json.RawMessage(`{}`)}
	}
	s := legal[0]
	data, _ := json.Marshal(checkersMove{FromRow: s.fromRow, FromCol: s.fromCol, ToRow: s.toRow, ToCol: s.toCol})
	return Action{Type: "MOVE", Data: data}
}

func (c *Checkers) Snapshot(viewerID string) map[string]interface{} {
	board := make([][]int8, 8)
	for r := range c.board {
		row := make([]int8, 8)
		copy(row, c.board[r][:])
		board[r] = row
	}
	return map[string]interface{}{
		"board":        board,
		"current_turn": c.turn,
		"players":      []string{c.players[0], c.players[1]},
		"chaining":     c.chaining,
	}
}

func (c *Checkers) seatOf(playerID string) int {
	if playerID == c.players[0] {
		return 0
	}
	return 1
}

func (c *Checkers) opponentOf(playerID string) string {
	if playerID == c.players[0] {
		return c.players[1]
	}
	return c.players[0]
}

func ownedBy(piece int8, seat int) bool {
	if seat == 0 {
		return piece == ckMan1 || piece == ckKing1
	}
	return piece == ckMan2 || piece == ckKing2
}

func isKing(piece int8) bool {
	return piece == ckKing1 || piece == ckKing2
}

// directions a piece may move in: men forward only, kings both ways.
func pieceDirs(piece int8) [][2]int {
	switch piece {
	case ckMan1:
		return [][2]int{{1, -1}, {1, 1}}
	case ckMan2:
		return [][2]int{{-1, -1}, {-1, 1}}
	default:
		return [][2]int{{1, -1}, {1, 1}, {-1, -1}, {-1, 1}}
	}
}

func onBoard(r, c int) bool {
	return r >= 0 && r < 8 && c >= 0 && c < 8
}

func (c *Checkers) capturesFrom(seat, row, col int) []ckStep {
	piece := c.board[row][col]
	if piece == ckEmpty || !ownedBy(piece, seat) {
		return nil
	}
	var out []ckStep
	for _, d := range pieceDirs(piece) {
		midR, midC := row+d[0], col+d[1]
		dstR, dstC := row+2*d[0], col+2*d[1]
		if !onBoard(dstR, dstC) {
			continue
		}
		mid := c.board[midR][midC]
		if mid != ckEmpty && !ownedBy(mid, seat) && c.board[dstR][dstC] == ckEmpty {
			out = append(out, ckStep{
				fromRow: row, fromCol: col, toRow: dstR, toCol: dstC,
				capRow: midR, capCol: midC, capture: true,
			})
		}
	}
	return out
}

// legalMoves returns the moves available to a seat. If any capture exists
// anywhere, only captures are legal; during a multi-jump only the chaining
// piece may move.
func (c *Checkers) legalMoves(seat int) []ckStep {
	if c.chaining && c.seatOf(c.turn) == seat {
		return c.capturesFrom(seat, c.chainRow, c.chainCol)
	}

	var captures, quiets []ckStep
	for r := 0; r < 8; r++ {
		for col := 0; col < 8; col++ {
			piece := c.board[r][col]
			if piece == ckEmpty || !ownedBy(piece, seat) {
				continue
			}
			captures = append(captures, c.capturesFrom(seat, r, col)...)
			for _, d := range pieceDirs(piece) {
				dstR, dstC := r+d[0], col+d[1]
				if onBoard(dstR, dstC) && c.board[dstR][dstC] == ckEmpty {
					quiets = append(quiets, ckStep{fromRow: r, fromCol: col, toRow: dstR, toCol: dstC})
				}
			}
		}
	}
	if len(captures) > 0 {
		return captures
	}
	return quiets
}

func (c *Checkers) hasPieces(seat int) bool {
	for r := 0; r < 8; r++ {
		for col := 0; col < 8; col++ {
			if ownedBy(c.board[r][col], seat) {
				return true
			}
		}
	}
	return false
}
