package match

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ckMove(fr, fc, tr, tc int) Action {
	data, _ := json.Marshal(checkersMove{FromRow: fr, FromCol: fc, ToRow: tr, ToCol: tc})
	return Action{Type: "MOVE", Data: data}
}

func newCheckersGame(t *testing.T) *Checkers {
	t.Helper()
	g := NewCheckers()
	first, err := g.Init([]string{"red", "black"})
	require.NoError(t, err)
	require.Equal(t, "red", first)
	return g
}

// clearBoard wipes the opening layout so tests can arrange positions.
func clearBoard(g *Checkers) {
	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			g.board[r][c] = ckEmpty
		}
	}
}

func TestCheckersOpeningMove(t *testing.T) {
	ctx := context.Background()
	g := newCheckersGame(t)

	res, err := g.Apply(ctx, "red", ckMove(2, 1, 3, 0))
	require.NoError(t, err)
	assert.Equal(t, "black", res.NextTurn)
	assert.Equal(t, ckMan1, g.board[3][0])
	assert.Equal(t, ckEmpty, g.board[2][1])
}

func TestCheckersBackwardMoveRejected(t *testing.T) {
	ctx := context.Background()
	g := newCheckersGame(t)

	_, err := g.Apply(ctx, "red", ckMove(2, 1, 1, 0))
	assert.ErrorIs(t, err, ErrIllegalMove, "men cannot move backward")
}

func TestCheckersForcedCapture(t *testing.T) {
	ctx := context.Background()
	g := newCheckersGame(t)
	clearBoard(g)

	g.board[2][1] = ckMan1
	g.board[3][2] = ckMan2
	g.board[5][6] = ckMan1 // has a quiet move available

	// quiet move is illegal while a capture exists
	_, err := g.Apply(ctx, "red", ckMove(5, 6, 6, 7))
	assert.ErrorIs(t, err, ErrIllegalMove)

	res, err := g.Apply(ctx, "red", ckMove(2, 1, 4, 3))
	require.NoError(t, err)
	assert.Equal(t, true, res.Summary["capture"])
	assert.Equal(t, ckEmpty, g.board[3][2], "captured man removed")
}

func TestCheckersMultiJumpKeepsTurn(t *testing.T) {
	ctx := context.Background()
	g := newCheckersGame(t)
	clearBoard(g)

	g.board[0][1] = ckMan1
	g.board[1][2] = ckMan2
	g.board[3][4] = ckMan2
	g.board[7][0] = ckMan2 // survivor so the game continues

	res, err := g.Apply(ctx, "red", ckMove(0, 1, 2, 3))
	require.NoError(t, err)
	assert.Equal(t, "red", res.NextTurn, "capture chain keeps the turn")
	assert.Equal(t, true, res.Summary["chain"])

	// mid-chain, only the chaining piece may move
	_, err = g.Apply(ctx, "red", ckMove(2, 3, 3, 2))
	assert.ErrorIs(t, err, ErrIllegalMove)

	res, err = g.Apply(ctx, "red", ckMove(2, 3, 4, 5))
	require.NoError(t, err)
	assert.Equal(t, "black", res.NextTurn)
	assert.Equal(t, ckEmpty, g.board[1][2])
	assert.Equal(t, ckEmpty, g.board[3][4])
}

func TestCheckersPromotion(t *testing.T) {
	ctx := context.Background()
	g := newCheckersGame(t)
	clearBoard(g)

	g.board[6][1] = ckMan1
	g.board[0][5] = ckMan2

	res, err := g.Apply(ctx, "red", ckMove(6, 1, 7, 0))
	require.NoError(t, err)
	assert.Equal(t, true, res.Summary["promoted"])
	assert.Equal(t, ckKing1, g.board[7][0])

	// black to move; king can now move backward
	_, err = g.Apply(ctx, "black", ckMove(0, 5, 1, 4))
	require.NoError(t, err)
	_, err = g.Apply(ctx, "red", ckMove(7, 0, 6, 1))
	require.NoError(t, err)
}

func TestCheckersWinByCapturingAll(t *testing.T) {
	ctx := context.Background()
	g := newCheckersGame(t)
	clearBoard(g)

	g.board[2][1] = ckMan1
	g.board[3][2] = ckMan2 // black's last piece

	res, err := g.Apply(ctx, "red", ckMove(2, 1, 4, 3))
	require.NoError(t, err)
	assert.Empty(t, res.NextTurn)

	out := g.Terminal()
	require.NotNil(t, out)
	assert.Equal(t, []string{"red"}, out.Winners)
	assert.Equal(t, "captured_all", out.WinType)
}

func TestCheckersWinByNoMoves(t *testing.T) {
	ctx := context.Background()
	g := newCheckersGame(t)
	clearBoard(g)

	// black's lone man is boxed into the corner: (6,1) is blocked and the
	// jump landing square (5,2) is occupied too
	g.board[7][0] = ckMan2
	g.board[6][1] = ckMan1
	g.board[5][2] = ckMan1
	g.board[4][5] = ckMan1

	_, err := g.Apply(ctx, "red", ckMove(4, 5, 5, 6))
	require.NoError(t, err)

	out := g.Terminal()
	require.NotNil(t, out)
	assert.Equal(t, "no_moves", out.WinType)
	assert.Equal(t, []string{"red"}, out.Winners)
}

func TestCheckersDefaultActionIsLegal(t *testing.T) {
	ctx := context.Background()
	g := newCheckersGame(t)

	a := g.DefaultAction("red")
	_, err := g.Apply(ctx, "red", a)
	require.NoError(t, err)
}
