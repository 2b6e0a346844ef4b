package match

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ticTacToeAt(t *testing.T) *TicTacToe {
	t.Helper()
	g := NewTicTacToe()
	first, err := g.Init([]string{"x", "o"})
	require.NoError(t, err)
	require.Equal(t, "x", first)
	return g
}

func move(cell int) Action {
	data, _ := json.Marshal(ticTacToeMove{Cell: cell})
	return Action{Type: "MOVE", Data: data}
}

func TestTicTacToeWin(t *testing.T) {
	ctx := context.Background()
	g := ticTacToeAt(t)

	// x takes the top row
	for _, step := range []struct {
		player string
		cell   int
	}{
		{"x", 0}, {"o", 3}, {"x", 1}, {"o", 4},
	} {
		_, err := g.Apply(ctx, step.player, move(step.cell))
		require.NoError(t, err)
		require.Nil(t, g.Terminal())
	}

	res, err := g.Apply(ctx, "x", move(2))
	require.NoError(t, err)
	assert.Empty(t, res.NextTurn)

	out := g.Terminal()
	require.NotNil(t, out)
	assert.Equal(t, []string{"x"}, out.Winners)
	assert.Equal(t, []string{"o"}, out.Losers)
	assert.False(t, out.Draw)
}

func TestTicTacToeDraw(t *testing.T) {
	ctx := context.Background()
	g := ticTacToeAt(t)

	players := []string{"x", "o", "x", "o", "x", "o", "x", "o", "x"}
	cells := []int{0, 4, 8, 1, 7, 6, 2, 5, 3}
	for i := range players {
		_, err := g.Apply(ctx, players[i], move(cells[i]))
		require.NoError(t, err, "move %d", i)
		if i < len(players)-1 {
			require.Nil(t, g.Terminal(), "move %d", i)
		}
	}

	out := g.Terminal()
	require.NotNil(t, out)
	assert.True(t, out.Draw)
	assert.Empty(t, out.Winners)
}

func TestTicTacToeRejections(t *testing.T) {
	ctx := context.Background()
	g := ticTacToeAt(t)

	_, err := g.Apply(ctx, "o", move(0))
	assert.ErrorIs(t, err, ErrNotYourTurn)

	_, err = g.Apply(ctx, "x", move(9))
	assert.ErrorIs(t, err, ErrIllegalMove)

	_, err = g.Apply(ctx, "x", move(0))
	require.NoError(t, err)
	_, err = g.Apply(ctx, "o", move(0))
	assert.ErrorIs(t, err, ErrIllegalMove, "occupied cell")
}

func TestTicTacToeActionsAfterTerminal(t *testing.T) {
	ctx := context.Background()
	g := ticTacToeAt(t)

	for _, step := range []struct {
		player string
		cell   int
	}{
		{"x", 0}, {"o", 3}, {"x", 1}, {"o", 4}, {"x", 2},
	} {
		_, err := g.Apply(ctx, step.player, move(step.cell))
		require.NoError(t, err)
	}
	require.NotNil(t, g.Terminal())

	_, err := g.Apply(ctx, "o", move(5))
	assert.ErrorIs(t, err, ErrStaleAction)
}

func TestTicTacToeDefaultAction(t *testing.T) {
	ctx := context.Background()
	g := ticTacToeAt(t)

	_, err := g.Apply(ctx, "x", move(0))
	require.NoError(t, err)

	// lowest empty cell is 1
	a := g.DefaultAction("o")
	var mv ticTacToeMove
	require.NoError(t, json.Unmarshal(a.Data, &mv))
	assert.Equal(t, 1, mv.Cell)
}
