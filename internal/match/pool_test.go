package match

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/quickbite/arcade/internal/physics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shot() Action {
	data, _ := json.Marshal(physics.ShotParams{Angle: 0.4, Power: 0.7})
	return Action{Type: "SHOT", Data: data}
}

func newPoolGame(t *testing.T, script *physics.Scripted) *Pool {
	t.Helper()
	g := NewPool(script, DefaultPoolConfig())
	first, err := g.Init([]string{"p1", "p2"})
	require.NoError(t, err)
	require.Equal(t, "p1", first)
	return g
}

// pocketBalls marks balls as already off the table.
func pocketBalls(g *Pool, numbers ...int) {
	for _, n := range numbers {
		for i := range g.balls {
			if g.balls[i].Number == n {
				g.balls[i].Pocketed = true
			}
		}
	}
}

func TestPoolLegalBreakPassesTurn(t *testing.T) {
	ctx := context.Background()
	script := physics.NewScripted(&physics.Resolution{
		FirstContact: 1, BallsToCushion: 5, CushionAfterHit: true,
	})
	g := newPoolGame(t, script)

	assert.Equal(t, PhaseBreak, g.Phase())

	res, err := g.Apply(ctx, "p1", shot())
	require.NoError(t, err)
	assert.Equal(t, "p2", res.NextTurn, "dry break passes the turn")
	assert.Nil(t, res.Summary["foul"])
	assert.Equal(t, PhaseOpen, g.Phase())
}

func TestPoolBreakFoul(t *testing.T) {
	ctx := context.Background()
	script := physics.NewScripted(&physics.Resolution{
		FirstContact: 1, BallsToCushion: 1, CushionAfterHit: true,
	})
	g := newPoolGame(t, script)

	res, err := g.Apply(ctx, "p1", shot())
	require.NoError(t, err)
	foul := res.Summary["foul"].(*FoulInfo)
	assert.Equal(t, "break_foul", foul.Type)
	assert.Equal(t, "p2", res.NextTurn)
	assert.Equal(t, true, res.Summary["ball_in_hand"])
}

func TestPoolGroupAssignmentAndTrailingPot(t *testing.T) {
	ctx := context.Background()
	script := physics.NewScripted(
		&physics.Resolution{FirstContact: 1, BallsToCushion: 5, CushionAfterHit: true}, // break
		&physics.Resolution{FirstContact: 3, Pocketed: []int{3}, CushionAfterHit: true},
		&physics.Resolution{FirstContact: 5, CushionAfterHit: true},
	)
	g := newPoolGame(t, script)

	_, err := g.Apply(ctx, "p1", shot())
	require.NoError(t, err)

	// p2 pots a solid: groups lock, turn stays
	res, err := g.Apply(ctx, "p2", shot())
	require.NoError(t, err)
	assert.Equal(t, true, res.Summary["group_assigned"])
	assert.Equal(t, "p2", res.NextTurn, "potting your own ball keeps the turn")
	assert.Equal(t, PhaseGroupsSet, g.Phase())

	groups := res.Summary["groups"].(map[string]BallGroup)
	assert.Equal(t, GroupSolids, groups["p2"])
	assert.Equal(t, GroupStripes, groups["p1"])

	// dry follow-up: turn passes
	res, err = g.Apply(ctx, "p2", shot())
	require.NoError(t, err)
	assert.Equal(t, "p1", res.NextTurn)
}

func TestPoolScratchGivesBallInHand(t *testing.T) {
	ctx := context.Background()
	script := physics.NewScripted(
		&physics.Resolution{FirstContact: 1, BallsToCushion: 5, CushionAfterHit: true},
		&physics.Resolution{FirstContact: 2, CueScratched: true, Pocketed: []int{0}},
	)
	g := newPoolGame(t, script)

	_, err := g.Apply(ctx, "p1", shot())
	require.NoError(t, err)

	res, err := g.Apply(ctx, "p2", shot())
	require.NoError(t, err)
	foul := res.Summary["foul"].(*FoulInfo)
	assert.Equal(t, "scratch", foul.Type)
	assert.Equal(t, "p1", res.NextTurn)
	assert.True(t, g.ballInHand)

	// a shot is rejected until the cue is placed
	_, err = g.Apply(ctx, "p1", shot())
	assert.ErrorIs(t, err, ErrIllegalMove)

	place, _ := json.Marshal(cuePlacement{X: 0.25, Y: 0.25})
	res, err = g.Apply(ctx, "p1", Action{Type: "PLACE_CUE", Data: place})
	require.NoError(t, err)
	assert.Equal(t, "p1", res.NextTurn, "placement keeps the turn")
	assert.False(t, g.ballInHand)
}

func TestPoolWrongFirstContact(t *testing.T) {
	ctx := context.Background()
	script := physics.NewScripted(
		&physics.Resolution{FirstContact: 9, CushionAfterHit: true}, // p1 hits a stripe
	)
	g := newPoolGame(t, script)
	g.breakShot = false
	g.players[0].group = GroupSolids
	g.players[1].group = GroupStripes

	res, err := g.Apply(ctx, "p1", shot())
	require.NoError(t, err)
	foul := res.Summary["foul"].(*FoulInfo)
	assert.Equal(t, "wrong_first_contact", foul.Type)
}

func TestPoolIllegalEightBallLoses(t *testing.T) {
	ctx := context.Background()
	script := physics.NewScripted(
		&physics.Resolution{FirstContact: 8, Pocketed: []int{8}, CushionAfterHit: true},
	)
	g := newPoolGame(t, script)
	g.breakShot = false
	g.players[0].group = GroupSolids
	g.players[1].group = GroupStripes

	res, err := g.Apply(ctx, "p1", shot())
	require.NoError(t, err)
	assert.Empty(t, res.NextTurn)

	out := g.Terminal()
	require.NotNil(t, out)
	assert.Equal(t, []string{"p2"}, out.Winners)
	assert.Equal(t, "illegal_8ball", out.WinType)
}

func TestPoolLegalEightBallWins(t *testing.T) {
	ctx := context.Background()
	script := physics.NewScripted(
		&physics.Resolution{FirstContact: 8, Pocketed: []int{8}, CushionAfterHit: true},
	)
	g := newPoolGame(t, script)
	g.breakShot = false
	g.players[0].group = Group8Ball
	g.players[1].group = GroupStripes
	pocketBalls(g, 1, 2, 3, 4, 5, 6, 7)

	assert.Equal(t, PhaseEightBall, g.Phase())

	res, err := g.Apply(ctx, "p1", shot())
	require.NoError(t, err)
	assert.Equal(t, "pocket_8", res.Summary["win_type"])

	out := g.Terminal()
	require.NotNil(t, out)
	assert.Equal(t, []string{"p1"}, out.Winners)
	assert.Equal(t, []string{"p2"}, out.Losers)
}

func TestPoolScratchOnEightLoses(t *testing.T) {
	ctx := context.Background()
	script := physics.NewScripted(
		&physics.Resolution{FirstContact: 8, CueScratched: true, Pocketed: []int{0}},
	)
	g := newPoolGame(t, script)
	g.breakShot = false
	g.players[0].group = Group8Ball
	g.players[1].group = GroupStripes
	pocketBalls(g, 1, 2, 3, 4, 5, 6, 7)

	_, err := g.Apply(ctx, "p1", shot())
	require.NoError(t, err)

	out := g.Terminal()
	require.NotNil(t, out)
	assert.Equal(t, []string{"p2"}, out.Winners)
	assert.Equal(t, "scratch_on_8", out.WinType)
}

func TestPoolGroupPromotionOnClearing(t *testing.T) {
	ctx := context.Background()
	// p1 pots their last solid
	script := physics.NewScripted(
		&physics.Resolution{FirstContact: 7, Pocketed: []int{7}, CushionAfterHit: true},
	)
	g := newPoolGame(t, script)
	g.breakShot = false
	g.players[0].group = GroupSolids
	g.players[1].group = GroupStripes
	pocketBalls(g, 1, 2, 3, 4, 5, 6)

	res, err := g.Apply(ctx, "p1", shot())
	require.NoError(t, err)
	assert.Equal(t, "p1", res.NextTurn)

	groups := res.Summary["groups"].(map[string]BallGroup)
	assert.Equal(t, Group8Ball, groups["p1"])
	assert.Equal(t, PhaseEightBall, g.Phase())
}

func TestPoolPassIsFoul(t *testing.T) {
	ctx := context.Background()
	g := newPoolGame(t, physics.NewScripted())

	a := g.DefaultAction("p1")
	assert.Equal(t, "PASS", a.Type)

	res, err := g.Apply(ctx, "p1", a)
	require.NoError(t, err)
	assert.Equal(t, "p2", res.NextTurn)
	assert.Equal(t, true, res.Summary["ball_in_hand"])
	assert.True(t, g.ballInHand)

	// ball-in-hand default is a placement
	a = g.DefaultAction("p2")
	assert.Equal(t, "PLACE_CUE", a.Type)
}

func TestPoolPlacementOverlapRejected(t *testing.T) {
	ctx := context.Background()
	g := newPoolGame(t, physics.NewScripted())
	g.ballInHand = true

	// foot spot area is covered by the rack
	place, _ := json.Marshal(cuePlacement{X: 0.75, Y: 0.25})
	_, err := g.Apply(ctx, "p1", Action{Type: "PLACE_CUE", Data: place})
	assert.ErrorIs(t, err, ErrIllegalMove)

	place, _ = json.Marshal(cuePlacement{X: 1.5, Y: 0.25})
	_, err = g.Apply(ctx, "p1", Action{Type: "PLACE_CUE", Data: place})
	assert.ErrorIs(t, err, ErrIllegalMove, "out of bounds")
}
