package match

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"

	"github.com/quickbite/arcade/internal/physics"
)

// BallGroup is a pool player's assigned group.
type BallGroup string

const (
	GroupSolids  BallGroup = "SOLIDS"
	GroupStripes BallGroup = "STRIPES"
	GroupAny     BallGroup = "ANY"   // not yet assigned
	Group8Ball   BallGroup = "8BALL" // cleared own group, shooting the eight
)

// PoolPhase is the coarse stage of an 8-ball game.
type PoolPhase string

const (
	PhaseBreak     PoolPhase = "BREAK"
	PhaseOpen      PoolPhase = "OPEN"
	PhaseGroupsSet PoolPhase = "GROUPS_SET"
	PhaseEightBall PoolPhase = "EIGHT_BALL"
)

// PoolConfig toggles the optional foul rules.
type PoolConfig struct {
	RequireCushionAfterContact bool
	EnforceBreakMinimum        bool
	BreakMinimum               int // balls that must reach a cushion or pocket on the break
}

func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		RequireCushionAfterContact: true,
		EnforceBreakMinimum:        true,
		BreakMinimum:               4,
	}
}

// FoulInfo describes a foul committed during a shot.
type FoulInfo struct {
	Type    string `json:"type"` // scratch, no_contact, wrong_first_contact, no_cushion, break_foul, illegal_8ball, pass
	Message string `json:"message"`
}

type poolPlayer struct {
	id    string
	group BallGroup
}

// Pool is server-authoritative 8-ball. Ball motion comes from the shot
// resolver; all rule judgements happen here.
type Pool struct {
	resolver   physics.ShotResolver
	cfg        PoolConfig
	players    [2]poolPlayer
	balls      []physics.BallState
	turn       string
	breakShot  bool
	ballInHand bool
	shotNumber int
	outcome    *Outcome
}

func NewPool(resolver physics.ShotResolver, cfg PoolConfig) *Pool {
	return &Pool{resolver: resolver, cfg: cfg}
}

func (p *Pool) Init(players []string) (string, error) {
	if len(players) != 2 {
		return "", fmt.Errorf("pool needs 2 players, got %d", len(players))
	}
	if p.resolver == nil {
		return "", fmt.Errorf("pool needs a shot resolver")
	}
	p.players[0] = poolPlayer{id: players[0], group: GroupAny}
	p.players[1] = poolPlayer{id: players[1], group: GroupAny}
	p.balls = physics.StandardRack()
	p.turn = players[0]
	p.breakShot = true
	return p.turn, nil
}

type cuePlacement struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p *Pool) Apply(ctx context.Context, playerID string, a Action) (*StepResult, error) {
	if p.outcome != nil {
		return nil, ErrStaleAction
	}
	if playerID != p.turn {
		return nil, ErrNotYourTurn
	}

	switch a.Type {
	case "SHOT":
		return p.applyShot(ctx, playerID, a)
	case "PLACE_CUE":
		return p.applyPlaceCue(playerID, a)
	case "PASS":
		return p.applyPass(playerID)
	default:
		return nil, ErrUnknownAction
	}
}

func (p *Pool) applyShot(ctx context.Context, playerID string, a Action) (*StepResult, error) {
	if p.ballInHand {
		return nil, fmt.Errorf("%w: cue ball must be placed first", ErrIllegalMove)
	}

	var shot physics.ShotParams
	if err := json.Unmarshal(a.Data, &shot); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIllegalMove, err)
	}
	if shot.Power <= 0 || shot.Power > 1 {
		return nil, fmt.Errorf("%w: invalid power", ErrIllegalMove)
	}

	res, err := p.resolver.Resolve(ctx, p.cloneBalls(), shot)
	if err != nil {
		return nil, fmt.Errorf("shot resolution failed: %w", err)
	}
	p.shotNumber++

	shooter, opponent := p.playerAndOpponent(playerID)

	pocketed := res.Pocketed
	eightPocketed := false
	for _, n := range pocketed {
		if n == physics.EightBall {
			eightPocketed = true
		}
	}

	foul := p.detectFoul(shooter, res)

	// group assignment on the first legal pot, break included
	groupAssigned := false
	if foul == nil && shooter.group == GroupAny && opponent.group == GroupAny {
		for _, n := range pocketed {
			if n == physics.CueBall || n == physics.EightBall {
				continue
			}
			grp := groupOfBall(n)
			shooter.group = grp
			if grp == GroupSolids {
				opponent.group = GroupStripes
			} else {
				opponent.group = GroupSolids
			}
			groupAssigned = true
			break
		}
	}

	// eight-ball endgame judgements
	if eightPocketed {
		if foul != nil || shooter.group != Group8Ball {
			foul = &FoulInfo{Type: "illegal_8ball", Message: "8-ball pocketed illegally"}
			p.finish(opponent.id, shooter.id, "illegal_8ball")
		} else {
			p.finish(shooter.id, opponent.id, "pocket_8")
		}
	} else if res.CueScratched && shooter.group == Group8Ball {
		p.finish(opponent.id, shooter.id, "scratch_on_8")
	}

	// commit the resolver's final layout
	p.balls = res.FinalBalls
	p.updateGroupStatus(shooter)
	p.updateGroupStatus(opponent)

	wasBreak := p.breakShot
	p.breakShot = false

	summary := map[string]interface{}{
		"shot_number":    p.shotNumber,
		"pocketed":       pocketed,
		"break_shot":     wasBreak,
		"group_assigned": groupAssigned,
		"groups":         map[string]BallGroup{p.players[0].id: p.players[0].group, p.players[1].id: p.players[1].group},
		"phase":          p.Phase(),
	}
	if foul != nil {
		summary["foul"] = foul
	}

	if p.outcome != nil {
		p.turn = ""
		summary["winner"] = p.outcome.Winners[0]
		summary["win_type"] = p.outcome.WinType
		return &StepResult{NextTurn: "", Summary: summary, Frames: res.Frames}, nil
	}

	if foul != nil {
		p.turn = opponent.id
		p.ballInHand = true
		p.respotCue()
		summary["ball_in_hand"] = true
	} else {
		pottedOwn := false
		for _, n := range pocketed {
			if n == physics.CueBall || n == physics.EightBall {
				continue
			}
			if shooter.group == GroupAny || groupOfBall(n) == shooter.group {
				pottedOwn = true
				break
			}
		}
		if !pottedOwn {
			p.turn = opponent.id
		}
		p.ballInHand = false
	}
	summary["next_turn"] = p.turn

	log.Printf("[POOL] shot #%d by %s pocketed=%v foul=%v phase=%s next=%s",
		p.shotNumber, playerID, pocketed, foul != nil, p.Phase(), p.turn)

	return &StepResult{NextTurn: p.turn, Summary: summary, Frames: res.Frames}, nil
}

func (p *Pool) detectFoul(shooter *poolPlayer, res *physics.Resolution) *FoulInfo {
	if res.CueScratched {
		return &FoulInfo{Type: "scratch", Message: "Cue ball pocketed"}
	}
	if res.FirstContact == 0 {
		return &FoulInfo{Type: "no_contact", Message: "Failed to hit any ball"}
	}
	if shooter.group == Group8Ball {
		if res.FirstContact != physics.EightBall {
			return &FoulInfo{Type: "wrong_first_contact", Message: "Must hit the 8-ball first"}
		}
	} else if shooter.group != GroupAny {
		if g := groupOfBall(res.FirstContact); g != shooter.group && res.FirstContact != physics.EightBall {
			return &FoulInfo{Type: "wrong_first_contact", Message: "Hit opponent's ball first"}
		}
	}
	if p.cfg.RequireCushionAfterContact && !p.breakShot &&
		!res.CushionAfterHit && len(res.Pocketed) == 0 {
		return &FoulInfo{Type: "no_cushion", Message: "No ball reached a cushion after contact"}
	}
	if p.cfg.EnforceBreakMinimum && p.breakShot &&
		res.BallsToCushion+len(res.Pocketed) < p.cfg.BreakMinimum {
		return &FoulInfo{Type: "break_foul", Message: "Not enough balls reached a cushion on the break"}
	}
	return nil
}

func (p *Pool) applyPlaceCue(playerID string, a Action) (*StepResult, error) {
	if !p.ballInHand {
		return nil, fmt.Errorf("%w: not ball-in-hand", ErrIllegalMove)
	}

	var pos cuePlacement
	if err := json.Unmarshal(a.Data, &pos); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIllegalMove, err)
	}
	if pos.X < physics.BallRadius || pos.X > 1-physics.BallRadius ||
		pos.Y < physics.BallRadius || pos.Y > 0.5-physics.BallRadius {
		return nil, fmt.Errorf("%w: position out of bounds", ErrIllegalMove)
	}
	for _, b := range p.balls {
		if b.Number == physics.CueBall || b.Pocketed {
			continue
		}
		dx, dy := pos.X-b.Position.X, pos.Y-b.Position.Y
		if math.Sqrt(dx*dx+dy*dy) < 2*physics.BallRadius {
			return nil, fmt.Errorf("%w: overlaps another ball", ErrIllegalMove)
		}
	}

	for i := range p.balls {
		if p.balls[i].Number == physics.CueBall {
			p.balls[i].Position = physics.Vec2{X: pos.X, Y: pos.Y}
			p.balls[i].Pocketed = false
		}
	}
	p.ballInHand = false

	// placement keeps the turn
	return &StepResult{
		NextTurn: playerID,
		Summary:  map[string]interface{}{"cue_placed": []float64{pos.X, pos.Y}},
	}, nil
}

// applyPass is the turn-clock fallback: treated as a foul, opponent gets
// ball-in-hand.
func (p *Pool) applyPass(playerID string) (*StepResult, error) {
	_, opponent := p.playerAndOpponent(playerID)
	p.turn = opponent.id
	p.ballInHand = true
	p.respotCue()
	p.breakShot = false
	return &StepResult{
		NextTurn: p.turn,
		Summary: map[string]interface{}{
			"foul":         &FoulInfo{Type: "pass", Message: "Turn passed without a shot"},
			"ball_in_hand": true,
			"next_turn":    p.turn,
		},
	}, nil
}

func (p *Pool) Terminal() *Outcome {
	return p.outcome
}

// DefaultAction places the cue when ball-in-hand, otherwise passes.
func (p *Pool) DefaultAction(playerID string) Action {
	if p.ballInHand && p.turn == playerID {
		spot := p.freeSpot()
		data, _ := json.Marshal(cuePlacement{X: spot.X, Y: spot.Y})
		return Action{Type: "PLACE_CUE", Data: data}
	}
	return Action{Type: "PASS"}
}

func (p *Pool) Snapshot(viewerID string) map[string]interface{} {
	return map[string]interface{}{
		"balls":        p.cloneBalls(),
		"current_turn": p.turn,
		"players":      []string{p.players[0].id, p.players[1].id},
		"groups":       map[string]BallGroup{p.players[0].id: p.players[0].group, p.players[1].id: p.players[1].group},
		"phase":        p.Phase(),
		"break_shot":   p.breakShot,
		"ball_in_hand": p.ballInHand,
		"shot_number":  p.shotNumber,
	}
}

// Phase reports the coarse game stage.
func (p *Pool) Phase() PoolPhase {
	switch {
	case p.breakShot:
		return PhaseBreak
	case p.players[0].group == Group8Ball || p.players[1].group == Group8Ball:
		return PhaseEightBall
	case p.players[0].group == GroupAny:
		return PhaseOpen
	default:
		return PhaseGroupsSet
	}
}

func (p *Pool) playerAndOpponent(playerID string) (*poolPlayer, *poolPlayer) {
	if p.players[0].id == playerID {
		return &p.players[0], &p.players[1]
	}
	return &p.players[1], &p.players[0]
}

func (p *Pool) finish(winner, loser, winType string) {
	p.outcome = &Outcome{Winners: []string{winner}, Losers: []string{loser}, WinType: winType}
}

func (p *Pool) cloneBalls() []physics.BallState {
	out := make([]physics.BallState, len(p.balls))
	copy(out, p.balls)
	return out
}

// respotCue returns a pocketed cue to the table for ball-in-hand placement.
func (p *Pool) respotCue() {
	for i := range p.balls {
		if p.balls[i].Number == physics.CueBall {
			p.balls[i].Pocketed = false
		}
	}
}

// freeSpot scans from the head spot for a placement clear of other balls.
func (p *Pool) freeSpot() physics.Vec2 {
	for _, x := range []float64{0.25, 0.2, 0.3, 0.15, 0.35, 0.1} {
		for _, y := range []float64{0.25, 0.2, 0.3, 0.15, 0.35} {
			clear := true
			for _, b := range p.balls {
				if b.Number == physics.CueBall || b.Pocketed {
					continue
				}
				dx, dy := x-b.Position.X, y-b.Position.Y
				if math.Sqrt(dx*dx+dy*dy) < 2*physics.BallRadius {
					clear = false
					break
				}
			}
			if clear {
				return physics.Vec2{X: x, Y: y}
			}
		}
	}
	return physics.Vec2{X: 0.25, Y: 0.25}
}

func groupOfBall(n int) BallGroup {
	if n >= 1 && n <= 7 {
		return GroupSolids
	}
	if n >= 9 && n <= 15 {
		return GroupStripes
	}
	return ""
}

// updateGroupStatus promotes a player to the 8-ball once their group is
// cleared.
func (p *Pool) updateGroupStatus(pl *poolPlayer) {
	if pl.group != GroupSolids && pl.group != GroupStripes {
		return
	}
	for _, b := range p.balls {
		if !b.Pocketed && groupOfBall(b.Number) == pl.group {
			return
		}
	}
	pl.group = Group8Ball
}
