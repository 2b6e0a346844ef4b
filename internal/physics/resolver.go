package physics

import "context"

// Table constants for 8-ball pool. Positions are normalized to a unit
// table: x in [0,1], y in [0,0.5].
const (
	BallRadius = 0.0105
	NumBalls   = 16 // 0=cue, 1-7=solids, 8=eight, 9-15=stripes
	EightBall  = 8
	CueBall    = 0
)

// Vec2 is a 2D point or velocity on the table plane.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BallState is the resting state of one ball.
type BallState struct {
	Number   int  `json:"number"`
	Position Vec2 `json:"position"`
	Pocketed bool `json:"pocketed"`
}

// ShotParams is the player's input for one shot.
type ShotParams struct {
	Angle   float64 `json:"angle"`   // radians
	Power   float64 `json:"power"`   // 0..1
	Spin    Vec2    `json:"spin"`    // english, normalized
	CuePos  *Vec2   `json:"cue_pos,omitempty"` // ball-in-hand placement
}

// FrameEvent is a notable contact within a simulation frame.
type FrameEvent struct {
	Type   string `json:"type"` // BALL_CONTACT, CUSHION, POCKET
	Ball   int    `json:"ball"`
	Other  int    `json:"other,omitempty"`
	Pocket int    `json:"pocket,omitempty"`
}

// Frame is one animation step of a resolved shot.
type Frame struct {
	Balls  []BallState  `json:"balls"`
	Events []FrameEvent `json:"events,omitempty"`
}

// Resolution is the outcome of a simulated shot.
type Resolution struct {
	Frames           []Frame     `json:"frames"`
	FinalBalls       []BallState `json:"final_balls"`
	Pocketed         []int       `json:"pocketed"`
	CueScratched     bool        `json:"cue_scratched"`
	FirstContact     int         `json:"first_contact"` // 0 when the cue touched nothing
	CushionAfterHit  bool        `json:"cushion_after_hit"`
	BallsToCushion   int         `json:"balls_to_cushion"` // non-cue balls that reached a cushion
}

// ShotResolver turns shot parameters into a deterministic resolution.
// The engine treats the resolver as authoritative for ball motion; all
// rule judgements (fouls, groups, game end) stay on this side.
type ShotResolver interface {
	Resolve(ctx context.Context, balls []BallState, shot ShotParams) (*Resolution, error)
}

// StandardRack returns the break layout: cue on the head spot, triangle
// racked at the foot with the eight in the middle.
func StandardRack() []BallState {
	rack := make([]BallState, NumBalls)
	rack[CueBall] = BallState{Number: CueBall, Position: Vec2{X: 0.25, Y: 0.25}}

	// triangle rows at the foot spot
	order := []int{1, 9, 2, 10, 8, 3, 11, 4, 12, 5, 13, 6, 14, 7, 15}
	idx := 0
	footX := 0.75
	for row := 0; row < 5; row++ {
		for col := 0; col <= row; col++ {
			n := order[idx]
			idx++
			x := footX + float64(row)*BallRadius*1.74
			y := 0.25 + (float64(col)-float64(row)/2)*BallRadius*2.02
			rack[n] = BallState{Number: n, Position: Vec2{X: x, Y: y}}
		}
	}
	return rack
}
