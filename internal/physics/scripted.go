package physics

import (
	"context"
	"errors"
)

// Scripted replays a fixed sequence of resolutions. It backs the local
// fallback path and lets rule tests drive exact shot outcomes without a
// simulation service.
type Scripted struct {
	queue []*Resolution
}

func NewScripted(resolutions ...*Resolution) *Scripted {
	return &Scripted{queue: resolutions}
}

// Push appends a resolution to the script.
func (s *Scripted) Push(r *Resolution) {
	s.queue = append(s.queue, r)
}

func (s *Scripted) Resolve(ctx context.Context, balls []BallState, shot ShotParams) (*Resolution, error) {
	if len(s.queue) == 0 {
		return nil, errors.New("scripted resolver exhausted")
	}
	r := s.queue[0]
	s.queue = s.queue[1:]
	if r.FinalBalls == nil {
		// carry the incoming table forward, applying pockets
		final := make([]BallState, len(balls))
		copy(final, balls)
		for _, n := range r.Pocketed {
			for i := range final {
				if final[i].Number == n {
					final[i].Pocketed = true
				}
			}
		}
		if r.CueScratched {
			for i := range final {
				if final[i].Number == CueBall {
					final[i].Pocketed = true
				}
			}
		}
		r.FinalBalls = final
	}
	return r, nil
}
