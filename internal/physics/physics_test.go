package physics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardRack(t *testing.T) {
	balls := StandardRack()
	require.Len(t, balls, NumBalls)

	byNumber := make(map[int]BallState, NumBalls)
	for _, b := range balls {
		byNumber[b.Number] = b
		assert.False(t, b.Pocketed)
		assert.GreaterOrEqual(t, b.Position.X, 0.0)
		assert.LessOrEqual(t, b.Position.X, 1.0)
		assert.GreaterOrEqual(t, b.Position.Y, 0.0)
		assert.LessOrEqual(t, b.Position.Y, 0.5)
	}
	for n := 0; n < NumBalls; n++ {
		assert.Contains(t, byNumber, n)
	}

	// cue in the kitchen, 8 at the center of the rack
	assert.Less(t, byNumber[CueBall].Position.X, 0.5)
	eight := byNumber[EightBall].Position
	apex := byNumber[1].Position
	assert.Greater(t, eight.X, apex.X)
}

func TestClientResolve(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/resolve", r.URL.Path)
		var req resolveRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Balls, NumBalls)

		json.NewEncoder(w).Encode(Resolution{
			FinalBalls:   req.Balls,
			Pocketed:     []int{3},
			FirstContact: 1,
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, 5)
	res, err := c.Resolve(context.Background(), StandardRack(), ShotParams{Angle: 0.1, Power: 0.8})
	require.NoError(t, err)
	assert.Equal(t, []int{3}, res.Pocketed)
	assert.Equal(t, 1, res.FirstContact)
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(Resolution{FirstContact: 1})
	}))
	defer server.Close()

	c := NewClient(server.URL, 5)
	res, err := c.Resolve(context.Background(), StandardRack(), ShotParams{Power: 0.5})
	require.NoError(t, err)
	assert.Equal(t, 1, res.FirstContact)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestClientDoesNotRetryBadRequest(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	c := NewClient(server.URL, 5)
	_, err := c.Resolve(context.Background(), StandardRack(), ShotParams{Power: 0.5})
	require.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestScriptedCarriesBallsForward(t *testing.T) {
	s := NewScripted(&Resolution{Pocketed: []int{5}, FirstContact: 5})

	res, err := s.Resolve(context.Background(), StandardRack(), ShotParams{Power: 0.5})
	require.NoError(t, err)
	require.Len(t, res.FinalBalls, NumBalls)
	for _, b := range res.FinalBalls {
		if b.Number == 5 {
			assert.True(t, b.Pocketed)
		}
	}

	// queue exhausted
	_, err = s.Resolve(context.Background(), res.FinalBalls, ShotParams{Power: 0.5})
	assert.Error(t, err)
}
