package match

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *captureSink) Publish(matchID string, e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *captureSink) byType(eventType string) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, e := range s.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (s *captureSink) waitFor(t *testing.T, eventType string, n int) []Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if evs := s.byType(eventType); len(evs) >= n {
			return evs
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d %s events", n, eventType)
	return nil
}

func (s *captureSink) all() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event{}, s.events...)
}

func testMachineConfig() MachineConfig {
	return MachineConfig{
		TurnClock:   time.Hour,
		ReadyCheck:  time.Hour,
		GracePeriod: time.Hour,
	}
}

func startTicTacToeMachine(t *testing.T, cfg MachineConfig, sink EventSink,
	onComplete func(string, Outcome), onCancel func(string, string)) *Machine {
	t.Helper()
	seats := []Seat{{Index: 0, PlayerID: "x"}, {Index: 1, PlayerID: "o"}}
	m := NewMachine("m1", GameTicTacToe, ModeCasual, NewTicTacToe(), seats, cfg, sink, onComplete, onCancel)
	m.Start()
	t.Cleanup(m.Stop)
	return m
}

func TestMachineReadyCheckStartsGame(t *testing.T) {
	sink := &captureSink{}
	m := startTicTacToeMachine(t, testMachineConfig(), sink, nil, nil)

	require.NoError(t, m.Ready("x"))
	assert.Equal(t, StatusReadyCheck, m.Status())

	require.NoError(t, m.Ready("o"))
	assert.Equal(t, StatusInProgress, m.Status())

	started := sink.waitFor(t, EventMatchStarted, 1)
	assert.Equal(t, "x", started[0].Data["first_turn"])
}

func TestMachineReadyCheckTimeout(t *testing.T) {
	cancelled := make(chan string, 1)
	cfg := testMachineConfig()
	cfg.ReadyCheck = 30 * time.Millisecond
	sink := &captureSink{}
	m := startTicTacToeMachine(t, cfg, sink, nil, func(id, reason string) {
		cancelled <- reason
	})

	require.NoError(t, m.Ready("x")) // only one player readies

	select {
	case reason := <-cancelled:
		assert.Equal(t, "ready_check_timeout", reason)
	case <-time.After(2 * time.Second):
		t.Fatal("ready check never timed out")
	}
	assert.Equal(t, StatusCancelled, m.Status())
}

func TestMachineChatIsSequenced(t *testing.T) {
	sink := &captureSink{}
	m := startTicTacToeMachine(t, testMachineConfig(), sink, nil, nil)

	m.Chat("x", "hello")
	m.Chat("o", "hi")
	m.Chat("stranger", "let me in") // not seated, dropped

	chats := sink.waitFor(t, EventChat, 2)
	require.Len(t, chats, 2)
	assert.Equal(t, "x", chats[0].Data["player_id"])
	assert.Equal(t, "hello", chats[0].Data["message"])
	assert.Greater(t, chats[1].Seq, chats[0].Seq)

	time.Sleep(20 * time.Millisecond)
	assert.Len(t, sink.byType(EventChat), 2, "unseated players cannot chat")
}

func TestMachineSequenceNumbersIncrease(t *testing.T) {
	ctx := context.Background()
	sink := &captureSink{}
	m := startTicTacToeMachine(t, testMachineConfig(), sink, nil, nil)
	require.NoError(t, m.Ready("x"))
	require.NoError(t, m.Ready("o"))

	require.NoError(t, m.SubmitAction(ctx, "x", move(0)))
	require.NoError(t, m.SubmitAction(ctx, "o", move(4)))

	events := sink.all()
	require.NotEmpty(t, events)
	var last int64
	for _, e := range events {
		assert.Greater(t, e.Seq, last, "seq must strictly increase")
		last = e.Seq
	}

	deltas := sink.byType(EventStateDelta)
	require.Len(t, deltas, 2)
	assert.Equal(t, "x", deltas[0].Data["action_by"])
	assert.Equal(t, "o", deltas[1].Data["action_by"])
}

func TestMachineRejectsOutOfTurn(t *testing.T) {
	ctx := context.Background()
	m := startTicTacToeMachine(t, testMachineConfig(), &captureSink{}, nil, nil)
	require.NoError(t, m.Ready("x"))
	require.NoError(t, m.Ready("o"))

	err := m.SubmitAction(ctx, "o", move(0))
	assert.ErrorIs(t, err, ErrNotYourTurn)

	err = m.SubmitAction(ctx, "ghost", move(0))
	assert.ErrorIs(t, err, ErrNotSeated)
}

func TestMachineTurnClockAutoPlays(t *testing.T) {
	cfg := testMachineConfig()
	cfg.TurnClock = 30 * time.Millisecond
	sink := &captureSink{}
	m := startTicTacToeMachine(t, cfg, sink, nil, nil)
	require.NoError(t, m.Ready("x"))
	require.NoError(t, m.Ready("o"))

	deltas := sink.waitFor(t, EventStateDelta, 1)
	assert.Equal(t, "x", deltas[0].Data["action_by"], "clock submits the default move for the stalled player")
}

func TestMachineDisconnectForfeits(t *testing.T) {
	done := make(chan Outcome, 1)
	cfg := testMachineConfig()
	cfg.GracePeriod = 30 * time.Millisecond
	sink := &captureSink{}
	m := startTicTacToeMachine(t, cfg, sink, func(id string, out Outcome) {
		done <- out
	}, nil)
	require.NoError(t, m.Ready("x"))
	require.NoError(t, m.Ready("o"))

	m.Disconnect("o")

	select {
	case out := <-done:
		assert.Equal(t, []string{"x"}, out.Winners)
		assert.Equal(t, []string{"o"}, out.Losers)
		assert.Equal(t, "forfeit", out.WinType)
	case <-time.After(2 * time.Second):
		t.Fatal("grace period never forfeited")
	}
}

func TestMachineReconnectCancelsGrace(t *testing.T) {
	ctx := context.Background()
	cfg := testMachineConfig()
	cfg.GracePeriod = 50 * time.Millisecond
	sink := &captureSink{}
	m := startTicTacToeMachine(t, cfg, sink, nil, nil)
	require.NoError(t, m.Ready("x"))
	require.NoError(t, m.Ready("o"))

	m.Disconnect("o")
	m.Connect("o")
	sink.waitFor(t, EventConnected, 1)

	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, StatusInProgress, m.Status(), "reconnect must cancel the forfeit")

	require.NoError(t, m.SubmitAction(ctx, "x", move(0)))
}

func TestMachineActionsAfterCompletionAreStale(t *testing.T) {
	ctx := context.Background()
	done := make(chan Outcome, 1)
	m := startTicTacToeMachine(t, testMachineConfig(), &captureSink{}, func(id string, out Outcome) {
		done <- out
	}, nil)
	require.NoError(t, m.Ready("x"))
	require.NoError(t, m.Ready("o"))

	// x wins the top row
	plays := []struct {
		player string
		cell   int
	}{{"x", 0}, {"o", 3}, {"x", 1}, {"o", 4}, {"x", 2}}
	for _, p := range plays {
		require.NoError(t, m.SubmitAction(ctx, p.player, move(p.cell)))
	}

	select {
	case out := <-done:
		assert.Equal(t, []string{"x"}, out.Winners)
	case <-time.After(2 * time.Second):
		t.Fatal("completion hook never fired")
	}

	err := m.SubmitAction(ctx, "o", move(5))
	assert.ErrorIs(t, err, ErrStaleAction)

	snap, seq, err := m.Snapshot("x")
	require.NoError(t, err)
	assert.Greater(t, seq, int64(0))
	assert.Equal(t, StatusCompleted, snap["status"])
}

func TestMachineConcede(t *testing.T) {
	ctx := context.Background()
	done := make(chan Outcome, 1)
	m := startTicTacToeMachine(t, testMachineConfig(), &captureSink{}, func(id string, out Outcome) {
		done <- out
	}, nil)
	require.NoError(t, m.Ready("x"))
	require.NoError(t, m.Ready("o"))

	require.NoError(t, m.SubmitAction(ctx, "o", Action{Type: "CONCEDE"}))

	select {
	case out := <-done:
		assert.Equal(t, []string{"x"}, out.Winners)
		assert.Equal(t, "concede", out.WinType)
	case <-time.After(2 * time.Second):
		t.Fatal("concede never completed the match")
	}
}
