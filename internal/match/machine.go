package match

import (
	"context"
	"errors"
	"log"
	"time"
)

// Event is a sequenced match event pushed to connected clients. Seq is
// monotonically increasing per match; clients detect gaps and request a
// snapshot instead of replaying history.
type Event struct {
	Seq     int64                  `json:"seq"`
	Type    string                 `json:"type"`
	MatchID string                 `json:"match_id"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// Event types published by the machine.
const (
	EventReadyCheck   = "READY_CHECK"
	EventPlayerReady  = "PLAYER_READY"
	EventMatchStarted = "MATCH_STARTED"
	EventStateDelta   = "STATE_DELTA"
	EventFrameBurst   = "FRAME"
	EventConnected    = "PLAYER_CONNECTED"
	EventDisconnected = "PLAYER_DISCONNECTED"
	EventChat         = "CHAT"
	EventMatchEnded   = "MATCH_ENDED"
)

// EventSink receives every published event. Implemented by the websocket
// hub; a nil-safe no-op is used in tests that don't care.
type EventSink interface {
	Publish(matchID string, e Event)
}

// MachineConfig carries the three timers a live match runs on.
type MachineConfig struct {
	TurnClock   time.Duration
	ReadyCheck  time.Duration
	GracePeriod time.Duration
}

// Machine owns one live match. All state mutation happens on the owner
// goroutine; public methods enqueue work onto the mailbox and wait for the
// reply where a result is needed.
type Machine struct {
	id       string
	gameType GameType
	mode     Mode
	rules    Rules
	cfg      MachineConfig
	sink     EventSink

	onComplete func(matchID string, out Outcome)
	onCancel   func(matchID string, reason string)

	seats   []Seat
	status  Status
	outcome *Outcome
	turn    string
	seq     int64

	mailbox chan func()
	done    chan struct{}

	readyTimer  *time.Timer
	turnTimer   *time.Timer
	graceTimers map[string]*time.Timer
}

// NewMachine builds a machine for a filled match. Seats must already carry
// player IDs in seat order.
func NewMachine(id string, gt GameType, mode Mode, rules Rules, seats []Seat,
	cfg MachineConfig, sink EventSink,
	onComplete func(string, Outcome), onCancel func(string, string)) *Machine {
	m := &Machine{
		id:          id,
		gameType:    gt,
		mode:        mode,
		rules:       rules,
		cfg:         cfg,
		sink:        sink,
		onComplete:  onComplete,
		onCancel:    onCancel,
		seats:       append([]Seat{}, seats...),
		status:      StatusReadyCheck,
		mailbox:     make(chan func(), 64),
		done:        make(chan struct{}),
		graceTimers: make(map[string]*time.Timer),
	}
	return m
}

// Start launches the owner goroutine and opens the ready check.
func (m *Machine) Start() {
	go m.run()
	m.enqueue(func() {
		m.publish(EventReadyCheck, map[string]interface{}{
			"deadline_secs": int(m.cfg.ReadyCheck.Seconds()),
		})
		m.readyTimer = time.AfterFunc(m.cfg.ReadyCheck, func() {
			m.enqueue(m.readyCheckExpired)
		})
	})
}

// Stop tears the machine down. Pending mailbox work is dropped.
func (m *Machine) Stop() {
	m.enqueue(func() {
		m.stopTimers()
		select {
		case <-m.done:
		default:
			close(m.done)
		}
	})
}

func (m *Machine) ID() string { return m.id }

func (m *Machine) GameType() GameType { return m.gameType }

func (m *Machine) Mode() Mode { return m.mode }

func (m *Machine) run() {
	for {
		select {
		case fn := <-m.mailbox:
			fn()
		case <-m.done:
			return
		}
	}
}

func (m *Machine) enqueue(fn func()) {
	select {
	case m.mailbox <- fn:
	case <-m.done:
	}
}

// call runs fn on the owner goroutine and waits for it.
func (m *Machine) call(fn func() error) error {
	reply := make(chan error, 1)
	m.enqueue(func() { reply <- fn() })
	select {
	case err := <-reply:
		return err
	case <-m.done:
		return ErrStaleAction
	}
}

// Ready marks a player ready; when the last seat readies up the game
// starts.
func (m *Machine) Ready(playerID string) error {
	return m.call(func() error {
		if m.status != StatusReadyCheck {
			return ErrStaleAction
		}
		seat := m.seatOf(playerID)
		if seat == nil {
			return ErrNotSeated
		}
		if seat.Ready {
			return nil
		}
		seat.Ready = true
		seat.Connected = true
		m.publish(EventPlayerReady, map[string]interface{}{"player_id": playerID})

		for i := range m.seats {
			if !m.seats[i].Ready {
				return nil
			}
		}
		return m.begin()
	})
}

func (m *Machine) begin() error {
	if m.readyTimer != nil {
		m.readyTimer.Stop()
	}
	players := make([]string, len(m.seats))
	for i, s := range m.seats {
		players[i] = s.PlayerID
	}
	first, err := m.rules.Init(players)
	if err != nil {
		return err
	}
	m.status = StatusInProgress
	m.turn = first
	m.publish(EventMatchStarted, map[string]interface{}{
		"first_turn": first,
		"state":      m.rules.Snapshot(""),
	})
	m.resetTurnClock()
	log.Printf("[MATCH] %s started (%s/%s), %s to move", m.id, m.gameType, m.mode, first)
	return nil
}

func (m *Machine) readyCheckExpired() {
	if m.status != StatusReadyCheck {
		return
	}
	m.status = StatusCancelled
	m.stopTimers()
	m.publish(EventMatchEnded, map[string]interface{}{"cancelled": true, "reason": "ready_check_timeout"})
	log.Printf("[MATCH] %s cancelled: ready check expired", m.id)
	if m.onCancel != nil {
		go m.onCancel(m.id, "ready_check_timeout")
	}
}

// SubmitAction validates and commits a player action. CONCEDE is handled
// here; everything else goes to the rule module.
func (m *Machine) SubmitAction(ctx context.Context, playerID string, a Action) error {
	return m.call(func() error {
		if m.status != StatusInProgress {
			return ErrStaleAction
		}
		if m.seatOf(playerID) == nil {
			return ErrNotSeated
		}
		if a.Type == "CONCEDE" {
			m.forfeit(playerID, "concede")
			return nil
		}
		return m.step(ctx, playerID, a)
	})
}

// step applies one action and publishes the resulting delta. Runs on the
// owner goroutine.
func (m *Machine) step(ctx context.Context, playerID string, a Action) error {
	res, err := m.rules.Apply(ctx, playerID, a)
	if err != nil {
		return err
	}

	m.turn = res.NextTurn
	delta := map[string]interface{}{
		"action_by": playerID,
		"next_turn": res.NextTurn,
	}
	for k, v := range res.Summary {
		delta[k] = v
	}
	m.publish(EventStateDelta, delta)

	// frame bursts carry the seq of the delta they animate
	if len(res.Frames) > 0 {
		m.publish(EventFrameBurst, map[string]interface{}{
			"action_seq": m.seq,
			"frames":     res.Frames,
		})
	}

	if out := m.rules.Terminal(); out != nil {
		m.complete(*out)
		return nil
	}
	m.resetTurnClock()
	return nil
}

func (m *Machine) resetTurnClock() {
	if m.turnTimer != nil {
		m.turnTimer.Stop()
	}
	if m.cfg.TurnClock <= 0 || m.turn == "" {
		return
	}
	player := m.turn
	m.turnTimer = time.AfterFunc(m.cfg.TurnClock, func() {
		m.enqueue(func() { m.turnClockExpired(player) })
	})
}

func (m *Machine) turnClockExpired(playerID string) {
	if m.status != StatusInProgress || m.turn != playerID {
		return
	}
	a := m.rules.DefaultAction(playerID)
	log.Printf("[MATCH] %s turn clock expired for %s, auto-playing %s", m.id, playerID, a.Type)
	if err := m.step(context.Background(), playerID, a); err != nil {
		// nothing sensible to auto-play; treat as a concession
		log.Printf("[MATCH] %s auto-play failed for %s: %v", m.id, playerID, err)
		m.forfeit(playerID, "timeout")
	}
}

// Chat broadcasts a chat line from a seated player. Chat rides the same
// sequenced stream as state deltas, so clients order it consistently.
func (m *Machine) Chat(playerID, text string) {
	m.enqueue(func() {
		if m.seatOf(playerID) == nil {
			return
		}
		m.publish(EventChat, map[string]interface{}{
			"player_id": playerID,
			"message":   text,
		})
	})
}

// Connect marks a player's transport as attached and cancels any grace
// timer.
func (m *Machine) Connect(playerID string) {
	m.enqueue(func() {
		seat := m.seatOf(playerID)
		if seat == nil {
			return
		}
		seat.Connected = true
		seat.DisconnectedAt = nil
		if t, ok := m.graceTimers[playerID]; ok {
			t.Stop()
			delete(m.graceTimers, playerID)
		}
		m.publish(EventConnected, map[string]interface{}{"player_id": playerID})
	})
}

// Disconnect starts the grace clock; the match forfeits if the player does
// not return.
func (m *Machine) Disconnect(playerID string) {
	m.enqueue(func() {
		seat := m.seatOf(playerID)
		if seat == nil {
			return
		}
		seat.Connected = false
		now := time.Now()
		seat.DisconnectedAt = &now
		m.publish(EventDisconnected, map[string]interface{}{
			"player_id":  playerID,
			"grace_secs": int(m.cfg.GracePeriod.Seconds()),
		})
		if m.status != StatusInProgress {
			return
		}
		if t, ok := m.graceTimers[playerID]; ok {
			t.Stop()
		}
		m.graceTimers[playerID] = time.AfterFunc(m.cfg.GracePeriod, func() {
			m.enqueue(func() { m.graceExpired(playerID) })
		})
	})
}

func (m *Machine) graceExpired(playerID string) {
	seat := m.seatOf(playerID)
	if m.status != StatusInProgress || seat == nil || seat.Connected {
		return
	}
	log.Printf("[MATCH] %s grace period expired for %s, forfeiting", m.id, playerID)
	m.forfeit(playerID, "forfeit")
}

// forfeit ends the match against one player; everyone else wins.
func (m *Machine) forfeit(playerID, winType string) {
	winners := make([]string, 0, len(m.seats)-1)
	for _, s := range m.seats {
		if s.PlayerID != playerID {
			winners = append(winners, s.PlayerID)
		}
	}
	m.complete(Outcome{Winners: winners, Losers: []string{playerID}, WinType: winType})
}

func (m *Machine) complete(out Outcome) {
	m.status = StatusCompleted
	m.outcome = &out
	m.turn = ""
	m.stopTimers()
	m.publish(EventMatchEnded, map[string]interface{}{
		"winners":  out.Winners,
		"losers":   out.Losers,
		"draw":     out.Draw,
		"win_type": out.WinType,
	})
	log.Printf("[MATCH] %s completed: winners=%v draw=%v type=%s", m.id, out.Winners, out.Draw, out.WinType)
	if m.onComplete != nil {
		// settlement touches the ledger; keep it off the owner goroutine
		go m.onComplete(m.id, out)
	}
}

// Snapshot returns the full authoritative state for a viewer along with
// the seq it is current as of.
func (m *Machine) Snapshot(viewerID string) (map[string]interface{}, int64, error) {
	var snap map[string]interface{}
	var seq int64
	err := m.call(func() error {
		seq = m.seq
		snap = map[string]interface{}{
			"match_id":  m.id,
			"game_type": m.gameType,
			"mode":      m.mode,
			"status":    m.status,
			"seats":     append([]Seat{}, m.seats...),
			"turn":      m.turn,
		}
		if m.status == StatusInProgress || m.status == StatusCompleted {
			snap["state"] = m.rules.Snapshot(viewerID)
		}
		if m.outcome != nil {
			snap["outcome"] = m.outcome
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return snap, seq, nil
}

// Status reports the lifecycle state.
func (m *Machine) Status() Status {
	var st Status
	_ = m.call(func() error { st = m.status; return nil })
	return st
}

// Outcome returns the terminal outcome, or an error before completion.
func (m *Machine) Outcome() (Outcome, error) {
	var out Outcome
	err := m.call(func() error {
		if m.outcome == nil {
			return errors.New("match has no outcome yet")
		}
		out = *m.outcome
		return nil
	})
	return out, err
}

func (m *Machine) publish(eventType string, data map[string]interface{}) {
	m.seq++
	if m.sink == nil {
		return
	}
	m.sink.Publish(m.id, Event{
		Seq:     m.seq,
		Type:    eventType,
		MatchID: m.id,
		Data:    data,
	})
}

func (m *Machine) seatOf(playerID string) *Seat {
	for i := range m.seats {
		if m.seats[i].PlayerID == playerID {
			return &m.seats[i]
		}
	}
	return nil
}

func (m *Machine) stopTimers() {
	if m.readyTimer != nil {
		m.readyTimer.Stop()
	}
	if m.turnTimer != nil {
		m.turnTimer.Stop()
	}
	for id, t := range m.graceTimers {
		t.Stop()
		delete(m.graceTimers, id)
	}
}
