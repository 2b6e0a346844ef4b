package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/quickbite/arcade/internal/match"
	"github.com/quickbite/arcade/internal/physics"
	"github.com/quickbite/arcade/internal/rating"
	"github.com/quickbite/arcade/internal/wallet"
)

var (
	ErrUnknownMatch   = errors.New("unknown match")
	ErrMatchNotOpen   = errors.New("match is not open for joining")
	ErrAlreadySeated  = errors.New("player already seated in this match")
	ErrInvalidBuyIn   = errors.New("buy-in is not an allowed tier")
	ErrMatchFull      = errors.New("match is full")
	ErrMatchNotLive   = errors.New("match is not live")
)

// Config is the coordinator's tunable surface.
type Config struct {
	BuyInTiers   []int64
	RakePercent  int64
	LobbyTimeout time.Duration
	Machine      match.MachineConfig
}

// Match is the coordinator's view of one match through its lifecycle.
type Match struct {
	ID        string         `json:"id"`
	GameType  match.GameType `json:"game_type"`
	Mode      match.Mode     `json:"mode"`
	BuyIn     int64          `json:"buy_in"`
	MaxSeats  int            `json:"max_seats"`
	Status    match.Status   `json:"status"`
	Seats     []match.Seat   `json:"seats"`
	CreatedAt time.Time      `json:"created_at"`
}

func (m *Match) freeSeat() int {
	for i := range m.Seats {
		if m.Seats[i].PlayerID == "" {
			return i
		}
	}
	return -1
}

func (m *Match) seated(playerID string) bool {
	for _, s := range m.Seats {
		if s.PlayerID == playerID {
			return true
		}
	}
	return false
}

// Coordinator owns match creation, seating, stakes and settlement. Live
// game state belongs to the per-match machines.
type Coordinator struct {
	cfg      Config
	ledger   *wallet.Ledger
	rank     *rating.Engine
	sink     match.EventSink
	resolver physics.ShotResolver
	db       *sqlx.DB      // optional; row persistence is best-effort
	rdb      *redis.Client // optional; open-lobby index and cross-node events

	mu       sync.Mutex
	matches  map[string]*Match
	machines map[string]*match.Machine
}

func New(cfg Config, ledger *wallet.Ledger, rank *rating.Engine,
	sink match.EventSink, resolver physics.ShotResolver,
	db *sqlx.DB, rdb *redis.Client) *Coordinator {
	return &Coordinator{
		cfg:      cfg,
		ledger:   ledger,
		rank:     rank,
		sink:     sink,
		resolver: resolver,
		db:       db,
		rdb:      rdb,
		matches:  make(map[string]*Match),
		machines: make(map[string]*match.Machine),
	}
}

func (c *Coordinator) validBuyIn(buyIn int64) bool {
	for _, t := range c.cfg.BuyInTiers {
		if t == buyIn {
			return true
		}
	}
	return false
}

func lobbyKey(gt match.GameType, mode match.Mode, buyIn int64) string {
	return fmt.Sprintf("lobby:%s:%s:%d", gt, mode, buyIn)
}

// CreateMatch debits the creator's stake and opens a lobby with them at
// seat 0.
func (c *Coordinator) CreateMatch(ctx context.Context, playerID string,
	gt match.GameType, mode match.Mode, buyIn int64, seats int) (*Match, error) {
	if !c.validBuyIn(buyIn) {
		return nil, ErrInvalidBuyIn
	}
	if _, err := match.RulesFor(gt, c.resolver); err != nil {
		return nil, err
	}
	maxSeats := match.SeatsFor(gt, seats)

	matchID := uuid.NewString()
	if _, err := c.ledger.Debit(ctx, playerID, buyIn, wallet.ReasonBuyIn,
		matchID, fmt.Sprintf("buyin:%s:%s", matchID, playerID)); err != nil {
		return nil, err
	}

	m := &Match{
		ID:        matchID,
		GameType:  gt,
		Mode:      mode,
		BuyIn:     buyIn,
		MaxSeats:  maxSeats,
		Status:    match.StatusLobby,
		Seats:     make([]match.Seat, maxSeats),
		CreatedAt: time.Now(),
	}
	for i := range m.Seats {
		m.Seats[i].Index = i
	}
	m.Seats[0].PlayerID = playerID

	c.mu.Lock()
	c.matches[matchID] = m
	c.mu.Unlock()

	c.persistMatch(ctx, m)
	if c.rdb != nil {
		if err := c.rdb.RPush(ctx, lobbyKey(gt, mode, buyIn), matchID).Err(); err != nil {
			log.Printf("[COORD] failed to index lobby %s: %v", matchID, err)
		}
	}

	log.Printf("[COORD] match %s created (%s/%s buy-in=%d seats=%d) by %s",
		matchID, gt, mode, buyIn, maxSeats, playerID)
	return c.snapshotMatch(m), nil
}

// JoinMatch stakes the player and seats them. The debit happens first; if
// the seat is gone by the time we reserve, the stake is refunded.
func (c *Coordinator) JoinMatch(ctx context.Context, playerID, matchID string) (*Match, error) {
	c.mu.Lock()
	m, ok := c.matches[matchID]
	if !ok {
		c.mu.Unlock()
		return nil, ErrUnknownMatch
	}
	if m.seated(playerID) {
		c.mu.Unlock()
		return nil, ErrAlreadySeated
	}
	buyIn := m.BuyIn
	c.mu.Unlock()

	if _, err := c.ledger.Debit(ctx, playerID, buyIn, wallet.ReasonBuyIn,
		matchID, fmt.Sprintf("buyin:%s:%s", matchID, playerID)); err != nil {
		return nil, err
	}

	c.mu.Lock()
	joinErr := func() error {
		if m.Status != match.StatusLobby {
			return ErrMatchNotOpen
		}
		if m.seated(playerID) {
			return ErrAlreadySeated
		}
		idx := m.freeSeat()
		if idx < 0 {
			return ErrMatchFull
		}
		m.Seats[idx].PlayerID = playerID
		return nil
	}()

	var filled bool
	if joinErr == nil {
		filled = m.freeSeat() < 0
		if filled {
			m.Status = match.StatusReadyCheck
		}
	}
	c.mu.Unlock()

	if joinErr != nil {
		// lost the race for the seat: give the stake back
		if _, err := c.ledger.Credit(ctx, playerID, buyIn, wallet.ReasonRefund,
			matchID, fmt.Sprintf("refund:%s:%s", matchID, playerID)); err != nil {
			log.Printf("[COORD] refund after failed join of %s by %s failed: %v", matchID, playerID, err)
		}
		return nil, joinErr
	}

	c.persistSeatUpdate(ctx, m)
	log.Printf("[COORD] %s joined match %s", playerID, matchID)

	if filled {
		c.removeLobbyIndex(ctx, m)
		if err := c.startMachine(m); err != nil {
			log.Printf("[COORD] failed to start machine for %s: %v", matchID, err)
			c.CancelMatch(context.Background(), matchID, "start_failed")
			return nil, err
		}
	}
	return c.snapshotMatch(m), nil
}

// QuickMatch joins the oldest open lobby for the tier, or opens a new one.
func (c *Coordinator) QuickMatch(ctx context.Context, playerID string,
	gt match.GameType, mode match.Mode, buyIn int64) (*Match, error) {
	if !c.validBuyIn(buyIn) {
		return nil, ErrInvalidBuyIn
	}

	// a few candidates, oldest first; each join can lose its race
	for attempt := 0; attempt < 3; attempt++ {
		matchID := c.claimOpenLobby(ctx, gt, mode, buyIn, playerID)
		if matchID == "" {
			break
		}
		m, err := c.JoinMatch(ctx, playerID, matchID)
		if err == nil {
			return m, nil
		}
		if errors.Is(err, wallet.ErrInsufficientFunds) {
			return nil, err
		}
		log.Printf("[COORD] quick-match candidate %s unusable for %s: %v", matchID, playerID, err)
	}

	return c.CreateMatch(ctx, playerID, gt, mode, buyIn, 0)
}

// claimOpenLobby pops a joinable lobby the player is not already in.
func (c *Coordinator) claimOpenLobby(ctx context.Context, gt match.GameType,
	mode match.Mode, buyIn int64, playerID string) string {
	if c.rdb != nil {
		for i := 0; i < 8; i++ {
			id, err := c.rdb.LPop(ctx, lobbyKey(gt, mode, buyIn)).Result()
			if err != nil {
				break
			}
			c.mu.Lock()
			m, ok := c.matches[id]
			usable := ok && m.Status == match.StatusLobby && !m.seated(playerID) && m.freeSeat() >= 0
			c.mu.Unlock()
			if usable {
				// push back so the index survives a failed join
				c.rdb.LPush(ctx, lobbyKey(gt, mode, buyIn), id)
				return id
			}
		}
	}

	// in-process fallback: oldest open lobby wins
	c.mu.Lock()
	defer c.mu.Unlock()
	var best *Match
	for _, m := range c.matches {
		if m.GameType != gt || m.Mode != mode || m.BuyIn != buyIn {
			continue
		}
		if m.Status != match.StatusLobby || m.seated(playerID) || m.freeSeat() < 0 {
			continue
		}
		if best == nil || m.CreatedAt.Before(best.CreatedAt) {
			best = m
		}
	}
	if best == nil {
		return ""
	}
	return best.ID
}

// startMachine builds the rule module and hands the filled match to its
// owner goroutine.
func (c *Coordinator) startMachine(m *Match) error {
	rules, err := match.RulesFor(m.GameType, c.resolver)
	if err != nil {
		return err
	}

	c.mu.Lock()
	seats := append([]match.Seat{}, m.Seats...)
	c.mu.Unlock()

	machine := match.NewMachine(m.ID, m.GameType, m.Mode, rules, seats,
		c.cfg.Machine, c.sink, c.onMachineComplete, c.onMachineCancel)

	c.mu.Lock()
	c.machines[m.ID] = machine
	c.mu.Unlock()

	c.persistStatus(context.Background(), m.ID, match.StatusReadyCheck, "")
	machine.Start()
	log.Printf("[COORD] match %s filled, ready check started", m.ID)
	return nil
}

func (c *Coordinator) onMachineComplete(matchID string, out match.Outcome) {
	if err := c.SettleMatch(context.Background(), matchID, out); err != nil {
		log.Printf("[COORD] settlement of %s failed: %v", matchID, err)
	}
}

func (c *Coordinator) onMachineCancel(matchID, reason string) {
	if err := c.CancelMatch(context.Background(), matchID, reason); err != nil {
		log.Printf("[COORD] cancel of %s failed: %v", matchID, err)
	}
}

// SettleMatch pays out a completed match. Every transfer carries a
// settlement idempotency key, so duplicate signals are no-ops.
func (c *Coordinator) SettleMatch(ctx context.Context, matchID string, out match.Outcome) error {
	c.mu.Lock()
	m, ok := c.matches[matchID]
	if !ok {
		c.mu.Unlock()
		return ErrUnknownMatch
	}
	if m.Status == match.StatusCompleted || m.Status == match.StatusCancelled {
		c.mu.Unlock()
		log.Printf("[COORD] match %s already terminal (%s), ignoring settle signal", matchID, m.Status)
		return nil
	}
	m.Status = match.StatusCompleted
	buyIn := m.BuyIn
	mode := m.Mode
	gameType := m.GameType
	players := make([]string, 0, len(m.Seats))
	for _, s := range m.Seats {
		if s.PlayerID != "" {
			players = append(players, s.PlayerID)
		}
	}
	c.mu.Unlock()

	if out.Draw || len(out.Winners) == 0 {
		// draw: stakes go back, no rake
		for _, p := range players {
			if _, err := c.ledger.Credit(ctx, p, buyIn, wallet.ReasonRefund,
				matchID, fmt.Sprintf("settle:%s:refund:%s", matchID, p)); err != nil {
				return fmt.Errorf("draw refund for %s: %w", p, err)
			}
		}
	} else {
		pool := buyIn * int64(len(players))
		rake := pool * c.cfg.RakePercent / 100
		prize := pool - rake

		share := prize / int64(len(out.Winners))
		remainder := prize - share*int64(len(out.Winners))
		for i, w := range out.Winners {
			amount := share
			if i == 0 {
				amount += remainder
			}
			if _, err := c.ledger.Credit(ctx, w, amount, wallet.ReasonPrize,
				matchID, fmt.Sprintf("settle:%s:prize:%s", matchID, w)); err != nil {
				return fmt.Errorf("prize for %s: %w", w, err)
			}
		}
		if rake > 0 {
			if _, err := c.ledger.Credit(ctx, wallet.PlatformAccount, rake, wallet.ReasonRake,
				matchID, fmt.Sprintf("settle:%s:rake", matchID)); err != nil {
				return fmt.Errorf("rake: %w", err)
			}
		}
	}

	if err := c.rank.Update(ctx, "settle:"+matchID, rating.Result{
		GameType:     string(gameType),
		Mode:         string(mode),
		Participants: players,
		Winners:      out.Winners,
		Losers:       out.Losers,
		Draw:         out.Draw,
	}); err != nil {
		return fmt.Errorf("ranking update: %w", err)
	}

	winner := ""
	if len(out.Winners) > 0 && !out.Draw {
		winner = out.Winners[0]
	}
	c.persistStatus(ctx, matchID, match.StatusCompleted, winner)
	c.publishLifecycle(matchID, "match_settled", map[string]interface{}{
		"winners": out.Winners, "draw": out.Draw, "win_type": out.WinType,
	})

	log.Printf("[COORD] match %s settled: winners=%v draw=%v", matchID, out.Winners, out.Draw)
	return nil
}

// CancelMatch refunds every staked seat and closes the match. Idempotent
// per player via the refund keys.
func (c *Coordinator) CancelMatch(ctx context.Context, matchID, reason string) error {
	c.mu.Lock()
	m, ok := c.matches[matchID]
	if !ok {
		c.mu.Unlock()
		return ErrUnknownMatch
	}
	if m.Status == match.StatusCompleted || m.Status == match.StatusCancelled {
		c.mu.Unlock()
		return nil
	}
	m.Status = match.StatusCancelled
	buyIn := m.BuyIn
	players := make([]string, 0, len(m.Seats))
	for _, s := range m.Seats {
		if s.PlayerID != "" {
			players = append(players, s.PlayerID)
		}
	}
	c.mu.Unlock()

	for _, p := range players {
		if _, err := c.ledger.Credit(ctx, p, buyIn, wallet.ReasonRefund,
			matchID, fmt.Sprintf("cancel:%s:refund:%s", matchID, p)); err != nil {
			log.Printf("[COORD] cancel refund for %s in %s failed: %v", p, matchID, err)
		}
	}

	c.removeLobbyIndex(ctx, m)
	c.persistStatus(ctx, matchID, match.StatusCancelled, "")
	c.publishLifecycle(matchID, "match_cancelled", map[string]interface{}{"reason": reason})

	log.Printf("[COORD] match %s cancelled (%s), %d seats refunded", matchID, reason, len(players))
	return nil
}

// Machine returns the live machine for a match.
func (c *Coordinator) Machine(matchID string) (*match.Machine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	machine, ok := c.machines[matchID]
	if !ok {
		return nil, ErrMatchNotLive
	}
	return machine, nil
}

// MatchByID returns the lifecycle view of a match.
func (c *Coordinator) MatchByID(matchID string) (*Match, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.matches[matchID]
	if !ok {
		return nil, ErrUnknownMatch
	}
	return c.snapshotMatchLocked(m), nil
}

// OpenLobbies lists joinable matches, oldest first.
func (c *Coordinator) OpenLobbies(gt match.GameType, mode match.Mode) []*Match {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*Match
	for _, m := range c.matches {
		if m.Status != match.StatusLobby {
			continue
		}
		if gt != "" && m.GameType != gt {
			continue
		}
		if mode != "" && m.Mode != mode {
			continue
		}
		out = append(out, c.snapshotMatchLocked(m))
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].CreatedAt.Before(out[i].CreatedAt) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out
}

func (c *Coordinator) removeLobbyIndex(ctx context.Context, m *Match) {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.LRem(ctx, lobbyKey(m.GameType, m.Mode, m.BuyIn), 0, m.ID).Err(); err != nil {
		log.Printf("[COORD] failed to deindex lobby %s: %v", m.ID, err)
	}
}

func (c *Coordinator) publishLifecycle(matchID, eventType string, data map[string]interface{}) {
	if c.sink == nil {
		return
	}
	c.sink.Publish(matchID, match.Event{Type: eventType, MatchID: matchID, Data: data})
}

func (c *Coordinator) snapshotMatch(m *Match) *Match {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotMatchLocked(m)
}

func (c *Coordinator) snapshotMatchLocked(m *Match) *Match {
	cp := *m
	cp.Seats = append([]match.Seat{}, m.Seats...)
	return &cp
}
