package match

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"
)

// Suit represents a card suit.
type Suit string

const (
	Hearts   Suit = "hearts"
	Diamonds Suit = "diamonds"
	Clubs    Suit = "clubs"
	Spades   Suit = "spades"
)

// Rank represents a card rank.
type Rank string

const (
	RankTwo   Rank = "2"
	RankThree Rank = "3"
	RankFour  Rank = "4"
	RankFive  Rank = "5"
	RankSix   Rank = "6"
	RankSeven Rank = "7"
	RankEight Rank = "8"
	RankNine  Rank = "9"
	RankTen   Rank = "10"
	RankJack  Rank = "J"
	RankQueen Rank = "Q"
	RankKing  Rank = "K"
	RankAce   Rank = "A"
)

// Card is a playing card.
type Card struct {
	Suit Suit `json:"suit"`
	Rank Rank `json:"rank"`
}

func (c Card) String() string {
	suitChar := map[Suit]string{Hearts: "H", Diamonds: "D", Clubs: "C", Spades: "S"}
	return string(c.Rank) + suitChar[c.Suit]
}

// CanPlayOn checks whether the card is playable given the top card and the
// active suit. Eights are wild.
func (c Card) CanPlayOn(top Card, currentSuit Suit) bool {
	if c.Rank == RankEight {
		return true
	}
	return c.Suit == currentSuit || c.Rank == top.Rank
}

func newShuffledDeck(r *rand.Rand) []Card {
	suits := []Suit{Hearts, Diamonds, Clubs, Spades}
	ranks := []Rank{RankTwo, RankThree, RankFour, RankFive, RankSix, RankSeven,
		RankEight, RankNine, RankTen, RankJack, RankQueen, RankKing, RankAce}
	cards := make([]Card, 0, 52)
	for _, s := range suits {
		for _, rk := range ranks {
			cards = append(cards, Card{Suit: s, Rank: rk})
		}
	}
	r.Shuffle(len(cards), func(i, j int) { cards[i], cards[j] = cards[j], cards[i] })
	return cards
}

const cardsPerHand = 5

// CardGame is the crazy-eights style shedding game: match the active suit
// or the top rank, eights are wild and declare the next suit, draw one when
// blocked, first empty hand wins.
type CardGame struct {
	players     []string
	hands       map[string][]Card
	deck        []Card
	discard     []Card
	currentSuit Suit
	turnIdx     int
	outcome     *Outcome
	rng         *rand.Rand
}

func NewCardGame() *CardGame {
	return &CardGame{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (g *CardGame) Init(players []string) (string, error) {
	if len(players) < 2 || len(players) > 4 {
		return "", fmt.Errorf("card game needs 2-4 players, got %d", len(players))
	}
	g.players = append([]string{}, players...)
	g.hands = make(map[string][]Card, len(players))
	g.deck = newShuffledDeck(g.rng)

	for _, p := range players {
		g.hands[p] = g.drawN(cardsPerHand)
	}

	// flip the starter; an eight as starter just sets its own suit
	starter := g.drawN(1)[0]
	g.discard = []Card{starter}
	g.currentSuit = starter.Suit
	g.turnIdx = 0
	return g.players[0], nil
}

type cardPlay struct {
	Card Card `json:"card"`
	Suit Suit `json:"suit,omitempty"` // declared suit when playing an eight
}

func (g *CardGame) Apply(ctx context.Context, playerID string, a Action) (*StepResult, error) {
	if g.outcome != nil {
		return nil, ErrStaleAction
	}
	if playerID != g.players[g.turnIdx] {
		return nil, ErrNotYourTurn
	}

	switch a.Type {
	case "PLAY":
		return g.applyPlay(playerID, a)
	case "DRAW":
		return g.applyDraw(playerID)
	default:
		return nil, ErrUnknownAction
	}
}

func (g *CardGame) applyPlay(playerID string, a Action) (*StepResult, error) {
	var play cardPlay
	if err := json.Unmarshal(a.Data, &play); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIllegalMove, err)
	}

	hand := g.hands[playerID]
	idx := -1
	for i, c := range hand {
		if c == play.Card {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, fmt.Errorf("%w: card not in hand", ErrIllegalMove)
	}
	if !play.Card.CanPlayOn(g.top(), g.currentSuit) {
		return nil, fmt.Errorf("%w: card does not match suit or rank", ErrIllegalMove)
	}

	if play.Card.Rank == RankEight {
		switch play.Suit {
		case Hearts, Diamonds, Clubs, Spades:
			g.currentSuit = play.Suit
		default:
			return nil, fmt.Errorf("%w: eight requires a declared suit", ErrIllegalMove)
		}
	} else {
		g.currentSuit = play.Card.Suit
	}

	g.hands[playerID] = append(hand[:idx], hand[idx+1:]...)
	g.discard = append(g.discard, play.Card)

	summary := map[string]interface{}{
		"played":       play.Card.String(),
		"current_suit": g.currentSuit,
		"hand_size":    len(g.hands[playerID]),
	}

	if len(g.hands[playerID]) == 0 {
		losers := make([]string, 0, len(g.players)-1)
		for _, p := range g.players {
			if p != playerID {
				losers = append(losers, p)
			}
		}
		g.outcome = &Outcome{Winners: []string{playerID}, Losers: losers, WinType: "empty_hand"}
		return &StepResult{NextTurn: "", Summary: summary}, nil
	}

	g.advanceTurn()
	return &StepResult{NextTurn: g.players[g.turnIdx], Summary: summary}, nil
}

func (g *CardGame) applyDraw(playerID string) (*StepResult, error) {
	drawn := g.drawN(1)
	summary := map[string]interface{}{"drew": len(drawn)}
	if len(drawn) > 0 {
		g.hands[playerID] = append(g.hands[playerID], drawn[0])
		summary["hand_size"] = len(g.hands[playerID])
	}
	g.advanceTurn()
	return &StepResult{NextTurn: g.players[g.turnIdx], Summary: summary}, nil
}

func (g *CardGame) Terminal() *Outcome {
	return g.outcome
}

// DefaultAction plays the first playable card (declaring the suit the
// player holds most of for an eight), otherwise draws.
func (g *CardGame) DefaultAction(playerID string) Action {
	for _, c := range g.hands[playerID] {
		if c.CanPlayOn(g.top(), g.currentSuit) {
			play := cardPlay{Card: c}
			if c.Rank == RankEight {
				play.Suit = g.dominantSuit(playerID)
			}
			data, _ := json.Marshal(play)
			return Action{Type: "PLAY", Data: data}
		}
	}
	return Action{Type: "DRAW"}
}

func (g *CardGame) Snapshot(viewerID string) map[string]interface{} {
	handSizes := make(map[string]int, len(g.players))
	for p, h := range g.hands {
		handSizes[p] = len(h)
	}
	snap := map[string]interface{}{
		"players":      g.players,
		"current_turn": g.players[g.turnIdx],
		"top_card":     g.top().String(),
		"current_suit": g.currentSuit,
		"deck_size":    len(g.deck),
		"hand_sizes":   handSizes,
	}
	if g.outcome != nil {
		snap["current_turn"] = ""
	}
	// only the viewer's own cards are revealed
	if hand, ok := g.hands[viewerID]; ok {
		cards := make([]Card, len(hand))
		copy(cards, hand)
		snap["hand"] = cards
	}
	return snap
}

func (g *CardGame) top() Card {
	return g.discard[len(g.discard)-1]
}

func (g *CardGame) advanceTurn() {
	g.turnIdx = (g.turnIdx + 1) % len(g.players)
}

// drawN takes from the deck, recycling the discard pile (minus its top
// card) when the deck runs dry. May return fewer than n.
func (g *CardGame) drawN(n int) []Card {
	out := make([]Card, 0, n)
	for i := 0; i < n; i++ {
		if len(g.deck) == 0 {
			if len(g.discard) <= 1 {
				break
			}
			recycled := make([]Card, len(g.discard)-1)
			copy(recycled, g.discard[:len(g.discard)-1])
			g.discard = g.discard[len(g.discard)-1:]
			g.rng.Shuffle(len(recycled), func(a, b int) { recycled[a], recycled[b] = recycled[b], recycled[a] })
			g.deck = recycled
		}
		out = append(out, g.deck[len(g.deck)-1])
		g.deck = g.deck[:len(g.deck)-1]
	}
	return out
}

func (g *CardGame) dominantSuit(playerID string) Suit {
	counts := map[Suit]int{}
	for _, c := range g.hands[playerID] {
		if c.Rank != RankEight {
			counts[c.Suit]++
		}
	}
	best, bestN := Hearts, -1
	for _, s := range []Suit{Hearts, Diamonds, Clubs, Spades} {
		if counts[s] > bestN {
			best, bestN = s, counts[s]
		}
	}
	return best
}
