package models

import (
	"database/sql"
	"time"
)

// WalletAccount is the balance cache for one owner. Balance is derived from
// the ledger; the version column guards conditional updates.
type WalletAccount struct {
	ID        int       `db:"id" json:"id"`
	OwnerID   string    `db:"owner_id" json:"owner_id"`
	Balance   int64     `db:"balance" json:"balance"`
	Version   int64     `db:"version" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// LedgerEntry is one immutable wallet movement. Corrections are new
// ADMIN_ADJUST entries, never edits.
type LedgerEntry struct {
	ID             int            `db:"id" json:"id"`
	OwnerID        string         `db:"owner_id" json:"owner_id"`
	Amount         int64          `db:"amount" json:"amount"`
	Reason         string         `db:"reason" json:"reason"`
	MatchID        sql.NullString `db:"match_id" json:"match_id,omitempty"`
	IdempotencyKey sql.NullString `db:"idempotency_key" json:"-"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
}

// Match is the persisted record of one match.
type Match struct {
	ID          string         `db:"id" json:"id"`
	GameType    string         `db:"game_type" json:"game_type"`
	Mode        string         `db:"mode" json:"mode"`
	BuyIn       int64          `db:"buy_in" json:"buy_in"`
	MaxSeats    int            `db:"max_seats" json:"max_seats"`
	Status      string         `db:"status" json:"status"`
	WinnerID    sql.NullString `db:"winner_id" json:"winner_id,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	StartedAt   sql.NullTime   `db:"started_at" json:"started_at,omitempty"`
	CompletedAt sql.NullTime   `db:"completed_at" json:"completed_at,omitempty"`
}

// MatchSeat binds one player to one seat in a match.
type MatchSeat struct {
	MatchID   string         `db:"match_id" json:"match_id"`
	SeatIndex int            `db:"seat_index" json:"seat_index"`
	PlayerID  string         `db:"player_id" json:"player_id"`
	Role      sql.NullString `db:"role" json:"role,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// PlayerRanking holds per-player, per-game, per-mode skill state.
type PlayerRanking struct {
	PlayerID      string    `db:"player_id" json:"player_id"`
	GameType      string    `db:"game_type" json:"game_type"`
	Mode          string    `db:"mode" json:"mode"`
	Rating        int       `db:"rating" json:"rating"`
	MatchesPlayed int       `db:"matches_played" json:"matches_played"`
	MatchesWon    int       `db:"matches_won" json:"matches_won"`
	MatchesLost   int       `db:"matches_lost" json:"matches_lost"`
	WinStreak     int       `db:"win_streak" json:"win_streak"`
	BestWinStreak int       `db:"best_win_streak" json:"best_win_streak"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}
