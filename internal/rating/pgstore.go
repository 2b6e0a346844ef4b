package rating

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/quickbite/arcade/internal/models"
)

// PGStore persists rankings in PostgreSQL.
type PGStore struct {
	db *sqlx.DB
}

func NewPGStore(db *sqlx.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Get(ctx context.Context, playerID, gameType, mode string) (*models.PlayerRanking, error) {
	var r models.PlayerRanking
	err := s.db.GetContext(ctx, &r,
		`SELECT player_id, game_type, mode, rating, matches_played, matches_won, matches_lost,
		        win_streak, best_win_streak, updated_at
		 FROM player_rankings WHERE player_id=$1 AND game_type=$2 AND mode=$3`,
		playerID, gameType, mode)
	if err == sql.ErrNoRows {
		return &models.PlayerRanking{
			PlayerID: playerID,
			GameType: gameType,
			Mode:     mode,
			Rating:   InitialRating,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *PGStore) Put(ctx context.Context, r *models.PlayerRanking) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO player_rankings (player_id, game_type, mode, rating, matches_played, matches_won,
		        matches_lost, win_streak, best_win_streak, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW())
		 ON CONFLICT (player_id, game_type, mode) DO UPDATE SET
		        rating=EXCLUDED.rating, matches_played=EXCLUDED.matches_played,
		        matches_won=EXCLUDED.matches_won, matches_lost=EXCLUDED.matches_lost,
		        win_streak=EXCLUDED.win_streak, best_win_streak=EXCLUDED.best_win_streak,
		        updated_at=NOW()`,
		r.PlayerID, r.GameType, r.Mode, r.Rating, r.MatchesPlayed, r.MatchesWon,
		r.MatchesLost, r.WinStreak, r.BestWinStreak)
	return err
}

func (s *PGStore) MarkApplied(ctx context.Context, settlementKey string) (bool, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ranking_updates (settlement_key, created_at) VALUES ($1, NOW())`, settlementKey)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *PGStore) Top(ctx context.Context, gameType, mode string, limit int) ([]models.PlayerRanking, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []models.PlayerRanking
	err := s.db.SelectContext(ctx, &rows,
		`SELECT player_id, game_type, mode, rating, matches_played, matches_won, matches_lost,
		        win_streak, best_win_streak, updated_at
		 FROM player_rankings WHERE game_type=$1 AND mode=$2
		 ORDER BY rating DESC LIMIT $3`, gameType, mode, limit)
	return rows, err
}
