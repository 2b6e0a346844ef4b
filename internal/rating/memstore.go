package rating

import (
	"context"
	"sort"
	"sync"

	"github.com/quickbite/arcade/internal/models"
)

// MemStore is an in-memory Store used by tests and database-less setups.
type MemStore struct {
	mu      sync.Mutex
	rows    map[string]*models.PlayerRanking
	applied map[string]bool
}

func NewMemStore() *MemStore {
	return &MemStore{
		rows:    make(map[string]*models.PlayerRanking),
		applied: make(map[string]bool),
	}
}

func key(playerID, gameType, mode string) string {
	return playerID + "|" + gameType + "|" + mode
}

func (s *MemStore) Get(ctx context.Context, playerID, gameType, mode string) (*models.PlayerRanking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rows[key(playerID, gameType, mode)]; ok {
		cp := *r
		return &cp, nil
	}
	return &models.PlayerRanking{
		PlayerID: playerID,
		GameType: gameType,
		Mode:     mode,
		Rating:   InitialRating,
	}, nil
}

func (s *MemStore) Put(ctx context.Context, r *models.PlayerRanking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.rows[key(r.PlayerID, r.GameType, r.Mode)] = &cp
	return nil
}

func (s *MemStore) MarkApplied(ctx context.Context, settlementKey string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.applied[settlementKey] {
		return false, nil
	}
	s.applied[settlementKey] = true
	return true, nil
}

func (s *MemStore) Top(ctx context.Context, gameType, mode string, limit int) ([]models.PlayerRanking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 {
		limit = 20
	}
	var out []models.PlayerRanking
	for _, r := range s.rows {
		if r.GameType == gameType && r.Mode == mode {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
