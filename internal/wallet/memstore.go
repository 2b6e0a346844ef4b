package wallet

import (
	"context"
	"sync"
	"time"

	"github.com/quickbite/arcade/internal/models"
)

// MemStore is an in-memory Store with the same conditional-append semantics
// as PGStore. Used by tests and by single-node development setups without a
// database.
type MemStore struct {
	mu       sync.Mutex
	balances map[string]int64
	versions map[string]int64
	entries  []models.LedgerEntry
	byKey    map[string]int // idempotency key -> index into entries
	nextID   int
}

func NewMemStore() *MemStore {
	return &MemStore{
		balances: make(map[string]int64),
		versions: make(map[string]int64),
		byKey:    make(map[string]int),
		nextID:   1,
	}
}

func (s *MemStore) AccountState(ctx context.Context, ownerID string) (int64, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[ownerID], s.versions[ownerID], nil
}

func (s *MemStore) Append(ctx context.Context, e *models.LedgerEntry, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.IdempotencyKey.Valid {
		if _, exists := s.byKey[e.IdempotencyKey.String]; exists {
			return ErrDuplicateEntry
		}
	}
	if s.versions[e.OwnerID] != expectedVersion {
		return ErrVersionConflict
	}

	e.ID = s.nextID
	e.CreatedAt = time.Now()
	s.nextID++
	s.balances[e.OwnerID] += e.Amount
	s.versions[e.OwnerID]++
	s.entries = append(s.entries, *e)
	if e.IdempotencyKey.Valid {
		s.byKey[e.IdempotencyKey.String] = len(s.entries) - 1
	}
	return nil
}

func (s *MemStore) EntryByKey(ctx context.Context, key string) (*models.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.byKey[key]
	if !ok {
		return nil, ErrDuplicateEntry
	}
	e := s.entries[idx]
	return &e, nil
}

func (s *MemStore) EntriesForOwner(ctx context.Context, ownerID string, limit int) ([]models.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 {
		limit = 50
	}
	var out []models.LedgerEntry
	for i := len(s.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if s.entries[i].OwnerID == ownerID {
			out = append(out, s.entries[i])
		}
	}
	return out, nil
}

// EntryCount reports the total number of committed entries.
func (s *MemStore) EntryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
