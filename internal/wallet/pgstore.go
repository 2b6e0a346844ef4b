package wallet

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/quickbite/arcade/internal/models"
)

// PGStore persists the ledger in PostgreSQL. The wallet_accounts row is a
// balance cache guarded by a version column; wallet_ledger is append-only.
type PGStore struct {
	db *sqlx.DB
}

func NewPGStore(db *sqlx.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) AccountState(ctx context.Context, ownerID string) (int64, int64, error) {
	var acc models.WalletAccount
	err := s.db.GetContext(ctx, &acc,
		`SELECT id, owner_id, balance, version, created_at, updated_at FROM wallet_accounts WHERE owner_id=$1`, ownerID)
	if err == sql.ErrNoRows {
		// First touch creates the account at zero.
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO wallet_accounts (owner_id, balance, version, created_at, updated_at)
			 VALUES ($1, 0, 0, NOW(), NOW()) ON CONFLICT (owner_id) DO NOTHING`, ownerID)
		if err != nil {
			return 0, 0, err
		}
		err = s.db.GetContext(ctx, &acc,
			`SELECT id, owner_id, balance, version, created_at, updated_at FROM wallet_accounts WHERE owner_id=$1`, ownerID)
	}
	if err != nil {
		return 0, 0, err
	}
	return acc.Balance, acc.Version, nil
}

func (s *PGStore) Append(ctx context.Context, e *models.LedgerEntry, expectedVersion int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE wallet_accounts SET balance = balance + $1, version = version + 1, updated_at = NOW()
		 WHERE owner_id = $2 AND version = $3`, e.Amount, e.OwnerID, expectedVersion)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrVersionConflict
	}

	err = tx.QueryRowxContext(ctx,
		`INSERT INTO wallet_ledger (owner_id, amount, reason, match_id, idempotency_key, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW()) RETURNING id, created_at`,
		e.OwnerID, e.Amount, e.Reason, e.MatchID, e.IdempotencyKey).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "wallet_ledger_idempotency_key") ||
			strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateEntry
		}
		return err
	}

	return tx.Commit()
}

func (s *PGStore) EntryByKey(ctx context.Context, key string) (*models.LedgerEntry, error) {
	var e models.LedgerEntry
	err := s.db.GetContext(ctx, &e,
		`SELECT id, owner_id, amount, reason, match_id, idempotency_key, created_at
		 FROM wallet_ledger WHERE idempotency_key=$1`, key)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *PGStore) EntriesForOwner(ctx context.Context, ownerID string, limit int) ([]models.LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	var entries []models.LedgerEntry
	err := s.db.SelectContext(ctx, &entries,
		`SELECT id, owner_id, amount, reason, match_id, idempotency_key, created_at
		 FROM wallet_ledger WHERE owner_id=$1 ORDER BY id DESC LIMIT $2`, ownerID, limit)
	return entries, err
}
