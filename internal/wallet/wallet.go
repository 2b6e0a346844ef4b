package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/quickbite/arcade/internal/models"
)

// Ledger entry reasons
const (
	ReasonPurchase    = "PURCHASE"
	ReasonBuyIn       = "BUY_IN"
	ReasonPrize       = "PRIZE"
	ReasonRake        = "RAKE"
	ReasonRefund      = "REFUND"
	ReasonAdminAdjust = "ADMIN_ADJUST"
)

// PlatformAccount collects rake credits.
const PlatformAccount = "platform"

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrRetryExhausted    = errors.New("wallet update conflict: retries exhausted")

	// returned by stores
	ErrVersionConflict = errors.New("account version conflict")
	ErrDuplicateEntry  = errors.New("duplicate idempotency key")
)

// maxRetries bounds the optimistic-concurrency retry loop.
const maxRetries = 5

// Store is the persistence boundary for the ledger. Append must be atomic:
// the entry is written and the account balance/version advanced only if the
// account version still equals expectedVersion.
type Store interface {
	AccountState(ctx context.Context, ownerID string) (balance int64, version int64, err error)
	Append(ctx context.Context, e *models.LedgerEntry, expectedVersion int64) error
	EntryByKey(ctx context.Context, key string) (*models.LedgerEntry, error)
	EntriesForOwner(ctx context.Context, ownerID string, limit int) ([]models.LedgerEntry, error)
}

// Ledger is the append-only wallet ledger. Debits re-read the balance and
// commit conditionally on an unchanged account version, so two concurrent
// debits that would jointly overdraw an account resolve to exactly one
// success.
type Ledger struct {
	store Store
}

func NewLedger(store Store) *Ledger {
	return &Ledger{store: store}
}

// Debit removes amount from the account. Returns ErrInsufficientFunds when
// the available balance is too low, ErrRetryExhausted when the conditional
// commit keeps losing races.
func (l *Ledger) Debit(ctx context.Context, ownerID string, amount int64, reason, matchID, idemKey string) (*models.LedgerEntry, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("debit amount must be positive, got %d", amount)
	}
	return l.append(ctx, ownerID, -amount, reason, matchID, idemKey, true)
}

// Credit adds amount to the account. Credits never fail for insufficient
// funds; conflicts are retried the same way as debits.
func (l *Ledger) Credit(ctx context.Context, ownerID string, amount int64, reason, matchID, idemKey string) (*models.LedgerEntry, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("credit amount must be positive, got %d", amount)
	}
	return l.append(ctx, ownerID, amount, reason, matchID, idemKey, false)
}

// AvailableBalance returns the current balance derived from the ledger.
func (l *Ledger) AvailableBalance(ctx context.Context, ownerID string) (int64, error) {
	balance, _, err := l.store.AccountState(ctx, ownerID)
	return balance, err
}

// History returns the most recent ledger entries for an account.
func (l *Ledger) History(ctx context.Context, ownerID string, limit int) ([]models.LedgerEntry, error) {
	return l.store.EntriesForOwner(ctx, ownerID, limit)
}

func (l *Ledger) append(ctx context.Context, ownerID string, amount int64, reason, matchID, idemKey string, checkFunds bool) (*models.LedgerEntry, error) {
	for attempt := 0; attempt < maxRetries; attempt++ {
		balance, version, err := l.store.AccountState(ctx, ownerID)
		if err != nil {
			return nil, fmt.Errorf("read account %s: %w", ownerID, err)
		}

		if checkFunds && balance+amount < 0 {
			return nil, ErrInsufficientFunds
		}

		entry := &models.LedgerEntry{
			OwnerID: ownerID,
			Amount:  amount,
			Reason:  reason,
		}
		if matchID != "" {
			entry.MatchID = sql.NullString{String: matchID, Valid: true}
		}
		if idemKey != "" {
			entry.IdempotencyKey = sql.NullString{String: idemKey, Valid: true}
		}

		err = l.store.Append(ctx, entry, version)
		if err == nil {
			return entry, nil
		}
		if errors.Is(err, ErrDuplicateEntry) {
			// Settlement replay: return the entry already written.
			existing, lookErr := l.store.EntryByKey(ctx, idemKey)
			if lookErr != nil {
				return nil, fmt.Errorf("lookup duplicate entry %s: %w", idemKey, lookErr)
			}
			return existing, nil
		}
		if errors.Is(err, ErrVersionConflict) {
			log.Printf("[WALLET] version conflict for account %s (attempt %d), retrying", ownerID, attempt+1)
			continue
		}
		return nil, fmt.Errorf("append ledger entry for %s: %w", ownerID, err)
	}
	return nil, ErrRetryExhausted
}
