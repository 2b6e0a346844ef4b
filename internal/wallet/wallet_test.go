package wallet

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebitInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger(NewMemStore())

	_, err := ledger.Debit(ctx, "p1", 10, ReasonBuyIn, "m1", "")
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	balance, err := ledger.AvailableBalance(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance, "failed debit must leave no entry")
}

func TestCreditThenDebit(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger(NewMemStore())

	_, err := ledger.Credit(ctx, "p1", 20, ReasonPurchase, "", "")
	require.NoError(t, err)

	entry, err := ledger.Debit(ctx, "p1", 10, ReasonBuyIn, "m1", "")
	require.NoError(t, err)
	assert.Equal(t, int64(-10), entry.Amount)
	assert.Equal(t, "m1", entry.MatchID.String)

	balance, err := ledger.AvailableBalance(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), balance)
}

// Two simultaneous debits that would jointly overdraw the account must
// resolve to exactly one success.
func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger(NewMemStore())

	_, err := ledger.Credit(ctx, "p1", 15, ReasonPurchase, "", "")
	require.NoError(t, err)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = ledger.Debit(ctx, "p1", 10, ReasonBuyIn, "m1", "")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrInsufficientFunds)
		}
	}
	assert.Equal(t, 1, succeeded, "only one of the racing debits may commit")

	balance, err := ledger.AvailableBalance(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), balance)
}

func TestBalanceNeverNegative(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	ledger := NewLedger(store)

	_, err := ledger.Credit(ctx, "p1", 25, ReasonPurchase, "", "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ledger.Debit(ctx, "p1", 7, ReasonBuyIn, "", "")
		}()
	}
	wg.Wait()

	balance, err := ledger.AvailableBalance(ctx, "p1")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, balance, int64(0))
	// 25/7 = at most 3 debits can land
	assert.Equal(t, int64(25-3*7), balance)
}

func TestIdempotentCredit(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	ledger := NewLedger(store)

	first, err := ledger.Credit(ctx, "p1", 18, ReasonPrize, "m1", "settle:m1:prize:p1")
	require.NoError(t, err)

	// Replay of the same settlement signal must not double-credit.
	second, err := ledger.Credit(ctx, "p1", 18, ReasonPrize, "m1", "settle:m1:prize:p1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	balance, err := ledger.AvailableBalance(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(18), balance)
	assert.Equal(t, 1, store.EntryCount())
}

func TestCreditNeverFailsForFunds(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger(NewMemStore())

	_, err := ledger.Credit(ctx, "broke", 5, ReasonRefund, "m1", "")
	require.NoError(t, err)
}
