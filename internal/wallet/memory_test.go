package wallet

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFundedLedger(t *testing.T, credits float64) (*MemoryLedger, uuid.UUID) {
	t.Helper()
	ledger := NewMemoryLedger()
	id := uuid.New()
	ledger.AddPlayer(Player{ID: id, Username: "tester", Credits: credits, Active: true})
	return ledger, id
}

func TestDebitCredit(t *testing.T) {
	ledger, id := newFundedLedger(t, 100)
	ctx := context.Background()

	debit, err := ledger.Debit(ctx, id, 10, "spin-1")
	require.NoError(t, err)
	assert.Equal(t, KindBet, debit.Kind)
	assert.Equal(t, 10.0, debit.Amount, "bet entries carry the positive magnitude")
	assert.Equal(t, 100.0, debit.BalanceBefore)
	assert.Equal(t, 90.0, debit.BalanceAfter)

	credit, err := ledger.Credit(ctx, id, 25, "spin-1")
	require.NoError(t, err)
	assert.Equal(t, KindWin, credit.Kind)
	assert.Equal(t, 25.0, credit.Amount)
	assert.Equal(t, 90.0, credit.BalanceBefore)
	assert.Equal(t, 115.0, credit.BalanceAfter)

	p, err := ledger.GetPlayer(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 115.0, p.Credits)
}

func TestBalanceInvariantHolds(t *testing.T) {
	ledger, id := newFundedLedger(t, 50)
	ctx := context.Background()

	_, _ = ledger.Debit(ctx, id, 5, "a")
	_, _ = ledger.Credit(ctx, id, 12.5, "a")
	_, _ = ledger.Adjust(ctx, id, -7.5, "b")

	entries, err := ledger.Entries(ctx, id, 10)
	require.NoError(t, err)
	for _, e := range entries {
		delta := e.Amount
		if e.Kind == KindBet {
			delta = -e.Amount
		}
		assert.InDelta(t, e.BalanceBefore+delta, e.BalanceAfter, 1e-9,
			"entry %s violates balance_after = balance_before ± amount", e.ID)
		if e.Kind != KindAdjust {
			assert.Greater(t, e.Amount, 0.0, "bet and win amounts are positive magnitudes")
		}
	}
}

func TestDebitInsufficientCredits(t *testing.T) {
	ledger, id := newFundedLedger(t, 5)
	_, err := ledger.Debit(context.Background(), id, 10, "spin-1")
	assert.ErrorIs(t, err, ErrInsufficientCredits)

	p, _ := ledger.GetPlayer(context.Background(), id)
	assert.Equal(t, 5.0, p.Credits, "failed debit must not move money")
}

func TestDebitInactivePlayer(t *testing.T) {
	ledger := NewMemoryLedger()
	id := uuid.New()
	ledger.AddPlayer(Player{ID: id, Credits: 100, Active: false})

	_, err := ledger.Debit(context.Background(), id, 10, "spin-1")
	assert.ErrorIs(t, err, ErrPlayerInactive)
}

func TestUnknownPlayer(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()
	id := uuid.New()

	_, err := ledger.GetPlayer(ctx, id)
	assert.ErrorIs(t, err, ErrPlayerNotFound)
	_, err = ledger.Debit(ctx, id, 1, "x")
	assert.ErrorIs(t, err, ErrPlayerNotFound)
	_, err = ledger.Credit(ctx, id, 1, "x")
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestDuplicateReferenceRejected(t *testing.T) {
	ledger, id := newFundedLedger(t, 100)
	ctx := context.Background()

	_, err := ledger.Debit(ctx, id, 10, "spin-1")
	require.NoError(t, err)

	_, err = ledger.Debit(ctx, id, 10, "spin-1")
	assert.ErrorIs(t, err, ErrDuplicateReference)

	// Same reference with a different kind is a distinct entry.
	_, err = ledger.Credit(ctx, id, 4, "spin-1")
	assert.NoError(t, err)

	p, _ := ledger.GetPlayer(ctx, id)
	assert.Equal(t, 94.0, p.Credits, "duplicate debit must not double-charge")
}

func TestNonPositiveAmountsRejected(t *testing.T) {
	ledger, id := newFundedLedger(t, 100)
	ctx := context.Background()

	_, err := ledger.Credit(ctx, id, 0, "spin-0")
	assert.Error(t, err, "zero-amount credits have no ledger row")
	_, err = ledger.Credit(ctx, id, -1, "spin-0")
	assert.Error(t, err)
	_, err = ledger.Debit(ctx, id, 0, "spin-0")
	assert.Error(t, err)

	entries, _ := ledger.Entries(ctx, id, 10)
	assert.Empty(t, entries, "rejected movements must not be recorded")
}

func TestAdjustCannotOverdraw(t *testing.T) {
	ledger, id := newFundedLedger(t, 10)
	ctx := context.Background()

	_, err := ledger.Adjust(ctx, id, -20, "correction-1")
	assert.ErrorIs(t, err, ErrInsufficientCredits)

	entry, err := ledger.Adjust(ctx, id, -10, "correction-2")
	require.NoError(t, err)
	assert.Zero(t, entry.BalanceAfter)
}

func TestEntriesNewestFirstAndLimited(t *testing.T) {
	ledger, id := newFundedLedger(t, 100)
	ctx := context.Background()

	for _, ref := range []string{"a", "b", "c"} {
		_, err := ledger.Debit(ctx, id, 1, ref)
		require.NoError(t, err)
	}

	entries, err := ledger.Entries(ctx, id, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "c", entries[0].ReferenceID)
	assert.Equal(t, "b", entries[1].ReferenceID)
}
