package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JackDiSalvatore/EOS-DEX/internal/domain"
)

func TestAdjustBalanceAccumulates(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	deltas := []int64{500, 250, -100, 42, -692}
	var sum int64
	for _, d := range deltas {
		require.NoError(t, e.adjustBalance(ctx, "alice", amount8(usd, d)))
		sum += d
	}
	require.Equal(t, sum, balanceOf(t, e, "alice", usd))
}

func TestAdjustBalanceRejectsOverdraft(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.adjustBalance(ctx, "alice", amount8(usd, 100)))
	err := e.adjustBalance(ctx, "alice", amount8(usd, -101))
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
	require.Equal(t, int64(100), balanceOf(t, e, "alice", usd))
}

func TestAdjustBalanceRejectsNegativeFirstRow(t *testing.T) {
	e, _, _ := newTestEngine(t)
	err := e.adjustBalance(context.Background(), "alice", amount8(usd, -1))
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	rows, listErr := e.Balances(context.Background(), "alice")
	require.NoError(t, listErr)
	require.Empty(t, rows)
}

func TestBalancesAreScopedByToken(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.adjustBalance(ctx, "alice", amount8(usd, 100)))
	require.NoError(t, e.adjustBalance(ctx, "alice", amount8(eos, 200)))
	// same symbol, different issuer is a distinct token type
	other := domain.Asset{Issuer: "other.bank", Symbol: "USD", Precision: 8, Amount: 300}
	require.NoError(t, e.adjustBalance(ctx, "alice", other))

	require.Equal(t, int64(100), balanceOf(t, e, "alice", usd))
	require.Equal(t, int64(200), balanceOf(t, e, "alice", eos))
	require.Equal(t, int64(300), balanceOf(t, e, "alice", other))
}

func TestCheckFundsMissingRow(t *testing.T) {
	e, _, _ := newTestEngine(t)
	err := e.checkFunds(context.Background(), "nobody", amount8(usd, 1))
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
}
