package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JackDiSalvatore/EOS-DEX/internal/domain"
)

// setupTraders funds bob with EOS and alice with USD on the eosusd pair.
func setupTraders(t *testing.T, e *Engine, bobEOS, aliceUSD int64) {
	t.Helper()
	ctx := context.Background()
	eosUSDMarket(t, e)
	if bobEOS > 0 {
		require.NoError(t, e.Deposit(ctx, "bob", eos.WithAmount(bobEOS)))
	}
	if aliceUSD > 0 {
		require.NoError(t, e.Deposit(ctx, "alice", usd.WithAmount(aliceUSD)))
	}
}

func TestPlacementEscrowsSellSide(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	setupTraders(t, e, 4_0000, 0)

	id, trades, err := e.Trade(ctx, "bob", domain.SellSide, usd.WithAmount(131), eos.WithAmount(4_0000), false)
	require.NoError(t, err)
	require.Equal(t, uint64(1), id)
	require.Empty(t, trades)

	require.Equal(t, int64(0), balanceOf(t, e, "bob", eos))
	require.Equal(t, int64(4_0000_0000), balanceOf(t, e, exchangeAccount, eos))
}

func TestPlacementEscrowsBuySideAtOwnPrice(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	setupTraders(t, e, 0, 1320)

	_, _, err := e.Trade(ctx, "alice", domain.BuySide, usd.WithAmount(132), eos.WithAmount(10_0000), false)
	require.NoError(t, err)

	// floor(1.32 * 10) = 13.20 USD escrowed
	require.Equal(t, int64(0), balanceOf(t, e, "alice", usd))
	require.Equal(t, int64(13_2000_0000), balanceOf(t, e, exchangeAccount, usd))
}

func TestPlacementInsufficientFundsRejectedWhole(t *testing.T) {
	e, store, _ := newTestEngine(t)
	ctx := context.Background()
	setupTraders(t, e, 3_0000, 0)

	_, _, err := e.Trade(ctx, "bob", domain.SellSide, usd.WithAmount(131), eos.WithAmount(4_0000), false)
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	// nothing inserted, nothing escrowed
	orders, err := store.OrdersByID(ctx, "eosusd", domain.SellSide)
	require.NoError(t, err)
	require.Empty(t, orders)
	require.Equal(t, int64(3_0000_0000), balanceOf(t, e, "bob", eos))
}

func TestPlacementUnknownPair(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, e.CreateMarket(ctx, "operator", usd))
	require.NoError(t, e.Deposit(ctx, "bob", eos.WithAmount(1_0000)))

	_, _, err := e.Trade(ctx, "bob", domain.SellSide, usd.WithAmount(131), eos.WithAmount(1_0000), false)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

// Partial fill: resting sell 4 EOS @ 1.31, incoming buy 10 EOS @ 1.32. The
// sell order was placed earlier so the trade executes at 1.31 and the buyer
// is refunded the 0.04 USD escrowed above the execution price.
func TestPartialFillAgainstRestingSell(t *testing.T) {
	e, store, _ := newTestEngine(t)
	ctx := context.Background()
	setupTraders(t, e, 4_0000, 1320)

	_, _, err := e.Trade(ctx, "bob", domain.SellSide, usd.WithAmount(131), eos.WithAmount(4_0000), false)
	require.NoError(t, err)

	buyID, trades, err := e.Trade(ctx, "alice", domain.BuySide, usd.WithAmount(132), eos.WithAmount(10_0000), false)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	require.Equal(t, int64(1_3100_0000), trades[0].Price.Amount)
	require.Equal(t, int64(4_0000_0000), trades[0].Volume.Amount)
	require.Equal(t, int64(5_2400_0000), trades[0].QuoteVolume.Amount)

	// buy order rests with 6 EOS remaining
	rest, err := store.Get(ctx, "eosusd", domain.BuySide, buyID)
	require.NoError(t, err)
	require.Equal(t, int64(6_0000_0000), rest.Volume.Amount)

	// sell side is empty
	sell, err := store.MinPriceOrder(ctx, "eosusd", domain.SellSide)
	require.NoError(t, err)
	require.Nil(t, sell)

	require.Equal(t, int64(5_2400_0000), balanceOf(t, e, "bob", usd))
	require.Equal(t, int64(4_0000_0000), balanceOf(t, e, "alice", eos))
	require.Equal(t, int64(4000000), balanceOf(t, e, "alice", usd)) // 0.04 refund
	require.Equal(t, int64(7_9200_0000), balanceOf(t, e, exchangeAccount, usd))
	require.Equal(t, int64(0), balanceOf(t, e, exchangeAccount, eos))
}

// Two resting sells (4 @ 1.31, 7 @ 1.31) against an incoming buy of 10 @
// 1.32: the first clears, the second shrinks to 1 EOS, the buy order fills
// completely and the quote escrow drains to zero.
func TestSweepMultipleRestingSells(t *testing.T) {
	e, store, _ := newTestEngine(t)
	ctx := context.Background()
	setupTraders(t, e, 11_0000, 1320)

	_, _, err := e.Trade(ctx, "bob", domain.SellSide, usd.WithAmount(131), eos.WithAmount(4_0000), false)
	require.NoError(t, err)
	secondID, _, err := e.Trade(ctx, "bob", domain.SellSide, usd.WithAmount(131), eos.WithAmount(7_0000), false)
	require.NoError(t, err)

	buyID, trades, err := e.Trade(ctx, "alice", domain.BuySide, usd.WithAmount(132), eos.WithAmount(10_0000), false)
	require.NoError(t, err)
	require.Len(t, trades, 2)

	remaining, err := store.Get(ctx, "eosusd", domain.SellSide, secondID)
	require.NoError(t, err)
	require.Equal(t, int64(1_0000_0000), remaining.Volume.Amount)

	_, err = store.Get(ctx, "eosusd", domain.BuySide, buyID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.Equal(t, int64(13_1000_0000), balanceOf(t, e, "bob", usd))
	require.Equal(t, int64(10_0000_0000), balanceOf(t, e, "alice", eos))
	require.Equal(t, int64(0), balanceOf(t, e, exchangeAccount, usd))
	// 1 EOS stays escrowed for the remaining sell order
	require.Equal(t, int64(1_0000_0000), balanceOf(t, e, exchangeAccount, eos))
}

// When the buy order rested first, it is the earlier order, so an
// overlapping sell executes at the buy price: the price improvement goes to
// the later (sell) order.
func TestPriceImprovementGoesToLaterOrder(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	setupTraders(t, e, 4_0000, 1320)

	_, _, err := e.Trade(ctx, "alice", domain.BuySide, usd.WithAmount(132), eos.WithAmount(10_0000), false)
	require.NoError(t, err)

	_, trades, err := e.Trade(ctx, "bob", domain.SellSide, usd.WithAmount(131), eos.WithAmount(4_0000), false)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	require.Equal(t, int64(1_3200_0000), trades[0].Price.Amount)

	// seller receives 4 * 1.32, buyer gets no refund
	require.Equal(t, int64(5_2800_0000), balanceOf(t, e, "bob", usd))
	require.Equal(t, int64(0), balanceOf(t, e, "alice", usd))
}

func TestEqualVolumesClearBothOrders(t *testing.T) {
	e, store, _ := newTestEngine(t)
	ctx := context.Background()
	setupTraders(t, e, 4_0000, 524)

	_, _, err := e.Trade(ctx, "bob", domain.SellSide, usd.WithAmount(131), eos.WithAmount(4_0000), false)
	require.NoError(t, err)
	_, trades, err := e.Trade(ctx, "alice", domain.BuySide, usd.WithAmount(131), eos.WithAmount(4_0000), false)
	require.NoError(t, err)
	require.Len(t, trades, 1)

	sells, err := store.OrdersByID(ctx, "eosusd", domain.SellSide)
	require.NoError(t, err)
	buys, err := store.OrdersByID(ctx, "eosusd", domain.BuySide)
	require.NoError(t, err)
	require.Empty(t, sells)
	require.Empty(t, buys)

	require.Equal(t, int64(0), balanceOf(t, e, exchangeAccount, usd))
	require.Equal(t, int64(0), balanceOf(t, e, exchangeAccount, eos))
}

// Equal-priced buy orders are matched in insertion order: the scan keeps the
// first order it encountered, which is the lowest id.
func TestBuySideTieBreaksByInsertionOrder(t *testing.T) {
	e, store, _ := newTestEngine(t)
	ctx := context.Background()
	eosUSDMarket(t, e)
	require.NoError(t, e.Deposit(ctx, "bob", eos.WithAmount(2_0000)))
	require.NoError(t, e.Deposit(ctx, "alice", usd.WithAmount(264)))
	require.NoError(t, e.Deposit(ctx, "carol", usd.WithAmount(264)))

	firstID, _, err := e.Trade(ctx, "alice", domain.BuySide, usd.WithAmount(132), eos.WithAmount(2_0000), false)
	require.NoError(t, err)
	secondID, _, err := e.Trade(ctx, "carol", domain.BuySide, usd.WithAmount(132), eos.WithAmount(2_0000), false)
	require.NoError(t, err)

	_, trades, err := e.Trade(ctx, "bob", domain.SellSide, usd.WithAmount(132), eos.WithAmount(2_0000), false)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	require.Equal(t, firstID, trades[0].BuyOrder)
	require.Equal(t, "alice", trades[0].Buyer)

	// carol's order still rests untouched
	rest, err := store.Get(ctx, "eosusd", domain.BuySide, secondID)
	require.NoError(t, err)
	require.Equal(t, int64(2_0000_0000), rest.Volume.Amount)
}

func TestStatRecordsLastTradePriceAtDeclaredPrecision(t *testing.T) {
	e, store, _ := newTestEngine(t)
	ctx := context.Background()
	setupTraders(t, e, 4_0000, 1320)

	_, _, err := e.Trade(ctx, "bob", domain.SellSide, usd.WithAmount(131), eos.WithAmount(4_0000), false)
	require.NoError(t, err)
	_, _, err = e.Trade(ctx, "alice", domain.BuySide, usd.WithAmount(132), eos.WithAmount(10_0000), false)
	require.NoError(t, err)

	stat, err := store.GetStat(ctx, "eosusd")
	require.NoError(t, err)
	// 1.31 at the stat's two declared decimals
	require.Equal(t, int64(131), stat.Price.Amount)
	require.Equal(t, usd.Precision, stat.Price.Precision)
}

// For any token, the sum over every account (escrow included) changes only
// through deposits and withdrawals, never through matching or cancellation.
func TestConservationAcrossMatchingAndCancel(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	setupTraders(t, e, 11_0000, 1320)

	total := func(token domain.Asset) int64 {
		var sum int64
		for _, account := range []string{"alice", "bob", exchangeAccount} {
			sum += balanceOf(t, e, account, token)
		}
		return sum
	}
	usdBefore, eosBefore := total(usd), total(eos)

	_, _, err := e.Trade(ctx, "bob", domain.SellSide, usd.WithAmount(131), eos.WithAmount(4_0000), false)
	require.NoError(t, err)
	sellID, _, err := e.Trade(ctx, "bob", domain.SellSide, usd.WithAmount(135), eos.WithAmount(7_0000), false)
	require.NoError(t, err)
	_, _, err = e.Trade(ctx, "alice", domain.BuySide, usd.WithAmount(132), eos.WithAmount(10_0000), false)
	require.NoError(t, err)
	require.NoError(t, e.Cancel(ctx, eos, usd, "bob", domain.SellSide, sellID))

	require.Equal(t, usdBefore, total(usd))
	require.Equal(t, eosBefore, total(eos))
}

func TestCancelRefundsRemainingEscrow(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	setupTraders(t, e, 4_0000, 1320)

	_, _, err := e.Trade(ctx, "bob", domain.SellSide, usd.WithAmount(131), eos.WithAmount(4_0000), false)
	require.NoError(t, err)
	buyID, _, err := e.Trade(ctx, "alice", domain.BuySide, usd.WithAmount(132), eos.WithAmount(10_0000), false)
	require.NoError(t, err)

	// 6 EOS remain at 1.32: refund is 7.92 USD
	require.NoError(t, e.Cancel(ctx, eos, usd, "alice", domain.BuySide, buyID))
	require.Equal(t, int64(7_9600_0000), balanceOf(t, e, "alice", usd)) // 0.04 + 7.92
	require.Equal(t, int64(0), balanceOf(t, e, exchangeAccount, usd))

	err = e.Cancel(ctx, eos, usd, "alice", domain.BuySide, buyID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCancelSellSideRefundsBase(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	setupTraders(t, e, 4_0000, 0)

	id, _, err := e.Trade(ctx, "bob", domain.SellSide, usd.WithAmount(131), eos.WithAmount(4_0000), false)
	require.NoError(t, err)
	require.NoError(t, e.Cancel(ctx, eos, usd, "bob", domain.SellSide, id))

	require.Equal(t, int64(4_0000_0000), balanceOf(t, e, "bob", eos))
	require.Equal(t, int64(0), balanceOf(t, e, exchangeAccount, eos))
}

func TestCancelRequiresOwner(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	setupTraders(t, e, 4_0000, 0)

	id, _, err := e.Trade(ctx, "bob", domain.SellSide, usd.WithAmount(131), eos.WithAmount(4_0000), false)
	require.NoError(t, err)

	err = e.Cancel(ctx, eos, usd, "mallory", domain.SellSide, id)
	require.ErrorIs(t, err, domain.ErrUnauthorized)
	require.Equal(t, int64(4_0000_0000), balanceOf(t, e, exchangeAccount, eos))
}

func TestCancelUnknownPair(t *testing.T) {
	e, _, _ := newTestEngine(t)
	err := e.Cancel(context.Background(), eos, usd, "bob", domain.SellSide, 1)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAutoWithdrawSendsProceeds(t *testing.T) {
	e, _, gateway := newTestEngine(t)
	ctx := context.Background()
	setupTraders(t, e, 4_0000, 1320)

	_, _, err := e.Trade(ctx, "alice", domain.BuySide, usd.WithAmount(132), eos.WithAmount(4_0000), false)
	require.NoError(t, err)

	// bob's sell crosses immediately; proceeds leave through the gateway
	_, trades, err := e.Trade(ctx, "bob", domain.SellSide, usd.WithAmount(131), eos.WithAmount(4_0000), true)
	require.NoError(t, err)
	require.Len(t, trades, 1)

	require.Equal(t, int64(0), balanceOf(t, e, "bob", usd))
	sent := gateway.Sent()
	require.Len(t, sent, 1)
	require.Equal(t, "bob", sent[0].To)
	// 4 * 1.32 at the quote's two declared decimals
	require.Equal(t, int64(528), sent[0].Token.Amount)
	require.Equal(t, usd.Precision, sent[0].Token.Precision)
}

func TestOrderIDsMonotonicPerSide(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	setupTraders(t, e, 10_0000, 1000)

	first, _, err := e.Trade(ctx, "bob", domain.SellSide, usd.WithAmount(200), eos.WithAmount(5_0000), false)
	require.NoError(t, err)
	second, _, err := e.Trade(ctx, "bob", domain.SellSide, usd.WithAmount(201), eos.WithAmount(5_0000), false)
	require.NoError(t, err)
	require.Equal(t, first+1, second)

	// the buy side counts independently
	buyFirst, _, err := e.Trade(ctx, "alice", domain.BuySide, usd.WithAmount(100), eos.WithAmount(5_0000), false)
	require.NoError(t, err)
	require.Equal(t, uint64(1), buyFirst)
}
