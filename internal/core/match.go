package core

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JackDiSalvatore/EOS-DEX/internal/domain"
)

// matchPair resolves every cross currently in a pair's books. One iteration
// of the loop settles exactly one trade:
//
//	while spread <= 0:
//	  1. take the best sell-side order (minimum price) and the best buy-side
//	     order (maximum price); trade volume = the smaller remaining volume
//	  2. if spread == 0 the trade executes at that shared price; if the book
//	     is overlapped (spread < 0) it executes at the price of the earlier
//	     order, so the later order keeps the price improvement
//	  3. drop the exhausted order(s) and shrink the survivor
//	  4. settle base and quote out of escrow, refunding the buyer anything
//	     escrowed above the execution price
//
// The loop terminates because every iteration strictly shrinks the books.
func (e *Engine) matchPair(ctx context.Context, pair string) ([]*domain.Trade, error) {
	var executed []*domain.Trade

	for {
		sell, err := e.stores.Books.MinPriceOrder(ctx, pair, domain.SellSide)
		if err != nil {
			return executed, err
		}
		buy, err := e.bestBuyOrder(ctx, pair)
		if err != nil {
			return executed, err
		}
		if sell == nil || buy == nil {
			return executed, nil
		}

		spread := sell.Price.Amount - buy.Price.Amount
		if spread > 0 {
			return executed, nil
		}

		tradePrice := sell.Price
		if spread < 0 && !sell.CreatedAt.Before(buy.CreatedAt) {
			tradePrice = buy.Price
		}

		matched := sell.Volume
		if buy.Volume.Amount < sell.Volume.Amount {
			matched = buy.Volume
		}

		switch {
		case sell.Volume.Amount == buy.Volume.Amount:
			if err := e.stores.Books.Remove(ctx, pair, domain.SellSide, sell.ID); err != nil {
				return executed, err
			}
			if err := e.stores.Books.Remove(ctx, pair, domain.BuySide, buy.ID); err != nil {
				return executed, err
			}
		case sell.Volume.Amount > buy.Volume.Amount:
			if err := e.stores.Books.SetVolume(ctx, pair, domain.SellSide, sell.ID, sell.Volume.Amount-matched.Amount); err != nil {
				return executed, err
			}
			if err := e.stores.Books.Remove(ctx, pair, domain.BuySide, buy.ID); err != nil {
				return executed, err
			}
		default:
			if err := e.stores.Books.SetVolume(ctx, pair, domain.BuySide, buy.ID, buy.Volume.Amount-matched.Amount); err != nil {
				return executed, err
			}
			if err := e.stores.Books.Remove(ctx, pair, domain.SellSide, sell.ID); err != nil {
				return executed, err
			}
		}

		quoteAtTrade := CalculateVolume(tradePrice, matched)

		// The buyer escrowed at their own limit price. When the execution
		// price is better, the difference comes back to them.
		if tradePrice.Amount < buy.Price.Amount {
			offset := CalculateVolume(buy.Price, matched).Amount - quoteAtTrade.Amount
			refund := quoteAtTrade.WithAmount(offset)
			if err := e.adjustBalance(ctx, e.self, refund.Negated()); err != nil {
				return executed, err
			}
			if err := e.adjustBalance(ctx, buy.Trader, refund); err != nil {
				return executed, err
			}
		}

		// base escrow to the buyer, quote escrow to the seller
		if err := e.adjustBalance(ctx, e.self, matched.Negated()); err != nil {
			return executed, err
		}
		if err := e.adjustBalance(ctx, buy.Trader, matched); err != nil {
			return executed, err
		}
		if err := e.adjustBalance(ctx, e.self, quoteAtTrade.Negated()); err != nil {
			return executed, err
		}
		if err := e.adjustBalance(ctx, sell.Trader, quoteAtTrade); err != nil {
			return executed, err
		}

		if err := e.recordStat(ctx, pair, tradePrice); err != nil {
			return executed, err
		}

		trade := &domain.Trade{
			ID:          uuid.NewString(),
			Pair:        pair,
			SellOrder:   sell.ID,
			BuyOrder:    buy.ID,
			Seller:      sell.Trader,
			Buyer:       buy.Trader,
			Price:       tradePrice,
			Volume:      matched,
			QuoteVolume: quoteAtTrade,
			Timestamp:   e.now(),
		}
		executed = append(executed, trade)
		e.log.Debug("trade executed",
			zap.String("pair", pair), zap.Uint64("sell_order", sell.ID),
			zap.Uint64("buy_order", buy.ID), zap.Int64("price", tradePrice.Amount),
			zap.Int64("volume", matched.Amount))
	}
}

// bestBuyOrder picks the highest-priced buy-side order by scanning the whole
// side in id order; on equal prices the first order encountered wins. The
// buy side has a price index that could answer this in O(log n), but the
// scan's tie-break (oldest id, not index order) is load-bearing behavior
// this engine preserves.
func (e *Engine) bestBuyOrder(ctx context.Context, pair string) (*domain.Order, error) {
	orders, err := e.stores.Books.OrdersByID(ctx, pair, domain.BuySide)
	if err != nil {
		return nil, err
	}
	var best *domain.Order
	var highest int64
	for _, o := range orders {
		if o.Price.Amount > highest {
			highest = o.Price.Amount
			best = o
		}
	}
	return best, nil
}

// recordStat writes the execution price into the pair stat, scaled down from
// the normalized precision to the precision the stat was registered with.
// The exponent is clamped at zero: a stat precision above the normalized one
// cannot survive validation, and an unchecked negative exponent would zero
// the stat instead of scaling it.
func (e *Engine) recordStat(ctx context.Context, pair string, tradePrice domain.Asset) error {
	stat, err := e.stores.Markets.GetStat(ctx, pair)
	if err != nil {
		return err
	}
	exp := int(tradePrice.Precision) - int(stat.Price.Precision)
	if exp < 0 {
		exp = 0
	}
	stat.Price.Amount = tradePrice.Amount / pow10[exp]
	if err := e.stores.Markets.PutStat(ctx, stat); err != nil {
		return err
	}
	if e.cache != nil {
		_ = e.cache.SetStat(ctx, pair, stat)
	}
	return nil
}

func sortSnapshot(snap *domain.BookSnapshot) {
	sort.SliceStable(snap.SellSide, func(i, j int) bool {
		if snap.SellSide[i].Price.Amount != snap.SellSide[j].Price.Amount {
			return snap.SellSide[i].Price.Amount < snap.SellSide[j].Price.Amount
		}
		return snap.SellSide[i].ID < snap.SellSide[j].ID
	})
	sort.SliceStable(snap.BuySide, func(i, j int) bool {
		if snap.BuySide[i].Price.Amount != snap.BuySide[j].Price.Amount {
			return snap.BuySide[i].Price.Amount > snap.BuySide[j].Price.Amount
		}
		return snap.BuySide[i].ID < snap.BuySide[j].ID
	})
}
