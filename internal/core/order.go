package core

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JackDiSalvatore/EOS-DEX/internal/domain"
)

// Trade places a limit order and runs the matching loop. Price is quoted in
// quote units per one base unit and volume in base units; both are
// normalized here. The full escrow is reserved before the order enters the
// book: the base volume for a sell-side order, the quote cost at the order's
// own price for a buy-side order. A failed funds check rejects the whole
// placement with nothing inserted.
//
// The returned id identifies the order in its book until it is fully filled
// or cancelled; trades lists any crosses the placement resolved. When
// autoWithdraw is set, whatever counter-asset the matching run credited to
// the trader is immediately withdrawn through the transfer gateway.
func (e *Engine) Trade(ctx context.Context, trader string, side domain.Side, price, volume domain.Asset, autoWithdraw bool) (uint64, []*domain.Trade, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireInit(ctx); err != nil {
		return 0, nil, err
	}
	if !side.Valid() {
		return 0, nil, fmt.Errorf("%w: unknown order side %q", domain.ErrValidation, side)
	}
	price, err := NormalizePrecision(price)
	if err != nil {
		return 0, nil, err
	}
	volume, err = NormalizePrecision(volume)
	if err != nil {
		return 0, nil, err
	}
	if price.Amount <= 0 || volume.Amount <= 0 {
		return 0, nil, fmt.Errorf("%w: price and volume must be positive", domain.ErrValidation)
	}

	market, pair, err := e.resolvePair(ctx, volume, price)
	if err != nil {
		return 0, nil, err
	}

	escrow := volume
	if side == domain.BuySide {
		escrow = CalculateVolume(price, volume)
	}
	if err := e.checkFunds(ctx, trader, escrow); err != nil {
		return 0, nil, err
	}

	id, err := e.stores.Books.NextOrderID(ctx, pair, side)
	if err != nil {
		return 0, nil, err
	}
	order := &domain.Order{
		ID:        id,
		Trader:    trader,
		Side:      side,
		Price:     price,
		Volume:    volume,
		CreatedAt: e.now(),
	}
	if err := e.stores.Books.Insert(ctx, pair, order); err != nil {
		return 0, nil, err
	}

	if err := e.adjustBalance(ctx, trader, escrow.Negated()); err != nil {
		return 0, nil, err
	}
	if err := e.adjustBalance(ctx, e.self, escrow); err != nil {
		return 0, nil, err
	}

	counter := market.Quote
	if side == domain.BuySide {
		counter = market.Bases[pair]
	}
	before, err := e.availableBalance(ctx, trader, counter)
	if err != nil {
		return 0, nil, err
	}

	trades, err := e.matchPair(ctx, pair)
	if err != nil {
		return 0, nil, err
	}
	e.pushBookCache(ctx, pair)
	e.log.Info("order placed",
		zap.String("pair", pair), zap.Uint64("id", id), zap.String("trader", trader),
		zap.String("side", string(side)), zap.Int64("price", price.Amount),
		zap.Int64("volume", volume.Amount), zap.Int("trades", len(trades)))

	if autoWithdraw {
		after, err := e.availableBalance(ctx, trader, counter)
		if err != nil {
			return 0, nil, err
		}
		if proceeds := after - before; proceeds > 0 {
			normalized := counter.WithAmount(proceeds)
			normalized.Precision = domain.NormalPrecision
			if err := e.withdraw(ctx, trader, Denormalize(normalized, counter.Precision)); err != nil {
				return 0, nil, err
			}
		}
	}
	return id, trades, nil
}

// Cancel removes a resting order and refunds its remaining escrow: the
// unfilled base volume for a sell-side order, the quote cost of the unfilled
// volume at the order's own price for a buy-side order. Only the order's
// owner may cancel; a second cancel of the same id fails ErrNotFound.
func (e *Engine) Cancel(ctx context.Context, base, quote domain.Asset, trader string, side domain.Side, id uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireInit(ctx); err != nil {
		return err
	}
	if !side.Valid() {
		return fmt.Errorf("%w: unknown order side %q", domain.ErrValidation, side)
	}
	_, pair, err := e.resolvePair(ctx, base, quote)
	if err != nil {
		return err
	}
	order, err := e.stores.Books.Get(ctx, pair, side, id)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: order %d does not exist", domain.ErrNotFound, id)
	}
	if err != nil {
		return err
	}
	if order.Trader != trader {
		return fmt.Errorf("%w: order %d belongs to another account", domain.ErrUnauthorized, id)
	}

	refund := order.Volume
	if side == domain.BuySide {
		refund = CalculateVolume(order.Price, order.Volume)
	}
	if err := e.adjustBalance(ctx, e.self, refund.Negated()); err != nil {
		return err
	}
	if err := e.adjustBalance(ctx, trader, refund); err != nil {
		return err
	}
	if err := e.stores.Books.Remove(ctx, pair, side, id); err != nil {
		return err
	}
	e.pushBookCache(ctx, pair)
	e.log.Info("order cancelled",
		zap.String("pair", pair), zap.Uint64("id", id), zap.String("trader", trader),
		zap.String("side", string(side)))
	return nil
}

// availableBalance reads a balance without treating absence as an error.
func (e *Engine) availableBalance(ctx context.Context, account string, token domain.Asset) (int64, error) {
	row, err := e.stores.Ledger.GetBalance(ctx, account, token.Key())
	if errors.Is(err, domain.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return row.Asset.Amount, nil
}
