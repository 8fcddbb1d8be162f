package core

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JackDiSalvatore/EOS-DEX/internal/domain"
)

const maxNameLen = 12

// marketNameFor derives a market name from its quote asset: the symbol code
// folded to lower case, e.g. "usd" for USD.
func marketNameFor(quote domain.Asset) (string, error) {
	name := quote.LowerSymbol()
	if len(name) > maxNameLen {
		return "", fmt.Errorf("%w: symbol name exceeds maximum length of %d characters",
			domain.ErrValidation, maxNameLen)
	}
	return name, nil
}

// pairNameFor derives a pair name by appending the lowercased base symbol
// with the lowercased quote symbol, e.g. "eosusd".
func pairNameFor(base, quote domain.Asset) (string, error) {
	name := base.LowerSymbol() + quote.LowerSymbol()
	if len(name) > maxNameLen {
		return "", fmt.Errorf("%w: combined symbol name exceeds maximum length of %d characters",
			domain.ErrValidation, maxNameLen)
	}
	return name, nil
}

// resolvePair returns the market owning the (base, quote) pair and the pair
// name, or ErrNotFound if either level is missing.
func (e *Engine) resolvePair(ctx context.Context, base, quote domain.Asset) (*domain.Market, string, error) {
	marketName, err := marketNameFor(quote)
	if err != nil {
		return nil, "", err
	}
	market, err := e.stores.Markets.GetMarket(ctx, marketName)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, "", fmt.Errorf("%w: market %q does not exist", domain.ErrNotFound, marketName)
	}
	if err != nil {
		return nil, "", err
	}
	pair, err := pairNameFor(base, quote)
	if err != nil {
		return nil, "", err
	}
	if _, ok := market.Bases[pair]; !ok {
		return nil, "", fmt.Errorf("%w: market pair %q does not exist", domain.ErrNotFound, pair)
	}
	return market, pair, nil
}

// CreateMarket registers an empty market for the quote asset. Anyone may
// create markets; the owner is recorded for audit only.
func (e *Engine) CreateMarket(ctx context.Context, owner string, quote domain.Asset) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireInit(ctx); err != nil {
		return err
	}
	name, err := marketNameFor(quote)
	if err != nil {
		return err
	}
	if _, err := e.stores.Markets.GetMarket(ctx, name); err == nil {
		return fmt.Errorf("%w: market %q already exists", domain.ErrConflict, name)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	m := &domain.Market{Name: name, Quote: quote, Bases: make(map[string]domain.Asset)}
	if err := e.stores.Markets.PutMarket(ctx, m); err != nil {
		return err
	}
	e.log.Info("market created", zap.String("market", name), zap.String("owner", owner))
	return nil
}

// RemoveMarket deletes a market that no longer owns any pair.
func (e *Engine) RemoveMarket(ctx context.Context, quote domain.Asset) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireInit(ctx); err != nil {
		return err
	}
	name, err := marketNameFor(quote)
	if err != nil {
		return err
	}
	market, err := e.stores.Markets.GetMarket(ctx, name)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: market %q does not exist", domain.ErrNotFound, name)
	}
	if err != nil {
		return err
	}
	if len(market.Bases) > 0 {
		return fmt.Errorf("%w: remove market pairs before deleting", domain.ErrState)
	}
	if err := e.stores.Markets.DeleteMarket(ctx, name); err != nil {
		return err
	}
	e.log.Info("market removed", zap.String("market", name))
	return nil
}

// AddPair pairs a base asset to the quote asset's market and seeds the pair
// stat. The stat price starts at zero in the quote asset's declared
// precision: stats keep the precision the operator registered the market
// with, while trade prices arrive normalized.
func (e *Engine) AddPair(ctx context.Context, owner string, quote, base domain.Asset) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireInit(ctx); err != nil {
		return err
	}
	marketName, err := marketNameFor(quote)
	if err != nil {
		return err
	}
	market, err := e.stores.Markets.GetMarket(ctx, marketName)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: market %q does not exist", domain.ErrNotFound, marketName)
	}
	if err != nil {
		return err
	}

	baseName, err := marketNameFor(base)
	if err != nil {
		return err
	}
	if baseName == market.Name {
		return fmt.Errorf("%w: cannot pair asset against itself", domain.ErrValidation)
	}

	pair, err := pairNameFor(base, market.Quote)
	if err != nil {
		return err
	}
	if _, ok := market.Bases[pair]; ok {
		return fmt.Errorf("%w: market pair %q already exists", domain.ErrConflict, pair)
	}

	market.Bases[pair] = base
	if err := e.stores.Markets.PutMarket(ctx, market); err != nil {
		return err
	}
	stat := &domain.PairStat{Pair: pair, Price: market.Quote.WithAmount(0)}
	if err := e.stores.Markets.PutStat(ctx, stat); err != nil {
		return err
	}
	e.log.Info("market pair added",
		zap.String("market", marketName), zap.String("pair", pair), zap.String("owner", owner))
	return nil
}

// RemovePair unpairs a base asset from its market and drops the pair stat.
func (e *Engine) RemovePair(ctx context.Context, quote, base domain.Asset) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireInit(ctx); err != nil {
		return err
	}
	market, pair, err := e.resolvePair(ctx, base, quote)
	if err != nil {
		return err
	}
	delete(market.Bases, pair)
	if err := e.stores.Markets.PutMarket(ctx, market); err != nil {
		return err
	}
	if err := e.stores.Markets.DeleteStat(ctx, pair); err != nil {
		return err
	}
	e.log.Info("market pair removed", zap.String("market", market.Name), zap.String("pair", pair))
	return nil
}
