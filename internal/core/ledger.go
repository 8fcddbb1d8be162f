package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/JackDiSalvatore/EOS-DEX/internal/domain"
)

// adjustBalance applies a signed delta to one (account, token) ledger row.
// A row is created on first credit; any delta that would take the row below
// zero is rejected with the row untouched.
func (e *Engine) adjustBalance(ctx context.Context, account string, delta domain.Asset) error {
	row, err := e.stores.Ledger.GetBalance(ctx, account, delta.Key())
	if errors.Is(err, domain.ErrNotFound) {
		if delta.Amount < 0 {
			return fmt.Errorf("%w: exchange balance overdrawn for %s", domain.ErrInsufficientFunds, delta.Key())
		}
		return e.stores.Ledger.PutBalance(ctx, &domain.Balance{Account: account, Asset: delta})
	}
	if err != nil {
		return err
	}

	updated := row.Asset.Amount + delta.Amount
	if updated < 0 {
		return fmt.Errorf("%w: exchange balance overdrawn for %s", domain.ErrInsufficientFunds, delta.Key())
	}
	row.Asset.Amount = updated
	return e.stores.Ledger.PutBalance(ctx, row)
}

// checkFunds verifies the trader can cover the required amount. A missing
// row counts as a zero balance.
func (e *Engine) checkFunds(ctx context.Context, trader string, required domain.Asset) error {
	row, err := e.stores.Ledger.GetBalance(ctx, trader, required.Key())
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: %s has 0, requires %d", domain.ErrInsufficientFunds, trader, required.Amount)
	}
	if err != nil {
		return err
	}
	if row.Asset.Amount < required.Amount {
		return fmt.Errorf("%w: %s has %d, requires %d",
			domain.ErrInsufficientFunds, trader, row.Asset.Amount, required.Amount)
	}
	return nil
}

// CloseBalance removes an empty ledger row. The row must exist and must be
// exactly zero.
func (e *Engine) CloseBalance(ctx context.Context, owner, issuer, symbol string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := domain.Asset{Issuer: issuer, Symbol: symbol}.Key()
	row, err := e.stores.Ledger.GetBalance(ctx, owner, key)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: balance row already deleted or never existed", domain.ErrNotFound)
	}
	if err != nil {
		return err
	}
	if row.Asset.Amount != 0 {
		return fmt.Errorf("%w: cannot close because the balance is not zero", domain.ErrState)
	}
	return e.stores.Ledger.DeleteBalance(ctx, owner, key)
}

// Balances lists every ledger row an account holds.
func (e *Engine) Balances(ctx context.Context, account string) ([]*domain.Balance, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stores.Ledger.ListBalances(ctx, account)
}
