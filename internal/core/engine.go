package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JackDiSalvatore/EOS-DEX/internal/domain"
	"github.com/JackDiSalvatore/EOS-DEX/internal/port"
)

// Engine implements the exchange business logic: deposits and withdrawals
// against the balance ledger, market/pair registration, order placement with
// escrow, continuous matching and cancellation. It holds no table state of
// its own; everything lives behind the store interfaces so the same engine
// runs over the in-memory or the postgres adapter.
type Engine struct {
	stores  port.Stores
	cache   port.Cache
	gateway port.TransferGateway
	log     *zap.Logger

	// self is the exchange's own ledger account. Funds committed by resting
	// orders are escrowed here; every unit of it is attributable to exactly
	// one order's remaining volume.
	self string

	mu  sync.Mutex
	now func() time.Time
}

func NewEngine(stores port.Stores, cache port.Cache, gateway port.TransferGateway, self string, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		stores:  stores,
		cache:   cache,
		gateway: gateway,
		log:     log,
		self:    self,
		now:     time.Now,
	}
}

// Init writes the one-time exchange configuration. A second call fails.
func (e *Engine) Init(ctx context.Context, userPays bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg, err := e.stores.Config.GetConfig(ctx)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		// first run
	case err != nil:
		return err
	case cfg.Initialized:
		return fmt.Errorf("%w: exchange already initialized", domain.ErrState)
	}

	if err := e.stores.Config.PutConfig(ctx, &domain.Config{UserPays: userPays, Initialized: true}); err != nil {
		return err
	}
	e.log.Info("exchange initialized", zap.Bool("user_pays", userPays))
	return nil
}

// Deposit credits an inbound transfer to the sender's exchange balance. The
// caller is expected to have filtered transfer notifications down to those
// addressed to the exchange account itself.
func (e *Engine) Deposit(ctx context.Context, from string, token domain.Asset) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireInit(ctx); err != nil {
		return err
	}
	a, err := NormalizePrecision(token)
	if err != nil {
		return err
	}
	if a.Amount <= 0 {
		return fmt.Errorf("%w: deposit quantity must be positive", domain.ErrValidation)
	}
	if err := e.adjustBalance(ctx, from, a); err != nil {
		return err
	}
	e.log.Debug("deposit credited",
		zap.String("account", from), zap.String("token", a.Key()), zap.Int64("amount", a.Amount))
	return nil
}

// Withdraw debits the normalized amount from the account and instructs the
// gateway to transfer the un-normalized token back to its owner. A gateway
// failure re-credits the ledger so the operation stays all-or-nothing.
func (e *Engine) Withdraw(ctx context.Context, account string, token domain.Asset) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireInit(ctx); err != nil {
		return err
	}
	return e.withdraw(ctx, account, token)
}

func (e *Engine) withdraw(ctx context.Context, account string, token domain.Asset) error {
	a, err := NormalizePrecision(token)
	if err != nil {
		return err
	}
	if a.Amount < 0 {
		return fmt.Errorf("%w: cannot withdraw a negative amount", domain.ErrValidation)
	}
	if err := e.adjustBalance(ctx, account, a.Negated()); err != nil {
		return err
	}
	if err := e.gateway.Transfer(ctx, account, token, "withdraw"); err != nil {
		if rbErr := e.adjustBalance(ctx, account, a); rbErr != nil {
			e.log.Error("withdraw rollback failed",
				zap.String("account", account), zap.Error(rbErr))
		}
		return err
	}
	e.log.Debug("withdrawal sent",
		zap.String("account", account), zap.String("token", a.Key()), zap.Int64("amount", a.Amount))
	return nil
}

// requireInit gates every mutating operation behind Init.
func (e *Engine) requireInit(ctx context.Context) error {
	cfg, err := e.stores.Config.GetConfig(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: exchange not initialized", domain.ErrState)
	}
	if err != nil {
		return err
	}
	if !cfg.Initialized {
		return fmt.Errorf("%w: exchange not initialized", domain.ErrState)
	}
	return nil
}

// pushBookCache refreshes the cached snapshot for a pair. Best effort: cache
// trouble never fails the operation that triggered it.
func (e *Engine) pushBookCache(ctx context.Context, pair string) {
	if e.cache == nil {
		return
	}
	snap, err := e.buildSnapshot(ctx, pair)
	if err != nil {
		e.log.Debug("book snapshot for cache failed", zap.String("pair", pair), zap.Error(err))
		return
	}
	_ = e.cache.SetBook(ctx, pair, snap)
}

func (e *Engine) buildSnapshot(ctx context.Context, pair string) (*domain.BookSnapshot, error) {
	sells, err := e.stores.Books.OrdersByID(ctx, pair, domain.SellSide)
	if err != nil {
		return nil, err
	}
	buys, err := e.stores.Books.OrdersByID(ctx, pair, domain.BuySide)
	if err != nil {
		return nil, err
	}
	snap := &domain.BookSnapshot{Pair: pair, Timestamp: e.now()}
	for _, o := range sells {
		snap.SellSide = append(snap.SellSide, *o)
	}
	for _, o := range buys {
		snap.BuySide = append(snap.BuySide, *o)
	}
	sortSnapshot(snap)
	return snap, nil
}

// OrderBook returns a snapshot of both sides of a pair, sell side ascending
// by price and buy side descending. The cache is consulted first.
func (e *Engine) OrderBook(ctx context.Context, base, quote domain.Asset) (*domain.BookSnapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, pair, err := e.resolvePair(ctx, base, quote)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		if snap, err := e.cache.GetBook(ctx, pair); err == nil && snap != nil {
			return snap, nil
		}
	}
	return e.buildSnapshot(ctx, pair)
}

// PairStat returns the last trade price recorded for a pair.
func (e *Engine) PairStat(ctx context.Context, base, quote domain.Asset) (*domain.PairStat, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, pair, err := e.resolvePair(ctx, base, quote)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		if stat, err := e.cache.GetStat(ctx, pair); err == nil && stat != nil {
			return stat, nil
		}
	}
	return e.stores.Markets.GetStat(ctx, pair)
}
