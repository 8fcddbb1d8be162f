package port

import (
	"context"

	"github.com/JackDiSalvatore/EOS-DEX/internal/domain"
)

// LedgerStore holds balance rows keyed by (account, token key). A missing
// row is reported as domain.ErrNotFound; the store never creates rows
// implicitly on read.
type LedgerStore interface {
	GetBalance(ctx context.Context, account, tokenKey string) (*domain.Balance, error)
	PutBalance(ctx context.Context, b *domain.Balance) error
	DeleteBalance(ctx context.Context, account, tokenKey string) error
	ListBalances(ctx context.Context, account string) ([]*domain.Balance, error)
}

// MarketStore holds markets keyed by market name and pair stats keyed by
// pair name.
type MarketStore interface {
	GetMarket(ctx context.Context, name string) (*domain.Market, error)
	PutMarket(ctx context.Context, m *domain.Market) error
	DeleteMarket(ctx context.Context, name string) error

	GetStat(ctx context.Context, pair string) (*domain.PairStat, error)
	PutStat(ctx context.Context, s *domain.PairStat) error
	DeleteStat(ctx context.Context, pair string) error
}

// BookStore holds the resting orders of every pair, one collection per
// (pair, side), keyed by order id with a secondary ordering by price.
type BookStore interface {
	NextOrderID(ctx context.Context, pair string, side domain.Side) (uint64, error)
	Insert(ctx context.Context, pair string, o *domain.Order) error
	Get(ctx context.Context, pair string, side domain.Side, id uint64) (*domain.Order, error)
	Remove(ctx context.Context, pair string, side domain.Side, id uint64) error
	SetVolume(ctx context.Context, pair string, side domain.Side, id uint64, volume int64) error

	// MinPriceOrder returns the lowest-priced order on the given side using
	// the maintained (price, id) index, or nil when the side is empty.
	MinPriceOrder(ctx context.Context, pair string, side domain.Side) (*domain.Order, error)
	// OrdersByID returns every order on the given side in ascending id order.
	OrdersByID(ctx context.Context, pair string, side domain.Side) ([]*domain.Order, error)
}

// ConfigStore holds the singleton exchange configuration. GetConfig returns
// domain.ErrNotFound before Init has run.
type ConfigStore interface {
	GetConfig(ctx context.Context) (*domain.Config, error)
	PutConfig(ctx context.Context, c *domain.Config) error
}

// Stores bundles the four repositories the engine operates on.
type Stores struct {
	Ledger  LedgerStore
	Markets MarketStore
	Books   BookStore
	Config  ConfigStore
}

// TransferGateway performs the actual outbound token transfer when funds
// leave the exchange. Implementations talk to the token issuer; the engine
// only hands them the un-normalized amount.
type TransferGateway interface {
	Transfer(ctx context.Context, to string, token domain.Asset, memo string) error
}
