package pg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JackDiSalvatore/EOS-DEX/internal/domain"
	"github.com/JackDiSalvatore/EOS-DEX/internal/port"
)

// Store implements the engine repositories over postgres. Layout:
// balances keyed by (account, issuer, symbol); markets by name with the
// bases map as jsonb; stats by pair name; orders by (pair, side, id) with a
// price column for the ascending index.
type Store struct {
	pool *pgxpool.Pool
}

var (
	_ port.LedgerStore = (*Store)(nil)
	_ port.MarketStore = (*Store)(nil)
	_ port.BookStore   = (*Store)(nil)
	_ port.ConfigStore = (*Store)(nil)
)

// NewStore connects a pool to the given DSN. Call Close when finished.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables if they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS balances (
  account   text   NOT NULL,
  issuer    text   NOT NULL,
  symbol    text   NOT NULL,
  precision smallint NOT NULL,
  amount    bigint NOT NULL,
  PRIMARY KEY (account, issuer, symbol)
);
CREATE TABLE IF NOT EXISTS markets (
  name            text PRIMARY KEY,
  quote_issuer    text NOT NULL,
  quote_symbol    text NOT NULL,
  quote_precision smallint NOT NULL,
  bases           jsonb NOT NULL
);
CREATE TABLE IF NOT EXISTS stats (
  pair            text PRIMARY KEY,
  price_issuer    text NOT NULL,
  price_symbol    text NOT NULL,
  price_precision smallint NOT NULL,
  price_amount    bigint NOT NULL
);
CREATE TABLE IF NOT EXISTS orders (
  pair             text   NOT NULL,
  side             text   NOT NULL,
  id               bigint NOT NULL,
  trader           text   NOT NULL,
  price_issuer     text   NOT NULL,
  price_symbol     text   NOT NULL,
  price_precision  smallint NOT NULL,
  price_amount     bigint NOT NULL,
  volume_issuer    text   NOT NULL,
  volume_symbol    text   NOT NULL,
  volume_precision smallint NOT NULL,
  volume_amount    bigint NOT NULL,
  created_at       timestamptz NOT NULL,
  PRIMARY KEY (pair, side, id)
);
CREATE INDEX IF NOT EXISTS orders_price_idx ON orders (pair, side, price_amount, id);
CREATE TABLE IF NOT EXISTS config (
  id          int PRIMARY KEY,
  user_pays   boolean NOT NULL,
  initialized boolean NOT NULL
);
`)
	return err
}

// Stores bundles the store under every port it implements.
func (s *Store) Stores() port.Stores {
	return port.Stores{Ledger: s, Markets: s, Books: s, Config: s}
}

// --- LedgerStore ---

func (s *Store) GetBalance(ctx context.Context, account, tokenKey string) (*domain.Balance, error) {
	b := &domain.Balance{Account: account}
	err := s.pool.QueryRow(ctx, `
SELECT issuer, symbol, precision, amount FROM balances
WHERE account = $1 AND issuer || '/' || symbol = $2
`, account, tokenKey).Scan(&b.Asset.Issuer, &b.Asset.Symbol, &b.Asset.Precision, &b.Asset.Amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: balance %s/%s", domain.ErrNotFound, account, tokenKey)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Store) PutBalance(ctx context.Context, b *domain.Balance) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO balances(account, issuer, symbol, precision, amount)
VALUES($1,$2,$3,$4,$5)
ON CONFLICT (account, issuer, symbol) DO UPDATE SET
  precision = EXCLUDED.precision,
  amount = EXCLUDED.amount
`, b.Account, b.Asset.Issuer, b.Asset.Symbol, b.Asset.Precision, b.Asset.Amount)
	return err
}

func (s *Store) DeleteBalance(ctx context.Context, account, tokenKey string) error {
	res, err := s.pool.Exec(ctx, `
DELETE FROM balances WHERE account = $1 AND issuer || '/' || symbol = $2
`, account, tokenKey)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("%w: balance %s/%s", domain.ErrNotFound, account, tokenKey)
	}
	return nil
}

func (s *Store) ListBalances(ctx context.Context, account string) ([]*domain.Balance, error) {
	rows, err := s.pool.Query(ctx, `
SELECT issuer, symbol, precision, amount FROM balances
WHERE account = $1 ORDER BY issuer, symbol
`, account)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*domain.Balance
	for rows.Next() {
		b := &domain.Balance{Account: account}
		if err := rows.Scan(&b.Asset.Issuer, &b.Asset.Symbol, &b.Asset.Precision, &b.Asset.Amount); err != nil {
			return nil, err
		}
		res = append(res, b)
	}
	return res, rows.Err()
}

// --- MarketStore ---

func (s *Store) GetMarket(ctx context.Context, name string) (*domain.Market, error) {
	m := &domain.Market{Name: name}
	var bases []byte
	err := s.pool.QueryRow(ctx, `
SELECT quote_issuer, quote_symbol, quote_precision, bases FROM markets WHERE name = $1
`, name).Scan(&m.Quote.Issuer, &m.Quote.Symbol, &m.Quote.Precision, &bases)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: market %q", domain.ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(bases, &m.Bases); err != nil {
		return nil, err
	}
	if m.Bases == nil {
		m.Bases = make(map[string]domain.Asset)
	}
	return m, nil
}

func (s *Store) PutMarket(ctx context.Context, m *domain.Market) error {
	bases, err := json.Marshal(m.Bases)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO markets(name, quote_issuer, quote_symbol, quote_precision, bases)
VALUES($1,$2,$3,$4,$5)
ON CONFLICT (name) DO UPDATE SET bases = EXCLUDED.bases
`, m.Name, m.Quote.Issuer, m.Quote.Symbol, m.Quote.Precision, bases)
	return err
}

func (s *Store) DeleteMarket(ctx context.Context, name string) error {
	res, err := s.pool.Exec(ctx, `DELETE FROM markets WHERE name = $1`, name)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("%w: market %q", domain.ErrNotFound, name)
	}
	return nil
}

func (s *Store) GetStat(ctx context.Context, pair string) (*domain.PairStat, error) {
	st := &domain.PairStat{Pair: pair}
	err := s.pool.QueryRow(ctx, `
SELECT price_issuer, price_symbol, price_precision, price_amount FROM stats WHERE pair = $1
`, pair).Scan(&st.Price.Issuer, &st.Price.Symbol, &st.Price.Precision, &st.Price.Amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: stat %q", domain.ErrNotFound, pair)
	}
	if err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Store) PutStat(ctx context.Context, st *domain.PairStat) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO stats(pair, price_issuer, price_symbol, price_precision, price_amount)
VALUES($1,$2,$3,$4,$5)
ON CONFLICT (pair) DO UPDATE SET
  price_precision = EXCLUDED.price_precision,
  price_amount = EXCLUDED.price_amount
`, st.Pair, st.Price.Issuer, st.Price.Symbol, st.Price.Precision, st.Price.Amount)
	return err
}

func (s *Store) DeleteStat(ctx context.Context, pair string) error {
	res, err := s.pool.Exec(ctx, `DELETE FROM stats WHERE pair = $1`, pair)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("%w: stat %q", domain.ErrNotFound, pair)
	}
	return nil
}

// --- BookStore ---

func (s *Store) NextOrderID(ctx context.Context, pair string, side domain.Side) (uint64, error) {
	var id uint64
	err := s.pool.QueryRow(ctx, `
SELECT COALESCE(MAX(id), 0) + 1 FROM orders WHERE pair = $1 AND side = $2
`, pair, string(side)).Scan(&id)
	return id, err
}

func (s *Store) Insert(ctx context.Context, pair string, o *domain.Order) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO orders(pair, side, id, trader,
  price_issuer, price_symbol, price_precision, price_amount,
  volume_issuer, volume_symbol, volume_precision, volume_amount, created_at)
VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
`, pair, string(o.Side), o.ID, o.Trader,
		o.Price.Issuer, o.Price.Symbol, o.Price.Precision, o.Price.Amount,
		o.Volume.Issuer, o.Volume.Symbol, o.Volume.Precision, o.Volume.Amount, o.CreatedAt)
	return err
}

func (s *Store) Get(ctx context.Context, pair string, side domain.Side, id uint64) (*domain.Order, error) {
	o := &domain.Order{ID: id, Side: side}
	err := s.pool.QueryRow(ctx, `
SELECT trader, price_issuer, price_symbol, price_precision, price_amount,
       volume_issuer, volume_symbol, volume_precision, volume_amount, created_at
FROM orders WHERE pair = $1 AND side = $2 AND id = $3
`, pair, string(side), id).Scan(&o.Trader,
		&o.Price.Issuer, &o.Price.Symbol, &o.Price.Precision, &o.Price.Amount,
		&o.Volume.Issuer, &o.Volume.Symbol, &o.Volume.Precision, &o.Volume.Amount, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: order %d in %s", domain.ErrNotFound, id, pair)
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Store) Remove(ctx context.Context, pair string, side domain.Side, id uint64) error {
	res, err := s.pool.Exec(ctx, `
DELETE FROM orders WHERE pair = $1 AND side = $2 AND id = $3
`, pair, string(side), id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("%w: order %d in %s", domain.ErrNotFound, id, pair)
	}
	return nil
}

func (s *Store) SetVolume(ctx context.Context, pair string, side domain.Side, id uint64, volume int64) error {
	res, err := s.pool.Exec(ctx, `
UPDATE orders SET volume_amount = $4 WHERE pair = $1 AND side = $2 AND id = $3
`, pair, string(side), id, volume)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("%w: order %d in %s", domain.ErrNotFound, id, pair)
	}
	return nil
}

func (s *Store) MinPriceOrder(ctx context.Context, pair string, side domain.Side) (*domain.Order, error) {
	o := &domain.Order{Side: side}
	err := s.pool.QueryRow(ctx, `
SELECT id, trader, price_issuer, price_symbol, price_precision, price_amount,
       volume_issuer, volume_symbol, volume_precision, volume_amount, created_at
FROM orders WHERE pair = $1 AND side = $2
ORDER BY price_amount ASC, id ASC LIMIT 1
`, pair, string(side)).Scan(&o.ID, &o.Trader,
		&o.Price.Issuer, &o.Price.Symbol, &o.Price.Precision, &o.Price.Amount,
		&o.Volume.Issuer, &o.Volume.Symbol, &o.Volume.Precision, &o.Volume.Amount, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Store) OrdersByID(ctx context.Context, pair string, side domain.Side) ([]*domain.Order, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, trader, price_issuer, price_symbol, price_precision, price_amount,
       volume_issuer, volume_symbol, volume_precision, volume_amount, created_at
FROM orders WHERE pair = $1 AND side = $2 ORDER BY id ASC
`, pair, string(side))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*domain.Order
	for rows.Next() {
		o := &domain.Order{Side: side}
		if err := rows.Scan(&o.ID, &o.Trader,
			&o.Price.Issuer, &o.Price.Symbol, &o.Price.Precision, &o.Price.Amount,
			&o.Volume.Issuer, &o.Volume.Symbol, &o.Volume.Precision, &o.Volume.Amount, &o.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, o)
	}
	return res, rows.Err()
}

// --- ConfigStore ---

func (s *Store) GetConfig(ctx context.Context) (*domain.Config, error) {
	c := &domain.Config{}
	err := s.pool.QueryRow(ctx,
		`SELECT user_pays, initialized FROM config WHERE id = 1`).Scan(&c.UserPays, &c.Initialized)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: config", domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Store) PutConfig(ctx context.Context, c *domain.Config) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO config(id, user_pays, initialized) VALUES(1,$1,$2)
ON CONFLICT (id) DO UPDATE SET user_pays = EXCLUDED.user_pays, initialized = EXCLUDED.initialized
`, c.UserPays, c.Initialized)
	return err
}
