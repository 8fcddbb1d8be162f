package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/JackDiSalvatore/EOS-DEX/internal/domain"
	"github.com/JackDiSalvatore/EOS-DEX/internal/port"
)

// Store is the in-memory implementation of every engine repository. It is
// the authoritative backend for tests and single-process deployments; the
// postgres adapter mirrors the same interfaces for durable setups.
type Store struct {
	mu       sync.Mutex
	balances map[string]map[string]*domain.Balance // account -> token key -> row
	markets  map[string]*domain.Market
	stats    map[string]*domain.PairStat
	books    map[string]*book // pair|side -> book
	config   *domain.Config
}

var (
	_ port.LedgerStore = (*Store)(nil)
	_ port.MarketStore = (*Store)(nil)
	_ port.BookStore   = (*Store)(nil)
	_ port.ConfigStore = (*Store)(nil)
)

// book keeps orders by id plus an ascending (price, id) index.
type book struct {
	nextID  uint64
	orders  map[uint64]*domain.Order
	byPrice []*domain.Order
}

func NewStore() *Store {
	return &Store{
		balances: make(map[string]map[string]*domain.Balance),
		markets:  make(map[string]*domain.Market),
		stats:    make(map[string]*domain.PairStat),
		books:    make(map[string]*book),
	}
}

// Stores bundles the store under every port it implements.
func (s *Store) Stores() port.Stores {
	return port.Stores{Ledger: s, Markets: s, Books: s, Config: s}
}

// --- LedgerStore ---

func (s *Store) GetBalance(ctx context.Context, account, tokenKey string) (*domain.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.balances[account][tokenKey]
	if !ok {
		return nil, fmt.Errorf("%w: balance %s/%s", domain.ErrNotFound, account, tokenKey)
	}
	cp := *row
	return &cp, nil
}

func (s *Store) PutBalance(ctx context.Context, b *domain.Balance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.balances[b.Account]
	if !ok {
		rows = make(map[string]*domain.Balance)
		s.balances[b.Account] = rows
	}
	cp := *b
	rows[b.Asset.Key()] = &cp
	return nil
}

func (s *Store) DeleteBalance(ctx context.Context, account, tokenKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.balances[account][tokenKey]; !ok {
		return fmt.Errorf("%w: balance %s/%s", domain.ErrNotFound, account, tokenKey)
	}
	delete(s.balances[account], tokenKey)
	return nil
}

func (s *Store) ListBalances(ctx context.Context, account string) ([]*domain.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []*domain.Balance
	for _, row := range s.balances[account] {
		cp := *row
		res = append(res, &cp)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Asset.Key() < res[j].Asset.Key() })
	return res, nil
}

// --- MarketStore ---

func (s *Store) GetMarket(ctx context.Context, name string) (*domain.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.markets[name]
	if !ok {
		return nil, fmt.Errorf("%w: market %q", domain.ErrNotFound, name)
	}
	return copyMarket(m), nil
}

func (s *Store) PutMarket(ctx context.Context, m *domain.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markets[m.Name] = copyMarket(m)
	return nil
}

func (s *Store) DeleteMarket(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.markets[name]; !ok {
		return fmt.Errorf("%w: market %q", domain.ErrNotFound, name)
	}
	delete(s.markets, name)
	return nil
}

func (s *Store) GetStat(ctx context.Context, pair string) (*domain.PairStat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stats[pair]
	if !ok {
		return nil, fmt.Errorf("%w: stat %q", domain.ErrNotFound, pair)
	}
	cp := *st
	return &cp, nil
}

func (s *Store) PutStat(ctx context.Context, st *domain.PairStat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *st
	s.stats[st.Pair] = &cp
	return nil
}

func (s *Store) DeleteStat(ctx context.Context, pair string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.stats[pair]; !ok {
		return fmt.Errorf("%w: stat %q", domain.ErrNotFound, pair)
	}
	delete(s.stats, pair)
	return nil
}

// --- BookStore ---

func sideKey(pair string, side domain.Side) string {
	return pair + "|" + string(side)
}

func (s *Store) getBook(pair string, side domain.Side) *book {
	key := sideKey(pair, side)
	b, ok := s.books[key]
	if !ok {
		b = &book{nextID: 1, orders: make(map[uint64]*domain.Order)}
		s.books[key] = b
	}
	return b
}

func (s *Store) NextOrderID(ctx context.Context, pair string, side domain.Side) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.getBook(pair, side)
	id := b.nextID
	b.nextID++
	return id, nil
}

func (s *Store) Insert(ctx context.Context, pair string, o *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.getBook(pair, o.Side)
	if _, ok := b.orders[o.ID]; ok {
		return fmt.Errorf("%w: order %d in %s", domain.ErrConflict, o.ID, pair)
	}
	cp := *o
	b.orders[o.ID] = &cp
	i := sort.Search(len(b.byPrice), func(i int) bool {
		if b.byPrice[i].Price.Amount != cp.Price.Amount {
			return b.byPrice[i].Price.Amount > cp.Price.Amount
		}
		return b.byPrice[i].ID > cp.ID
	})
	b.byPrice = append(b.byPrice, nil)
	copy(b.byPrice[i+1:], b.byPrice[i:])
	b.byPrice[i] = &cp
	return nil
}

func (s *Store) Get(ctx context.Context, pair string, side domain.Side, id uint64) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.getBook(pair, side).orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: order %d in %s", domain.ErrNotFound, id, pair)
	}
	cp := *o
	return &cp, nil
}

func (s *Store) Remove(ctx context.Context, pair string, side domain.Side, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.getBook(pair, side)
	if _, ok := b.orders[id]; !ok {
		return fmt.Errorf("%w: order %d in %s", domain.ErrNotFound, id, pair)
	}
	delete(b.orders, id)
	for i, o := range b.byPrice {
		if o.ID == id {
			b.byPrice = append(b.byPrice[:i], b.byPrice[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) SetVolume(ctx context.Context, pair string, side domain.Side, id uint64, volume int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.getBook(pair, side)
	o, ok := b.orders[id]
	if !ok {
		return fmt.Errorf("%w: order %d in %s", domain.ErrNotFound, id, pair)
	}
	o.Volume.Amount = volume
	return nil
}

func (s *Store) MinPriceOrder(ctx context.Context, pair string, side domain.Side) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.getBook(pair, side)
	if len(b.byPrice) == 0 {
		return nil, nil
	}
	cp := *b.byPrice[0]
	return &cp, nil
}

func (s *Store) OrdersByID(ctx context.Context, pair string, side domain.Side) ([]*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.getBook(pair, side)
	res := make([]*domain.Order, 0, len(b.orders))
	for _, o := range b.orders {
		cp := *o
		res = append(res, &cp)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

// --- ConfigStore ---

func (s *Store) GetConfig(ctx context.Context) (*domain.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.config == nil {
		return nil, fmt.Errorf("%w: config", domain.ErrNotFound)
	}
	cp := *s.config
	return &cp, nil
}

func (s *Store) PutConfig(ctx context.Context, c *domain.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.config = &cp
	return nil
}

func copyMarket(m *domain.Market) *domain.Market {
	cp := *m
	cp.Bases = make(map[string]domain.Asset, len(m.Bases))
	for k, v := range m.Bases {
		cp.Bases[k] = v
	}
	return &cp
}
