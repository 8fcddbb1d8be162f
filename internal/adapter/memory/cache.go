package memory

import (
	"context"
	"sync"

	"github.com/JackDiSalvatore/EOS-DEX/internal/domain"
	"github.com/JackDiSalvatore/EOS-DEX/internal/port"
)

// Cache is a process-local port.Cache used when no redis is configured.
type Cache struct {
	mu    sync.Mutex
	books map[string]*domain.BookSnapshot
	stats map[string]*domain.PairStat
}

var _ port.Cache = (*Cache)(nil)

func NewCache() *Cache {
	return &Cache{
		books: make(map[string]*domain.BookSnapshot),
		stats: make(map[string]*domain.PairStat),
	}
}

func (c *Cache) SetBook(ctx context.Context, pair string, snap *domain.BookSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *snap
	c.books[pair] = &cp
	return nil
}

func (c *Cache) GetBook(ctx context.Context, pair string) (*domain.BookSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap, ok := c.books[pair]
	if !ok {
		return nil, nil
	}
	cp := *snap
	return &cp, nil
}

func (c *Cache) SetStat(ctx context.Context, pair string, stat *domain.PairStat) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *stat
	c.stats[pair] = &cp
	return nil
}

func (c *Cache) GetStat(ctx context.Context, pair string) (*domain.PairStat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stat, ok := c.stats[pair]
	if !ok {
		return nil, nil
	}
	cp := *stat
	return &cp, nil
}
