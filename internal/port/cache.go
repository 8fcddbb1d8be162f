package port

import (
	"context"

	"github.com/JackDiSalvatore/EOS-DEX/internal/domain"
)

// Cache is a best-effort read-side cache of book snapshots and pair stats.
// The engine ignores cache errors.
type Cache interface {
	SetBook(ctx context.Context, pair string, snap *domain.BookSnapshot) error
	GetBook(ctx context.Context, pair string) (*domain.BookSnapshot, error)
	SetStat(ctx context.Context, pair string, stat *domain.PairStat) error
	GetStat(ctx context.Context, pair string) (*domain.PairStat, error)
}
