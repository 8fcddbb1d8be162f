package domain

import "time"

// Side distinguishes the two books of a pair.
//
// A sell-side order offers the base asset and escrows base; a buy-side order
// offers the quote asset and escrows quote at its own limit price. These
// neutral names are deliberate: upstream systems have used "bid" for the
// base-offering side and "ask" for the quote-offering side, the reverse of
// the usual market vocabulary.
type Side string

const (
	SellSide Side = "SELL"
	BuySide  Side = "BUY"
)

// Valid reports whether s is one of the two known sides.
func (s Side) Valid() bool {
	return s == SellSide || s == BuySide
}

// Order is a resting limit order. Price is quote units per one base unit and
// Volume is the remaining base quantity, both at NormalPrecision. IDs are
// allocated monotonically per pair and side.
type Order struct {
	ID        uint64    `json:"id"`
	Trader    string    `json:"trader"`
	Side      Side      `json:"side"`
	Price     Asset     `json:"price"`
	Volume    Asset     `json:"volume"`
	CreatedAt time.Time `json:"created_at"`
}

// Trade is the record emitted for every cross resolved by the matching loop.
// Volume is in base units, QuoteVolume is the truncated quote amount actually
// settled to the seller.
type Trade struct {
	ID          string    `json:"id"`
	Pair        string    `json:"pair"`
	SellOrder   uint64    `json:"sell_order"`
	BuyOrder    uint64    `json:"buy_order"`
	Seller      string    `json:"seller"`
	Buyer       string    `json:"buyer"`
	Price       Asset     `json:"price"`
	Volume      Asset     `json:"volume"`
	QuoteVolume Asset     `json:"quote_volume"`
	Timestamp   time.Time `json:"timestamp"`
}

// BookSnapshot is a point-in-time copy of one pair's two books, sell side
// ascending by price and buy side descending.
type BookSnapshot struct {
	Pair      string    `json:"pair"`
	SellSide  []Order   `json:"sell_side"`
	BuySide   []Order   `json:"buy_side"`
	Timestamp time.Time `json:"timestamp"`
}
