package domain

import (
	"fmt"
	"strings"
)

// NormalPrecision is the common fixed-point precision every amount is scaled
// to before it participates in ledger or matching arithmetic. Assets declared
// with fewer decimals are scaled up on the way in and scaled back down when
// funds leave the exchange.
const NormalPrecision = 8

// Asset is a quantity of one fungible token type. The (Issuer, Symbol) pair
// identifies the token; Precision is the declared number of decimal places
// and Amount is a fixed-point integer at that precision.
type Asset struct {
	Issuer    string `json:"issuer"`
	Symbol    string `json:"symbol"`
	Precision uint8  `json:"precision"`
	Amount    int64  `json:"amount"`
}

// Key identifies the token type regardless of amount or precision.
func (a Asset) Key() string {
	return a.Issuer + "/" + a.Symbol
}

// SameToken reports whether two assets describe the same token type.
func (a Asset) SameToken(b Asset) bool {
	return a.Issuer == b.Issuer && a.Symbol == b.Symbol
}

// Negated returns the asset with the amount sign flipped.
func (a Asset) Negated() Asset {
	a.Amount = -a.Amount
	return a
}

// WithAmount returns a copy carrying the given amount.
func (a Asset) WithAmount(amount int64) Asset {
	a.Amount = amount
	return a
}

// LowerSymbol returns the symbol code folded to lower case, the form used
// for market and pair names.
func (a Asset) LowerSymbol() string {
	return strings.ToLower(a.Symbol)
}

func (a Asset) String() string {
	return fmt.Sprintf("%d@%d %s (%s)", a.Amount, a.Precision, a.Symbol, a.Issuer)
}
