package core

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/JackDiSalvatore/EOS-DEX/internal/domain"
)

var pow10 = [domain.NormalPrecision + 1]int64{
	1, 10, 100, 1_000, 10_000, 100_000, 1_000_000, 10_000_000, 100_000_000,
}

// NormalizePrecision rescales an asset to the common 8-decimal fixed-point
// representation. Assets priced and sized at heterogeneous precisions can
// only be compared exactly after this step: 1.5555 EOS sold at 3.60 USD
// needs 5.5998 USD, which already requires more decimals than either input
// declared. Idempotent; anything declared above 8 decimals is rejected.
func NormalizePrecision(a domain.Asset) (domain.Asset, error) {
	if a.Precision > domain.NormalPrecision {
		return domain.Asset{}, fmt.Errorf("%w: precision %d exceeds maximum of %d decimals",
			domain.ErrValidation, a.Precision, domain.NormalPrecision)
	}
	if a.Precision == domain.NormalPrecision {
		return a, nil
	}
	a.Amount *= pow10[domain.NormalPrecision-a.Precision]
	a.Precision = domain.NormalPrecision
	return a, nil
}

// Denormalize scales a normalized amount back down to the given declared
// precision, truncating. Used when funds leave the exchange and the issuer
// expects amounts in the token's own precision.
func Denormalize(a domain.Asset, precision uint8) domain.Asset {
	if precision >= a.Precision {
		return a
	}
	a.Amount /= pow10[a.Precision-precision]
	a.Precision = precision
	return a
}

// CalculateVolume returns the quote amount needed to fill volume base units
// at the given price: floor(price * volume / 10^8). Both operands must be
// normalized. The intermediate product can overflow int64, so the math runs
// through decimal's arbitrary-precision integers.
func CalculateVolume(price, volume domain.Asset) domain.Asset {
	total := decimal.NewFromInt(price.Amount).
		Mul(decimal.NewFromInt(volume.Amount)).
		Shift(-domain.NormalPrecision).
		IntPart()
	return price.WithAmount(total)
}
