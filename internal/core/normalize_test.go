package core

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JackDiSalvatore/EOS-DEX/internal/domain"
)

func TestNormalizePrecisionScales(t *testing.T) {
	tests := []struct {
		name      string
		precision uint8
		amount    int64
		want      int64
	}{
		{"two decimals", 2, 131, 131_000_000},
		{"four decimals", 4, 1_5555, 155_550_000},
		{"zero decimals", 0, 7, 700_000_000},
		{"already normalized", 8, 155_550_000, 155_550_000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePrecision(domain.Asset{
				Issuer: "eosio.token", Symbol: "EOS", Precision: tt.precision, Amount: tt.amount,
			})
			require.NoError(t, err)
			require.Equal(t, tt.want, got.Amount)
			require.Equal(t, uint8(domain.NormalPrecision), got.Precision)
		})
	}
}

func TestNormalizePrecisionIdempotent(t *testing.T) {
	once, err := NormalizePrecision(eos.WithAmount(4_0000))
	require.NoError(t, err)
	twice, err := NormalizePrecision(once)
	require.NoError(t, err)
	require.Equal(t, once, twice)
}

func TestNormalizePrecisionRejectsOverPrecision(t *testing.T) {
	_, err := NormalizePrecision(domain.Asset{Issuer: "x", Symbol: "X", Precision: 9, Amount: 1})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestDenormalizeTruncates(t *testing.T) {
	a := amount8(usd, 5_2449_9999)
	got := Denormalize(a, 2)
	require.Equal(t, int64(524), got.Amount)
	require.Equal(t, uint8(2), got.Precision)
}

func TestCalculateVolumeTruncates(t *testing.T) {
	// 1.1234 EOS/BTC * 1.12345678 BTC = 1.262091346... EOS -> 1.26209134
	price, err := NormalizePrecision(eos.WithAmount(1_1234))
	require.NoError(t, err)
	volume, err := NormalizePrecision(btc.WithAmount(1_1234_5678))
	require.NoError(t, err)

	got := CalculateVolume(price, volume)
	require.Equal(t, int64(1_2620_9134), got.Amount)
	require.Equal(t, eos.Key(), got.Key())
}

func TestCalculateVolumeLargeOperands(t *testing.T) {
	// the intermediate product exceeds int64
	price := amount8(usd, 350_0000_0000)       // 350 USD per unit
	volume := amount8(btc, 1_000_000_0000_0000) // 10 million units

	got := CalculateVolume(price, volume)
	require.Equal(t, int64(3_500_000_000_0000_0000), got.Amount)
}
