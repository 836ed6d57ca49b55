package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/stocksim/market"
)

func TestTargetVolume(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		capital float64
		pct     float64
		price   float64
		want    int64
	}{
		{"exact lots", 200000, 10, 10, 2000},
		{"rounds down to lot", 200000, 10, 13, 1500},
		{"less than a lot", 1000, 10, 10, 0},
		{"no price", 200000, 10, 0, 0},
		{"no pct", 200000, 0, 10, 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, TargetVolume(tt.capital, tt.pct, tt.price))
		})
	}
}

func TestLotVolumeLeavesRoomForFees(t *testing.T) {
	t.Parallel()

	fees := market.DefaultFees()
	// 10 000 buys 1000 shares at 10 only without fees
	assert.Equal(t, int64(900), LotVolume(10_000, 10, fees, "000001.SZ"))
	assert.Equal(t, int64(1000), LotVolume(10_000, 10, market.Fees{}, "000001.SZ"))
	assert.Equal(t, int64(0), LotVolume(900, 10, fees, "000001.SZ"))
}

func TestCalculateCapsByCash(t *testing.T) {
	t.Parallel()

	got := Calculate(Inputs{
		Code:        "600000.SH",
		Price:       10,
		Capital:     200000,
		Cash:        5000,
		PositionPct: 20,
		Fees:        market.DefaultFees(),
	})
	assert.Equal(t, int64(400), got.Volume)
	assert.InDelta(t, 4000.0, got.Amount, 1e-9)
	assert.InDelta(t, 5.08, got.TradeCost, 1e-9)

	got = Calculate(Inputs{Code: "600000.SH", Price: 10, Capital: 200000, Cash: 200000, PositionPct: 20, Fees: market.DefaultFees()})
	assert.Equal(t, int64(4000), got.Volume)
}
