package strategies

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/stocksim/market"
	"github.com/rustyeddy/stocksim/risk"
	"github.com/rustyeddy/stocksim/sim"
)

var day0 = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

func newAccount(t *testing.T) *sim.AccountManager {
	t.Helper()
	m, err := sim.NewAccountManager(sim.DefaultConfig(), nil)
	require.NoError(t, err)
	require.NoError(t, m.OnOpen(context.Background(), day0))
	return m
}

func flatBar(code string, day time.Time, close float64) market.Bar {
	return market.Bar{Code: code, Time: day, Open: close, High: close, Low: close, Close: close, PreClose: close}
}

func TestByName(t *testing.T) {
	s, err := ByName("noop", Params{})
	require.NoError(t, err)
	assert.Equal(t, "noop", s.Tag().Name)

	s, err = ByName(" Open-Once ", Params{Granularity: market.GranularityDaily})
	require.NoError(t, err)
	assert.Equal(t, sim.StrategyTag{Name: "open-once", Granularity: market.GranularityDaily}, s.Tag())

	_, err = ByName("ma-cross", Params{Fast: 5, Slow: 5, Granularity: market.GranularityDaily})
	assert.Error(t, err)
	_, err = ByName("ma-cross", Params{Fast: 2, Slow: 5})
	assert.Error(t, err, "ticks")

	_, err = ByName("ema-cross", Params{})
	assert.Error(t, err)
}

func TestNoopDoesNothing(t *testing.T) {
	m := newAccount(t)
	s := Noop{}
	ctx := context.Background()
	require.NoError(t, s.OnTicks(ctx, m, map[string]market.Tick{"000001.SZ": {Code: "000001.SZ", Price: 10}}))
	assert.Empty(t, m.Pending())
}

func TestOpenOnceTicks(t *testing.T) {
	m := newAccount(t)
	s := NewOpenOnce(Params{Codes: []string{"000001.SZ"}, PositionPct: 10, Fees: market.DefaultFees()})
	ctx := context.Background()
	at := day0.Add(9*time.Hour + 31*time.Minute)

	ticks := map[string]market.Tick{
		"000001.SZ": {Code: "000001.SZ", Name: "PAB", Time: at, Price: 10},
		"600000.SH": {Code: "600000.SH", Time: at, Price: 8},
	}
	require.NoError(t, s.OnTicks(ctx, m, ticks))

	pending := m.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "000001.SZ", pending[0].Code)
	assert.Equal(t, "PAB", pending[0].Name)
	assert.Equal(t, int64(2000), pending[0].TotalVolume)
	assert.Equal(t, "open-once", pending[0].Strategy.Name)

	require.NoError(t, s.OnTicks(ctx, m, ticks))
	assert.Len(t, m.Pending(), 1, "opens once")
}

func TestOpenOnceDailyBarsFillImmediately(t *testing.T) {
	m := newAccount(t)
	s := NewOpenOnce(Params{Granularity: market.GranularityDaily, PositionPct: 20, Fees: market.DefaultFees()})

	bars := map[string]market.Bar{
		"000001.SZ": flatBar("000001.SZ", day0, 10),
		"600000.SH": flatBar("600000.SH", day0, 20),
	}
	require.NoError(t, s.OnBars(context.Background(), m, bars))

	assert.Empty(t, m.Pending())
	assert.Equal(t, []string{"000001.SZ", "600000.SH"}, m.HeldCodes())
	assert.InDelta(t, 40000.0, m.CurCodePosMarketValue("000001.SZ"), 1e-9)
}

func TestOpenOnceRespectsPolicy(t *testing.T) {
	m := newAccount(t)
	s := NewOpenOnce(Params{
		Granularity: market.GranularityDaily,
		PositionPct: 10,
		Fees:        market.DefaultFees(),
		Policy:      risk.Policy{MaxPositions: 1},
	})

	bars := map[string]market.Bar{
		"000001.SZ": flatBar("000001.SZ", day0, 10),
		"600000.SH": flatBar("600000.SH", day0, 20),
	}
	require.NoError(t, s.OnBars(context.Background(), m, bars))
	assert.Equal(t, []string{"000001.SZ"}, m.HeldCodes())
}

// seriesBar carries no previous close so the bar never reads as limit-bound.
func seriesBar(code string, day time.Time, close float64) market.Bar {
	b := flatBar(code, day, close)
	b.PreClose = 0
	return b
}

func runCross(t *testing.T, s Strategy, bars []market.Bar) ([]sim.Deal, *sim.AccountManager) {
	t.Helper()
	m, err := sim.NewAccountManager(sim.DefaultConfig(), nil)
	require.NoError(t, err)

	ctx := context.Background()
	var deals []sim.Deal
	for _, b := range bars {
		require.NoError(t, m.OnOpen(ctx, b.Time))
		require.NoError(t, s.OnBars(ctx, m, map[string]market.Bar{b.Code: b}))
		m.OnClose()
		deals = append(deals, m.PopCurWaitingPushDeals()...)
	}
	return deals, m
}

func crossSeries(code string, closes ...float64) []market.Bar {
	bars := make([]market.Bar, len(closes))
	for i, c := range closes {
		bars[i] = seriesBar(code, day0.AddDate(0, 0, i), c)
	}
	return bars
}

func TestMACrossTradesCrossings(t *testing.T) {
	s, err := NewMACross(Params{Fast: 2, Slow: 3, Granularity: market.GranularityDaily, PositionPct: 10, Fees: market.DefaultFees()})
	require.NoError(t, err)

	deals, m := runCross(t, s, crossSeries("000001.SZ", 10, 9, 8, 11, 7, 5))

	require.Len(t, deals, 2)
	assert.Equal(t, market.Buy, deals[0].Type)
	assert.Equal(t, 11.0, deals[0].Price)
	assert.Equal(t, day0.AddDate(0, 0, 3), deals[0].Time)

	assert.Equal(t, market.Sell, deals[1].Type)
	assert.Equal(t, sim.SellStrategy, deals[1].Reason)
	assert.Equal(t, "ma2<ma3", deals[1].Signal)
	assert.Equal(t, day0.AddDate(0, 0, 5), deals[1].Time)
	assert.Empty(t, m.HeldCodes())
}

func TestEMACrossTradesCrossings(t *testing.T) {
	s, err := ByName("ema-cross", Params{Fast: 2, Slow: 3, Granularity: market.GranularityDaily, PositionPct: 10, Fees: market.DefaultFees()})
	require.NoError(t, err)
	assert.Equal(t, "ema-cross", s.Tag().Name)

	// the exponential averages turn a day earlier than the simple ones
	deals, m := runCross(t, s, crossSeries("000001.SZ", 10, 9, 8, 11, 7, 5))

	require.Len(t, deals, 2)
	assert.Equal(t, 11.0, deals[0].Price)
	assert.Equal(t, market.Sell, deals[1].Type)
	assert.Equal(t, 7.0, deals[1].Price)
	assert.Equal(t, day0.AddDate(0, 0, 4), deals[1].Time)
	assert.Equal(t, "ema2<ema3", deals[1].Signal)
	assert.Empty(t, m.HeldCodes())
}

func TestMACrossRescalesOnExRights(t *testing.T) {
	s, err := NewMACross(Params{Fast: 2, Slow: 3, Granularity: market.GranularityDaily, PositionPct: 10, Fees: market.DefaultFees()})
	require.NoError(t, err)

	const code = "000001.SZ"
	bars := crossSeries(code, 10, 9, 8, 11)
	// a 2-for-1 split halves the price basis; on the old basis the
	// averages would cross down and sell
	xrd := seriesBar(code, day0.AddDate(0, 0, 4), 4.99)
	xrd.PreClose = 5.5
	bars = append(bars, xrd)

	deals, m := runCross(t, s, bars)
	require.Len(t, deals, 1)
	assert.Equal(t, market.Buy, deals[0].Type)
	assert.Equal(t, []string{code}, m.HeldCodes())
}
