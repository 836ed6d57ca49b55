package sim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/stocksim/market"
)

var (
	dayA = time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	dayB = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
)

func newAccountWithData(t *testing.T, data DayProvider, mutate func(*Config)) *AccountManager {
	t.Helper()
	cfg := DefaultConfig()
	mutate(&cfg)
	m, err := NewAccountManager(cfg, data, WithLogger(nil))
	require.NoError(t, err)
	return m
}

// maProvider has flat closes of level on the two days before day2.
func maProvider(level float64) *memProvider {
	data := newMemProvider(dayA, dayB, day1, day2, day3)
	data.addBar(codeA, dayB, level, level, 1)
	data.addBar(codeA, day1, level, level, 1)
	data.addBar(codeA, day2, level, level, 1)
	return data
}

func requireClosed(t *testing.T, m *AccountManager, reason SellReason) {
	t.Helper()
	pending := m.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, market.Sell, pending[0].Type)
	assert.Equal(t, reason, pending[0].Reason)
}

func TestLadderStopPrice(t *testing.T) {
	assert.InDelta(t, 12.704, LadderStopPrice(10, 15, 0.9, 0.10, 0.09), 1e-3)
	assert.InDelta(t, 9.0, LadderStopPrice(10, 10.5, 0.9, 0.10, 0.09), 1e-9, "less than one step")
	assert.InDelta(t, 9.0, LadderStopPrice(10, 8, 0.9, 0.10, 0.09), 1e-9, "steps never go negative")
	assert.InDelta(t, 9.81, LadderStopPrice(10, 11.01, 0.9, 0.10, 0.09), 1e-9)
}

func TestLadderStopLoss(t *testing.T) {
	m := newAccount(t, func(c *Config) {
		c.Fees = market.Fees{}
		c.Stops.StopLoss = StopSetting{Name: PolicyLadder, Params: []float64{0.9, 0.10, 0.09}}
	})
	holdShares(t, m, codeA, 10, 100)
	require.InDelta(t, 10.0, m.CurCodePosCost(codeA), 1e-9)

	setPrice(m, codeA, at(day2, 9, 31), 15)
	setPrice(m, codeA, at(day2, 9, 40), 12.72)
	assert.Empty(t, m.Pending())

	setPrice(m, codeA, at(day2, 9, 41), 12.70)
	requireClosed(t, m, SellStopLoss)
	assert.InDelta(t, 12.70, m.Pending()[0].Price, 1e-9)
}

func TestLadderStopLossBeforeAnyRise(t *testing.T) {
	m := newAccount(t, func(c *Config) {
		c.Fees = market.Fees{}
		c.Stops.StopLoss = StopSetting{Name: PolicyLadder, Params: []float64{0.9, 0.10, 0.09}}
	})
	holdShares(t, m, codeA, 10, 100)

	setPrice(m, codeA, at(day2, 9, 31), 9.01)
	assert.Empty(t, m.Pending())
	setPrice(m, codeA, at(day2, 9, 32), 8.99)
	requireClosed(t, m, SellStopLoss)
}

func TestFixedStopProfit(t *testing.T) {
	m := newAccount(t, func(c *Config) {
		c.Stops.StopProfit = StopSetting{Name: PolicyFixed, Params: []float64{5}}
	})
	holdShares(t, m, codeA, 10, 100)

	setPrice(m, codeA, at(day2, 9, 31), 10.5)
	assert.Empty(t, m.Pending())
	setPrice(m, codeA, at(day2, 9, 32), 10.6)
	requireClosed(t, m, SellStopProfit)
	assert.Equal(t, 0, m.RiskGuardCount())
}

func TestStopTime(t *testing.T) {
	m := newAccount(t, func(c *Config) {
		c.Stops.StopTime = StopSetting{Name: PolicyFixed, Params: []float64{2, 1}}
	})
	holdShares(t, m, codeA, 10, 100)

	setPrice(m, codeA, at(day2, 9, 31), 10.5)
	assert.Empty(t, m.Pending(), "held one day")
	m.OnClose()

	openDay(t, m, day3)
	setPrice(m, codeA, at(day3, 9, 31), 10.1)
	assert.Empty(t, m.Pending(), "not profitable enough")
	setPrice(m, codeA, at(day3, 9, 32), 10.2)
	requireClosed(t, m, SellStopTime)
}

func TestMovingAverageStopLoss(t *testing.T) {
	data := maProvider(10)
	m := newAccountWithData(t, data, func(c *Config) {
		c.Stops.StopLoss = StopSetting{Name: PolicyMovingAverage, Params: []float64{3}}
	})
	holdShares(t, m, codeA, 10, 100)

	setQuote(m, codeA, at(day2, 9, 31), 10.2, 10)
	assert.Empty(t, m.Pending())

	// MA(3) = (10 + 10 + 9.5) / 3
	setQuote(m, codeA, at(day2, 9, 32), 9.5, 10)
	requireClosed(t, m, SellStopLoss)
}

func TestMovingAverageRebasesOnExRights(t *testing.T) {
	data := maProvider(10)
	m := newAccountWithData(t, data, func(c *Config) {
		c.Stops.StopLoss = StopSetting{Name: PolicyMovingAverage, Params: []float64{3}}
	})
	holdShares(t, m, codeA, 10, 100)

	// 2-for-1 split: the exchange reports a previous close of 5
	setQuote(m, codeA, at(day2, 9, 31), 5.1, 5)
	assert.Empty(t, m.Pending(), "unadjusted closes would have triggered")

	setQuote(m, codeA, at(day2, 9, 32), 4.9, 5)
	requireClosed(t, m, SellStopLoss)
}

func TestMovingAverageStopProfitNeedsRun(t *testing.T) {
	data := maProvider(11)
	m := newAccountWithData(t, data, func(c *Config) {
		c.Stops.StopProfit = StopSetting{Name: PolicyMovingAverage, Params: []float64{3, 5}}
	})
	holdShares(t, m, codeA, 10, 100)

	// below the MA but the position never made 5%
	setQuote(m, codeA, at(day2, 9, 31), 10.5, 11)
	assert.Empty(t, m.Pending())

	setQuote(m, codeA, at(day2, 9, 32), 10.6, 11)
	requireClosed(t, m, SellStopProfit)
	assert.Equal(t, 0, m.RiskGuardCount())
}

func TestMovingAverageNeedsFullWindow(t *testing.T) {
	data := newMemProvider(dayA, dayB, day1, day2, day3)
	data.addBar(codeA, day1, 10, 10, 1)

	m := newAccountWithData(t, data, func(c *Config) {
		c.Stops.StopLoss = StopSetting{Name: PolicyMovingAverage, Params: []float64{3}}
	})
	openDay(t, m, day1)
	require.NotNil(t, buyTick(m, at(day1, 9, 31), codeA, 10, 100))
	setPrice(m, codeA, at(day1, 9, 32), 9.99)
	m.OnClose()

	err := m.OnOpen(context.Background(), day2)
	assert.ErrorIs(t, err, ErrDayAborted)
}

func TestPoliciesSkipLockedPositions(t *testing.T) {
	m := newAccount(t, func(c *Config) {
		c.Stops.StopLoss = StopSetting{Name: PolicyFixed, Params: []float64{-5}}
	})
	holdShares(t, m, codeA, 10, 100)
	require.NotNil(t, m.Sell(OrderRequest{Time: at(day2, 9, 30), Strategy: tickStrategy, Code: codeA, Price: 11, Volume: 100}))

	setPrice(m, codeA, at(day2, 9, 31), 9)
	require.Len(t, m.Pending(), 1, "only the original sell")
	assert.Equal(t, SellStrategy, m.Pending()[0].Reason)
}

func TestOnePolicyClosesPerEvent(t *testing.T) {
	m := newAccount(t, func(c *Config) {
		c.Stops.StopLoss = StopSetting{Name: PolicyFixed, Params: []float64{-5}}
		c.Stops.StopTime = StopSetting{Name: PolicyFixed, Params: []float64{1, -10}}
	})
	holdShares(t, m, codeA, 10, 100)

	// both the stop-loss and the stop-time are met by this tick
	setPrice(m, codeA, at(day2, 9, 31), 9.5)
	requireClosed(t, m, SellStopLoss)
	assert.Equal(t, int64(0), m.CurCodePosAvail(codeA))
	assert.Len(t, m.PopCurWaitingPushEntrusts(), 1)
}

func TestPolicyNamesAreCaseInsensitive(t *testing.T) {
	s := StopSettings{
		StopLoss:   StopSetting{Name: "Fixed", Params: []float64{-5}},
		StopProfit: StopSetting{Name: "NONE"},
		StopTime:   StopSetting{Name: ""},
	}
	m := newAccount(t, func(c *Config) { c.Stops = s })
	assert.NotNil(t, m)

	_, ok := m.stopProfit.(NoopPolicy)
	assert.True(t, ok)
}
