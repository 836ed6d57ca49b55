package sim

import (
	"time"

	"github.com/rustyeddy/stocksim/market"
)

// StrategyTag identifies the strategy owning an order and the data
// granularity it trades on.
type StrategyTag struct {
	Name        string
	Granularity market.Granularity
}

// EntrustStatus is the lifecycle state of an entrust.
type EntrustStatus int

const (
	NotDealt EntrustStatus = iota
	AllDealt
	Expired
)

func (s EntrustStatus) String() string {
	switch s {
	case NotDealt:
		return "not_dealt"
	case AllDealt:
		return "all_dealt"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

// SellReason says why a position is being reduced.
type SellReason int

const (
	SellStrategy SellReason = iota
	SellStopLoss
	SellStopProfit
	SellStopTime
	SellLiquidate
)

func (r SellReason) String() string {
	switch r {
	case SellStrategy:
		return "strategy"
	case SellStopLoss:
		return "stop_loss"
	case SellStopProfit:
		return "stop_profit"
	case SellStopTime:
		return "stop_time"
	case SellLiquidate:
		return "liquidate"
	default:
		return "unknown"
	}
}

// Forced reports whether the sell is a forced liquidation, which arms the
// risk guard.
func (r SellReason) Forced() bool {
	return r == SellStopLoss || r == SellLiquidate
}

// OrderRequest carries the arguments of Buy and Sell.
type OrderRequest struct {
	Time     time.Time
	Strategy StrategyTag
	Code     string
	Name     string
	Price    float64
	Volume   int64
	Reason   SellReason // sells only
	Signal   any

	// Bar is the bar the strategy just saw. Daily-bar entrusts are matched
	// against it immediately.
	Bar *market.Bar
}

// Entrust is an order waiting for, or done with, matching. It is filled
// all-or-nothing.
type Entrust struct {
	ID          string
	Type        market.Side
	Code        string
	Name        string
	Price       float64
	TotalVolume int64
	DealtVolume int64
	Status      EntrustStatus
	Time        time.Time
	Strategy    StrategyTag
	Reason      SellReason
	Signal      any

	// LockedCash is the notional plus trade cost reserved by a buy.
	LockedCash float64
	tradeCost  float64
}

// Granularity is the matching rule chosen when the entrust was created.
func (e *Entrust) Granularity() market.Granularity {
	return e.Strategy.Granularity
}

// Deal is an executed entrust. Sell deals carry the realized P&L and the
// position statistics at the time of the fill.
type Deal struct {
	ID        string
	EntrustID string
	Type      market.Side
	Code      string
	Name      string
	Price     float64
	Volume    int64
	TradeCost float64
	Time      time.Time
	Strategy  StrategyTag
	Reason    SellReason
	Signal    any

	Pnl           float64
	PnlRatio      float64
	HoldingPeriod int
	XRD           bool
	MinPnlRatio   float64
	MaxPnlRatio   float64
}
