package sim

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/stocksim/market"
)

// Position is the holding of one instrument. It is owned by the
// AccountManager; values handed out to callers are copies.
type Position struct {
	Code     string
	Name     string
	Strategy StrategyTag
	OpenTime time.Time

	TotalVolume int64
	// AvailVolume is the sellable part of TotalVolume. The rest is locked by
	// pending sells or waiting for T+1 settlement.
	AvailVolume int64
	// Cost is the average acquisition price including trade costs.
	Cost  float64
	Price float64
	High  float64

	MaxPnlRatio   float64
	MinPnlRatio   float64
	HoldingPeriod int

	PriceAdjFactor  float64
	VolumeAdjFactor float64
	// XRD is set when an ex-rights/ex-dividend event was applied today.
	XRD bool
	// Sync is set when today's adjustment reconciliation succeeded.
	Sync bool
}

func newPosition(at time.Time, strategy StrategyTag, code, name string, price float64, volume int64, tradeCost float64, t1 bool) *Position {
	p := &Position{
		Code:            code,
		Name:            name,
		Strategy:        strategy,
		OpenTime:        at,
		PriceAdjFactor:  1,
		VolumeAdjFactor: 1,
		Sync:            true,
	}
	p.addPos(price, volume, tradeCost, t1)
	p.MaxPnlRatio = p.PnlRatio()
	p.MinPnlRatio = p.MaxPnlRatio
	return p
}

// PnlRatio is the unrealized P&L of the position in percent.
func (p *Position) PnlRatio() float64 {
	return pnlRatio(p.Price, p.Cost)
}

// Pnl is the unrealized P&L of the position.
func (p *Position) Pnl() float64 {
	return (p.Price - p.Cost) * float64(p.TotalVolume)
}

func (p *Position) MarketValue() float64 {
	return p.Price * float64(p.TotalVolume)
}

func (p *Position) addPos(price float64, volume int64, tradeCost float64, t1 bool) {
	total := p.TotalVolume + volume
	p.Cost = (p.Cost*float64(p.TotalVolume) + price*float64(volume) + tradeCost) / float64(total)
	p.TotalVolume = total
	if !t1 {
		p.AvailVolume += volume
	}
	p.mark(price)
}

// removePos settles a sell of volume shares that were locked when the sell
// was accepted. pnl is net of tradeCost; ratio is the position's P&L ratio
// at the fill price.
func (p *Position) removePos(price float64, volume int64, tradeCost float64) (pnl, ratio float64) {
	if locked := p.TotalVolume - p.AvailVolume; volume <= 0 || volume > locked {
		panic(fmt.Sprintf("sim: %s remove %d shares, only %d locked for sale", p.Code, volume, locked))
	}
	pnl = realizedPL(price, p.Cost, volume, tradeCost)
	ratio = pnlRatio(price, p.Cost)
	p.TotalVolume -= volume
	p.mark(price)
	return pnl, ratio
}

func (p *Position) mark(price float64) {
	if price <= 0 {
		return
	}
	p.Price = price
	if price > p.High {
		p.High = price
	}
	r := p.PnlRatio()
	if r > p.MaxPnlRatio {
		p.MaxPnlRatio = r
	}
	if r < p.MinPnlRatio {
		p.MinPnlRatio = r
	}
}

func (p *Position) onTick(t market.Tick) {
	p.mark(t.Price)
}

func (p *Position) onBar(b market.Bar) {
	p.mark(b.Close)
}

// onOpen settles yesterday's buys and rebases the position when an
// ex-rights/ex-dividend event happened at today's open. It reports whether
// reconciliation succeeded; on failure the adjustment factors are left
// untouched and Sync is cleared.
func (p *Position) onOpen(ctx context.Context, day time.Time, data DayProvider) bool {
	p.XRD = false
	p.Sync = false
	// every sell expired at the last close, so all shares are free again;
	// under T+1 this also releases yesterday's buys
	p.AvailVolume = p.TotalVolume

	if data == nil {
		p.Sync = true
		return true
	}

	prev, err := data.TradeDayOffset(day, -1)
	if err != nil {
		return false
	}
	if err := data.LoadCode(ctx, p.Code, prev, day); err != nil {
		return false
	}
	all, ok := data.DayBars(p.Code)
	if !ok {
		return false
	}
	bars := barsBetween(all, prev, day)
	if len(bars) != 2 {
		// suspended on one of the days
		return false
	}
	before, today := bars[0], bars[1]

	if before.AdjFactor > 0 && today.AdjFactor > 0 && math.Abs(before.AdjFactor-today.AdjFactor) > 1e-9 {
		priceAdj := before.AdjFactor / today.AdjFactor
		volumeAdj := 1.0
		if today.VolumeRatio > 0 {
			volumeAdj = today.VolumeRatio
		}
		p.rebase(priceAdj, volumeAdj)
	}

	p.Sync = true
	return true
}

func (p *Position) rebase(priceAdj, volumeAdj float64) {
	p.Cost *= priceAdj
	p.Price *= priceAdj
	p.High *= priceAdj
	p.PriceAdjFactor *= priceAdj

	if volumeAdj != 1 {
		p.TotalVolume = int64(math.Round(float64(p.TotalVolume) * volumeAdj))
		p.AvailVolume = int64(math.Round(float64(p.AvailVolume) * volumeAdj))
		p.VolumeAdjFactor *= volumeAdj
	}
	p.XRD = true
}

func (p *Position) onClose() {
	p.HoldingPeriod++
}
