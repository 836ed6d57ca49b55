package sim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/stocksim/market"
)

// ErrDayAborted is returned by OnOpen when the day cannot be replayed for
// this account.
var ErrDayAborted = errors.New("sim: day aborted")

// AccountManager is a simulated brokerage account for one backtest run. It
// is the only writer of cash, positions and entrusts. It is not safe for
// concurrent use; independent runs use independent managers.
type AccountManager struct {
	cfg  Config
	data DayProvider
	log  logrus.FieldLogger

	initCash  float64
	cash      float64
	positions map[string]*Position

	pending   []*Entrust
	curDeals  []*Deal
	pushQueue []Entrust
	dealQueue []Deal

	entrustCount int
	dealCount    int

	riskGuardCount int
	curDay         time.Time

	stopLoss   ExitPolicy
	stopProfit ExitPolicy
	stopTime   ExitPolicy
}

// Option customizes an AccountManager.
type Option func(*AccountManager)

// WithLogger sets the logger used for order and day events.
func WithLogger(l logrus.FieldLogger) Option {
	return func(m *AccountManager) {
		if l != nil {
			m.log = l
		}
	}
}

// NewAccountManager creates an account funded with cfg.Cash and installs the
// exit policies named in cfg.Stops. data may be nil when no policy or
// position reconciliation needs historical bars.
func NewAccountManager(cfg Config, data DayProvider, opts ...Option) (*AccountManager, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	quiet := logrus.New()
	quiet.SetOutput(io.Discard)

	m := &AccountManager{
		cfg:        cfg,
		data:       data,
		log:        quiet,
		initCash:   cfg.Cash,
		cash:       cfg.Cash,
		positions:  make(map[string]*Position),
		stopLoss:   NoopPolicy{},
		stopProfit: NoopPolicy{},
		stopTime:   NoopPolicy{},
	}
	for _, opt := range opts {
		opt(m)
	}

	var err error
	if m.stopLoss, err = newStopLoss(cfg.Stops.StopLoss, m, data); err != nil {
		return nil, err
	}
	if m.stopProfit, err = newStopProfit(cfg.Stops.StopProfit, m, data); err != nil {
		return nil, err
	}
	if m.stopTime, err = newStopTime(cfg.Stops.StopTime, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *AccountManager) Config() Config      { return m.cfg }
func (m *AccountManager) Cash() float64       { return m.cash }
func (m *AccountManager) InitCash() float64   { return m.initCash }
func (m *AccountManager) CurDay() time.Time   { return m.curDay }
func (m *AccountManager) RiskGuardCount() int { return m.riskGuardCount }

// Buy submits a buy entrust. It returns nil when the order is rejected: the
// volume is not a whole number of board lots, the risk guard is active, or
// cash cannot cover notional plus trade cost.
func (m *AccountManager) Buy(req OrderRequest) *Entrust {
	log := m.log.WithFields(logrus.Fields{"code": req.Code, "price": req.Price, "volume": req.Volume})

	if req.Volume < market.BoardLot || req.Volume%market.BoardLot != 0 {
		log.Debug("buy rejected: volume is not a whole board lot")
		return nil
	}
	if req.Price <= 0 {
		log.Debug("buy rejected: price must be positive")
		return nil
	}
	if m.riskGuardCount > 0 {
		log.WithField("risk_guard", m.riskGuardCount).Debug("buy rejected: risk guard active")
		return nil
	}

	tradeCost := m.cfg.Fees.TradeCost(req.Code, market.Buy, req.Price, req.Volume)
	need := req.Price*float64(req.Volume) + tradeCost
	if m.cash < need {
		log.WithField("cash", m.cash).Debug("buy rejected: insufficient cash")
		return nil
	}
	m.cash -= need

	e := m.newEntrust(market.Buy, req)
	e.LockedCash = need
	e.tradeCost = tradeCost
	m.submit(e, req.Bar)
	return e
}

// Sell submits a sell entrust for a held code. It returns nil when the code
// is not held or volume is not within (0, AvailVolume]. Accepted volume is
// locked immediately so the same shares cannot be sold twice.
func (m *AccountManager) Sell(req OrderRequest) *Entrust {
	log := m.log.WithFields(logrus.Fields{"code": req.Code, "price": req.Price, "volume": req.Volume})

	pos, ok := m.positions[req.Code]
	if !ok {
		log.Debug("sell rejected: no position")
		return nil
	}
	if req.Volume <= 0 || req.Volume > pos.AvailVolume {
		log.WithField("avail", pos.AvailVolume).Debug("sell rejected: insufficient available volume")
		return nil
	}
	pos.AvailVolume -= req.Volume

	if req.Name == "" {
		req.Name = pos.Name
	}
	e := m.newEntrust(market.Sell, req)
	m.submit(e, req.Bar)
	return e
}

// ClosePos sells the whole available volume of code. A forced liquidation
// arms the risk guard whether or not the code was held.
func (m *AccountManager) ClosePos(at time.Time, code string, price float64, reason SellReason, signal any, bar *market.Bar) *Entrust {
	if reason.Forced() && m.cfg.RiskGuard > 0 {
		m.riskGuardCount = m.cfg.RiskGuard + 1
	}

	pos, ok := m.positions[code]
	if !ok || pos.AvailVolume <= 0 {
		return nil
	}
	return m.Sell(OrderRequest{
		Time:     at,
		Strategy: pos.Strategy,
		Code:     code,
		Name:     pos.Name,
		Price:    price,
		Volume:   pos.AvailVolume,
		Reason:   reason,
		Signal:   signal,
		Bar:      bar,
	})
}

func (m *AccountManager) newEntrust(side market.Side, req OrderRequest) *Entrust {
	m.entrustCount++
	return &Entrust{
		ID:          m.seqID(req.Time, m.entrustCount),
		Type:        side,
		Code:        req.Code,
		Name:        req.Name,
		Price:       req.Price,
		TotalVolume: req.Volume,
		Status:      NotDealt,
		Time:        req.Time,
		Strategy:    req.Strategy,
		Reason:      req.Reason,
		Signal:      req.Signal,
	}
}

func (m *AccountManager) seqID(at time.Time, seq int) string {
	day := m.curDay
	if day.IsZero() {
		day = market.Day(at)
	}
	return fmt.Sprintf("%s.%s_%d", m.cfg.Broker, day.Format("2006-01-02"), seq)
}

func (m *AccountManager) submit(e *Entrust, bar *market.Bar) {
	m.pushQueue = append(m.pushQueue, *e)

	if bar != nil && e.Granularity() == market.GranularityDaily && bar.Code == e.Code {
		if matchDailyBar(e, *bar, m.cfg.Limits) {
			m.deal(e, bar.Time)
			return
		}
	}
	m.pending = append(m.pending, e)
}

// OnTicks is the tick heartbeat: match pending entrusts, mark positions,
// then run the exit policies.
func (m *AccountManager) OnTicks(ticks map[string]market.Tick) {
	m.matchPending(func(e *Entrust) (time.Time, bool) {
		t, ok := ticks[e.Code]
		if !ok || !matchTick(e, t) {
			return time.Time{}, false
		}
		return t.Time, true
	})

	for _, code := range m.HeldCodes() {
		if t, ok := ticks[code]; ok {
			m.positions[code].onTick(t)
		}
	}

	m.stopLoss.OnTicks(ticks)
	m.stopProfit.OnTicks(ticks)
	m.stopTime.OnTicks(ticks)
}

// OnBars is the bar heartbeat, see OnTicks.
func (m *AccountManager) OnBars(bars map[string]market.Bar) {
	m.matchPending(func(e *Entrust) (time.Time, bool) {
		b, ok := bars[e.Code]
		if !ok || !matchBar(e, b, m.cfg.Limits) {
			return time.Time{}, false
		}
		return b.Time, true
	})

	for _, code := range m.HeldCodes() {
		if b, ok := bars[code]; ok {
			m.positions[code].onBar(b)
		}
	}

	m.stopLoss.OnBars(bars)
	m.stopProfit.OnBars(bars)
	m.stopTime.OnBars(bars)
}

// matchPending settles every pending entrust accepted by match, in
// submission order. Entrusts without data stay pending.
func (m *AccountManager) matchPending(match func(*Entrust) (time.Time, bool)) {
	if len(m.pending) == 0 {
		return
	}
	remaining := make([]*Entrust, 0, len(m.pending))
	for _, e := range m.pending {
		at, ok := match(e)
		if !ok {
			remaining = append(remaining, e)
			continue
		}
		m.deal(e, at)
	}
	m.pending = remaining
}

func (m *AccountManager) deal(e *Entrust, at time.Time) {
	e.DealtVolume = e.TotalVolume
	e.Status = AllDealt

	m.dealCount++
	d := &Deal{
		ID:        m.seqID(at, m.dealCount),
		EntrustID: e.ID,
		Type:      e.Type,
		Code:      e.Code,
		Name:      e.Name,
		Price:     e.Price,
		Volume:    e.TotalVolume,
		Time:      at,
		Strategy:  e.Strategy,
		Reason:    e.Reason,
		Signal:    e.Signal,
	}

	if e.Type == market.Buy {
		m.settleBuy(e, d)
	} else {
		m.settleSell(e, d)
	}

	m.curDeals = append(m.curDeals, d)
	m.pushQueue = append(m.pushQueue, *e)
	m.dealQueue = append(m.dealQueue, *d)

	m.log.WithFields(logrus.Fields{
		"deal":   d.ID,
		"code":   d.Code,
		"side":   d.Type.String(),
		"price":  d.Price,
		"volume": d.Volume,
		"pnl":    d.Pnl,
	}).Info("deal")
}

func (m *AccountManager) settleBuy(e *Entrust, d *Deal) {
	d.TradeCost = e.tradeCost
	pos, ok := m.positions[e.Code]
	if ok && pos.TotalVolume > 0 {
		pos.addPos(e.Price, e.TotalVolume, e.tradeCost, m.cfg.T1)
		return
	}

	fresh := newPosition(d.Time, e.Strategy, e.Code, e.Name, e.Price, e.TotalVolume, e.tradeCost, m.cfg.T1)
	if ok {
		// sold out earlier today: a new holding that keeps only the
		// adjustment state of the old one
		fresh.PriceAdjFactor = pos.PriceAdjFactor
		fresh.VolumeAdjFactor = pos.VolumeAdjFactor
		fresh.XRD = pos.XRD
		fresh.Sync = pos.Sync
	}
	m.positions[e.Code] = fresh
}

func (m *AccountManager) settleSell(e *Entrust, d *Deal) {
	pos, ok := m.positions[e.Code]
	if !ok {
		panic(fmt.Sprintf("sim: sell entrust %s settled without a position in %s", e.ID, e.Code))
	}

	d.TradeCost = m.cfg.Fees.TradeCost(e.Code, market.Sell, e.Price, e.TotalVolume)
	d.Pnl, d.PnlRatio = pos.removePos(e.Price, e.TotalVolume, d.TradeCost)
	d.HoldingPeriod = pos.HoldingPeriod
	d.XRD = pos.XRD
	d.MinPnlRatio = pos.MinPnlRatio
	d.MaxPnlRatio = pos.MaxPnlRatio

	m.cash += e.Price*float64(e.TotalVolume) - d.TradeCost
	m.assertCash()
}

func (m *AccountManager) assertCash() {
	if m.cash < 0 {
		panic(fmt.Sprintf("sim: cash went negative: %.4f", m.cash))
	}
}

// OnOpen starts trading day day. It returns an error wrapping ErrDayAborted
// when an exit policy cannot load the data it needs; the caller should skip
// the day for this account.
func (m *AccountManager) OnOpen(ctx context.Context, day time.Time) error {
	m.curDay = market.Day(day)
	m.entrustCount = 0
	m.dealCount = 0
	m.curDeals = nil
	m.pushQueue = nil
	m.dealQueue = nil

	if m.riskGuardCount > 0 {
		m.riskGuardCount--
	}

	for _, code := range m.HeldCodes() {
		pos := m.positions[code]
		if !pos.onOpen(ctx, m.curDay, m.data) {
			m.log.WithFields(logrus.Fields{"code": code, "day": m.curDay.Format("2006-01-02")}).
				Warn("position reconciliation failed")
		}
	}

	for _, p := range []ExitPolicy{m.stopLoss, m.stopProfit, m.stopTime} {
		if err := p.OnOpen(ctx, m.curDay); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrDayAborted, m.curDay.Format("2006-01-02"), err)
		}
	}
	return nil
}

// OnClose ends the trading day: empty positions are dropped, holding periods
// advance, and entrusts that did not fill expire. Expired buys release their
// locked cash; expired sells keep their volume locked until the next
// settlement.
func (m *AccountManager) OnClose() {
	for _, code := range m.HeldCodes() {
		if m.positions[code].TotalVolume == 0 {
			delete(m.positions, code)
		}
	}
	for _, pos := range m.positions {
		pos.onClose()
	}

	for _, e := range m.pending {
		if e.Type == market.Buy {
			m.cash += e.LockedCash
		}
		e.Status = Expired
		m.pushQueue = append(m.pushQueue, *e)
	}
	m.pending = nil
}

// HeldCodes returns the codes with a position, sorted.
func (m *AccountManager) HeldCodes() []string {
	codes := make([]string, 0, len(m.positions))
	for code := range m.positions {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Position returns a copy of the position in code.
func (m *AccountManager) Position(code string) (Position, bool) {
	pos, ok := m.positions[code]
	if !ok {
		return Position{}, false
	}
	return *pos, true
}

// Pending returns copies of the entrusts waiting to be matched.
func (m *AccountManager) Pending() []Entrust {
	out := make([]Entrust, 0, len(m.pending))
	for _, e := range m.pending {
		out = append(out, *e)
	}
	return out
}

// CurCapital is cash plus position market value plus cash locked by
// pending buys, so capital compares across days regardless of unmatched
// orders.
func (m *AccountManager) CurCapital() float64 {
	capital := m.cash + m.CurPosMarketValue()
	for _, e := range m.pending {
		if e.Type == market.Buy {
			capital += e.LockedCash
		}
	}
	return capital
}

func (m *AccountManager) CurPosMarketValue() float64 {
	var v float64
	for _, code := range m.HeldCodes() {
		v += m.positions[code].MarketValue()
	}
	return v
}

func (m *AccountManager) CurCodePosMarketValue(code string) float64 {
	if pos, ok := m.positions[code]; ok {
		return pos.MarketValue()
	}
	return 0
}

func (m *AccountManager) CurCodePosAvail(code string) int64 {
	if pos, ok := m.positions[code]; ok {
		return pos.AvailVolume
	}
	return 0
}

func (m *AccountManager) CurCodePosCost(code string) float64 {
	if pos, ok := m.positions[code]; ok {
		return pos.Cost
	}
	return 0
}

// PopCurWaitingPushEntrusts drains the entrust updates produced since the
// last call: creations, fills and expiries.
func (m *AccountManager) PopCurWaitingPushEntrusts() []Entrust {
	out := m.pushQueue
	m.pushQueue = nil
	return out
}

// PopCurWaitingPushDeals drains the deals produced since the last call.
func (m *AccountManager) PopCurWaitingPushDeals() []Deal {
	out := m.dealQueue
	m.dealQueue = nil
	return out
}

// SyncPositions adopts adjustment state and price extremes from positions of
// another run over the same codes. Positions whose reconciliation failed are
// skipped so a stale factor of 1 never overwrites a good one.
func (m *AccountManager) SyncPositions(prev []Position) {
	for _, p := range prev {
		if !p.Sync {
			continue
		}
		pos, ok := m.positions[p.Code]
		if !ok {
			continue
		}
		pos.PriceAdjFactor = p.PriceAdjFactor
		pos.VolumeAdjFactor = p.VolumeAdjFactor
		pos.XRD = p.XRD
		pos.High = p.High
		pos.MaxPnlRatio = p.MaxPnlRatio
		pos.MinPnlRatio = p.MinPnlRatio
		pos.Sync = true
	}
}
