package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/rustyeddy/stocksim/market"
)

// StopSetting selects an exit policy by name with its positional parameters.
type StopSetting struct {
	Name   string    `json:"name" yaml:"name"`
	Params []float64 `json:"params,omitempty" yaml:"params,omitempty"`
}

// StopSettings configures the three exit-policy slots of an account.
type StopSettings struct {
	StopLoss   StopSetting `json:"stop_loss" yaml:"stop_loss"`
	StopProfit StopSetting `json:"stop_profit" yaml:"stop_profit"`
	StopTime   StopSetting `json:"stop_time" yaml:"stop_time"`
}

// Config is fixed for the lifetime of an AccountManager.
type Config struct {
	// Broker prefixes entrust and deal ids.
	Broker string
	Cash   float64
	// RiskGuard is the number of trading days buys stay disabled after a
	// forced liquidation. Zero disables the guard.
	RiskGuard int
	// Slippage is informational here: callers apply it to prices with
	// market.ApplySlippage before submitting orders.
	Slippage float64
	// T1 enables T+1 settlement: shares bought today become sellable at the
	// next open.
	T1     bool
	Limits market.Limits
	Fees   market.Fees
	Stops  StopSettings
}

func DefaultConfig() Config {
	return Config{
		Broker: "simu",
		Cash:   200_000,
		T1:     true,
		Limits: market.DefaultLimits(),
		Fees:   market.DefaultFees(),
	}
}

func (c Config) validate() error {
	if c.Cash <= 0 {
		return fmt.Errorf("sim: cash must be positive, got %.2f", c.Cash)
	}
	if c.RiskGuard < 0 {
		return fmt.Errorf("sim: risk guard must not be negative, got %d", c.RiskGuard)
	}
	if c.Limits.UpPct <= 0 || c.Limits.DownPct >= 0 {
		return fmt.Errorf("sim: invalid limits up=%.2f down=%.2f", c.Limits.UpPct, c.Limits.DownPct)
	}
	if c.Limits.GrowthUpPct < 0 || c.Limits.GrowthDownPct > 0 {
		return fmt.Errorf("sim: invalid growth-board limits up=%.2f down=%.2f", c.Limits.GrowthUpPct, c.Limits.GrowthDownPct)
	}
	return nil
}

// Validate checks policy names and parameter counts without building an
// account.
func (s StopSettings) Validate() error {
	var data probeProvider
	if _, err := newStopLoss(s.StopLoss, nil, data); err != nil {
		return err
	}
	if _, err := newStopProfit(s.StopProfit, nil, data); err != nil {
		return err
	}
	_, err := newStopTime(s.StopTime, nil)
	return err
}

// probeProvider satisfies policies that insist on a DayProvider while their
// settings are only being checked.
type probeProvider struct{}

func (probeProvider) TradeDayOffset(day time.Time, _ int) (time.Time, error)       { return day, nil }
func (probeProvider) LoadCode(context.Context, string, time.Time, time.Time) error { return nil }
func (probeProvider) DayBars(string) ([]market.Bar, bool)                          { return nil, false }
