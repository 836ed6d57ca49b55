package market

import "github.com/shopspring/decimal"

// Fees is the A-share trading cost schedule.
type Fees struct {
	CommissionRate  float64 `json:"commission_rate" yaml:"commission_rate"`
	MinCommission   float64 `json:"min_commission" yaml:"min_commission"`
	StampTaxRate    float64 `json:"stamp_tax_rate" yaml:"stamp_tax_rate"`       // sells only
	TransferFeeRate float64 `json:"transfer_fee_rate" yaml:"transfer_fee_rate"` // Shanghai only
}

func DefaultFees() Fees {
	return Fees{
		CommissionRate:  0.00025,
		MinCommission:   5,
		StampTaxRate:    0.001,
		TransferFeeRate: 0.00002,
	}
}

// TradeCost returns the total fee, rounded to the cent, for trading volume
// shares of code at price.
func (f Fees) TradeCost(code string, side Side, price float64, volume int64) float64 {
	amount := decimal.NewFromFloat(price).Mul(decimal.NewFromInt(volume))
	if amount.IsZero() {
		return 0
	}

	commission := amount.Mul(decimal.NewFromFloat(f.CommissionRate))
	if floor := decimal.NewFromFloat(f.MinCommission); commission.LessThan(floor) {
		commission = floor
	}

	total := commission
	if side == Sell {
		total = total.Add(amount.Mul(decimal.NewFromFloat(f.StampTaxRate)))
	}
	if IsShanghai(code) {
		total = total.Add(amount.Mul(decimal.NewFromFloat(f.TransferFeeRate)))
	}
	return total.Round(2).InexactFloat64()
}
