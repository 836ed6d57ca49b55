package market

import "strings"

// Side is the direction of an order.
type Side int8

const (
	Buy  Side = +1
	Sell Side = -1
)

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

// BoardLot is the minimum tradable buy quantity on A-share exchanges.
const BoardLot = 100

// Exchange suffixes used in instrument codes, e.g. "600000.SH".
const (
	Shanghai = "SH"
	Shenzhen = "SZ"
)

// Exchange returns the exchange suffix of code. Codes without a suffix are
// classified by their leading digit.
func Exchange(code string) string {
	if i := strings.LastIndexByte(code, '.'); i >= 0 {
		return strings.ToUpper(code[i+1:])
	}
	if strings.HasPrefix(code, "6") || strings.HasPrefix(code, "9") {
		return Shanghai
	}
	return Shenzhen
}

// IsShanghai reports whether code trades on the Shanghai exchange.
func IsShanghai(code string) bool {
	return Exchange(code) == Shanghai
}

// IsGrowthBoard reports whether code trades on ChiNext (300/301) or the STAR
// market (688/689), which have wider daily limits.
func IsGrowthBoard(code string) bool {
	if i := strings.LastIndexByte(code, '.'); i >= 0 {
		code = code[:i]
	}
	for _, prefix := range []string{"300", "301", "688", "689"} {
		if strings.HasPrefix(code, prefix) {
			return true
		}
	}
	return false
}
