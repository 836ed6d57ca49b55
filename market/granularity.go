package market

import (
	"fmt"
	"strings"
)

// Granularity is the market data resolution a strategy trades on. It decides
// which matching rule applies to the strategy's entrusts.
type Granularity int

const (
	GranularityTick Granularity = iota
	GranularityDaily
	GranularityIntraday
)

func (g Granularity) String() string {
	switch g {
	case GranularityTick:
		return "tick"
	case GranularityDaily:
		return "1d"
	case GranularityIntraday:
		return "1m"
	default:
		return fmt.Sprintf("granularity(%d)", int(g))
	}
}

// ParseGranularity accepts "tick", "1d"/"daily" and "1m"/"5m"/"intraday".
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tick", "ticks":
		return GranularityTick, nil
	case "1d", "d", "day", "daily":
		return GranularityDaily, nil
	case "1m", "5m", "15m", "30m", "60m", "m", "minute", "intraday":
		return GranularityIntraday, nil
	default:
		return 0, fmt.Errorf("unknown granularity %q (supported: tick, 1d, 1m)", s)
	}
}
