package journal

import (
	"fmt"
	"strings"
	"time"
)

// FormatDealOrg renders a sell DealRecord as an Org-mode block with the
// facts in a PROPERTIES drawer and an empty Review section.
func FormatDealOrg(d DealRecord) string {
	heading := fmt.Sprintf("*** Deal: %s %s (%s)", d.Code, d.Side, shortID(d.DealID))

	var b strings.Builder
	b.WriteString(heading)
	b.WriteString("\n")
	b.WriteString(":PROPERTIES:\n")
	b.WriteString(fmt.Sprintf(":DEAL_ID: %s\n", d.DealID))
	b.WriteString(fmt.Sprintf(":ENTRUST_ID: %s\n", d.EntrustID))
	b.WriteString(fmt.Sprintf(":CODE: %s\n", d.Code))
	if d.Name != "" {
		b.WriteString(fmt.Sprintf(":NAME: %s\n", d.Name))
	}
	b.WriteString(fmt.Sprintf(":VOLUME: %d\n", d.Volume))
	b.WriteString(fmt.Sprintf(":PRICE: %.2f\n", d.Price))
	b.WriteString(fmt.Sprintf(":TRADE_COST: %.2f\n", d.TradeCost))
	b.WriteString(fmt.Sprintf(":TIME: %s\n", d.Time.UTC().Format(time.RFC3339)))
	b.WriteString(fmt.Sprintf(":PNL: %.2f\n", d.Pnl))
	b.WriteString(fmt.Sprintf(":PNL_RATIO: %.2f\n", d.PnlRatio))
	b.WriteString(fmt.Sprintf(":HOLDING_DAYS: %d\n", d.HoldingPeriod))
	b.WriteString(fmt.Sprintf(":REASON: %s\n", d.Reason))
	b.WriteString(":END:\n")
	b.WriteString("\n")
	b.WriteString("**** Review\n- \n")

	return b.String()
}

// FormatDealsOrg renders multiple deals separated by blank lines.
func FormatDealsOrg(deals []DealRecord) string {
	var b strings.Builder
	for i, d := range deals {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(FormatDealOrg(d))
	}
	return b.String()
}

// shortID keeps the sequence suffix of ids like "simu.2024-03-04_12".
func shortID(full string) string {
	if i := strings.LastIndexByte(full, '_'); i >= 0 && i < len(full)-1 {
		return full[i+1:]
	}
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
