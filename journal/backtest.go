package journal

import (
	"bytes"
	"io"
	"os"
	"strings"
	"text/template"
	"time"
)

// BacktestRun mirrors the backtest_runs table.
type BacktestRun struct {
	RunID       string
	Created     time.Time
	Granularity string
	Dataset     string

	Codes    []string
	Strategy string
	Config   []byte // run config as YAML
	Stops    string

	Start time.Time
	End   time.Time

	TradeDays   int
	AbortedDays int

	// Results. Trades counts sell deals; wins and losses split them by
	// realized P&L.
	Deals  int
	Trades int
	Wins   int
	Losses int

	StartCapital float64
	EndCapital   float64

	// Derived / computed in Go
	NetPL        float64
	ReturnPct    float64
	WinRate      float64
	ProfitFactor float64
	MaxDDPct     float64

	OrgPath string

	Notes       []string
	NextActions []string
}

var backtestOrgFuncs = template.FuncMap{
	"mul100": func(x float64) float64 { return x * 100.0 },
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
	"join": func(ss []string) string { return strings.Join(ss, " ") },
}

var backtestOrgTmpl = template.Must(template.New("backtest").Funcs(backtestOrgFuncs).Parse(BacktestOrgTemplate))

// RenderOrg writes the run as an Org-mode report.
func (v *BacktestRun) RenderOrg(w io.Writer) error {
	return backtestOrgTmpl.Execute(w, v)
}

// WriteBacktestOrg renders the report to OrgPath.
func (v *BacktestRun) WriteBacktestOrg() error {
	buf := new(bytes.Buffer)
	if err := v.RenderOrg(buf); err != nil {
		return err
	}
	return os.WriteFile(v.OrgPath, buf.Bytes(), 0644)
}

const BacktestOrgTemplate = `
* BACKTEST: {{if .Strategy}}{{.Strategy}}{{else}}(strategy?){{end}} {{join .Codes}} {{.Granularity}}
:PROPERTIES:
:RUN_ID:       {{if .RunID}}{{.RunID}}{{else}}(run-id?){{end}}
:STRATEGY:     {{.Strategy}}
:GRANULARITY:  {{.Granularity}}
:CODES:        {{join .Codes}}
:DATASET:      {{if .Dataset}}{{.Dataset}}{{else}}(dataset?){{end}}
:STOPS:        {{.Stops}}
:START_DATE:   {{.Start.Format "2006-01-02"}}
:END_DATE:     {{.End.Format "2006-01-02"}}
:TRADE_DAYS:   {{.TradeDays}}
:ABORTED_DAYS: {{.AbortedDays}}
:START_CAP:    {{printf "%.2f" .StartCapital}}
:END_CAP:      {{printf "%.2f" .EndCapital}}
:NET_PL:       {{printf "%.2f" .NetPL}}
:RETURN_PCT:   {{printf "%.2f" .ReturnPct}}
:MAX_DD_PCT:   {{printf "%.2f" .MaxDDPct}}
:DEALS:        {{.Deals}}
:TRADES:       {{.Trades}}
:WINS:         {{.Wins}}
:LOSSES:       {{.Losses}}
:WIN_RATE:     {{printf "%.2f" (mul100 .WinRate)}}
:PROFIT_FAC:   {{if ne .ProfitFactor 0.0}}{{printf "%.2f" .ProfitFactor}}{{else}}(profit-factor?){{end}}
:CREATED:      [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Configuration
#+begin_src yaml
{{printf "%s" .Config}}
#+end_src

** Performance Summary
- Net P/L:          *{{printf "%.2f" .NetPL}}*
- Return:           *{{printf "%.2f" .ReturnPct}}%*
- Max Drawdown:     *{{printf "%.2f" .MaxDDPct}}%*
- Win Rate:         *{{printf "%.2f" (mul100 .WinRate)}}%*
- Profit Factor:    *{{if ne .ProfitFactor 0.0}}{{printf "%.2f" .ProfitFactor}}{{else}}(profit-factor?){{end}}*

** Trade Distribution
| Outcome | Count |
|---------+-------|
| Wins    | {{.Wins}} |
| Losses  | {{.Losses}} |
| Total   | {{.Trades}} |

{{- if .Notes }}
** Observations
{{- range .Notes }}
- {{.}}
{{- end }}
{{- end }}

{{- if .NextActions }}
** Notes / Next Actions
{{- range .NextActions }}
- [ ] {{.}}
{{- end }}
{{- end }}
`
