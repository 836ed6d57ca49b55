package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/stocksim/backtest"
	"github.com/rustyeddy/stocksim/datasource"
	"github.com/rustyeddy/stocksim/internal/id"
	"github.com/rustyeddy/stocksim/journal"
	"github.com/rustyeddy/stocksim/market"
	"github.com/rustyeddy/stocksim/sim"
	"github.com/rustyeddy/stocksim/strategies"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run backtests with the configured strategy and exit policies",
	Long: `Backtest replays daily bars (or a tick CSV) through a simulated A-share
account and a strategy, journaling deals and daily snapshots.

Supported strategies:
  - noop: Does nothing (baseline test)
  - open-once: Buys each code once and leaves it to the exit policies
  - ma-cross: Simple moving-average crossover on bars
  - ema-cross: Exponential moving-average crossover on bars

Flags override the config file.

Example:
  trader backtest -c backtest.yaml --codes 600000,000001 --start 2024-01-02 --end 2024-06-28
  trader backtest -c backtest.yaml --granularity tick --ticks data/ticks.csv`,
	RunE: runBacktest,
}

var (
	btStrategy    string
	btCodes       []string
	btStart       string
	btEnd         string
	btGranularity string
	btTicks       string
	btWorkers     int
	btPerCode     bool
	btCloseEnd    bool
	btOrgDir      string
	btNotes       []string
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	f := backtestCmd.Flags()
	f.StringVarP(&btStrategy, "strategy", "s", "", "strategy name (noop, open-once, ma-cross, ema-cross)")
	f.StringSliceVar(&btCodes, "codes", nil, "codes to trade, comma separated")
	f.StringVar(&btStart, "start", "", "first day (YYYY-MM-DD)")
	f.StringVar(&btEnd, "end", "", "last day (YYYY-MM-DD)")
	f.StringVarP(&btGranularity, "granularity", "g", "", "tick, 1d or 1m")
	f.StringVarP(&btTicks, "ticks", "t", "", "tick CSV (time,code,price,pre_close[,...]) for tick granularity")
	f.IntVarP(&btWorkers, "workers", "w", 0, "parallel runs")
	f.BoolVar(&btPerCode, "per-code", false, "one isolated account per code")
	f.BoolVar(&btCloseEnd, "close-end", false, "liquidate every position at the end of the replay")
	f.StringVar(&btOrgDir, "org", "", "directory for Org-mode run reports")
	f.StringSliceVar(&btNotes, "note", nil, "observation to attach to the run record")
}

func applyBacktestFlags(cmd *cobra.Command) error {
	f := cmd.Flags()
	if f.Changed("strategy") {
		cfg.Strategy.Name = btStrategy
	}
	if f.Changed("codes") {
		cfg.Backtest.Codes = btCodes
	}
	if f.Changed("start") {
		cfg.Backtest.Start = btStart
	}
	if f.Changed("end") {
		cfg.Backtest.End = btEnd
	}
	if f.Changed("granularity") {
		cfg.Backtest.Granularity = btGranularity
	}
	if f.Changed("ticks") {
		cfg.Backtest.Ticks = btTicks
	}
	if f.Changed("workers") {
		cfg.Backtest.Workers = btWorkers
	}
	if f.Changed("per-code") {
		cfg.Backtest.PerCode = btPerCode
	}
	if f.Changed("close-end") {
		cfg.Backtest.CloseEnd = btCloseEnd
	}
	if f.Changed("org") {
		cfg.Journal.OrgDir = btOrgDir
	}
	return cfg.Validate()
}

// session is what every run of one invocation shares.
type session struct {
	gran       market.Granularity
	start, end time.Time
	data       *datasource.Provider
	j          journal.Journal
	sq         *journal.SQLite
}

func runBacktest(cmd *cobra.Command, args []string) error {
	if err := applyBacktestFlags(cmd); err != nil {
		return err
	}

	s := &session{}
	var err error
	if s.gran, err = cfg.GranularityValue(); err != nil {
		return err
	}
	if s.start, s.end, err = cfg.Period(); err != nil {
		return err
	}
	if s.gran == market.GranularityTick && cfg.Backtest.Ticks == "" {
		return fmt.Errorf("tick backtests need --ticks")
	}
	if s.gran != market.GranularityTick && len(cfg.Backtest.Codes) == 0 {
		return fmt.Errorf("backtest.codes is required for bar backtests")
	}

	if s.data, err = openData(s.gran); err != nil {
		return err
	}

	var closer journal.Journal
	if closer, s.sq, err = openRunJournal(); err != nil {
		return err
	}
	defer closer.Close()
	s.j = closer
	if cfg.Backtest.Workers > 1 {
		s.j = journal.Locked(closer)
	}

	groups := [][]string{cfg.Backtest.Codes}
	if cfg.Backtest.PerCode && len(cfg.Backtest.Codes) > 1 {
		groups = groups[:0]
		for _, c := range cfg.Backtest.Codes {
			groups = append(groups, []string{c})
		}
	}

	runs := make([]journal.BacktestRun, len(groups))
	jobs := make([]backtest.Job, len(groups))
	for i, codes := range groups {
		i, codes := i, codes
		jobs[i] = backtest.Job{
			Name: strings.Join(codes, ","),
			Run: func(ctx context.Context) (backtest.Result, error) {
				run, res, err := s.runOne(ctx, codes)
				runs[i] = run
				return res, err
			},
		}
	}

	logger.WithFields(logrus.Fields{
		"strategy": cfg.Strategy.Name,
		"runs":     len(jobs),
		"workers":  cfg.Backtest.Workers,
	}).Info("backtest started")

	results := backtest.RunParallel(cmd.Context(), jobs, cfg.Backtest.Workers)

	failed := 0
	for i, r := range results {
		if r.Err != nil {
			logger.WithError(r.Err).WithField("job", r.Name).Error("backtest failed")
			failed++
			continue
		}
		backtest.PrintBacktestRun(cmd.OutOrStdout(), runs[i])
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d backtests failed", failed, len(results))
	}
	return nil
}

func (s *session) runOne(ctx context.Context, codes []string) (journal.BacktestRun, backtest.Result, error) {
	runID := id.New()
	log := logger.WithField("run", runID)

	var dp sim.DayProvider
	if s.data != nil {
		dp = s.data
	}
	acct, err := sim.NewAccountManager(cfg.SimConfig(), dp, sim.WithLogger(log))
	if err != nil {
		return journal.BacktestRun{}, backtest.Result{}, err
	}

	strat, err := strategies.ByName(cfg.Strategy.Name, strategies.Params{
		Codes:       codes,
		Granularity: s.gran,
		PositionPct: cfg.Strategy.PositionPct,
		Slippage:    cfg.Account.Slippage,
		Fees:        cfg.Fees,
		Policy:      cfg.RiskPolicy(),
		Fast:        cfg.Strategy.Fast,
		Slow:        cfg.Strategy.Slow,
	})
	if err != nil {
		return journal.BacktestRun{}, backtest.Result{}, fmt.Errorf("strategy: %w", err)
	}

	feed, dataset, err := s.openFeed(ctx, codes)
	if err != nil {
		return journal.BacktestRun{}, backtest.Result{}, err
	}

	r := &backtest.Runner{
		RunID:    runID,
		Account:  acct,
		Feed:     feed,
		Strategy: strat,
		Journal:  s.j,
		Log:      log,
		Options:  backtest.RunnerOptions{CloseEnd: cfg.Backtest.CloseEnd},
	}
	res, err := r.Run(ctx)
	if err != nil {
		return journal.BacktestRun{}, res, err
	}

	run := res.BacktestRun()
	run.Strategy = strat.Tag().Name
	run.Codes = codes
	run.Granularity = s.gran.String()
	run.Dataset = dataset
	run.Stops = stopsString(cfg)
	run.Notes = btNotes
	if run.Config, err = yaml.Marshal(cfg); err != nil {
		return run, res, fmt.Errorf("marshal config: %w", err)
	}

	if dir := cfg.Journal.OrgDir; dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return run, res, err
		}
		run.OrgPath = filepath.Join(dir, runID+".org")
		if err := run.WriteBacktestOrg(); err != nil {
			return run, res, fmt.Errorf("org report: %w", err)
		}
	}
	if s.sq != nil {
		if err := s.sq.RecordBacktest(ctx, run); err != nil {
			return run, res, fmt.Errorf("record run: %w", err)
		}
	}

	log.WithFields(logrus.Fields{
		"deals":  res.Deals,
		"net_pl": res.NetPL(),
		"max_dd": res.MaxDDPct,
	}).Info("backtest finished")
	return run, res, nil
}

func (s *session) openFeed(ctx context.Context, codes []string) (backtest.Feed, string, error) {
	if s.gran == market.GranularityTick {
		to := s.end
		if !to.IsZero() {
			to = to.AddDate(0, 0, 1)
		}
		f, err := backtest.NewCSVTicksFeed(cfg.Backtest.Ticks, s.start, to)
		if err != nil {
			return nil, "", err
		}
		return f.Only(codes...), cfg.Backtest.Ticks, nil
	}

	start, end := s.start, s.end
	days := s.data.Calendar().Days()
	if start.IsZero() {
		start = days[0]
	}
	if end.IsZero() {
		end = days[len(days)-1]
	}
	f, err := backtest.NewBarFeed(ctx, s.data, codes, start, end)
	if err != nil {
		return nil, "", err
	}
	return f, cfg.Backtest.DataDir, nil
}

// openData opens the bar dataset. Tick backtests only need it for policies
// that read history, so a missing dataset is a warning there.
func openData(g market.Granularity) (*datasource.Provider, error) {
	p, err := datasource.Open(cfg.Backtest.DataDir, datasource.Format(cfg.Backtest.DataFormat))
	if err == nil {
		return p, nil
	}
	if g == market.GranularityTick {
		logger.WithError(err).Warn("no bar dataset; history-based exit policies are unavailable")
		return nil, nil
	}
	return nil, fmt.Errorf("open dataset %s: %w", cfg.Backtest.DataDir, err)
}

func openRunJournal() (journal.Journal, *journal.SQLite, error) {
	switch cfg.Journal.Type {
	case "sqlite":
		sq, err := journal.NewSQLite(cfg.Journal.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open db: %w", err)
		}
		return sq, sq, nil
	case "csv":
		c, err := journal.NewCSV(cfg.Journal.DealsFile, cfg.Journal.SnapshotsFile)
		if err != nil {
			return nil, nil, fmt.Errorf("open csv journal: %w", err)
		}
		return c, nil, nil
	default:
		return journal.Nop{}, nil, nil
	}
}
