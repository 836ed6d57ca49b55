package cmd

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/stocksim/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the backtest journal",
	Long: `Query and display backtest records from the SQLite journal.

Subcommands:
  run   - Org report of a backtest run
  deals - List the deals of a run
  deal  - Show a single deal
  pnl   - Realized P&L per code of a run
  day   - List deals executed on a specific day

Examples:
  trader journal run 01HX3Q...
  trader journal day 2024-01-15`,
}

var journalRunCmd = &cobra.Command{
	Use:   "run <run-id>",
	Short: "Print the Org report of a run",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalRun,
}

var journalDealsCmd = &cobra.Command{
	Use:   "deals <run-id>",
	Short: "List the deals of a run",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDeals,
}

var journalDealCmd = &cobra.Command{
	Use:   "deal <run-id> <deal-id>",
	Short: "Show a single deal",
	Args:  cobra.ExactArgs(2),
	RunE:  runJournalDeal,
}

var journalPnLCmd = &cobra.Command{
	Use:   "pnl <run-id>",
	Short: "Realized P&L per code",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalPnL,
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List deals executed on a specific day",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDay,
}

var journalDBPath string

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalRunCmd, journalDealsCmd, journalDealCmd, journalPnLCmd, journalDayCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "", "path to SQLite journal DB (default from config)")
}

func openJournal() (*journal.SQLite, error) {
	path := journalDBPath
	if path == "" {
		path = cfg.Journal.DBPath
	}
	if path == "" {
		return nil, fmt.Errorf("no journal database configured")
	}
	j, err := journal.NewSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return j, nil
}

func runJournalRun(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	org, err := j.ExportBacktestOrg(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("get run: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), org)
	return nil
}

func runJournalDeals(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	recs, err := j.ListDealsByRunID(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("query deals: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatDealsOrg(recs))
	return nil
}

func runJournalDeal(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	rec, err := j.GetDeal(args[0], args[1])
	if err != nil {
		return fmt.Errorf("get deal: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatDealOrg(rec))
	return nil
}

func runJournalPnL(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	byCode, err := j.RealizedByCode(args[0])
	if err != nil {
		return fmt.Errorf("query pnl: %w", err)
	}
	codes := make([]string, 0, len(byCode))
	for c := range byCode {
		codes = append(codes, c)
	}
	sort.Strings(codes)

	out := cmd.OutOrStdout()
	var total float64
	for _, c := range codes {
		fmt.Fprintf(out, "%-10s %12.2f\n", c, byCode[c])
		total += byCode[c]
	}
	fmt.Fprintf(out, "%-10s %12.2f\n", "total", total)
	return nil
}

func runJournalDay(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	start, err := time.Parse("2006-01-02", args[0])
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}
	recs, err := j.ListDealsBetween(start, start.Add(24*time.Hour))
	if err != nil {
		return fmt.Errorf("query deals: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatDealsOrg(recs))
	return nil
}
