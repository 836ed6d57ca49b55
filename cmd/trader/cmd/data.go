package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/stocksim/datasource"
)

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Manage bar datasets",
}

var dataConvertCmd = &cobra.Command{
	Use:   "convert <csv-dir> <parquet-dir>",
	Short: "Convert a CSV bar directory to Parquet",
	Long: `Convert every <code>.csv bar file and calendar.csv in a directory into
a Parquet dataset readable with data_format: parquet.

Example:
  trader data convert ./data/csv ./data/parquet`,
	Args: cobra.ExactArgs(2),
	RunE: runDataConvert,
}

func init() {
	rootCmd.AddCommand(dataCmd)
	dataCmd.AddCommand(dataConvertCmd)
}

func runDataConvert(cmd *cobra.Command, args []string) error {
	if err := os.MkdirAll(args[1], 0755); err != nil {
		return err
	}
	codes, err := datasource.ConvertCSVToParquet(args[0], args[1])
	if err != nil {
		return fmt.Errorf("convert: %w", err)
	}
	logger.WithField("codes", len(codes)).Info("dataset converted")
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Converted %d codes to %s\n", len(codes), args[1])
	return nil
}
