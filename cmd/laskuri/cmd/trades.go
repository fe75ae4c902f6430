package cmd

import (
	"fmt"

	"github.com/rustyeddy/laskuri/ledger"
	"github.com/spf13/cobra"
)

var tradesCmd = &cobra.Command{
	Use:   "trades <ledger>",
	Short: "Pair ledger rows into trades",
	Long: `Group the trade rows of a ledger by refid and write one trade per
order in trades.csv layout. Crypto to crypto swaps become a sale and a
purchase. Groups that cannot be paired are logged and skipped.

Example:
  laskuri trades ledgers.csv -o trades.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runTrades,
}

var tradesOutput string

func init() {
	rootCmd.AddCommand(tradesCmd)
	tradesCmd.Flags().StringVarP(&tradesOutput, "output", "o", "trades.csv", "output file (- for stdout)")
}

func normalizer() *ledger.Normalizer {
	return &ledger.Normalizer{
		Fiat:      cfg.Ledger.Fiat,
		Reporting: cfg.Ledger.ReportingCurrency,
		Log:       logger.WithField("component", "ledger"),
	}
}

func runTrades(cmd *cobra.Command, args []string) error {
	entries, err := readLedger(args[0])
	if err != nil {
		return err
	}

	trades := normalizer().Trades(entries)

	w, err := createOutput(cmd, tradesOutput)
	if err != nil {
		return err
	}
	if err := ledger.WriteTrades(w, trades); err != nil {
		w.Close()
		return fmt.Errorf("write trades: %w", err)
	}
	return w.Close()
}
