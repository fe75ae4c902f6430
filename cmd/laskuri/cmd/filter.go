package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/rustyeddy/laskuri/ledger"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var filterCmd = &cobra.Command{
	Use:   "filter <ledger>",
	Short: "Drop fiat withdrawals from a ledger",
	Long: `Remove withdrawal rows of fiat currencies from a Kraken ledger export.
They carry no tax consequence. The input may be .xz compressed.

Example:
  laskuri filter ledgers.csv.xz -o ledgers_filtered.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runFilter,
}

var filterOutput string

func init() {
	rootCmd.AddCommand(filterCmd)
	filterCmd.Flags().StringVarP(&filterOutput, "output", "o", "-", "output file (- for stdout)")
}

func readLedger(path string) ([]ledger.Entry, error) {
	r, err := ledger.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer r.Close()

	entries, err := ledger.ReadLedger(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// createOutput opens path for writing; "-" and "" mean the command's stdout.
func createOutput(cmd *cobra.Command, path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{cmd.OutOrStdout()}, nil
	}
	return os.Create(path)
}

func runFilter(cmd *cobra.Command, args []string) error {
	entries, err := readLedger(args[0])
	if err != nil {
		return err
	}

	kept := ledger.FilterFiatWithdrawals(entries, cfg.Ledger.Fiat)

	w, err := createOutput(cmd, filterOutput)
	if err != nil {
		return err
	}
	if err := ledger.WriteLedger(w, kept); err != nil {
		w.Close()
		return fmt.Errorf("write ledger: %w", err)
	}
	if err := w.Close(); err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"in":      len(entries),
		"out":     len(kept),
		"dropped": len(entries) - len(kept),
	}).Info("filtered ledger")
	return nil
}
