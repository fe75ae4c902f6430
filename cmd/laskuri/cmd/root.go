package cmd

import (
	"fmt"

	"github.com/rustyeddy/laskuri/config"
	"github.com/rustyeddy/laskuri/logx"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "laskuri",
	Short: "Finnish crypto capital gains from exchange ledgers",
	Long: `Laskuri turns a Kraken ledger export into the rows the Finnish tax
administration's crypto calculator expects.

Sales are matched against purchases first-in first-out, and the statutory
deemed acquisition cost (hankintameno-olettama) is used whenever it gives
the larger deduction.

Pipeline:
  laskuri filter ledgers.csv -o filtered.csv
  laskuri trades filtered.csv -o trades.csv
  laskuri report ledgers.csv --asset BTC --format xlsx`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

var (
	cfgFile  string
	logLevel string

	cfg    *config.Config
	logger *logrus.Logger
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML or JSON); defaults are used when empty")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides config and LASKURI_LOG_LEVEL)")
}

// setup loads configuration and the logger before any command runs.
func setup(cmd *cobra.Command, args []string) error {
	c := config.Default()
	if cfgFile != "" {
		var err error
		if c, err = config.LoadFromFile(cfgFile); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}
	if err := c.ApplyEnv(); err != nil {
		return err
	}
	if logLevel != "" {
		c.Log.Level = logLevel
	}

	l, err := logx.New(c.Log.Level, c.Log.Format)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}

	cfg, logger = c, l
	return nil
}
