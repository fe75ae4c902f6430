package cmd

import (
	"fmt"
	"time"

	"github.com/rustyeddy/laskuri/fx"
	"github.com/spf13/cobra"
)

var fxCmd = &cobra.Command{
	Use:   "fx <PAIR> <YYYY-MM-DD HH:MM:SS>",
	Short: "Look up a historical exchange rate",
	Long: `Fetch the minute rate of a currency pair at a UTC time. Weekend times
use the last quote of the preceding Friday. The API key comes from
fx.api_key or FX_API_KEY.

Example:
  laskuri fx GBPEUR "2020-12-19 15:18:00"`,
	Args: cobra.ExactArgs(2),
	RunE: runFX,
}

func init() {
	rootCmd.AddCommand(fxCmd)
}

func newFXClient() (*fx.Client, error) {
	fc, err := cfg.FXConfig()
	if err != nil {
		return nil, err
	}
	return fx.NewClient(fc, logger.WithField("component", "fx")), nil
}

func runFX(cmd *cobra.Command, args []string) error {
	at, err := time.ParseInLocation("2006-01-02 15:04:05", args[1], time.UTC)
	if err != nil {
		return fmt.Errorf("time: %w", err)
	}

	client, err := newFXClient()
	if err != nil {
		return err
	}
	rate, err := client.Rate(cmd.Context(), args[0], at)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", args[0], fx.LastQuoteTime(at).Format(time.RFC3339), rate)
	return nil
}
