package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rustyeddy/laskuri/journal"
	"github.com/rustyeddy/laskuri/ledger"
	"github.com/rustyeddy/laskuri/report"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report <ledger|trades.csv>",
	Short: "Compute FIFO cost basis and write laskuri reports",
	Long: `Run the full pipeline: filter the ledger, pair trades, convert prices
to the reporting currency and match every sale against earlier purchases.
One report is written per asset.

Assets that fail (for example a sale with no matching purchases) are
logged and skipped unless --strict is given.

Examples:
  laskuri report ledgers.csv --asset BTC,ETH
  laskuri report ledgers.csv.xz --format xlsx --template vero_laskuri_template.xlsx
  laskuri report trades.csv --from-trades --format org --journal`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

var (
	reportAssets     []string
	reportFormat     string
	reportOutDir     string
	reportTemplate   string
	reportStrict     bool
	reportJournal    bool
	reportFromTrades bool
)

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringSliceVarP(&reportAssets, "asset", "a", nil, "assets to report (default all non-fiat assets)")
	reportCmd.Flags().StringVarP(&reportFormat, "format", "F", "", "output format: csv, xlsx or org (default from config)")
	reportCmd.Flags().StringVarP(&reportOutDir, "out-dir", "O", "", "output directory (default from config)")
	reportCmd.Flags().StringVar(&reportTemplate, "template", "", "xlsx template workbook (default from config)")
	reportCmd.Flags().BoolVar(&reportStrict, "strict", false, "fail on the first asset that cannot be computed")
	reportCmd.Flags().BoolVar(&reportJournal, "journal", false, "record runs in the SQLite journal")
	reportCmd.Flags().BoolVar(&reportFromTrades, "from-trades", false, "input is a trades.csv written by 'laskuri trades'")
}

func loadTrades(path string) ([]ledger.Trade, error) {
	if !reportFromTrades {
		entries, err := readLedger(path)
		if err != nil {
			return nil, err
		}
		return normalizer().Trades(entries), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ledger.ReadTrades(f)
}

func runReport(cmd *cobra.Command, args []string) error {
	format := cfg.Report.Format
	if reportFormat != "" {
		format = reportFormat
	}
	outDir := cfg.Report.OutputDir
	if reportOutDir != "" {
		outDir = reportOutDir
	}
	template := cfg.Report.Template
	if reportTemplate != "" {
		template = reportTemplate
	}
	if format == report.FormatXLSX && template != "" {
		if _, err := os.Stat(template); err != nil {
			logger.WithField("template", template).Warn("template not found, writing a blank workbook")
			template = ""
		}
	}

	renderer, err := report.New(format, report.Options{Source: cfg.Ledger.Source, Template: template})
	if err != nil {
		return err
	}
	taxCfg, err := cfg.TaxConfig()
	if err != nil {
		return err
	}
	client, err := newFXClient()
	if err != nil {
		return err
	}

	trades, err := loadTrades(args[0])
	if err != nil {
		return err
	}

	norm := normalizer()
	norm.Conv = client

	p := &pipeline{
		Tax:      taxCfg,
		Norm:     norm,
		Renderer: renderer,
		Format:   format,
		OutDir:   outDir,
		Source:   cfg.Ledger.Source,
		Workers:  cfg.Workers,
		Strict:   reportStrict,
		Log:      logger.WithField("component", "report"),
	}
	if reportJournal || cfg.Journal.Enabled {
		j, err := journal.NewSQLite(cfg.Journal.DBPath)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer j.Close()
		p.Journal = j
	}

	outcomes, err := p.run(cmd.Context(), trades, reportAssets)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ASSET\tSELLS\tPROCEEDS\tCOST\tGAIN\tOUTPUT")
	for _, o := range outcomes {
		if o.Err != nil {
			fmt.Fprintf(tw, "%s\t-\t-\t-\t-\terror: %v\n", o.Asset, o.Err)
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n", o.Asset, o.Summary.Sells,
			report.Money(o.Summary.Proceeds), report.Money(o.Summary.ApplicableCost),
			report.Money(o.Summary.RealizedGain), o.Path)
	}
	return tw.Flush()
}
