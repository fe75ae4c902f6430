// Package report renders tax lot results for the Finnish tax
// administration's crypto calculator (Verohallinnon laskuri).
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/rustyeddy/laskuri/tax"
)

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatOrg  = "org"
)

// Formats lists the supported output formats.
var Formats = []string{FormatCSV, FormatXLSX, FormatOrg}

// Renderer writes one asset's results. Rows are written in the order
// given; renderers never sort or aggregate them.
type Renderer interface {
	Render(results []tax.TaxLotResult, asset string, w io.Writer) error
}

type Options struct {
	// Source fills the LÄHDE column. Defaults to "Kraken".
	Source string

	// Template is an xlsx workbook to fill in. Empty means a blank sheet.
	Template string
}

func (o Options) source() string {
	if o.Source == "" {
		return "Kraken"
	}
	return o.Source
}

// New returns the renderer for format.
func New(format string, opts Options) (Renderer, error) {
	switch strings.ToLower(format) {
	case FormatCSV:
		return &CSV{Source: opts.source()}, nil
	case FormatXLSX:
		return &XLSX{Source: opts.source(), Template: opts.Template}, nil
	case FormatOrg:
		return &Org{}, nil
	}
	return nil, fmt.Errorf("unknown report format %q (want csv, xlsx or org)", format)
}

// Filename is the conventional output file name for an asset's report.
func Filename(format, asset string) string {
	switch strings.ToLower(format) {
	case FormatXLSX:
		return "vero_laskuri_" + asset + ".xlsx"
	case FormatOrg:
		return "laskuri_" + asset + ".org"
	}
	return "processed_trades_" + asset + ".csv"
}
