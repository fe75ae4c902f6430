package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rustyeddy/laskuri/tax"
)

// Org writes an Org-mode summary of one asset followed by a table of the
// rows, for pasting into a notes file.
type Org struct{}

func (o *Org) Render(results []tax.TaxLotResult, asset string, w io.Writer) error {
	_, err := io.WriteString(w, FormatOrgString(results, asset))
	return err
}

// FormatOrgString renders the summary drawer and the table as a string.
func FormatOrgString(results []tax.TaxLotResult, asset string) string {
	s := tax.Summarize(results)

	var b strings.Builder
	fmt.Fprintf(&b, "* %s\n", asset)
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":ASSET: %s\n", asset)
	if len(results) > 0 {
		fmt.Fprintf(&b, ":FIRST: %s\n", results[0].Time.UTC().Format(time.RFC3339))
		fmt.Fprintf(&b, ":LAST: %s\n", results[len(results)-1].Time.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(&b, ":EVENTS: %d\n", s.Events)
	fmt.Fprintf(&b, ":SELLS: %d\n", s.Sells)
	fmt.Fprintf(&b, ":DEEMED_APPLIED: %d\n", s.DeemedApplied)
	fmt.Fprintf(&b, ":PROCEEDS: %s\n", s.Proceeds.StringFixed(2))
	fmt.Fprintf(&b, ":APPLICABLE_COST: %s\n", s.ApplicableCost.StringFixed(2))
	fmt.Fprintf(&b, ":REALIZED_GAIN: %s\n", s.RealizedGain.StringFixed(2))
	fmt.Fprintf(&b, ":FINAL_BALANCE: %s\n", s.FinalBalance.StringFixed(8))
	b.WriteString(":END:\n\n")

	b.WriteString("| Time | Event | Amount | Price | Total | Fee | Cost | Profit | Remaining |\n")
	b.WriteString("|------+-------+--------+-------+-------+-----+------+--------+-----------|\n")
	for _, r := range results {
		f := formatRow(r, "")
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s | %s | %s |\n",
			f.time, f.event, f.amount, f.price, f.total, f.fee, f.cost, f.profit, f.remaining)
	}
	return b.String()
}
