package report

import (
	"encoding/csv"
	"io"

	"github.com/rustyeddy/laskuri/tax"
)

var csvHeader = []string{
	colTime, colEvent, colAmount, colPrice, colTotal, colFee, colSource,
	colRemaining1, colCost, colProfit, colRemaining2,
}

// CSV writes the processed_trades_<ASSET>.csv layout.
type CSV struct {
	Source string
}

func (c *CSV) Render(results []tax.TaxLotResult, _ string, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range results {
		f := formatRow(r, c.Source)
		err := cw.Write([]string{
			f.time, f.event, f.amount, f.price, f.total, f.fee, f.source,
			f.remaining, f.cost, f.profit, f.remaining,
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
