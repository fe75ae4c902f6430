package report

import (
	"fmt"
	"io"

	"github.com/rustyeddy/laskuri/tax"
	"github.com/xuri/excelize/v2"
)

// Cell layout of the laskuri template.
const (
	xlsxAssetCell = "H10"
	xlsxTotalCell = "L3"
	xlsxFirstRow  = 16
)

// XLSX fills in the laskuri workbook template. Data goes in columns A to
// J from row 16; the fee column is left out. Only H10, L3 and the data
// rows are written, so the template's own formulas stay intact.
type XLSX struct {
	Source   string
	Template string
}

func (x *XLSX) open() (*excelize.File, string, error) {
	if x.Template == "" {
		f := excelize.NewFile()
		sheet := f.GetSheetName(f.GetActiveSheetIndex())
		header := []interface{}{
			colTime, colEvent, colAmount, colPrice, colTotal, colSource,
			colRemaining1, colCost, colProfit, colRemaining2,
		}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", xlsxFirstRow-1), &header); err != nil {
			f.Close()
			return nil, "", err
		}
		return f, sheet, nil
	}
	f, err := excelize.OpenFile(x.Template)
	if err != nil {
		return nil, "", fmt.Errorf("open template %s: %w", x.Template, err)
	}
	return f, f.GetSheetName(f.GetActiveSheetIndex()), nil
}

func (x *XLSX) Render(results []tax.TaxLotResult, asset string, w io.Writer) error {
	f, sheet, err := x.open()
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SetCellValue(sheet, xlsxAssetCell, asset); err != nil {
		return err
	}

	for i, r := range results {
		v := formatRow(r, x.Source)
		cells := []interface{}{
			v.time, v.event, v.amount, v.price, v.total, v.source,
			v.remaining, v.cost, v.profit, v.remaining,
		}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", xlsxFirstRow+i), &cells); err != nil {
			return fmt.Errorf("row %d: %w", xlsxFirstRow+i, err)
		}
	}

	last := xlsxFirstRow + len(results) - 1
	if last < xlsxFirstRow {
		last = xlsxFirstRow
	}
	formula := fmt.Sprintf("=SUMIF(C%d:C%d,E5,K%d:K%d)", xlsxFirstRow, last, xlsxFirstRow, last)
	if err := f.SetCellFormula(sheet, xlsxTotalCell, formula); err != nil {
		return err
	}

	return f.Write(w)
}
