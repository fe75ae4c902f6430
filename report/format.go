package report

import (
	"strings"

	"github.com/rustyeddy/laskuri/tax"
	"github.com/shopspring/decimal"
)

const dateLayout = "02.01.2006 15:04"

// Column headers of the laskuri import sheet.
const (
	colTime       = "AIKA - DATE/TIME"
	colEvent      = "TAPAHTUMA - EVENT"
	colAmount     = "MÄÄRÄ - AMOUNT"
	colPrice      = "HINTA € / VIRTUAALIVALUUTTA - PRICE PER UNIT"
	colTotal      = "YHTEENSÄ - TOTAL"
	colFee        = "fee"
	colSource     = "LÄHDE - SOURCE"
	colRemaining1 = "VIRTUAALIVALUUTTAA JÄLJELLÄ 1 - CURRENCY REMAINING 1"
	colCost       = "HANKINTAMENO TAI HANKINTAMENO-OLETTAMA/KULUTETTU VIRTUAALIVALUUTTA - PURCHASE COST OR DEEMED ACQ. COST"
	colProfit     = "VOITTO /TAPPIO - PROFIT / LOSS"
	colRemaining2 = "VIRTUAALIVALUUTTAA JÄLJELLÄ 2 - CURRENCY REMAINING 2"
)

// Quantity renders 8 decimals with a decimal comma.
func Quantity(d decimal.Decimal) string {
	return strings.Replace(d.StringFixed(8), ".", ",", 1)
}

// Money renders euros as "1234,56 €". Halves round away from zero.
func Money(d decimal.Decimal) string {
	return strings.Replace(d.StringFixed(2), ".", ",", 1) + " €"
}

// Event is the Finnish event name.
func Event(d tax.Direction) string {
	if d == tax.Sell {
		return "Myynti"
	}
	return "Osto"
}

// CostCell shows both bases of a sale with the one not used in
// parentheses.
func CostCell(s *tax.SaleBasis) string {
	if s == nil {
		return ""
	}
	fifo, deemed := Money(s.FIFOCost), Money(s.DeemedCost)
	if s.DeemedApplied {
		return "(" + fifo + ") / " + deemed
	}
	return fifo + " / (" + deemed + ")"
}

// row is one result formatted for the laskuri columns, fee included.
type row struct {
	time, event, amount, price, total, fee, source string
	remaining, cost, profit                        string
}

func formatRow(r tax.TaxLotResult, source string) row {
	out := row{
		time:      r.Time.Format(dateLayout),
		event:     Event(r.Direction),
		amount:    Quantity(r.Quantity),
		price:     Money(r.UnitPrice),
		total:     Money(r.TotalCost),
		fee:       Money(r.Fee),
		source:    source,
		remaining: Quantity(r.RunningBalance),
	}
	if r.Sale != nil {
		out.cost = CostCell(r.Sale)
		out.profit = Money(r.Sale.RealizedGain)
	}
	return out
}
