package tax

import "github.com/shopspring/decimal"

// Summary totals a result sequence.
type Summary struct {
	Events        int
	Buys          int
	Sells         int
	DeemedApplied int

	Bought         decimal.Decimal
	Sold           decimal.Decimal
	Proceeds       decimal.Decimal
	FIFOCost       decimal.Decimal
	ApplicableCost decimal.Decimal
	RealizedGain   decimal.Decimal
	FinalBalance   decimal.Decimal
}

func Summarize(results []TaxLotResult) Summary {
	var s Summary
	for _, r := range results {
		s.Events++
		s.FinalBalance = r.RunningBalance
		if r.Sale == nil {
			s.Buys++
			s.Bought = s.Bought.Add(r.Quantity)
			continue
		}
		s.Sells++
		s.Sold = s.Sold.Add(r.Quantity)
		s.Proceeds = s.Proceeds.Add(r.TotalCost)
		s.FIFOCost = s.FIFOCost.Add(r.Sale.FIFOCost)
		s.ApplicableCost = s.ApplicableCost.Add(r.Sale.ApplicableCost)
		s.RealizedGain = s.RealizedGain.Add(r.Sale.RealizedGain)
		if r.Sale.DeemedApplied {
			s.DeemedApplied++
		}
	}
	return s
}
