package tax

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Direction says whether an event adds to or removes from holdings.
type Direction int

const (
	Buy Direction = iota + 1
	Sell
)

func (d Direction) String() string {
	switch d {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// ParseDirection accepts buy/sell and the Finnish osto/myynti, in any case.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy", "osto":
		return Buy, nil
	case "sell", "myynti":
		return Sell, nil
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

// TradeEvent is one leg of a trade for a single asset. All amounts are in
// the reporting currency.
type TradeEvent struct {
	Time      time.Time
	Asset     string
	Direction Direction
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	TotalCost decimal.Decimal
	Fee       decimal.Decimal

	// Ref is the exchange reference the event came from, if any.
	Ref string
}

// Lot is an open purchase. Lots only ever shrink.
type Lot struct {
	Remaining decimal.Decimal
	UnitPrice decimal.Decimal
	Acquired  time.Time
}

// SaleBasis is the cost basis breakdown of a sell.
type SaleBasis struct {
	FIFOCost       decimal.Decimal // matched lot cost, fee excluded
	DeemedCost     decimal.Decimal
	ApplicableCost decimal.Decimal // max(FIFOCost+fee, DeemedCost)
	RealizedGain   decimal.Decimal

	// DeemedApplied is true when the deemed cost won over FIFOCost+fee.
	DeemedApplied bool
}

// TaxLotResult is the output row for one TradeEvent.
type TaxLotResult struct {
	Time      time.Time
	Direction Direction
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	TotalCost decimal.Decimal
	Fee       decimal.Decimal

	RunningBalance decimal.Decimal

	// Sale is nil for buys.
	Sale *SaleBasis
}
