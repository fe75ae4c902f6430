package tax

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds the statutory parameters of the cost basis calculation.
type Config struct {
	// DeemedCostRate is the share of the sale price that may be used as
	// the acquisition cost instead of the real one (0.20 in Finland).
	DeemedCostRate decimal.Decimal

	// LongHoldRate replaces DeemedCostRate for units held at least
	// LongHoldYears. Disabled when LongHoldYears is 0.
	LongHoldRate  decimal.Decimal
	LongHoldYears int
}

// DefaultConfig returns the flat 20% deemed acquisition cost.
func DefaultConfig() Config {
	return Config{
		DeemedCostRate: decimal.RequireFromString("0.20"),
		LongHoldRate:   decimal.RequireFromString("0.40"),
	}
}

func (c Config) Validate() error {
	one := decimal.NewFromInt(1)
	if c.DeemedCostRate.IsNegative() || c.DeemedCostRate.GreaterThan(one) {
		return fmt.Errorf("deemed cost rate %s must be between 0 and 1", c.DeemedCostRate)
	}
	if c.LongHoldYears < 0 {
		return fmt.Errorf("long hold years must not be negative")
	}
	if c.LongHoldYears > 0 && (c.LongHoldRate.IsNegative() || c.LongHoldRate.GreaterThan(one)) {
		return fmt.Errorf("long hold rate %s must be between 0 and 1", c.LongHoldRate)
	}
	return nil
}

func (c Config) longHold() bool { return c.LongHoldYears > 0 }

func (c Config) rateFor(acquired, sold time.Time) decimal.Decimal {
	if c.longHold() && !acquired.AddDate(c.LongHoldYears, 0, 0).After(sold) {
		return c.LongHoldRate
	}
	return c.DeemedCostRate
}

// Engine matches sells against buys of a single asset in FIFO order.
// An Engine is not safe for concurrent use; run one per asset.
type Engine struct {
	cfg     Config
	lots    lotQueue
	balance decimal.Decimal
	last    time.Time
	n       int
}

func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Process runs a fresh engine over events and returns one result per event.
// It stops at the first invalid or oversold event.
func Process(cfg Config, events []TradeEvent) ([]TaxLotResult, error) {
	e := NewEngine(cfg)
	out := make([]TaxLotResult, 0, len(events))
	for _, ev := range events {
		res, err := e.Apply(ev)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

// Apply feeds one event to the engine. On error the engine state is unchanged.
func (e *Engine) Apply(ev TradeEvent) (TaxLotResult, error) {
	if err := e.validate(ev); err != nil {
		return TaxLotResult{}, err
	}

	res := TaxLotResult{
		Time:      ev.Time,
		Direction: ev.Direction,
		Quantity:  ev.Quantity,
		UnitPrice: ev.UnitPrice,
		TotalCost: ev.TotalCost,
		Fee:       ev.Fee,
	}

	switch ev.Direction {
	case Buy:
		e.lots.push(Lot{Remaining: ev.Quantity, UnitPrice: ev.UnitPrice, Acquired: ev.Time})
		e.balance = e.balance.Add(ev.Quantity)
	case Sell:
		sale, err := e.sell(ev)
		if err != nil {
			return TaxLotResult{}, err
		}
		res.Sale = &sale
		e.balance = e.balance.Sub(ev.Quantity)
	}

	e.last = ev.Time
	e.n++
	res.RunningBalance = e.balance
	return res, nil
}

// Balance is the running quantity held after the last applied event.
func (e *Engine) Balance() decimal.Decimal { return e.balance }

// OpenLots returns a copy of the open lots, oldest first.
func (e *Engine) OpenLots() []Lot { return e.lots.snapshot() }

func (e *Engine) validate(ev TradeEvent) error {
	reason := ""
	switch {
	case ev.Direction != Buy && ev.Direction != Sell:
		reason = "unknown direction " + ev.Direction.String()
	case ev.Direction == Buy && !ev.Quantity.IsPositive():
		reason = "buy quantity must be positive, got " + ev.Quantity.String()
	case ev.Quantity.IsNegative():
		reason = "sell quantity must not be negative, got " + ev.Quantity.String()
	case ev.UnitPrice.IsNegative():
		reason = "unit price must not be negative, got " + ev.UnitPrice.String()
	case ev.TotalCost.IsNegative():
		reason = "total cost must not be negative, got " + ev.TotalCost.String()
	case ev.Fee.IsNegative():
		reason = "fee must not be negative, got " + ev.Fee.String()
	case e.n > 0 && ev.Time.Before(e.last):
		reason = "timestamp before previous event at " + e.last.UTC().Format(time.RFC3339)
	}
	if reason == "" {
		return nil
	}
	return &InvalidEventError{Index: e.n, Asset: ev.Asset, Time: ev.Time, Ref: ev.Ref, Reason: reason}
}

// sell walks the queue without mutating it and commits only once the whole
// quantity is matched.
func (e *Engine) sell(ev TradeEvent) (SaleBasis, error) {
	remaining := ev.Quantity
	fifo := decimal.Zero
	deemed := decimal.Zero

	emptied := 0
	var partial *decimal.Decimal
	for i := 0; i < e.lots.Len() && remaining.IsPositive(); i++ {
		lot := e.lots.at(i)
		used := decimal.Min(remaining, lot.Remaining)
		fifo = fifo.Add(used.Mul(lot.UnitPrice))
		if e.cfg.longHold() {
			rate := e.cfg.rateFor(lot.Acquired, ev.Time)
			deemed = deemed.Add(ev.UnitPrice.Mul(rate).Mul(used))
		}
		remaining = remaining.Sub(used)

		left := lot.Remaining.Sub(used)
		if left.IsZero() {
			emptied++
		} else {
			partial = &left
		}
	}

	if remaining.IsPositive() {
		return SaleBasis{}, &InsufficientLotsError{
			Index:    e.n,
			Asset:    ev.Asset,
			Time:     ev.Time,
			Ref:      ev.Ref,
			Quantity: ev.Quantity,
			Residual: remaining,
		}
	}

	for ; emptied > 0; emptied-- {
		e.lots.pop()
	}
	if partial != nil {
		e.lots.at(0).Remaining = *partial
	}

	if !e.cfg.longHold() {
		deemed = ev.UnitPrice.Mul(e.cfg.DeemedCostRate).Mul(ev.Quantity)
	}

	// The sale's own fee counts towards the real cost only.
	costPlusFee := fifo.Add(ev.Fee)
	sale := SaleBasis{
		FIFOCost:       fifo,
		DeemedCost:     deemed,
		ApplicableCost: costPlusFee,
	}
	if costPlusFee.LessThan(deemed) {
		sale.ApplicableCost = deemed
		sale.DeemedApplied = true
	}
	sale.RealizedGain = ev.TotalCost.Sub(sale.ApplicableCost)
	return sale, nil
}
