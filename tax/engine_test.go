package tax

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2023, 3, 1, 12, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, d(want).Equal(got), "want %s, got %s %v", want, got.String(), fmt.Sprint(msgAndArgs...))
}

func buy(at time.Time, qty, price string) TradeEvent {
	q, p := d(qty), d(price)
	return TradeEvent{Time: at, Asset: "BTC", Direction: Buy, Quantity: q, UnitPrice: p, TotalCost: q.Mul(p)}
}

func sell(at time.Time, qty, price, fee string) TradeEvent {
	q, p := d(qty), d(price)
	return TradeEvent{Time: at, Asset: "BTC", Direction: Sell, Quantity: q, UnitPrice: p, TotalCost: q.Mul(p), Fee: d(fee)}
}

func hours(h int) time.Time { return t0.Add(time.Duration(h) * time.Hour) }

func TestFIFOOrder(t *testing.T) {
	res, err := Process(DefaultConfig(), []TradeEvent{
		buy(hours(0), "1", "10"),
		buy(hours(1), "1", "20"),
		sell(hours(2), "1", "30", "0"),
	})
	require.NoError(t, err)
	require.Len(t, res, 3)

	assert.Nil(t, res[0].Sale)
	assert.Nil(t, res[1].Sale)
	require.NotNil(t, res[2].Sale)
	assertDec(t, "10", res[2].Sale.FIFOCost)
	assertDec(t, "10", res[2].Sale.ApplicableCost)
	assertDec(t, "20", res[2].Sale.RealizedGain)
	assertDec(t, "1", res[2].RunningBalance)
}

func TestPartialConsumption(t *testing.T) {
	e := NewEngine(DefaultConfig())

	_, err := e.Apply(buy(hours(0), "3", "10"))
	require.NoError(t, err)
	_, err = e.Apply(buy(hours(1), "5", "12"))
	require.NoError(t, err)

	r, err := e.Apply(sell(hours(2), "2", "15", "0"))
	require.NoError(t, err)
	assertDec(t, "20", r.Sale.FIFOCost)

	lots := e.OpenLots()
	require.Len(t, lots, 2)
	assertDec(t, "1", lots[0].Remaining)
	assertDec(t, "10", lots[0].UnitPrice)

	r, err = e.Apply(sell(hours(3), "2", "15", "0"))
	require.NoError(t, err)
	// 1 unit at 10 from the first lot, 1 unit at 12 from the second.
	assertDec(t, "22", r.Sale.FIFOCost)

	lots = e.OpenLots()
	require.Len(t, lots, 1)
	assertDec(t, "4", lots[0].Remaining)
	assertDec(t, "12", lots[0].UnitPrice)
	assertDec(t, "4", e.Balance())
}

func TestDeemedCostFloor(t *testing.T) {
	tests := []struct {
		name       string
		buyPrice   string
		sellPrice  string
		fee        string
		applicable string
		gain       string
		deemed     bool
	}{
		{name: "fifo wins", buyPrice: "100", sellPrice: "1", fee: "0", applicable: "100", gain: "-99", deemed: false},
		{name: "deemed wins", buyPrice: "1", sellPrice: "1000", fee: "0", applicable: "200", gain: "800", deemed: true},
		{name: "fee lifts fifo over deemed", buyPrice: "150", sellPrice: "1000", fee: "60", applicable: "210", gain: "790", deemed: false},
		{name: "tie goes to fifo", buyPrice: "10", sellPrice: "50", fee: "0", applicable: "10", gain: "40", deemed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Process(DefaultConfig(), []TradeEvent{
				buy(hours(0), "1", tt.buyPrice),
				sell(hours(1), "1", tt.sellPrice, tt.fee),
			})
			require.NoError(t, err)
			s := res[1].Sale
			require.NotNil(t, s)
			assertDec(t, tt.buyPrice, s.FIFOCost)
			assertDec(t, tt.applicable, s.ApplicableCost)
			assertDec(t, tt.gain, s.RealizedGain)
			assert.Equal(t, tt.deemed, s.DeemedApplied)
		})
	}
}

func TestDeemedCostUsesConfiguredRate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DeemedCostRate = d("0.4")

	res, err := Process(cfg, []TradeEvent{
		buy(hours(0), "2", "1"),
		sell(hours(1), "2", "100", "0"),
	})
	require.NoError(t, err)
	assertDec(t, "80", res[1].Sale.DeemedCost)
	assertDec(t, "120", res[1].Sale.RealizedGain)
}

func TestLongHoldRatePerLot(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LongHoldYears = 10

	old := time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	sold := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)

	res, err := Process(cfg, []TradeEvent{
		buy(old, "1", "1"),
		buy(recent, "1", "1"),
		sell(sold, "2", "100", "0"),
	})
	require.NoError(t, err)
	s := res[2].Sale
	// 100*0.40 for the lot held over ten years, 100*0.20 for the other.
	assertDec(t, "60", s.DeemedCost)
	assertDec(t, "60", s.ApplicableCost)
	assertDec(t, "140", s.RealizedGain)
	assert.True(t, s.DeemedApplied)
}

func TestOversellDetection(t *testing.T) {
	_, err := Process(DefaultConfig(), []TradeEvent{
		sell(hours(0), "5", "10", "0"),
	})
	require.Error(t, err)

	var lotsErr *InsufficientLotsError
	require.True(t, errors.As(err, &lotsErr))
	assertDec(t, "5", lotsErr.Residual)
	assert.Equal(t, "BTC", lotsErr.Asset)
	assert.Contains(t, err.Error(), "5 unmatched")
}

func TestOversellLeavesQueueIntact(t *testing.T) {
	e := NewEngine(DefaultConfig())
	_, err := e.Apply(buy(hours(0), "1", "10"))
	require.NoError(t, err)
	_, err = e.Apply(buy(hours(1), "0.5", "20"))
	require.NoError(t, err)

	_, err = e.Apply(sell(hours(2), "2", "30", "0"))
	var lotsErr *InsufficientLotsError
	require.True(t, errors.As(err, &lotsErr))
	assertDec(t, "0.5", lotsErr.Residual)

	lots := e.OpenLots()
	require.Len(t, lots, 2)
	assertDec(t, "1", lots[0].Remaining)
	assertDec(t, "0.5", lots[1].Remaining)
	assertDec(t, "1.5", e.Balance())

	// The engine keeps working after the rejected sell.
	r, err := e.Apply(sell(hours(3), "1.5", "30", "0"))
	require.NoError(t, err)
	assertDec(t, "20", r.Sale.FIFOCost)
	assert.Empty(t, e.OpenLots())
}

func TestZeroQuantitySell(t *testing.T) {
	e := NewEngine(DefaultConfig())
	_, err := e.Apply(buy(hours(0), "2", "10"))
	require.NoError(t, err)

	r, err := e.Apply(sell(hours(1), "0", "50", "0"))
	require.NoError(t, err)
	require.NotNil(t, r.Sale)
	assertDec(t, "0", r.Sale.ApplicableCost)
	assertDec(t, "0", r.Sale.RealizedGain)
	assertDec(t, "2", r.RunningBalance)

	r, err = e.Apply(sell(hours(2), "0", "50", "1.5"))
	require.NoError(t, err)
	assertDec(t, "0", r.Sale.FIFOCost)
	assertDec(t, "1.5", r.Sale.ApplicableCost)
	assertDec(t, "-1.5", r.Sale.RealizedGain)
	assert.False(t, r.Sale.DeemedApplied)

	lots := e.OpenLots()
	require.Len(t, lots, 1)
	assertDec(t, "2", lots[0].Remaining)
}

func TestInvalidEvents(t *testing.T) {
	tests := []struct {
		name   string
		events []TradeEvent
		reason string
	}{
		{
			name:   "zero buy",
			events: []TradeEvent{buy(hours(0), "0", "10")},
			reason: "buy quantity must be positive",
		},
		{
			name:   "negative sell",
			events: []TradeEvent{buy(hours(0), "1", "10"), sell(hours(1), "-1", "10", "0")},
			reason: "sell quantity must not be negative",
		},
		{
			name:   "negative price",
			events: []TradeEvent{buy(hours(0), "1", "-10")},
			reason: "unit price must not be negative",
		},
		{
			name:   "negative fee",
			events: []TradeEvent{buy(hours(0), "1", "10"), sell(hours(1), "1", "10", "-0.1")},
			reason: "fee must not be negative",
		},
		{
			name:   "time goes backwards",
			events: []TradeEvent{buy(hours(5), "1", "10"), buy(hours(4), "1", "10")},
			reason: "timestamp before previous event",
		},
		{
			name:   "missing direction",
			events: []TradeEvent{{Time: hours(0), Quantity: d("1")}},
			reason: "unknown direction",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Process(DefaultConfig(), tt.events)
			var invalid *InvalidEventError
			require.True(t, errors.As(err, &invalid), "got %v", err)
			assert.Contains(t, invalid.Reason, tt.reason)
			assert.Equal(t, len(tt.events)-1, invalid.Index)
		})
	}
}

func TestInvalidEventLeavesStateUntouched(t *testing.T) {
	e := NewEngine(DefaultConfig())
	_, err := e.Apply(buy(hours(2), "1", "10"))
	require.NoError(t, err)

	_, err = e.Apply(buy(hours(1), "1", "10"))
	require.Error(t, err)
	assert.Len(t, e.OpenLots(), 1)
	assertDec(t, "1", e.Balance())
}

func TestConservation(t *testing.T) {
	events := []TradeEvent{
		buy(hours(0), "0.5", "20000"),
		buy(hours(1), "0.25", "21000"),
		sell(hours(2), "0.3", "25000", "1.5"),
		buy(hours(3), "1.125", "19000"),
		sell(hours(4), "0.7", "26000", "2"),
		sell(hours(5), "0.01", "30000", "0.1"),
	}
	e := NewEngine(DefaultConfig())
	var last TaxLotResult
	for _, ev := range events {
		var err error
		last, err = e.Apply(ev)
		require.NoError(t, err)
	}

	net := decimal.Zero
	for _, ev := range events {
		if ev.Direction == Buy {
			net = net.Add(ev.Quantity)
		} else {
			net = net.Sub(ev.Quantity)
		}
	}
	open := decimal.Zero
	for _, l := range e.OpenLots() {
		open = open.Add(l.Remaining)
	}

	assertDec(t, net.String(), last.RunningBalance)
	assertDec(t, net.String(), open)
	assertDec(t, "0.865", open)
}

func TestProcessIsIdempotent(t *testing.T) {
	events := []TradeEvent{
		buy(hours(0), "1.23456789", "31234.56"),
		buy(hours(1), "0.1", "29999.99"),
		sell(hours(2), "1.3", "35000.01", "12.34"),
	}
	first, err := Process(DefaultConfig(), events)
	require.NoError(t, err)
	second, err := Process(DefaultConfig(), events)
	require.NoError(t, err)

	assert.Equal(t, dump(first), dump(second))
}

func TestDirectionParse(t *testing.T) {
	for in, want := range map[string]Direction{"buy": Buy, "SELL": Sell, "Osto": Buy, "myynti": Sell} {
		got, err := ParseDirection(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseDirection("deposit")
	assert.Error(t, err)
	assert.Equal(t, "sell", Sell.String())
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.DeemedCostRate = d("1.2")
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.LongHoldYears = 10
	cfg.LongHoldRate = d("-0.1")
	assert.Error(t, cfg.Validate())
}

func dump(results []TaxLotResult) string {
	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "%s|%s|%s|%s|%s|%s|%s", r.Time.Format(time.RFC3339Nano), r.Direction,
			r.Quantity, r.UnitPrice, r.TotalCost, r.Fee, r.RunningBalance)
		if r.Sale != nil {
			fmt.Fprintf(&b, "|%s|%s|%s|%s|%t", r.Sale.FIFOCost, r.Sale.DeemedCost,
				r.Sale.ApplicableCost, r.Sale.RealizedGain, r.Sale.DeemedApplied)
		}
		b.WriteString("\n")
	}
	return b.String()
}
