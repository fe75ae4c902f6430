package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/rustyeddy/laskuri/tax"
	"github.com/shopspring/decimal"
)

// Trade is one side of an exchange order, seen from Asset: a buy when
// Asset was received, a sell when it was spent. Price, Cost and Fee are
// in Quote.
type Trade struct {
	Ref       string
	Pair      string
	Time      time.Time
	Asset     string
	Quote     string
	Direction tax.Direction
	Volume    decimal.Decimal
	Price     decimal.Decimal
	Cost      decimal.Decimal
	Fee       decimal.Decimal
}

// PairingError explains why the ledger rows sharing a refid could not be
// turned into trades.
type PairingError struct {
	Ref    string
	Rows   int
	Reason string
}

func (e *PairingError) Error() string {
	return fmt.Sprintf("trade %s (%d rows): %s", e.Ref, e.Rows, e.Reason)
}

func isTradeType(t string) bool {
	return t == "trade" || t == "spend" || t == "receive"
}

// PairTrades groups trade rows by refid and tags each leg by role: the
// negative amount is what was spent, the positive amount what was
// received. Groups that do not have exactly one of each are returned as
// PairingErrors rather than guessed at. Trades come back ordered by time.
func PairTrades(entries []Entry, fiat []string) ([]Trade, []*PairingError) {
	var order []string
	groups := map[string][]Entry{}
	var skipped []*PairingError

	for _, e := range entries {
		if !isTradeType(e.Type) {
			continue
		}
		if e.RefID == "" {
			skipped = append(skipped, &PairingError{Ref: e.TxID, Rows: 1, Reason: "no refid"})
			continue
		}
		if _, ok := groups[e.RefID]; !ok {
			order = append(order, e.RefID)
		}
		groups[e.RefID] = append(groups[e.RefID], e)
	}

	var trades []Trade
	for _, ref := range order {
		ts, err := pairGroup(ref, groups[ref], fiat)
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		trades = append(trades, ts...)
	}

	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].Time.Before(trades[j].Time)
	})
	return trades, skipped
}

func pairGroup(ref string, rows []Entry, fiat []string) ([]Trade, *PairingError) {
	fail := func(format string, args ...interface{}) *PairingError {
		return &PairingError{Ref: ref, Rows: len(rows), Reason: fmt.Sprintf(format, args...)}
	}

	var spent, received []Entry
	for _, r := range rows {
		switch {
		case r.Amount.IsNegative():
			spent = append(spent, r)
		case r.Amount.IsPositive():
			received = append(received, r)
		}
	}
	if len(spent) != 1 || len(received) != 1 {
		return nil, fail("want one spent and one received leg, got %d spent and %d received", len(spent), len(received))
	}
	out, in := spent[0], received[0]
	outQty, inQty := out.Amount.Abs(), in.Amount

	outFiat, inFiat := IsFiat(out.Asset, fiat), IsFiat(in.Asset, fiat)
	switch {
	case outFiat && inFiat:
		return nil, fail("fiat conversion %s to %s", out.Asset, in.Asset)

	case outFiat:
		// Bought in.Asset with fiat.
		price := outQty.Div(inQty)
		return []Trade{{
			Ref:       ref,
			Pair:      in.Asset + "/" + out.Asset,
			Time:      in.Time,
			Asset:     in.Asset,
			Quote:     out.Asset,
			Direction: tax.Buy,
			Volume:    inQty,
			Price:     price,
			Cost:      outQty,
			Fee:       out.Fee.Add(in.Fee.Mul(price)),
		}}, nil

	case inFiat:
		// Sold out.Asset for fiat.
		price := inQty.Div(outQty)
		return []Trade{{
			Ref:       ref,
			Pair:      out.Asset + "/" + in.Asset,
			Time:      out.Time,
			Asset:     out.Asset,
			Quote:     in.Asset,
			Direction: tax.Sell,
			Volume:    outQty,
			Price:     price,
			Cost:      inQty,
			Fee:       in.Fee.Add(out.Fee.Mul(price)),
		}}, nil
	}

	// Crypto to crypto: a sale of one asset and a purchase of the other,
	// each leg keeping its own fee.
	sellPrice := inQty.Div(outQty)
	buyPrice := outQty.Div(inQty)
	pair := out.Asset + "/" + in.Asset
	return []Trade{
		{
			Ref:       ref,
			Pair:      pair,
			Time:      out.Time,
			Asset:     out.Asset,
			Quote:     in.Asset,
			Direction: tax.Sell,
			Volume:    outQty,
			Price:     sellPrice,
			Cost:      inQty,
			Fee:       out.Fee.Mul(sellPrice),
		},
		{
			Ref:       ref,
			Pair:      pair,
			Time:      in.Time,
			Asset:     in.Asset,
			Quote:     out.Asset,
			Direction: tax.Buy,
			Volume:    inQty,
			Price:     buyPrice,
			Cost:      outQty,
			Fee:       in.Fee.Mul(buyPrice),
		},
	}, nil
}

var tradesHeader = []string{"txid", "ordertxid", "pair", "time", "type", "ordertype", "price", "cost", "fee", "vol", "asset", "quote"}

// WriteTrades writes trades in the trades.csv layout.
func WriteTrades(w io.Writer, trades []Trade) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tradesHeader); err != nil {
		return err
	}
	for _, t := range trades {
		err := cw.Write([]string{
			t.Ref,
			t.Ref,
			t.Pair,
			t.Time.UTC().Format(timeLayout),
			t.Direction.String(),
			"limit",
			t.Price.String(),
			t.Cost.String(),
			t.Fee.String(),
			t.Volume.String(),
			t.Asset,
			t.Quote,
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadTrades reads back what WriteTrades wrote.
func ReadTrades(r io.Reader) ([]Trade, error) {
	cr := csv.NewReader(r)
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("trades: empty file")
	}
	idx := map[string]int{}
	for i, h := range rows[0] {
		idx[h] = i
	}
	for _, col := range tradesHeader {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("trades: %w %q", ErrMissingColumn, col)
		}
	}

	out := make([]Trade, 0, len(rows)-1)
	for n, row := range rows[1:] {
		line := n + 2
		t := Trade{
			Ref:   row[idx["ordertxid"]],
			Pair:  row[idx["pair"]],
			Asset: row[idx["asset"]],
			Quote: row[idx["quote"]],
		}
		if t.Time, err = parseTime(row[idx["time"]]); err != nil {
			return nil, fmt.Errorf("trades line %d: %w", line, err)
		}
		if t.Direction, err = tax.ParseDirection(row[idx["type"]]); err != nil {
			return nil, fmt.Errorf("trades line %d: %w", line, err)
		}
		for col, dst := range map[string]*decimal.Decimal{
			"price": &t.Price, "cost": &t.Cost, "fee": &t.Fee, "vol": &t.Volume,
		} {
			if *dst, err = parseAmount(row[idx[col]]); err != nil {
				return nil, fmt.Errorf("trades line %d %s: %w", line, col, err)
			}
		}
		out = append(out, t)
	}
	return out, nil
}
