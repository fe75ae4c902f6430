package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rustyeddy/laskuri/tax"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Converter returns the price of one unit of a currency pair's base in its
// quote currency at a point in time. fx.Client and fx.Static satisfy it.
type Converter interface {
	Rate(ctx context.Context, pair string, at time.Time) (decimal.Decimal, error)
}

// Events selects the trades of one asset and turns them into engine input,
// stably sorted by time. Trades quoted in anything but the reporting
// currency are valued through conv; conv may be nil when every trade is
// already in the reporting currency.
func Events(ctx context.Context, trades []Trade, asset string, conv Converter, reporting string) ([]tax.TradeEvent, error) {
	asset = NormalizeAsset(asset)
	reporting = strings.ToUpper(reporting)

	var out []tax.TradeEvent
	for _, t := range trades {
		if t.Asset != asset {
			continue
		}
		ev := tax.TradeEvent{
			Time:      t.Time,
			Asset:     t.Asset,
			Direction: t.Direction,
			Quantity:  t.Volume,
			UnitPrice: t.Price,
			TotalCost: t.Cost,
			Fee:       t.Fee,
			Ref:       t.Ref,
		}
		if q := strings.ToUpper(t.Quote); q != reporting {
			if conv == nil {
				return nil, fmt.Errorf("trade %s quoted in %s, no converter to %s", t.Ref, q, reporting)
			}
			r, err := conv.Rate(ctx, q+reporting, t.Time)
			if err != nil {
				return nil, fmt.Errorf("trade %s: %w", t.Ref, err)
			}
			ev.UnitPrice = ev.UnitPrice.Mul(r)
			ev.TotalCost = ev.TotalCost.Mul(r)
			ev.Fee = ev.Fee.Mul(r)
		}
		out = append(out, ev)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time.Before(out[j].Time)
	})
	return out, nil
}

// Assets lists the distinct non-fiat assets traded, sorted.
func Assets(trades []Trade, fiat []string) []string {
	assets := lo.Uniq(lo.FilterMap(trades, func(t Trade, _ int) (string, bool) {
		return t.Asset, !IsFiat(t.Asset, fiat)
	}))
	sort.Strings(assets)
	return assets
}

// Normalizer runs the ledger pipeline with a fixed fiat list, reporting
// currency and converter.
type Normalizer struct {
	Fiat      []string
	Reporting string
	Conv      Converter
	Log       *logrus.Entry
}

func (n *Normalizer) log() *logrus.Entry {
	if n.Log == nil {
		return logrus.NewEntry(logrus.StandardLogger()).WithField("component", "ledger")
	}
	return n.Log
}

func (n *Normalizer) fiat() []string {
	if len(n.Fiat) == 0 {
		return DefaultFiat
	}
	return n.Fiat
}

// Trades filters and pairs the ledger, logging every group it had to skip.
func (n *Normalizer) Trades(entries []Entry) []Trade {
	entries = FilterFiatWithdrawals(entries, n.fiat())
	trades, skipped := PairTrades(entries, n.fiat())
	for _, s := range skipped {
		n.log().WithFields(logrus.Fields{"refid": s.Ref, "rows": s.Rows}).Warn(s.Reason)
	}
	n.log().WithFields(logrus.Fields{"entries": len(entries), "trades": len(trades), "skipped": len(skipped)}).Info("paired ledger")
	return trades
}

// Events groups trades by asset into engine input. Only the given assets
// are converted; none means every non-fiat asset in trades. An asset whose
// trades cannot be valued in the reporting currency is left out of events
// and its error is returned in failed, keyed like events.
func (n *Normalizer) Events(ctx context.Context, trades []Trade, assets ...string) (events map[string][]tax.TradeEvent, failed map[string]error) {
	if len(assets) == 0 {
		assets = Assets(trades, n.fiat())
	}
	events = make(map[string][]tax.TradeEvent, len(assets))
	failed = make(map[string]error)
	for _, a := range assets {
		key := NormalizeAsset(a)
		evs, err := Events(ctx, trades, a, n.Conv, n.Reporting)
		if err != nil {
			n.log().WithField("asset", key).WithError(err).Warn("cannot value trades")
			failed[key] = err
			continue
		}
		if len(evs) == 0 {
			n.log().WithField("asset", a).Warn("no trades for asset")
			continue
		}
		events[key] = evs
	}
	return events, failed
}
