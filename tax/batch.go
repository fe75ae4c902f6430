package tax

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
)

// AssetReport is the outcome of one asset's run in ProcessAll.
type AssetReport struct {
	Asset   string
	Results []TaxLotResult
	Err     error
}

// ProcessAll runs one independent engine per asset, at most workers at a
// time (unbounded when workers <= 0). A failing asset does not affect the
// others. Reports come back sorted by asset.
func ProcessAll(ctx context.Context, cfg Config, events map[string][]TradeEvent, workers int) []AssetReport {
	assets := make([]string, 0, len(events))
	for a := range events {
		assets = append(assets, a)
	}
	sort.Strings(assets)

	reports := make([]AssetReport, len(assets))
	var g errgroup.Group
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, asset := range assets {
		i, asset := i, asset
		reports[i].Asset = asset
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				reports[i].Err = err
				return nil
			}
			reports[i].Results, reports[i].Err = Process(cfg, events[asset])
			return nil
		})
	}
	_ = g.Wait()
	return reports
}
