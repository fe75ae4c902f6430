// Package journal keeps a history of report runs and their result rows.
package journal

import (
	"context"
	"time"

	"github.com/rustyeddy/laskuri/id"
	"github.com/rustyeddy/laskuri/tax"
	"github.com/shopspring/decimal"
)

const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Run mirrors the runs table: one engine pass over one asset.
type Run struct {
	RunID   string
	Created time.Time
	Asset   string
	Source  string

	DeemedRate decimal.Decimal

	Events       int
	Sells        int
	Proceeds     decimal.Decimal
	RealizedGain decimal.Decimal
	FinalBalance decimal.Decimal

	Status string
	Error  string
}

// NewRun builds a Run with a fresh ID from an engine outcome. A non-nil
// runErr marks the run failed.
func NewRun(asset, source string, cfg tax.Config, results []tax.TaxLotResult, runErr error) Run {
	s := tax.Summarize(results)
	r := Run{
		RunID:        id.New(),
		Created:      time.Now().UTC(),
		Asset:        asset,
		Source:       source,
		DeemedRate:   cfg.DeemedCostRate,
		Events:       s.Events,
		Sells:        s.Sells,
		Proceeds:     s.Proceeds,
		RealizedGain: s.RealizedGain,
		FinalBalance: s.FinalBalance,
		Status:       StatusOK,
	}
	if runErr != nil {
		r.Status = StatusFailed
		r.Error = runErr.Error()
	}
	return r
}

type Journal interface {
	RecordRun(ctx context.Context, run Run, results []tax.TaxLotResult) error
	GetRun(ctx context.Context, runID string) (Run, error)
	ListRuns(ctx context.Context) ([]Run, error)
	ListResults(ctx context.Context, runID string) ([]tax.TaxLotResult, error)
	Close() error
}
