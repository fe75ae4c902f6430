package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rustyeddy/laskuri/journal"
	"github.com/rustyeddy/laskuri/ledger"
	"github.com/rustyeddy/laskuri/report"
	"github.com/rustyeddy/laskuri/tax"
	"github.com/sirupsen/logrus"
)

// pipeline runs normalized trades through the engine and writes one report
// per asset.
type pipeline struct {
	Tax      tax.Config
	Norm     *ledger.Normalizer
	Renderer report.Renderer
	Format   string
	OutDir   string
	Source   string
	Workers  int
	Strict   bool
	Journal  journal.Journal // optional
	Log      *logrus.Entry
}

// outcome is what happened to one asset.
type outcome struct {
	Asset   string
	Path    string
	RunID   string
	Summary tax.Summary
	Err     error
}

func (p *pipeline) run(ctx context.Context, trades []ledger.Trade, assets []string) ([]outcome, error) {
	events, unvalued := p.Norm.Events(ctx, trades, assets...)
	if len(events) == 0 && len(unvalued) == 0 {
		return nil, fmt.Errorf("no trades for %v", assets)
	}

	if err := os.MkdirAll(p.OutDir, 0o755); err != nil {
		return nil, err
	}

	reports := tax.ProcessAll(ctx, p.Tax, events, p.Workers)
	for asset, err := range unvalued {
		reports = append(reports, tax.AssetReport{Asset: asset, Err: err})
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].Asset < reports[j].Asset })

	out := make([]outcome, 0, len(reports))
	var failed int
	for _, ar := range reports {
		o := p.finish(ctx, ar)
		if o.Err != nil {
			failed++
			if p.Strict {
				return out, fmt.Errorf("%s: %w", o.Asset, o.Err)
			}
		}
		out = append(out, o)
	}
	if failed > 0 {
		p.Log.WithField("failed", failed).Warn("some assets could not be reported")
	}
	return out, nil
}

func (p *pipeline) finish(ctx context.Context, ar tax.AssetReport) outcome {
	log := p.Log.WithField("asset", ar.Asset)
	o := outcome{Asset: ar.Asset, Err: ar.Err}

	if o.Err == nil {
		o.Summary = tax.Summarize(ar.Results)
		o.Path = filepath.Join(p.OutDir, report.Filename(p.Format, ar.Asset))
		o.Err = p.write(o.Path, ar)
	}

	if p.Journal != nil {
		run := journal.NewRun(ar.Asset, p.Source, p.Tax, ar.Results, o.Err)
		if err := p.Journal.RecordRun(ctx, run, ar.Results); err != nil {
			log.WithError(err).Error("journal run")
		} else {
			o.RunID = run.RunID
			log = log.WithField("run_id", run.RunID)
		}
	}

	if o.Err != nil {
		log.WithError(o.Err).Error("asset failed")
		return o
	}
	log.WithFields(logrus.Fields{
		"events": o.Summary.Events,
		"sells":  o.Summary.Sells,
		"gain":   o.Summary.RealizedGain.StringFixed(2),
		"path":   o.Path,
	}).Info("wrote report")
	return o
}

func (p *pipeline) write(path string, ar tax.AssetReport) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := p.Renderer.Render(ar.Results, ar.Asset, f); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("render %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}
