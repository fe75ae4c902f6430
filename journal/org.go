package journal

import (
	"bytes"
	"context"
	"text/template"
	"time"

	"github.com/rustyeddy/laskuri/report"
	"github.com/rustyeddy/laskuri/tax"
	"github.com/shopspring/decimal"
)

var runOrgFuncs = template.FuncMap{
	"pct": func(d decimal.Decimal) string { return d.Shift(2).StringFixed(0) },
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
}

var runOrg = template.Must(template.New("run").Funcs(runOrgFuncs).Parse(RunOrgTemplate))

type runOrgData struct {
	Run
	Table string
}

// ExportRunOrg loads a run with its rows and returns the Org block.
func ExportRunOrg(ctx context.Context, j Journal, runID string) (string, error) {
	run, err := j.GetRun(ctx, runID)
	if err != nil {
		return "", err
	}
	results, err := j.ListResults(ctx, runID)
	if err != nil {
		return "", err
	}
	return FormatRunOrg(run, results)
}

func FormatRunOrg(run Run, results []tax.TaxLotResult) (string, error) {
	var buf bytes.Buffer
	err := runOrg.Execute(&buf, runOrgData{Run: run, Table: report.FormatOrgString(results, run.Asset)})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RunOrgTemplate nests the report table one heading level below the run.
const RunOrgTemplate = `* RUN: {{.Asset}} {{.RunID}}
:PROPERTIES:
:RUN_ID:      {{.RunID}}
:ASSET:       {{.Asset}}
:SOURCE:      {{if .Source}}{{.Source}}{{else}}(source?){{end}}
:DEEMED_PCT:  {{pct .DeemedRate}}
:EVENTS:      {{.Events}}
:SELLS:       {{.Sells}}
:PROCEEDS:    {{.Proceeds.StringFixed 2}}
:GAIN:        {{.RealizedGain.StringFixed 2}}
:BALANCE:     {{.FinalBalance.StringFixed 8}}
:STATUS:      {{.Status}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:
{{- if .Error }}

Error: {{.Error}}
{{- end }}

*{{.Table}}`
