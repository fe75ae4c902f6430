package journal

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rustyeddy/laskuri/tax"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2023, 3, 1, 12, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	j, err := NewSQLite(path)
	require.NoError(t, err)

	return j, path
}

func sampleResults(t *testing.T) []tax.TaxLotResult {
	t.Helper()
	mk := func(h int, dir tax.Direction, qty, price, fee string) tax.TradeEvent {
		q, p := d(qty), d(price)
		return tax.TradeEvent{
			Time: t0.Add(time.Duration(h) * time.Hour), Asset: "BTC", Direction: dir,
			Quantity: q, UnitPrice: p, TotalCost: q.Mul(p), Fee: d(fee),
		}
	}
	res, err := tax.Process(tax.DefaultConfig(), []tax.TradeEvent{
		mk(0, tax.Buy, "0.12345678", "100", "0"),
		mk(1, tax.Sell, "0.1", "1000", "0.25"),
	})
	require.NoError(t, err)
	return res
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	assert.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name IN ('runs','results')`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		assert.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	assert.NoError(t, rows.Err())

	assert.True(t, found["runs"])
	assert.True(t, found["results"])
}

func TestRecordAndGetRun(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	j, _ := newTestSQLite(t)
	defer j.Close()

	results := sampleResults(t)
	run := NewRun("BTC", "Kraken", tax.DefaultConfig(), results, nil)
	require.NoError(t, j.RecordRun(ctx, run, results))

	got, err := j.GetRun(ctx, run.RunID)
	require.NoError(t, err)
	assert.Equal(t, run.RunID, got.RunID)
	assert.Equal(t, "BTC", got.Asset)
	assert.Equal(t, "Kraken", got.Source)
	assert.Equal(t, StatusOK, got.Status)
	assert.Equal(t, "", got.Error)
	assert.Equal(t, 2, got.Events)
	assert.Equal(t, 1, got.Sells)
	assert.True(t, got.Created.Equal(run.Created), "created %s vs %s", got.Created, run.Created)
	assert.True(t, d("0.2").Equal(got.DeemedRate))
	assert.True(t, d("100").Equal(got.Proceeds))
	assert.True(t, d("0.02345678").Equal(got.FinalBalance))
	assert.True(t, run.RealizedGain.Equal(got.RealizedGain))

	stored, err := j.ListResults(ctx, run.RunID)
	require.NoError(t, err)
	require.Len(t, stored, len(results))

	for i := range results {
		want, have := results[i], stored[i]
		assert.True(t, want.Time.Equal(have.Time))
		assert.Equal(t, want.Direction, have.Direction)
		assert.True(t, want.Quantity.Equal(have.Quantity))
		assert.True(t, want.UnitPrice.Equal(have.UnitPrice))
		assert.True(t, want.Fee.Equal(have.Fee))
		assert.True(t, want.RunningBalance.Equal(have.RunningBalance))
	}
	assert.Nil(t, stored[0].Sale)
	require.NotNil(t, stored[1].Sale)
	assert.True(t, results[1].Sale.FIFOCost.Equal(stored[1].Sale.FIFOCost))
	assert.True(t, results[1].Sale.DeemedCost.Equal(stored[1].Sale.DeemedCost))
	assert.True(t, results[1].Sale.ApplicableCost.Equal(stored[1].Sale.ApplicableCost))
	assert.True(t, results[1].Sale.RealizedGain.Equal(stored[1].Sale.RealizedGain))
	assert.Equal(t, results[1].Sale.DeemedApplied, stored[1].Sale.DeemedApplied)
	assert.True(t, stored[1].Sale.DeemedApplied)
}

func TestGetRunNotFound(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	_, err := j.GetRun(context.Background(), "nonexistent")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "not found")
}

func TestListRunsOrdered(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	j, _ := newTestSQLite(t)
	defer j.Close()

	first := NewRun("BTC", "Kraken", tax.DefaultConfig(), sampleResults(t), nil)
	second := NewRun("ETH", "Kraken", tax.DefaultConfig(), nil, errors.New("insufficient lots"))
	require.NoError(t, j.RecordRun(ctx, second, nil))
	require.NoError(t, j.RecordRun(ctx, first, sampleResults(t)))

	runs, err := j.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, first.RunID, runs[0].RunID)
	assert.Equal(t, second.RunID, runs[1].RunID)
	assert.Equal(t, StatusFailed, runs[1].Status)
	assert.Equal(t, "insufficient lots", runs[1].Error)

	rows, err := j.ListResults(ctx, second.RunID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRecordRunDuplicateRollsBack(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	j, _ := newTestSQLite(t)
	defer j.Close()

	results := sampleResults(t)
	run := NewRun("BTC", "Kraken", tax.DefaultConfig(), results, nil)
	require.NoError(t, j.RecordRun(ctx, run, results))
	assert.Error(t, j.RecordRun(ctx, run, results))

	stored, err := j.ListResults(ctx, run.RunID)
	require.NoError(t, err)
	assert.Len(t, stored, len(results))
}

func TestExportRunOrg(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	j, _ := newTestSQLite(t)
	defer j.Close()

	results := sampleResults(t)
	run := NewRun("BTC", "Kraken", tax.DefaultConfig(), results, nil)
	require.NoError(t, j.RecordRun(ctx, run, results))

	out, err := ExportRunOrg(ctx, j, run.RunID)
	require.NoError(t, err)
	assert.Contains(t, out, "* RUN: BTC "+run.RunID+"\n")
	assert.Contains(t, out, ":DEEMED_PCT:  20\n")
	assert.Contains(t, out, ":PROCEEDS:    100.00\n")
	assert.Contains(t, out, ":STATUS:      ok\n")
	assert.Contains(t, out, "** BTC\n")
	assert.Contains(t, out, "| Myynti |")

	_, err = ExportRunOrg(ctx, j, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
