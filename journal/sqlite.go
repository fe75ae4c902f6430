package journal

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rustyeddy/laskuri/tax"
	"github.com/shopspring/decimal"
)

type SQLite struct {
	db *sql.DB
}

var _ Journal = (*SQLite)(nil)

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// RecordRun stores a run and its rows in one transaction.
func (j *SQLite) RecordRun(ctx context.Context, run Run, results []tax.TaxLotResult) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(run_id, created, asset, source, deemed_rate, events, sells, proceeds, realized_gain, final_balance, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Created, run.Asset, run.Source, run.DeemedRate,
		run.Events, run.Sells, run.Proceeds, run.RealizedGain, run.FinalBalance,
		run.Status, run.Error,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.RunID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO results
		(run_id, seq, time, direction, quantity, unit_price, total_cost, fee, running_balance,
		 fifo_cost, deemed_cost, applicable_cost, realized_gain, deemed_applied)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, r := range results {
		var fifo, deemed, applicable, gain decimal.NullDecimal
		var applied bool
		if r.Sale != nil {
			fifo = decimal.NewNullDecimal(r.Sale.FIFOCost)
			deemed = decimal.NewNullDecimal(r.Sale.DeemedCost)
			applicable = decimal.NewNullDecimal(r.Sale.ApplicableCost)
			gain = decimal.NewNullDecimal(r.Sale.RealizedGain)
			applied = r.Sale.DeemedApplied
		}
		_, err := stmt.ExecContext(ctx,
			run.RunID, i, r.Time, r.Direction.String(),
			r.Quantity, r.UnitPrice, r.TotalCost, r.Fee, r.RunningBalance,
			fifo, deemed, applicable, gain, applied,
		)
		if err != nil {
			return fmt.Errorf("insert result %d of run %s: %w", i, run.RunID, err)
		}
	}

	return tx.Commit()
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
