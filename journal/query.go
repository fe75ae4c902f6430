package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rustyeddy/laskuri/tax"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned for an unknown run ID.
var ErrNotFound = errors.New("not found")

const runColumns = `run_id, created, asset, source, deemed_rate, events, sells, proceeds, realized_gain, final_balance, status, error`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (Run, error) {
	var r Run
	err := s.Scan(
		&r.RunID,
		&r.Created,
		&r.Asset,
		&r.Source,
		&r.DeemedRate,
		&r.Events,
		&r.Sells,
		&r.Proceeds,
		&r.RealizedGain,
		&r.FinalBalance,
		&r.Status,
		&r.Error,
	)
	return r, err
}

// GetRun returns a single run by ID.
func (j *SQLite) GetRun(ctx context.Context, runID string) (Run, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return Run{}, fmt.Errorf("run %q %w", runID, ErrNotFound)
		}
		return Run{}, err
	}
	return r, nil
}

// ListRuns returns every run, oldest first. Run IDs sort by creation time.
func (j *SQLite) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY run_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListResults returns the stored rows of a run in their original order.
func (j *SQLite) ListResults(ctx context.Context, runID string) ([]tax.TaxLotResult, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT time, direction, quantity, unit_price, total_cost, fee, running_balance,
		       fifo_cost, deemed_cost, applicable_cost, realized_gain, deemed_applied
		FROM results
		WHERE run_id = ?
		ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []tax.TaxLotResult
	for rows.Next() {
		var (
			r                              tax.TaxLotResult
			dir                            string
			fifo, deemed, applicable, gain decimal.NullDecimal
			applied                        bool
		)
		if err := rows.Scan(
			&r.Time,
			&dir,
			&r.Quantity,
			&r.UnitPrice,
			&r.TotalCost,
			&r.Fee,
			&r.RunningBalance,
			&fifo,
			&deemed,
			&applicable,
			&gain,
			&applied,
		); err != nil {
			return nil, err
		}
		if r.Direction, err = tax.ParseDirection(dir); err != nil {
			return nil, err
		}
		if fifo.Valid {
			r.Sale = &tax.SaleBasis{
				FIFOCost:       fifo.Decimal,
				DeemedCost:     deemed.Decimal,
				ApplicableCost: applicable.Decimal,
				RealizedGain:   gain.Decimal,
				DeemedApplied:  applied,
			}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
