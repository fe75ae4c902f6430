// Package ledger turns exchange ledger exports into per-asset trade events.
package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/ulikunitz/xz"
)

// ErrMissingColumn is returned when a required ledger column is absent.
var ErrMissingColumn = errors.New("missing column")

// Entry is one row of a Kraken style ledger export.
type Entry struct {
	TxID    string
	RefID   string
	Time    time.Time
	Type    string
	Subtype string
	Class   string
	Asset   string
	Amount  decimal.Decimal
	Fee     decimal.Decimal
	Balance decimal.Decimal
}

var ledgerHeader = []string{"txid", "refid", "time", "type", "subtype", "aclass", "asset", "amount", "fee", "balance"}

const timeLayout = "2006-01-02 15:04:05.999999999"

var timeLayouts = []string{
	timeLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, l := range timeLayouts {
		if t, err := time.ParseInLocation(l, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse time %q", s)
}

func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// krakenAssets maps Kraken's legacy X/Z prefixed codes to common tickers.
var krakenAssets = map[string]string{
	"XXBT": "BTC", "XBT": "BTC",
	"XETH": "ETH",
	"XLTC": "LTC",
	"XXMR": "XMR",
	"XXRP": "XRP",
	"XXLM": "XLM",
	"XXDG": "DOGE", "XDG": "DOGE",
	"XETC": "ETC",
	"XZEC": "ZEC",
	"ZEUR": "EUR",
	"ZGBP": "GBP",
	"ZUSD": "USD",
	"ZCAD": "CAD",
	"ZJPY": "JPY",
}

// NormalizeAsset upper-cases a Kraken asset code and maps legacy names.
// Suffixes such as ".S" or ".HOLD" are kept, so staked balances stay
// separate assets.
func NormalizeAsset(a string) string {
	a = strings.ToUpper(strings.TrimSpace(a))
	base, suffix, found := strings.Cut(a, ".")
	if m, ok := krakenAssets[base]; ok {
		base = m
	}
	if found {
		return base + "." + suffix
	}
	return base
}

// Open opens a ledger file, decompressing it when the name ends in .xz.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(strings.ToLower(path), ".xz") {
		return f, nil
	}
	zr, err := xz.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("xz %s: %w", path, err)
	}
	return struct {
		io.Reader
		io.Closer
	}{zr, f}, nil
}

// ReadLedger parses a ledger CSV. Columns are located by header name;
// time, type, asset and amount are required.
func ReadLedger(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read ledger header: %w", err)
	}
	idx := map[string]int{}
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, col := range []string{"time", "type", "asset", "amount"} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("ledger: %w %q", ErrMissingColumn, col)
		}
	}

	get := func(row []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var out []Entry
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ledger line %d: %w", line, err)
		}

		e := Entry{
			TxID:    get(row, "txid"),
			RefID:   get(row, "refid"),
			Type:    strings.ToLower(get(row, "type")),
			Subtype: strings.ToLower(get(row, "subtype")),
			Class:   get(row, "aclass"),
			Asset:   NormalizeAsset(get(row, "asset")),
		}
		if e.Time, err = parseTime(get(row, "time")); err != nil {
			return nil, fmt.Errorf("ledger line %d: %w", line, err)
		}
		if e.Amount, err = parseAmount(get(row, "amount")); err != nil {
			return nil, fmt.Errorf("ledger line %d amount: %w", line, err)
		}
		if e.Fee, err = parseAmount(get(row, "fee")); err != nil {
			return nil, fmt.Errorf("ledger line %d fee: %w", line, err)
		}
		if e.Balance, err = parseAmount(get(row, "balance")); err != nil {
			return nil, fmt.Errorf("ledger line %d balance: %w", line, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// WriteLedger writes entries back out in the ledger column layout.
func WriteLedger(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ledgerHeader); err != nil {
		return err
	}
	for _, e := range entries {
		err := cw.Write([]string{
			e.TxID,
			e.RefID,
			e.Time.UTC().Format(timeLayout),
			e.Type,
			e.Subtype,
			e.Class,
			e.Asset,
			e.Amount.String(),
			e.Fee.String(),
			e.Balance.String(),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
