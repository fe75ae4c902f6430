package ledger

import (
	"strings"

	"github.com/samber/lo"
)

// DefaultFiat lists the currencies treated as fiat when none are configured.
var DefaultFiat = []string{"EUR", "GBP", "USD"}

// IsFiat reports whether asset is one of fiat. ".HOLD" balances count as
// their underlying currency.
func IsFiat(asset string, fiat []string) bool {
	base, _, _ := strings.Cut(NormalizeAsset(asset), ".")
	return lo.ContainsBy(fiat, func(f string) bool {
		return strings.EqualFold(f, base)
	})
}

// FilterFiatWithdrawals drops withdrawals of fiat currency; they carry no
// tax consequence and only clutter the ledger.
func FilterFiatWithdrawals(entries []Entry, fiat []string) []Entry {
	return lo.Reject(entries, func(e Entry, _ int) bool {
		return e.Type == "withdrawal" && IsFiat(e.Asset, fiat)
	})
}
