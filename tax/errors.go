package tax

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// InvalidEventError reports an event rejected before it touched the lot queue.
type InvalidEventError struct {
	Index  int
	Asset  string
	Time   time.Time
	Ref    string
	Reason string
}

func (e *InvalidEventError) Error() string {
	return fmt.Sprintf("invalid event #%d %s at %s%s: %s",
		e.Index, e.Asset, e.Time.UTC().Format(time.RFC3339), refSuffix(e.Ref), e.Reason)
}

// InsufficientLotsError reports a sell larger than the open lots can cover.
// Residual is the quantity left unmatched.
type InsufficientLotsError struct {
	Index    int
	Asset    string
	Time     time.Time
	Ref      string
	Quantity decimal.Decimal
	Residual decimal.Decimal
}

func (e *InsufficientLotsError) Error() string {
	return fmt.Sprintf("insufficient lots for sell #%d of %s %s at %s%s: %s unmatched",
		e.Index, e.Quantity.String(), e.Asset, e.Time.UTC().Format(time.RFC3339), refSuffix(e.Ref), e.Residual.String())
}

func refSuffix(ref string) string {
	if ref == "" {
		return ""
	}
	return " (ref " + ref + ")"
}
