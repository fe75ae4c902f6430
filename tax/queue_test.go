package tax

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLotQueueWrapAndGrow(t *testing.T) {
	var q lotQueue
	for i := 1; i <= 8; i++ {
		q.push(Lot{Remaining: decimal.NewFromInt(int64(i))})
	}
	for i := 1; i <= 3; i++ {
		assert.Equal(t, int64(i), q.pop().Remaining.IntPart())
	}
	// Fill past the wrap point and force a grow.
	for i := 9; i <= 14; i++ {
		q.push(Lot{Remaining: decimal.NewFromInt(int64(i))})
	}
	require.Equal(t, 11, q.Len())

	snap := q.snapshot()
	for i, l := range snap {
		assert.Equal(t, int64(i+4), l.Remaining.IntPart())
	}
	for q.Len() > 0 {
		q.pop()
	}
	assert.Equal(t, 0, q.head)
}
