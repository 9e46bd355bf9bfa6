package match

import (
	"strconv"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTradeLedgerAppendAndSnapshot(t *testing.T) {
	ledger := NewTradeLedger()
	assert.Equal(t, 0, ledger.Count())

	for i := 0; i < 3; i++ {
		ledger.Append(&Trade{
			ID:       strconv.Itoa(i),
			Price:    decimal.NewFromInt(100),
			Quantity: decimal.NewFromInt(int64(i + 1)),
		})
	}

	require.Equal(t, 3, ledger.Count())
	assert.Equal(t, "1", ledger.Get(1).ID)

	snapshot := ledger.Snapshot()
	require.Len(t, snapshot, 3)

	// The snapshot is decoupled from later appends.
	ledger.Append(&Trade{ID: "3"})
	assert.Len(t, snapshot, 3)
	assert.Equal(t, 4, ledger.Count())
}

func TestTradeLedgerConcurrentReads(t *testing.T) {
	ledger := NewTradeLedger()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if n%2 == 0 {
					ledger.Append(&Trade{ID: strconv.Itoa(n*100 + j)})
				} else {
					_ = ledger.Snapshot()
					_ = ledger.Count()
				}
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 400, ledger.Count())
}
