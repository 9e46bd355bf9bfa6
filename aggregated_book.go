package match

import (
	"sync"

	"github.com/igrmk/treemap/v2"
	"github.com/shopspring/decimal"
)

// AggregatedBook maintains a simplified view of the order book, tracking
// only price levels and their aggregated remaining sizes (depth). It is
// designed for downstream consumers that rebuild depth from the BookEvent
// stream without touching the live book.
type AggregatedBook struct {
	mu  sync.RWMutex
	seq uint64 // Last applied event sequence, for gap detection and deduplication
	bid *treemap.TreeMap[decimal.Decimal, decimal.Decimal]
	ask *treemap.TreeMap[decimal.Decimal, decimal.Decimal]
}

// NewAggregatedBook creates a new AggregatedBook with empty bid and ask sides.
func NewAggregatedBook() *AggregatedBook {
	less := func(a, b decimal.Decimal) bool {
		return a.LessThan(b)
	}

	return &AggregatedBook{
		bid: treemap.NewWithKeyCompare[decimal.Decimal, decimal.Decimal](less),
		ask: treemap.NewWithKeyCompare[decimal.Decimal, decimal.Decimal](less),
	}
}

// Seq returns the last applied event sequence ID.
func (ab *AggregatedBook) Seq() uint64 {
	ab.mu.RLock()
	defer ab.mu.RUnlock()
	return ab.seq
}

// Replay applies a book event to the aggregated state. Events at or below
// the last applied sequence are skipped as duplicates; a jump past the next
// expected sequence returns ErrSequenceGap and leaves the state untouched.
func (ab *AggregatedBook) Replay(event *BookEvent) error {
	ab.mu.Lock()
	defer ab.mu.Unlock()

	if event.Seq <= ab.seq {
		return nil
	}
	if event.Seq != ab.seq+1 {
		return ErrSequenceGap
	}
	ab.seq = event.Seq

	change := ComputeDepthChange(event)
	if change.SizeDiff.IsZero() {
		return nil
	}

	side := ab.ask
	if change.Side == Buy {
		side = ab.bid
	}

	total, _ := side.Get(change.Price)
	total = total.Add(change.SizeDiff)

	if total.IsPositive() {
		side.Set(change.Price, total)
	} else {
		side.Del(change.Price)
	}

	return nil
}

// Reset clears both sides and rewinds the sequence to the given value.
// Call it before replaying from a fresh snapshot position.
func (ab *AggregatedBook) Reset(seq uint64) {
	ab.mu.Lock()
	defer ab.mu.Unlock()

	ab.seq = seq
	ab.bid.Clear()
	ab.ask.Clear()
}

// Level returns the aggregated remaining size at a specific price level for
// the given side, or zero if the level does not exist.
func (ab *AggregatedBook) Level(side Side, price decimal.Decimal) decimal.Decimal {
	ab.mu.RLock()
	defer ab.mu.RUnlock()

	tree := ab.ask
	if side == Buy {
		tree = ab.bid
	}

	total, ok := tree.Get(price)
	if !ok {
		return decimal.Zero
	}
	return total
}

// Bids returns the bid levels ordered by descending price (best bid first).
func (ab *AggregatedBook) Bids() []*DepthItem {
	ab.mu.RLock()
	defer ab.mu.RUnlock()

	result := make([]*DepthItem, 0, ab.bid.Len())
	for it := ab.bid.Reverse(); it.Valid(); it.Next() {
		result = append(result, &DepthItem{Price: it.Key(), Size: it.Value()})
	}
	return result
}

// Asks returns the ask levels ordered by ascending price (best ask first).
func (ab *AggregatedBook) Asks() []*DepthItem {
	ab.mu.RLock()
	defer ab.mu.RUnlock()

	result := make([]*DepthItem, 0, ab.ask.Len())
	for it := ab.ask.Iterator(); it.Valid(); it.Next() {
		result = append(result, &DepthItem{Price: it.Key(), Size: it.Value()})
	}
	return result
}
