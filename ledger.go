package match

import "sync"

// TradeLedger is the append-only record of completed trades. Trades are
// created only by the matching loop and are never mutated or deleted.
type TradeLedger struct {
	mu     sync.RWMutex
	trades []*Trade
}

// NewTradeLedger creates an empty trade ledger.
func NewTradeLedger() *TradeLedger {
	return &TradeLedger{
		trades: make([]*Trade, 0),
	}
}

// Append records trades in arrival order.
func (l *TradeLedger) Append(trades ...*Trade) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.trades = append(l.trades, trades...)
}

// Count returns the number of trades recorded.
func (l *TradeLedger) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.trades)
}

// Get returns the trade at the specified index.
func (l *TradeLedger) Get(index int) *Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.trades[index]
}

// Snapshot returns a copy of the full ledger, unfiltered and unpaginated.
func (l *TradeLedger) Snapshot() []*Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()

	trades := make([]*Trade, len(l.trades))
	copy(trades, l.trades)
	return trades
}
