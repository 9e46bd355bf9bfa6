package match

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventTypeOpen   EventType = "open"
	EventTypeMatch  EventType = "match"
	EventTypeCancel EventType = "cancel"
)

// BookEvent represents a state change in the order book.
// Seq is a monotonically increasing ID for every event, used for ordering,
// deduplication, and rebuild synchronization in downstream systems.
type BookEvent struct {
	Seq          uint64          `json:"seq"`
	Type         EventType       `json:"type"`
	Side         Side            `json:"side"`
	Price        decimal.Decimal `json:"price"`
	Size         decimal.Decimal `json:"size"`
	OrderID      string          `json:"order_id"`
	UserID       string          `json:"user_id"`
	OrderType    OrderType       `json:"order_type,omitempty"`
	TradeID      string          `json:"trade_id,omitempty"`       // Only set for match events
	MakerOrderID string          `json:"maker_order_id,omitempty"` // Only set for match events
	MakerUserID  string          `json:"maker_user_id,omitempty"`  // Only set for match events
	CreatedAt    time.Time       `json:"created_at"`
}

var bookEventPool = sync.Pool{
	New: func() any {
		return new(BookEvent)
	},
}

func acquireBookEvent() *BookEvent {
	return bookEventPool.Get().(*BookEvent)
}

func releaseBookEvent(event *BookEvent) {
	// Reset structure to zero values.
	// For decimal.Decimal, the zero value (nil internal pointer) represents 0, which is valid.
	*event = BookEvent{}
	bookEventPool.Put(event)
}

func newOpenEvent(seq uint64, order *Order, now time.Time) *BookEvent {
	event := acquireBookEvent()
	event.Seq = seq
	event.Type = EventTypeOpen
	event.Side = order.Side
	event.Price = order.Price
	event.Size = order.Remaining()
	event.OrderID = order.ID
	event.UserID = order.UserID
	event.OrderType = order.Type
	event.CreatedAt = now
	return event
}

func newMatchEvent(seq uint64, taker *Order, maker *Order, trade *Trade, now time.Time) *BookEvent {
	event := acquireBookEvent()
	event.Seq = seq
	event.Type = EventTypeMatch
	event.Side = taker.Side
	event.Price = trade.Price
	event.Size = trade.Quantity
	event.OrderID = taker.ID
	event.UserID = taker.UserID
	event.OrderType = taker.Type
	event.TradeID = trade.ID
	event.MakerOrderID = maker.ID
	event.MakerUserID = maker.UserID
	event.CreatedAt = now
	return event
}

func newCancelEvent(seq uint64, order *Order, now time.Time) *BookEvent {
	event := acquireBookEvent()
	event.Seq = seq
	event.Type = EventTypeCancel
	event.Side = order.Side
	event.Price = order.Price
	event.Size = order.Remaining()
	event.OrderID = order.ID
	event.UserID = order.UserID
	event.OrderType = order.Type
	event.CreatedAt = now
	return event
}

// DepthChange represents a change in the order book depth.
type DepthChange struct {
	Side     Side
	Price    decimal.Decimal
	SizeDiff decimal.Decimal
}

// ComputeDepthChange maps a book event to the depth delta it implies.
// Note: for match events, the side returned is the maker's side (opposite of
// the event's taker side), since a match removes liquidity from the maker.
func ComputeDepthChange(event *BookEvent) DepthChange {
	switch event.Type {
	case EventTypeOpen:
		return DepthChange{
			Side:     event.Side,
			Price:    event.Price,
			SizeDiff: event.Size,
		}
	case EventTypeCancel:
		return DepthChange{
			Side:     event.Side,
			Price:    event.Price,
			SizeDiff: event.Size.Neg(),
		}
	case EventTypeMatch:
		return DepthChange{
			Side:     event.Side.Opposite(),
			Price:    event.Price,
			SizeDiff: event.Size.Neg(),
		}
	}

	return DepthChange{}
}
