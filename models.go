package match

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side int8

const (
	Buy  Side = 1
	Sell Side = 2
)

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

// Opposite returns the side an incoming order matches against.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

type OrderType string

const (
	Market OrderType = "market"
	Limit  OrderType = "limit"
)

// Order represents the state of a resting order in the order book.
// Identity fields are immutable after creation; Filled is mutated in place
// by every partial fill.
type Order struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Side      Side            `json:"side"`
	Type      OrderType       `json:"type"`
	Price     decimal.Decimal `json:"price"` // Limit price; meaningless for market orders, which never rest
	Quantity  decimal.Decimal `json:"quantity"`
	Filled    decimal.Decimal `json:"filled"`
	Timestamp int64           `json:"timestamp"` // Unix nano, creation time

	// Intrusive linked list pointers (ignored by JSON)
	next *Order
	prev *Order
}

// Remaining returns the unfilled quantity of the order.
func (o *Order) Remaining() decimal.Decimal {
	return o.Quantity.Sub(o.Filled)
}

// Trade is an immutable record of a single fill event. One incoming order
// may produce several trades against several resting orders and levels.
type Trade struct {
	ID        string          `json:"id"`
	Price     decimal.Decimal `json:"price"` // Always the resting order's price
	Quantity  decimal.Decimal `json:"quantity"`
	BuyerID   string          `json:"buyer_id"`
	SellerID  string          `json:"seller_id"`
	Timestamp int64           `json:"timestamp"` // Unix nano
}

// PlaceOrderCommand is the input for placing an order.
type PlaceOrderCommand struct {
	Side     Side            `json:"side"`
	Type     OrderType       `json:"type"`
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
	UserID   string          `json:"user_id"`
}

// PlaceOrderResult reports the outcome of a create-order request.
// AveragePrice mirrors the order's limit price for limit orders and is zero
// for market orders; it is not a volume-weighted average of realized fills.
type PlaceOrderResult struct {
	OrderID      string          `json:"order_id"`
	Filled       decimal.Decimal `json:"filled_quantity"`
	Remaining    decimal.Decimal `json:"remaining_quantity"`
	AveragePrice decimal.Decimal `json:"average_price"`
}

// DepthItem is the aggregated remaining quantity at one price level.
type DepthItem struct {
	Price decimal.Decimal `json:"price"`
	Size  decimal.Decimal `json:"size"`
}

// Depth is a point-in-time projection of the book into per-level remaining
// quantity. Bids are ordered by descending price, asks by ascending price.
type Depth struct {
	UpdateID uint64       `json:"update_id"`
	Bids     []*DepthItem `json:"bids"`
	Asks     []*DepthItem `json:"asks"`
	Time     time.Time    `json:"time"`
}

type commandType int

const (
	cmdPlaceOrder commandType = iota
	cmdCancelOrder
	cmdDepth
	cmdTrades
	cmdStats
)

// command is the unified carrier for requests entering the order book loop.
// Commands that need an answer carry a buffered Resp channel.
type command struct {
	Type    commandType
	Payload any
	Resp    chan any
}

type cancelRequest struct {
	OrderID string
	UserID  string
}

// BookStats contains usage statistics about the order book queues.
type BookStats struct {
	AskDepthCount int64
	AskOrderCount int64
	BidDepthCount int64
	BidOrderCount int64
}
