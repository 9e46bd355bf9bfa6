// Package protocol defines the wire types exchanged with the matching core.
// Decimal fields travel as strings to prevent precision loss in JSON.
package protocol

// Side is the order side on the wire.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderType is the order type on the wire.
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

// CreateOrderRequest is the payload for placing a new order.
type CreateOrderRequest struct {
	Side      Side      `json:"side"`
	OrderType OrderType `json:"order_type"`
	Price     string    `json:"price"`
	Quantity  string    `json:"quantity"`
	UserID    string    `json:"user_id"`
}

// CreateOrderResponse reports the matching outcome for a create request.
// AveragePrice echoes the limit price for limit orders and is "0" for
// market orders; it is not a fill-weighted average.
type CreateOrderResponse struct {
	OrderID      string `json:"order_id"`
	Filled       string `json:"filled_quantity"`
	Remaining    string `json:"remaining_quantity"`
	AveragePrice string `json:"average_price"`
}

// DeleteOrderRequest is the payload for cancelling an existing order.
// UserID is carried for audit purposes; ownership is not enforced.
type DeleteOrderRequest struct {
	OrderID string `json:"order_id"`
	UserID  string `json:"user_id"`
}

// DepthLevel is one aggregated price level.
type DepthLevel struct {
	Price    string `json:"price"`
	Quantity string `json:"quantity"`
}

// GetDepthResponse is the aggregated order book depth. Bids are ordered by
// descending price, asks by ascending price.
type GetDepthResponse struct {
	UpdateID uint64       `json:"update_id"`
	Bids     []DepthLevel `json:"bids"`
	Asks     []DepthLevel `json:"asks"`
}

// TradeRecord is one completed trade in the ledger snapshot.
type TradeRecord struct {
	ID        string `json:"id"`
	Price     string `json:"price"`
	Quantity  string `json:"quantity"`
	BuyerID   string `json:"buyer_id"`
	SellerID  string `json:"seller_id"`
	Timestamp int64  `json:"timestamp"`
}

// ErrorResponse carries a protocol-level error message.
type ErrorResponse struct {
	Error string `json:"error"`
}
