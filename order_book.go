package match

import (
	"context"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/rs/xid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderBook is the aggregate root of the matching core. It owns the bid and
// ask queues, the order-id counter, and the trade ledger; all mutation
// passes through it.
//
// The book runs as a single-threaded actor: every request enters through
// cmdChan and is processed by the Start loop, so exactly one logical
// mutation is in flight at a time and readers never observe a
// partially-mutated state.
type OrderBook struct {
	isShutdown       atomic.Bool
	nextOrderID      uint64 // Owned by the loop goroutine
	seq              uint64 // Owned by the loop goroutine
	bidQueue         *queue
	askQueue         *queue
	ledger           *TradeLedger
	publisher        EventPublisher
	cmdChan          chan command
	done             chan struct{}
	shutdownComplete chan struct{}
}

type OrderBookOption func(*OrderBook)

// WithEventPublisher sets the publisher that receives book events.
func WithEventPublisher(p EventPublisher) OrderBookOption {
	return func(book *OrderBook) {
		book.publisher = p
	}
}

// NewOrderBook creates a new order book instance.
func NewOrderBook(opts ...OrderBookOption) *OrderBook {
	book := &OrderBook{
		bidQueue:         NewBuyerQueue(),
		askQueue:         NewSellerQueue(),
		ledger:           NewTradeLedger(),
		publisher:        NewDiscardEventPublisher(),
		cmdChan:          make(chan command, 32768),
		done:             make(chan struct{}),
		shutdownComplete: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(book)
	}

	return book
}

// CreateOrder submits an order and waits for the matching outcome.
// Returns ErrShutdown if the order book is shutting down.
func (book *OrderBook) CreateOrder(ctx context.Context, cmd *PlaceOrderCommand) (*PlaceOrderResult, error) {
	if book.isShutdown.Load() {
		return nil, ErrShutdown
	}

	if cmd == nil || (cmd.Type != Market && cmd.Type != Limit) || (cmd.Side != Buy && cmd.Side != Sell) {
		return nil, ErrInvalidParam
	}

	res, err := book.submit(ctx, command{Type: cmdPlaceOrder, Payload: cmd, Resp: make(chan any, 1)})
	if err != nil {
		return nil, err
	}

	result, ok := res.(*PlaceOrderResult)
	if !ok {
		return nil, ErrInternal
	}
	return result, nil
}

// CancelOrder submits a cancellation request and waits until it has been
// applied. A cancellation for an unknown ID completes as a no-op; the caller
// receives no structured success indicator. userID is accepted but not
// enforced against the resting order's owner.
func (book *OrderBook) CancelOrder(ctx context.Context, orderID string, userID string) error {
	if book.isShutdown.Load() {
		return ErrShutdown
	}

	if len(orderID) == 0 {
		return nil
	}

	_, err := book.submit(ctx, command{Type: cmdCancelOrder, Payload: &cancelRequest{OrderID: orderID, UserID: userID}, Resp: make(chan any, 1)})
	return err
}

// Depth returns a consistent snapshot of the aggregated order book depth.
// A limit of zero or less returns all price levels.
func (book *OrderBook) Depth(ctx context.Context, limit int) (*Depth, error) {
	if book.isShutdown.Load() {
		return nil, ErrShutdown
	}

	res, err := book.submit(ctx, command{Type: cmdDepth, Payload: limit, Resp: make(chan any, 1)})
	if err != nil {
		return nil, err
	}

	result, ok := res.(*Depth)
	if !ok {
		return nil, ErrInternal
	}
	return result, nil
}

// Trades returns a snapshot of the full trade ledger in execution order.
// The snapshot is taken by the book loop between commands, so it never
// exposes a prefix of the trades produced by an in-flight match sweep.
func (book *OrderBook) Trades(ctx context.Context) ([]*Trade, error) {
	if book.isShutdown.Load() {
		return nil, ErrShutdown
	}

	res, err := book.submit(ctx, command{Type: cmdTrades, Resp: make(chan any, 1)})
	if err != nil {
		return nil, err
	}

	trades, ok := res.([]*Trade)
	if !ok {
		return nil, ErrInternal
	}
	return trades, nil
}

// Stats returns usage statistics for the order book.
func (book *OrderBook) Stats(ctx context.Context) (*BookStats, error) {
	if book.isShutdown.Load() {
		return nil, ErrShutdown
	}

	res, err := book.submit(ctx, command{Type: cmdStats, Resp: make(chan any, 1)})
	if err != nil {
		return nil, err
	}

	result, ok := res.(*BookStats)
	if !ok {
		return nil, ErrInternal
	}
	return result, nil
}

// submit enqueues a command and waits for the loop's answer. A command that
// races with shutdown is still answered by drain; once drain has finished,
// the closed shutdownComplete channel breaks both waits so callers can never
// block on a channel nobody serves anymore. Because drain completes before
// shutdownComplete closes, a command that made it into the channel always
// has its response buffered by then, hence the final non-blocking read.
func (book *OrderBook) submit(ctx context.Context, cmd command) (any, error) {
	select {
	case book.cmdChan <- cmd:
	case <-book.shutdownComplete:
		return nil, ErrShutdown
	case <-ctx.Done():
		return nil, ErrTimeout
	}

	select {
	case res := <-cmd.Resp:
		return res, nil
	case <-book.shutdownComplete:
		select {
		case res := <-cmd.Resp:
			return res, nil
		default:
			return nil, ErrShutdown
		}
	case <-ctx.Done():
		return nil, ErrTimeout
	}
}

// Start runs the order book loop to process orders, cancellations, and
// depth requests. Returns nil when Shutdown() is called and all pending
// commands are drained.
func (book *OrderBook) Start() error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for {
		select {
		case <-book.done:
			return book.drain()
		case cmd := <-book.cmdChan:
			book.handleCommand(cmd)
		}
	}
}

// Shutdown signals the order book to stop accepting new orders and waits
// for all pending commands to be processed. Returns nil if shutdown
// completed, or ctx.Err() if the context was cancelled first.
func (book *OrderBook) Shutdown(ctx context.Context) error {
	if book.isShutdown.CompareAndSwap(false, true) {
		close(book.done)
	}

	select {
	case <-book.shutdownComplete:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// drain processes all remaining commands in the channel before returning.
// Callers blocked on a response channel are still answered.
func (book *OrderBook) drain() error {
	defer close(book.shutdownComplete)

	for {
		select {
		case cmd := <-book.cmdChan:
			book.handleCommand(cmd)
		default:
			return nil
		}
	}
}

func (book *OrderBook) handleCommand(cmd command) {
	switch cmd.Type {
	case cmdPlaceOrder:
		if placeCmd, ok := cmd.Payload.(*PlaceOrderCommand); ok {
			result := book.placeOrder(placeCmd)
			respond(cmd.Resp, result)
		}
	case cmdCancelOrder:
		if req, ok := cmd.Payload.(*cancelRequest); ok {
			found := book.cancelOrder(req)
			respond(cmd.Resp, found)
		}
	case cmdDepth:
		if limit, ok := cmd.Payload.(int); ok {
			respond(cmd.Resp, book.depth(limit))
		}
	case cmdTrades:
		respond(cmd.Resp, book.ledger.Snapshot())
	case cmdStats:
		respond(cmd.Resp, &BookStats{
			AskDepthCount: book.askQueue.depthCount(),
			AskOrderCount: book.askQueue.orderCount(),
			BidDepthCount: book.bidQueue.depthCount(),
			BidOrderCount: book.bidQueue.orderCount(),
		})
	}
}

// respond sends without blocking; if no one is listening the result is dropped.
func respond(resp chan any, v any) {
	if resp == nil {
		return
	}
	select {
	case resp <- v:
	default:
	}
}

// placeOrder assigns the next order ID and dispatches by order type.
// The counter starts at 0 and is incremented on every create request
// regardless of order type or whether the order fully matches immediately;
// IDs are never reused.
func (book *OrderBook) placeOrder(cmd *PlaceOrderCommand) *PlaceOrderResult {
	orderID := strconv.FormatUint(book.nextOrderID, 10)
	book.nextOrderID++

	order := &Order{
		ID:        orderID,
		UserID:    cmd.UserID,
		Side:      cmd.Side,
		Type:      cmd.Type,
		Price:     cmd.Price,
		Quantity:  cmd.Quantity,
		Timestamp: time.Now().UnixNano(),
	}

	var filled decimal.Decimal
	var events []*BookEvent

	averagePrice := decimal.Zero
	switch order.Type {
	case Market:
		filled, events = book.handleMarketOrder(order)
	case Limit:
		filled, events = book.handleLimitOrder(order)
		averagePrice = order.Price
	}

	if len(events) > 0 {
		book.publisher.Publish(events...)
		for _, event := range events {
			releaseBookEvent(event)
		}
	}

	return &PlaceOrderResult{
		OrderID:      orderID,
		Filled:       filled,
		Remaining:    cmd.Quantity.Sub(filled),
		AveragePrice: averagePrice,
	}
}

// handleLimitOrder matches a limit order against eligible opposite levels
// (asks at or below the limit for a buy, bids at or above it for a sell),
// best price first and FIFO within a level. Whatever remains unfilled rests
// at the order's own price on its own side.
func (book *OrderBook) handleLimitOrder(order *Order) (decimal.Decimal, []*BookEvent) {
	var myQueue, targetQueue *queue
	if order.Side == Buy {
		myQueue = book.bidQueue
		targetQueue = book.askQueue
	} else {
		myQueue = book.askQueue
		targetQueue = book.bidQueue
	}

	filled := decimal.Zero
	events := make([]*BookEvent, 0, 8)
	now := time.Now().UTC()

	for order.Remaining().IsPositive() {
		maker := targetQueue.peekHeadOrder()
		if maker == nil {
			break
		}

		if order.Side == Buy && order.Price.LessThan(maker.Price) ||
			order.Side == Sell && order.Price.GreaterThan(maker.Price) {
			break
		}

		tradeQty := decimal.Min(order.Remaining(), maker.Remaining())
		trade := book.recordTrade(order, maker, tradeQty, now)
		events = append(events, newMatchEvent(book.nextSeq(), order, maker, trade, now))

		targetQueue.fillOrder(maker, tradeQty)
		order.Filled = order.Filled.Add(tradeQty)
		filled = filled.Add(tradeQty)

		if !maker.Remaining().IsPositive() {
			targetQueue.removeOrder(maker.Price, maker.ID)
		}
	}

	if order.Remaining().IsPositive() {
		myQueue.insertOrder(order)
		events = append(events, newOpenEvent(book.nextSeq(), order, now))
	}

	return filled, events
}

// handleMarketOrder sweeps the opposite side best price first until the
// requested quantity is filled or the book is exhausted. Trades always
// execute at the resting order's price. Market orders never rest: any
// unfilled remainder is discarded and reported back through the result's
// remaining quantity, not as an error.
func (book *OrderBook) handleMarketOrder(order *Order) (decimal.Decimal, []*BookEvent) {
	targetQueue := book.bidQueue
	if order.Side == Buy {
		targetQueue = book.askQueue
	}

	filled := decimal.Zero
	events := make([]*BookEvent, 0, 8)
	now := time.Now().UTC()

	for order.Remaining().IsPositive() {
		maker := targetQueue.peekHeadOrder()
		if maker == nil {
			break
		}

		tradeQty := decimal.Min(order.Remaining(), maker.Remaining())
		trade := book.recordTrade(order, maker, tradeQty, now)
		events = append(events, newMatchEvent(book.nextSeq(), order, maker, trade, now))

		targetQueue.fillOrder(maker, tradeQty)
		order.Filled = order.Filled.Add(tradeQty)
		filled = filled.Add(tradeQty)

		if !maker.Remaining().IsPositive() {
			targetQueue.removeOrder(maker.Price, maker.ID)
		}
	}

	if remainder := order.Remaining(); remainder.IsPositive() {
		logger.Debug("market order remainder discarded",
			zap.String("order_id", order.ID),
			zap.String("side", order.Side.String()),
			zap.String("remaining", remainder.String()))
	}

	return filled, events
}

// cancelOrder removes the order with the given ID from whichever side holds
// it. Unknown IDs complete as a silent no-op. Ownership of the order by the
// requesting user is not verified.
func (book *OrderBook) cancelOrder(req *cancelRequest) bool {
	myQueue := book.askQueue
	order := myQueue.order(req.OrderID)
	if order == nil {
		myQueue = book.bidQueue
		order = myQueue.order(req.OrderID)
	}

	if order == nil {
		logger.Debug("cancel for unknown order", zap.String("order_id", req.OrderID))
		return false
	}

	now := time.Now().UTC()
	event := newCancelEvent(book.nextSeq(), order, now)
	myQueue.removeOrder(order.Price, order.ID)

	book.publisher.Publish(event)
	releaseBookEvent(event)

	return true
}

// depth returns the snapshot of the order book depth.
func (book *OrderBook) depth(limit int) *Depth {
	return &Depth{
		UpdateID: book.seq,
		Bids:     book.bidQueue.depth(limit),
		Asks:     book.askQueue.depth(limit),
		Time:     time.Now().UTC(),
	}
}

// recordTrade appends one trade per (maker, price) touch to the ledger.
// The trade executes at the resting order's price; the buyer and seller are
// derived from the taker's side.
func (book *OrderBook) recordTrade(taker *Order, maker *Order, qty decimal.Decimal, now time.Time) *Trade {
	buyerID, sellerID := taker.UserID, maker.UserID
	if taker.Side == Sell {
		buyerID, sellerID = maker.UserID, taker.UserID
	}

	trade := &Trade{
		ID:        xid.New().String(),
		Price:     maker.Price,
		Quantity:  qty,
		BuyerID:   buyerID,
		SellerID:  sellerID,
		Timestamp: now.UnixNano(),
	}

	book.ledger.Append(trade)

	logger.Debug("trade executed",
		zap.String("trade_id", trade.ID),
		zap.String("price", trade.Price.String()),
		zap.String("quantity", trade.Quantity.String()),
		zap.String("buyer_id", trade.BuyerID),
		zap.String("seller_id", trade.SellerID))

	return trade
}

func (book *OrderBook) nextSeq() uint64 {
	book.seq++
	return book.seq
}
