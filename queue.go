package match

import (
	"github.com/huandu/skiplist"
	"github.com/shopspring/decimal"
)

// priceUnit holds all resting orders sharing one exact price on one side of
// the book. Orders form an intrusive FIFO list; head is the oldest order and
// therefore the matching priority within the level.
type priceUnit struct {
	price          decimal.Decimal
	totalRemaining decimal.Decimal
	head           *Order
	tail           *Order
	count          int64
}

// queue is one side of the order book: price levels kept sorted by a skip
// list (best price at the front), with a map from canonical price string to
// the skip list element and a map from order ID to the resting order.
//
// Prices are decimals, so the level map is keyed by decimal.Decimal.String()
// rather than the struct itself; equal prices always render to the same
// canonical string, which sidesteps the equality pitfalls of using a
// big.Int-backed value as a map key.
type queue struct {
	side        Side
	totalOrders int64
	depths      int64
	depthList   *skiplist.SkipList
	priceList   map[string]*skiplist.Element
	orders      map[string]*Order
}

// NewBuyerQueue creates a new queue for buy orders (bids).
// The orders are sorted by price in descending order (highest price first).
func NewBuyerQueue() *queue {
	return &queue{
		side: Buy,
		depthList: skiplist.New(skiplist.GreaterThanFunc(func(lhs, rhs any) int {
			d1, _ := lhs.(decimal.Decimal)
			d2, _ := rhs.(decimal.Decimal)
			return d2.Cmp(d1)
		})),
		priceList: make(map[string]*skiplist.Element),
		orders:    make(map[string]*Order),
	}
}

// NewSellerQueue creates a new queue for sell orders (asks).
// The orders are sorted by price in ascending order (lowest price first).
func NewSellerQueue() *queue {
	return &queue{
		side: Sell,
		depthList: skiplist.New(skiplist.GreaterThanFunc(func(lhs, rhs any) int {
			d1, _ := lhs.(decimal.Decimal)
			d2, _ := rhs.(decimal.Decimal)
			return d1.Cmp(d2)
		})),
		priceList: make(map[string]*skiplist.Element),
		orders:    make(map[string]*Order),
	}
}

// order finds a resting order by its ID.
func (q *queue) order(id string) *Order {
	return q.orders[id]
}

// insertOrder appends an order to the back of its price level's FIFO queue,
// creating the level if absent. Insertion order within a level is matching
// priority.
func (q *queue) insertOrder(order *Order) {
	key := order.Price.String()

	el, ok := q.priceList[key]
	if ok {
		unit, _ := el.Value.(*priceUnit)
		order.prev = unit.tail
		order.next = nil
		if unit.tail != nil {
			unit.tail.next = order
		}
		unit.tail = order
		if unit.head == nil {
			unit.head = order
		}

		unit.totalRemaining = unit.totalRemaining.Add(order.Remaining())
		unit.count++
	} else {
		unit := &priceUnit{
			price:          order.Price,
			totalRemaining: order.Remaining(),
			head:           order,
			tail:           order,
			count:          1,
		}
		order.next = nil
		order.prev = nil

		el := q.depthList.Set(order.Price, unit)
		q.priceList[key] = el
		q.depths++
	}

	q.orders[order.ID] = order
	q.totalOrders++
}

// removeOrder unlinks an order from its level's FIFO queue, preserving the
// relative order of the remainder, and drops the level once it is empty so
// no dangling empty levels survive.
func (q *queue) removeOrder(price decimal.Decimal, id string) {
	key := price.String()

	skipElement, ok := q.priceList[key]
	if !ok {
		return
	}
	unit, _ := skipElement.Value.(*priceUnit)

	order, ok := q.orders[id]
	if !ok {
		return
	}

	if order.prev != nil {
		order.prev.next = order.next
	} else {
		unit.head = order.next
	}

	if order.next != nil {
		order.next.prev = order.prev
	} else {
		unit.tail = order.prev
	}

	order.next = nil
	order.prev = nil

	unit.totalRemaining = unit.totalRemaining.Sub(order.Remaining())
	unit.count--
	delete(q.orders, id)
	q.totalOrders--

	if unit.count == 0 {
		q.depthList.RemoveElement(skipElement)
		delete(q.priceList, key)
		q.depths--
	}
}

// fillOrder increases the order's filled quantity in place and keeps the
// level's aggregate remaining in sync. The caller removes the order once its
// remaining quantity reaches zero.
func (q *queue) fillOrder(order *Order, qty decimal.Decimal) {
	order.Filled = order.Filled.Add(qty)

	if el, ok := q.priceList[order.Price.String()]; ok {
		unit, _ := el.Value.(*priceUnit)
		unit.totalRemaining = unit.totalRemaining.Sub(qty)
	}
}

// peekHeadOrder returns the order at the front of the queue (best price,
// earliest arrival) without removing it.
func (q *queue) peekHeadOrder() *Order {
	el := q.depthList.Front()
	if el == nil {
		return nil
	}

	unit, _ := el.Value.(*priceUnit)
	return unit.head
}

// popHeadOrder removes and returns the order at the front of the queue.
func (q *queue) popHeadOrder() *Order {
	ord := q.peekHeadOrder()

	if ord != nil {
		q.removeOrder(ord.Price, ord.ID)
	}

	return ord
}

// orderCount returns the total number of orders in the queue.
func (q *queue) orderCount() int64 {
	return q.totalOrders
}

// depthCount returns the number of price levels in the queue.
func (q *queue) depthCount() int64 {
	return q.depths
}

// depth returns one (price, total remaining) pair per level, best price
// first. Levels whose aggregate remaining is not positive are omitted.
// A limit of zero or less returns all levels.
func (q *queue) depth(limit int) []*DepthItem {
	result := make([]*DepthItem, 0, q.depths)

	el := q.depthList.Front()
	for el != nil {
		if limit > 0 && len(result) >= limit {
			break
		}

		unit, _ := el.Value.(*priceUnit)
		if unit.totalRemaining.IsPositive() {
			result = append(result, &DepthItem{
				Price: unit.price,
				Size:  unit.totalRemaining,
			})
		}

		el = el.Next()
	}

	return result
}
