package orderbook

import "github.com/shopspring/decimal"

// PriceLevel holds the distinct orders resting at one price, keyed by order ID.
// Iteration order over the orders of a level is unspecified.
type PriceLevel struct {
	Price  decimal.Decimal
	orders map[string]int64
	size   int64 // sum of remaining sizes in orders
}

func newPriceLevel(price decimal.Decimal) *PriceLevel {
	return &PriceLevel{Price: price, orders: make(map[string]int64)}
}

// Size returns the aggregate remaining size of the level.
func (pl *PriceLevel) Size() int64 { return pl.size }

// Len returns the number of orders resting at the level.
func (pl *PriceLevel) Len() int { return len(pl.orders) }

// Remaining returns the remaining size of an order at this level.
func (pl *PriceLevel) Remaining(orderID string) (int64, bool) {
	size, ok := pl.orders[orderID]
	return size, ok
}

// add rests size for orderID. An ID already present at the level accumulates.
func (pl *PriceLevel) add(orderID string, size int64) {
	pl.orders[orderID] += size
	pl.size += size
}

// reduce takes amount off orderID. consumed is the part of amount the order
// could actually cover; removed reports that the order reached zero and left the level.
func (pl *PriceLevel) reduce(orderID string, amount int64) (consumed int64, removed, found bool) {
	remaining, ok := pl.orders[orderID]
	if !ok {
		return 0, false, false
	}
	consumed = min(amount, remaining)
	remaining -= amount
	if remaining <= 0 {
		delete(pl.orders, orderID)
		removed = true
	} else {
		pl.orders[orderID] = remaining
	}
	pl.size -= consumed
	return consumed, removed, true
}

func (pl *PriceLevel) empty() bool { return len(pl.orders) == 0 }
