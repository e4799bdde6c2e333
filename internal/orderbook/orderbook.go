// Package orderbook keeps the resting liquidity of a single instrument as two
// price-ordered side books and an order index.
//
// The book only does aggregate size accounting: there is no matching and no
// time priority inside a level. It is owned by a single goroutine and takes
// no locks.
package orderbook

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrDuplicateOrder = errors.New("order already resting")
	ErrOrderNotFound  = errors.New("order not found")
	ErrInvalidSize    = errors.New("size must be positive")
	ErrInvalidSide    = errors.New("invalid side")
)

// OrderBook is the two-sided book plus the index used to resolve reductions.
type OrderBook struct {
	bids  *SideBook
	asks  *SideBook
	index *Index
}

// NewOrderBook creates an empty book. mode applies to both sides.
func NewOrderBook(mode ReductionMode) *OrderBook {
	return &OrderBook{
		bids:  NewSideBook(Descending, mode),
		asks:  NewSideBook(Ascending, mode),
		index: NewIndex(),
	}
}

// Side returns the side book for s.
func (ob *OrderBook) Side(s Side) *SideBook {
	if s == Bid {
		return ob.bids
	}
	return ob.asks
}

// AddOrder rests a new order. A second order with an ID that is still
// resting is rejected with ErrDuplicateOrder and leaves the book untouched.
func (ob *OrderBook) AddOrder(id string, side Side, price decimal.Decimal, size int64) error {
	if side != Bid && side != Ask {
		return fmt.Errorf("%w: %v", ErrInvalidSide, side)
	}
	if size <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	if !ob.index.Insert(id, side, price) {
		return fmt.Errorf("%w: %s", ErrDuplicateOrder, id)
	}
	ob.Side(side).Add(id, price, size)
	return nil
}

// ReduceOrder takes amount off a resting order. Once the order is exhausted
// it is dropped from its level and from the index, so later reductions for
// the same ID return ErrOrderNotFound.
func (ob *OrderBook) ReduceOrder(id string, amount int64) (Reduction, error) {
	if amount <= 0 {
		return Reduction{}, fmt.Errorf("%w: %d", ErrInvalidSize, amount)
	}
	entry, ok := ob.index.Lookup(id)
	if !ok {
		return Reduction{}, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	red, found := ob.Side(entry.Side).Reduce(entry.Price, id, amount)
	if !found {
		// The index pointed at a level that no longer holds the order.
		ob.index.Remove(id)
		return Reduction{}, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	red.Side = entry.Side
	if red.Removed {
		ob.index.Remove(id)
	}
	return red, nil
}

// Lookup resolves a resting order ID.
func (ob *OrderBook) Lookup(id string) (Entry, bool) {
	return ob.index.Lookup(id)
}

// OrdersCount returns the number of resting orders across both sides.
func (ob *OrderBook) OrdersCount() int {
	return ob.index.Len()
}
