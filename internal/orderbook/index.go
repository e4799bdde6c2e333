package orderbook

import "github.com/shopspring/decimal"

// Entry locates a resting order.
type Entry struct {
	Side  Side
	Price decimal.Decimal
}

// Index maps order IDs to where they rest, for constant-time resolution of
// reductions.
type Index struct {
	entries map[string]Entry
}

func NewIndex() *Index {
	return &Index{entries: make(map[string]Entry)}
}

// Insert records id if it is not already known. An existing entry is never
// overwritten; Insert reports whether id was added.
func (ix *Index) Insert(id string, side Side, price decimal.Decimal) bool {
	if _, ok := ix.entries[id]; ok {
		return false
	}
	ix.entries[id] = Entry{Side: side, Price: price}
	return true
}

func (ix *Index) Lookup(id string) (Entry, bool) {
	e, ok := ix.entries[id]
	return e, ok
}

func (ix *Index) Remove(id string) {
	delete(ix.entries, id)
}

func (ix *Index) Len() int { return len(ix.entries) }
