package orderbook

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"
)

// Side identifies which half of the book an order rests on.
type Side int

const (
	Bid Side = iota
	Ask
)

func (s Side) String() string {
	switch s {
	case Bid:
		return "bid"
	case Ask:
		return "ask"
	default:
		return fmt.Sprintf("side(%d)", int(s))
	}
}

// Direction is the priority order in which a SideBook yields its levels.
type Direction int

const (
	// Descending yields the highest price first (bids).
	Descending Direction = iota
	// Ascending yields the lowest price first (asks).
	Ascending
)

// ReductionMode selects how a reduction larger than the order's remaining
// size is charged against the side's running total.
type ReductionMode int

const (
	// ReductionClamped charges min(amount, remaining).
	ReductionClamped ReductionMode = iota
	// ReductionRequested charges the full requested amount, even past what was resting.
	ReductionRequested
)

func (m ReductionMode) String() string {
	if m == ReductionRequested {
		return "requested"
	}
	return "clamped"
}

// ParseReductionMode maps a configuration value onto a ReductionMode.
func ParseReductionMode(s string) (ReductionMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "clamped":
		return ReductionClamped, nil
	case "requested":
		return ReductionRequested, nil
	default:
		return ReductionClamped, fmt.Errorf("unknown reduction mode %q", s)
	}
}

// Reduction describes the effect of one reduction on a resting order.
type Reduction struct {
	Side         Side
	Price        decimal.Decimal
	Requested    int64
	Consumed     int64
	Removed      bool // order reached zero and was dropped from its level
	LevelRemoved bool // the level emptied and was dropped from the book
}

// Excess is the part of the request the order could not cover.
func (r Reduction) Excess() int64 { return r.Requested - r.Consumed }

// SideStats is a point-in-time summary of a SideBook.
type SideStats struct {
	Levels int
	Orders int
	Total  int64
	Best   decimal.Decimal
	// HasBest is false when the side is empty and Best is meaningless.
	HasBest bool
}

// SideBook is one half of the order book: price levels kept in priority
// order plus a running total of resting size. Bids and asks share this type
// and differ only in the Direction given to NewSideBook.
type SideBook struct {
	levels *btree.BTreeG[*PriceLevel]
	mode   ReductionMode
	total  int64
	orders int
}

// NewSideBook creates an empty side whose Scan yields levels in dir order.
func NewSideBook(dir Direction, mode ReductionMode) *SideBook {
	less := func(a, b *PriceLevel) bool { return a.Price.LessThan(b.Price) }
	if dir == Descending {
		less = func(a, b *PriceLevel) bool { return a.Price.GreaterThan(b.Price) }
	}
	return &SideBook{
		levels: btree.NewBTreeGOptions(less, btree.Options{NoLocks: true}),
		mode:   mode,
	}
}

// Add rests size for orderID at price, creating the level if needed.
func (sb *SideBook) Add(orderID string, price decimal.Decimal, size int64) {
	level, ok := sb.levels.Get(&PriceLevel{Price: price})
	if !ok {
		level = newPriceLevel(price)
		sb.levels.Set(level)
	}
	if _, exists := level.orders[orderID]; !exists {
		sb.orders++
	}
	level.add(orderID, size)
	sb.total += size
}

// Reduce takes amount off orderID resting at price. The order leaves its
// level once its remaining size is zero or below, and an emptied level
// leaves the book. The bool result reports whether the order was found.
func (sb *SideBook) Reduce(price decimal.Decimal, orderID string, amount int64) (Reduction, bool) {
	level, ok := sb.levels.Get(&PriceLevel{Price: price})
	if !ok {
		return Reduction{}, false
	}
	consumed, removed, found := level.reduce(orderID, amount)
	if !found {
		return Reduction{}, false
	}
	red := Reduction{Price: price, Requested: amount, Consumed: consumed, Removed: removed}
	if sb.mode == ReductionRequested {
		sb.total -= amount
	} else {
		sb.total -= consumed
	}
	if removed {
		sb.orders--
	}
	if level.empty() {
		sb.levels.Delete(level)
		red.LevelRemoved = true
	}
	return red, true
}

// Total returns the running total of resting size.
func (sb *SideBook) Total() int64 { return sb.total }

// Depth returns the number of price levels.
func (sb *SideBook) Depth() int { return sb.levels.Len() }

// Level returns the level resting at price, if any.
func (sb *SideBook) Level(price decimal.Decimal) (*PriceLevel, bool) {
	return sb.levels.Get(&PriceLevel{Price: price})
}

// Scan visits levels best price first until fn returns false.
func (sb *SideBook) Scan(fn func(price decimal.Decimal, size int64) bool) {
	sb.levels.Scan(func(level *PriceLevel) bool {
		return fn(level.Price, level.size)
	})
}

// Stats summarizes the side.
func (sb *SideBook) Stats() SideStats {
	st := SideStats{Levels: sb.levels.Len(), Orders: sb.orders, Total: sb.total}
	if best, ok := sb.levels.Min(); ok {
		st.Best = best.Price
		st.HasBest = true
	}
	return st
}
