// Package depth estimates the notional value of immediately executing a
// fixed size against one side of the book.
package depth

import "github.com/shopspring/decimal"

// Levels is anything that can walk price levels best price first, such as
// *orderbook.SideBook.
type Levels interface {
	Scan(fn func(price decimal.Decimal, size int64) bool)
}

// Result is either a filled notional or InsufficientDepth.
type Result struct {
	notional decimal.Decimal
	filled   bool
}

// Filled returns a result carrying notional.
func Filled(notional decimal.Decimal) Result {
	return Result{notional: notional, filled: true}
}

// InsufficientDepth returns the result for a side that cannot cover the target.
func InsufficientDepth() Result { return Result{} }

// IsFilled reports whether the target was covered.
func (r Result) IsFilled() bool { return r.filled }

// Notional is the value of the fill. It is zero for InsufficientDepth.
func (r Result) Notional() decimal.Decimal { return r.notional }

func (r Result) String() string {
	if !r.filled {
		return "NA"
	}
	return r.notional.StringFixed(2)
}

// Compute walks levels best first and prices the first target units.
// Whole levels are consumed until the next one would reach target; that
// level contributes only the units still needed, at its own price. Which
// orders inside the terminal level supply those units does not matter, so
// the notional is independent of intra-level ordering.
func Compute(levels Levels, target int64) Result {
	if target <= 0 {
		return Filled(decimal.Zero)
	}
	var accumulated int64
	notional := decimal.Zero
	levels.Scan(func(price decimal.Decimal, size int64) bool {
		if accumulated+size < target {
			notional = notional.Add(price.Mul(decimal.NewFromInt(size)))
			accumulated += size
			return true
		}
		needed := target - accumulated
		notional = notional.Add(price.Mul(decimal.NewFromInt(needed)))
		accumulated = target
		return false
	})
	if accumulated < target {
		return InsufficientDepth()
	}
	return Filled(notional)
}
