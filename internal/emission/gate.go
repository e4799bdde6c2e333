// Package emission turns depth results into output quotes, suppressing
// repeats of the value last written for a line.
package emission

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Aidin1998/bookanalyzer/internal/depth"
	"github.com/Aidin1998/bookanalyzer/internal/orderbook"
)

// Line labels an output stream.
type Line string

const (
	// LineSell carries the proceeds of selling target units into the bids.
	LineSell Line = "S"
	// LineBuy carries the cost of buying target units from the asks.
	LineBuy Line = "B"
)

// LineFor returns the output line fed by side s: bids price a sale, asks a purchase.
func LineFor(s orderbook.Side) Line {
	if s == orderbook.Bid {
		return LineSell
	}
	return LineBuy
}

// Quote is one output record.
type Quote struct {
	Timestamp int64
	Line      Line
	Value     decimal.Decimal
	NA        bool
}

// FormatValue renders the value with two decimals, or NA.
func (q Quote) FormatValue() string {
	if q.NA {
		return "NA"
	}
	return q.Value.StringFixed(2)
}

func (q Quote) String() string {
	return fmt.Sprintf("%d %s %s", q.Timestamp, q.Line, q.FormatValue())
}

// Gate remembers what was last emitted on one line. It starts in the NA
// state with no prior value, so the first filled result always emits.
type Gate struct {
	line Line
	last decimal.Decimal
	na   bool
}

func NewGate(line Line) *Gate {
	return &Gate{line: line, na: true}
}

func (g *Gate) Line() Line { return g.line }

// NA reports whether the last state of the line is NA.
func (g *Gate) NA() bool { return g.na }

// MaybeEmit folds res into the gate and returns the quote to write, if any.
// NA is emitted only on the transition into NA. A filled value is emitted
// when it differs from the last one or when the line is coming out of NA.
func (g *Gate) MaybeEmit(ts int64, res depth.Result) (Quote, bool) {
	if !res.IsFilled() {
		if g.na {
			return Quote{}, false
		}
		g.na = true
		return Quote{Timestamp: ts, Line: g.line, NA: true}, true
	}
	n := res.Notional()
	if !g.na && n.Equal(g.last) {
		return Quote{}, false
	}
	g.last = n
	g.na = false
	return Quote{Timestamp: ts, Line: g.line, Value: n}, true
}
