// Package engine applies feed events to the order book and decides, per
// event, whether the affected side's output line changes.
//
// A side is "at target" while its running total is at least the configured
// target. New orders only trigger a recomputation at target, so a side that
// never reached target stays silent. A reduction that drops a side below
// target emits NA once if the line was showing a value.
package engine

import (
	"errors"

	"go.uber.org/zap"

	"github.com/Aidin1998/bookanalyzer/internal/depth"
	"github.com/Aidin1998/bookanalyzer/internal/emission"
	"github.com/Aidin1998/bookanalyzer/internal/feed"
	"github.com/Aidin1998/bookanalyzer/internal/orderbook"
	"github.com/Aidin1998/bookanalyzer/pkg/logger"
	"github.com/Aidin1998/bookanalyzer/pkg/metrics"
)

// Config holds the per-run engine parameters.
type Config struct {
	Target        int64
	ReductionMode orderbook.ReductionMode
}

// State is a snapshot of both sides of the book.
type State struct {
	Bid orderbook.SideStats
	Ask orderbook.SideStats
}

// Engine owns the book, the order index and one emission gate per line.
// It is not safe for concurrent use.
type Engine struct {
	cfg     Config
	book    *orderbook.OrderBook
	gates   map[orderbook.Side]*emission.Gate
	logger  *zap.Logger
	metrics *metrics.Replay
}

func New(cfg Config, log *zap.Logger, m *metrics.Replay) *Engine {
	return &Engine{
		cfg:  cfg,
		book: orderbook.NewOrderBook(cfg.ReductionMode),
		gates: map[orderbook.Side]*emission.Gate{
			orderbook.Bid: emission.NewGate(emission.LineFor(orderbook.Bid)),
			orderbook.Ask: emission.NewGate(emission.LineFor(orderbook.Ask)),
		},
		logger:  logger.OrNop(log),
		metrics: m,
	}
}

// Target returns the hypothetical trade size.
func (e *Engine) Target() int64 { return e.cfg.Target }

// Apply processes one event and returns the quote it produces, if any. An
// event only ever touches the line of the side it rests on.
func (e *Engine) Apply(ev feed.Event) (emission.Quote, bool) {
	e.metrics.ObserveEvent(ev.Kind.String())
	switch ev.Kind {
	case feed.KindAdd:
		return e.applyAdd(ev)
	case feed.KindReduce:
		return e.applyReduce(ev)
	default:
		e.logger.Debug("Ignoring unrecognized event type",
			zap.Int64("timestamp", ev.Timestamp), zap.String("type", ev.Type))
		e.metrics.ObserveIgnored(metrics.ReasonUnknownType)
		return emission.Quote{}, false
	}
}

func (e *Engine) applyAdd(ev feed.Event) (emission.Quote, bool) {
	if err := e.book.AddOrder(ev.OrderID, ev.Side, ev.Price, ev.Size); err != nil {
		reason := metrics.ReasonInvalidOrder
		if errors.Is(err, orderbook.ErrDuplicateOrder) {
			reason = metrics.ReasonDuplicateOrder
		}
		e.logger.Warn("Rejected new order",
			zap.Int64("timestamp", ev.Timestamp),
			zap.String("order_id", ev.OrderID),
			zap.Error(err))
		e.metrics.ObserveIgnored(reason)
		return emission.Quote{}, false
	}
	e.publishResting(ev.Side)
	if e.book.Side(ev.Side).Total() < e.cfg.Target {
		return emission.Quote{}, false
	}
	return e.recompute(ev.Timestamp, ev.Side)
}

func (e *Engine) applyReduce(ev feed.Event) (emission.Quote, bool) {
	red, err := e.book.ReduceOrder(ev.OrderID, ev.Size)
	if err != nil {
		reason := metrics.ReasonInvalidOrder
		if errors.Is(err, orderbook.ErrOrderNotFound) {
			reason = metrics.ReasonUnknownOrder
		}
		e.logger.Debug("Ignoring reduction",
			zap.Int64("timestamp", ev.Timestamp),
			zap.String("order_id", ev.OrderID),
			zap.Error(err))
		e.metrics.ObserveIgnored(reason)
		return emission.Quote{}, false
	}
	if red.Excess() > 0 {
		e.logger.Warn("Reduction exceeds remaining size",
			zap.Int64("timestamp", ev.Timestamp),
			zap.String("order_id", ev.OrderID),
			zap.Int64("requested", red.Requested),
			zap.Int64("remaining", red.Consumed),
			zap.Stringer("mode", e.cfg.ReductionMode))
		if e.cfg.ReductionMode == orderbook.ReductionClamped {
			e.metrics.ObserveClamp()
		}
	}
	e.publishResting(red.Side)
	if e.book.Side(red.Side).Total() >= e.cfg.Target {
		return e.recompute(ev.Timestamp, red.Side)
	}
	return e.emit(e.gates[red.Side].MaybeEmit(ev.Timestamp, depth.InsufficientDepth()))
}

func (e *Engine) recompute(ts int64, side orderbook.Side) (emission.Quote, bool) {
	res := depth.Compute(e.book.Side(side), e.cfg.Target)
	return e.emit(e.gates[side].MaybeEmit(ts, res))
}

func (e *Engine) emit(q emission.Quote, ok bool) (emission.Quote, bool) {
	if ok {
		e.metrics.ObserveEmission(string(q.Line), q.NA)
	}
	return q, ok
}

func (e *Engine) publishResting(side orderbook.Side) {
	st := e.book.Side(side).Stats()
	e.metrics.SetResting(side.String(), st.Orders, st.Total)
}

// State returns a snapshot of both sides.
func (e *Engine) State() State {
	return State{
		Bid: e.book.Side(orderbook.Bid).Stats(),
		Ask: e.book.Side(orderbook.Ask).Stats(),
	}
}
