package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Replay holds the counters exported by a replay run. All methods are safe
// on a nil *Replay so components can run without metrics.
type Replay struct {
	events        *prometheus.CounterVec
	emissions     *prometheus.CounterVec
	ignored       *prometheus.CounterVec
	clamped       prometheus.Counter
	restingOrders *prometheus.GaugeVec
	restingSize   *prometheus.GaugeVec
}

// Ignored reasons
const (
	ReasonUnknownOrder    = "unknown_order"
	ReasonUnknownType     = "unknown_type"
	ReasonDuplicateOrder  = "duplicate_order"
	ReasonMalformedRecord = "malformed_record"
	ReasonInvalidOrder    = "invalid_order"
)

// NewReplay creates the replay collectors and registers them on reg.
func NewReplay(reg prometheus.Registerer) *Replay {
	m := &Replay{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookanalyzer_events_total",
				Help: "Total number of feed events applied, by type",
			},
			[]string{"type"},
		),
		emissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookanalyzer_emissions_total",
				Help: "Total number of output lines emitted, by line and kind",
			},
			[]string{"line", "kind"},
		),
		ignored: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookanalyzer_ignored_total",
				Help: "Total number of records that caused no book change, by reason",
			},
			[]string{"reason"},
		),
		clamped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bookanalyzer_clamped_reductions_total",
				Help: "Reductions that asked for more than the order had left",
			},
		),
		restingOrders: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bookanalyzer_resting_orders",
				Help: "Number of orders currently resting, by side",
			},
			[]string{"side"},
		),
		restingSize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bookanalyzer_resting_size",
				Help: "Running total of resting size, by side",
			},
			[]string{"side"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.events, m.emissions, m.ignored, m.clamped, m.restingOrders, m.restingSize)
	}
	return m
}

func (m *Replay) ObserveEvent(kind string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(kind).Inc()
}

func (m *Replay) ObserveEmission(line string, na bool) {
	if m == nil {
		return
	}
	kind := "value"
	if na {
		kind = "na"
	}
	m.emissions.WithLabelValues(line, kind).Inc()
}

func (m *Replay) ObserveIgnored(reason string) {
	if m == nil {
		return
	}
	m.ignored.WithLabelValues(reason).Inc()
}

func (m *Replay) ObserveClamp() {
	if m == nil {
		return
	}
	m.clamped.Inc()
}

// SetResting publishes the current order count and running total of a side.
func (m *Replay) SetResting(side string, orders int, total int64) {
	if m == nil {
		return
	}
	m.restingOrders.WithLabelValues(side).Set(float64(orders))
	m.restingSize.WithLabelValues(side).Set(float64(total))
}
