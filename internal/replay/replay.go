// Package replay drives a feed through the engine and into a sink, one
// record at a time and strictly in input order.
package replay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Aidin1998/bookanalyzer/internal/engine"
	"github.com/Aidin1998/bookanalyzer/internal/feed"
	"github.com/Aidin1998/bookanalyzer/internal/orderbook"
	"github.com/Aidin1998/bookanalyzer/internal/sink"
	"github.com/Aidin1998/bookanalyzer/pkg/logger"
	"github.com/Aidin1998/bookanalyzer/pkg/metrics"
)

// SideSummary describes one side of the book at the end of a run.
type SideSummary struct {
	Orders int    `yaml:"orders"`
	Levels int    `yaml:"levels"`
	Total  int64  `yaml:"total"`
	Best   string `yaml:"best,omitempty"`
}

// Summary is written at the end of a run.
type Summary struct {
	RunID      string        `yaml:"run_id"`
	Target     int64         `yaml:"target"`
	Lines      int           `yaml:"lines"`
	Adds       int           `yaml:"adds"`
	Reductions int           `yaml:"reductions"`
	Unknown    int           `yaml:"unknown"`
	Skipped    int           `yaml:"skipped"`
	Emitted    int           `yaml:"emitted"`
	StoppedAt  int           `yaml:"stopped_at,omitempty"` // line of a malformed header
	Elapsed    time.Duration `yaml:"elapsed"`
	Bid        SideSummary   `yaml:"bid"`
	Ask        SideSummary   `yaml:"ask"`
}

// Runner replays one feed.
type Runner struct {
	engine  *engine.Engine
	sink    sink.Sink
	runID   string
	logger  *zap.Logger
	metrics *metrics.Replay
}

func NewRunner(eng *engine.Engine, out sink.Sink, runID string, log *zap.Logger, m *metrics.Replay) *Runner {
	return &Runner{
		engine:  eng,
		sink:    out,
		runID:   runID,
		logger:  logger.OrNop(log).With(zap.String("run_id", runID)),
		metrics: m,
	}
}

// Run reads r until EOF. A malformed record body is skipped. A malformed
// header stops the run: quotes already written stand and the returned error
// wraps feed.ErrMalformedHeader. Cancelling ctx stops the run between records.
func (r *Runner) Run(ctx context.Context, in io.Reader) (sum Summary, err error) {
	start := time.Now()
	sum = Summary{RunID: r.runID, Target: r.engine.Target()}
	defer func() {
		sum.Elapsed = time.Since(start)
		st := r.engine.State()
		sum.Bid = sideSummary(st.Bid)
		sum.Ask = sideSummary(st.Ask)
	}()

	r.logger.Info("Starting replay", zap.Int64("target", sum.Target))
	sc := feed.NewScanner(in)
	for {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		ev, err := sc.Next()
		sum.Lines = sc.Line()
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			r.logger.Info("Replay finished",
				zap.Int("lines", sum.Lines),
				zap.Int("emitted", sum.Emitted))
			return sum, nil
		case errors.Is(err, feed.ErrMalformedRecord):
			sum.Skipped++
			r.metrics.ObserveIgnored(metrics.ReasonMalformedRecord)
			r.logger.Warn("Skipping malformed record", zap.Error(err))
			continue
		case errors.Is(err, feed.ErrMalformedHeader):
			sum.StoppedAt = sc.Line()
			r.logger.Error("Stopping replay on malformed record", zap.Error(err))
			return sum, err
		default:
			return sum, err
		}

		switch ev.Kind {
		case feed.KindAdd:
			sum.Adds++
		case feed.KindReduce:
			sum.Reductions++
		default:
			sum.Unknown++
		}
		q, ok := r.engine.Apply(ev)
		if !ok {
			continue
		}
		if err := r.sink.Write(ctx, q); err != nil {
			return sum, fmt.Errorf("line %d: %w", sc.Line(), err)
		}
		sum.Emitted++
	}
}

func sideSummary(st orderbook.SideStats) SideSummary {
	s := SideSummary{Orders: st.Orders, Levels: st.Levels, Total: st.Total}
	if st.HasBest {
		s.Best = st.Best.String()
	}
	return s
}

// WriteSummary writes sum as YAML to path.
func WriteSummary(path string, sum Summary) error {
	data, err := yaml.Marshal(sum)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write summary %s: %w", path, err)
	}
	return nil
}
