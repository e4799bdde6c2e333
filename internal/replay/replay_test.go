package replay

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gopkg.in/yaml.v3"

	"github.com/Aidin1998/bookanalyzer/internal/engine"
	"github.com/Aidin1998/bookanalyzer/internal/feed"
	"github.com/Aidin1998/bookanalyzer/internal/orderbook"
	"github.com/Aidin1998/bookanalyzer/internal/sink"
	"github.com/Aidin1998/bookanalyzer/pkg/metrics"
)

func replay(t *testing.T, target int64, input string) (string, Summary, error) {
	t.Helper()
	log := zaptest.NewLogger(t)
	m := metrics.NewReplay(prometheus.NewRegistry())
	eng := engine.New(engine.Config{Target: target, ReductionMode: orderbook.ReductionClamped}, log, m)
	var out bytes.Buffer
	r := NewRunner(eng, sink.NewTextSink(&out, false), "test-run", log, m)
	sum, err := r.Run(context.Background(), strings.NewReader(input))
	return out.String(), sum, err
}

func TestRun_Scenario(t *testing.T) {
	out, sum, err := replay(t, 2, "1 A order1 B 10.00 1\n2 A order2 B 10.00 2\n3 R order2 2\n")
	require.NoError(t, err)
	assert.Equal(t, "2 S 20.00\n3 S NA\n", out)
	assert.Equal(t, 3, sum.Lines)
	assert.Equal(t, 2, sum.Adds)
	assert.Equal(t, 1, sum.Reductions)
	assert.Equal(t, 2, sum.Emitted)
	assert.Equal(t, SideSummary{Orders: 1, Levels: 1, Total: 1, Best: "10"}, sum.Bid)
	assert.Equal(t, SideSummary{}, sum.Ask)
}

func TestRun_StopsOnMalformedHeader(t *testing.T) {
	input := strings.Join([]string{
		"1 A a S 10.00 1",
		"2 A b S 11.00 1",
		"3 A c S bogus 1",
		"4 Z ignored",
		"x A d S 9.00 1",
		"5 A e S 1.00 1",
	}, "\n")
	out, sum, err := replay(t, 2, input)
	require.ErrorIs(t, err, feed.ErrMalformedHeader)
	assert.Equal(t, "2 B 21.00\n", out, "output written before the stop stands")
	assert.Equal(t, 5, sum.StoppedAt)
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, 1, sum.Unknown)
	assert.Equal(t, 2, sum.Ask.Orders)
}

func TestRun_Deterministic(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 200; i++ {
		side := "B"
		if i%2 == 1 {
			side = "S"
		}
		fmt.Fprintf(&b, "%d A o%d %s 10.%d %d\n", i+1, i, side, i%3, i%5+1)
		if i%7 == 6 {
			fmt.Fprintf(&b, "%d R o%d 2\n", i+1, i-3)
		}
	}
	first, _, err := replay(t, 25, b.String())
	require.NoError(t, err)
	require.NotEmpty(t, first)
	for i := 0; i < 5; i++ {
		again, _, err := replay(t, 25, b.String())
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestRun_Cancelled(t *testing.T) {
	log := zaptest.NewLogger(t)
	eng := engine.New(engine.Config{Target: 1}, log, nil)
	r := NewRunner(eng, sink.NewTextSink(&bytes.Buffer{}, false), "cancelled", log, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Run(ctx, strings.NewReader("1 A a B 1.00 1\n"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWriteSummary(t *testing.T) {
	_, sum, err := replay(t, 2, "1 A order1 B 10.00 3\n")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "summary.yaml")
	require.NoError(t, WriteSummary(path, sum))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got map[string]interface{}
	require.NoError(t, yaml.Unmarshal(data, &got))
	assert.Equal(t, "test-run", got["run_id"])
	assert.Equal(t, 1, got["emitted"])
	bid, ok := got["bid"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "10", bid["best"])
}
