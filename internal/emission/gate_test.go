package emission

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aidin1998/bookanalyzer/internal/depth"
	"github.com/Aidin1998/bookanalyzer/internal/orderbook"
)

func filled(s string) depth.Result { return depth.Filled(decimal.RequireFromString(s)) }

func TestGate_Sequence(t *testing.T) {
	g := NewGate(LineSell)
	steps := []struct {
		res  depth.Result
		want string // "" means suppressed
	}{
		{depth.InsufficientDepth(), ""},
		{filled("20"), "2 S 20.00"},
		{filled("20.000"), ""},
		{filled("19.5"), "4 S 19.50"},
		{depth.InsufficientDepth(), "5 S NA"},
		{depth.InsufficientDepth(), ""},
		{depth.InsufficientDepth(), ""},
		{filled("19.5"), "8 S 19.50"},
	}
	for i, st := range steps {
		q, ok := g.MaybeEmit(int64(i+1), st.res)
		if st.want == "" {
			assert.False(t, ok, "step %d", i+1)
			continue
		}
		require.True(t, ok, "step %d", i+1)
		assert.Equal(t, st.want, q.String(), "step %d", i+1)
	}
	assert.False(t, g.NA())
}

func TestGate_FirstFilledZeroEmits(t *testing.T) {
	g := NewGate(LineBuy)
	q, ok := g.MaybeEmit(7, filled("0"))
	require.True(t, ok)
	assert.Equal(t, "7 B 0.00", q.String())
}

func TestLineFor(t *testing.T) {
	assert.Equal(t, LineSell, LineFor(orderbook.Bid))
	assert.Equal(t, LineBuy, LineFor(orderbook.Ask))
}

func TestQuote_FormatValue(t *testing.T) {
	assert.Equal(t, "NA", Quote{NA: true, Value: decimal.NewFromInt(3)}.FormatValue())
	assert.Equal(t, "8832.56", Quote{Value: decimal.RequireFromString("8832.555")}.FormatValue())
}
