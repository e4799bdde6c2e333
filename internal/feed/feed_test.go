package feed

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aidin1998/bookanalyzer/internal/orderbook"
)

func TestParse_Add(t *testing.T) {
	ev, err := Parse("28800538 A b S 44.26 100")
	require.NoError(t, err)
	assert.Equal(t, int64(28800538), ev.Timestamp)
	assert.Equal(t, KindAdd, ev.Kind)
	assert.Equal(t, "b", ev.OrderID)
	assert.Equal(t, orderbook.Ask, ev.Side)
	assert.Equal(t, "44.26", ev.Price.StringFixed(2))
	assert.Equal(t, int64(100), ev.Size)

	ev, err = Parse("1\tA  order1 B 10.00 1")
	require.NoError(t, err)
	assert.Equal(t, orderbook.Bid, ev.Side)
}

func TestParse_Reduce(t *testing.T) {
	ev, err := Parse("28800744 R b 100")
	require.NoError(t, err)
	assert.Equal(t, KindReduce, ev.Kind)
	assert.Equal(t, "b", ev.OrderID)
	assert.Equal(t, int64(100), ev.Size)
}

func TestParse_Unknown(t *testing.T) {
	ev, err := Parse("5 X whatever")
	require.NoError(t, err)
	assert.Equal(t, KindUnknown, ev.Kind)
	assert.Equal(t, "X", ev.Type)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		line string
		want error
	}{
		{"", ErrMalformedHeader},
		{"   ", ErrMalformedHeader},
		{"12", ErrMalformedHeader},
		{"abc A x B 1 1", ErrMalformedHeader},
		{"1.5 A x B 1 1", ErrMalformedHeader},
		{"1 A x B 10.00", ErrMalformedRecord},
		{"1 A x Q 10.00 1", ErrMalformedRecord},
		{"1 A x B ten 1", ErrMalformedRecord},
		{"1 A x B 10.00 0", ErrMalformedRecord},
		{"1 A x B 10.00 1.5", ErrMalformedRecord},
		{"1 R x", ErrMalformedRecord},
		{"1 R x -3", ErrMalformedRecord},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			_, err := Parse(tt.line)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestScanner_StopsOnMalformedHeader(t *testing.T) {
	in := strings.Join([]string{
		"1 A a B 10.00 1",
		"2 A b S bad 1",
		"3 R a 1",
		"oops",
		"4 A c B 10.00 1",
	}, "\n")
	s := NewScanner(strings.NewReader(in))

	ev, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, "a", ev.OrderID)

	_, err = s.Next()
	assert.ErrorIs(t, err, ErrMalformedRecord)

	ev, err = s.Next()
	require.NoError(t, err)
	assert.Equal(t, KindReduce, ev.Kind)

	_, err = s.Next()
	assert.ErrorIs(t, err, ErrMalformedHeader)
	assert.Contains(t, err.Error(), "line 4")
	assert.Equal(t, 4, s.Line())

	_, err = s.Next()
	assert.True(t, errors.Is(err, io.EOF))
}

func TestScanner_EOF(t *testing.T) {
	s := NewScanner(strings.NewReader("1 A a B 10.00 1\n"))
	_, err := s.Next()
	require.NoError(t, err)
	_, err = s.Next()
	assert.Equal(t, io.EOF, err)
}
