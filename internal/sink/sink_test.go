package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Aidin1998/bookanalyzer/internal/emission"
)

var quotes = []emission.Quote{
	{Timestamp: 2, Line: emission.LineSell, Value: decimal.RequireFromString("20")},
	{Timestamp: 3, Line: emission.LineSell, NA: true},
	{Timestamp: 4, Line: emission.LineBuy, Value: decimal.RequireFromString("8845.004")},
}

type closeBuffer struct {
	bytes.Buffer
	closed bool
}

func (b *closeBuffer) Close() error {
	b.closed = true
	return nil
}

func TestTextSink_Unbuffered(t *testing.T) {
	var buf closeBuffer
	s := NewTextSink(&buf, false)
	require.NoError(t, s.Write(context.Background(), quotes[0]))
	assert.Equal(t, "2 S 20.00\n", buf.String(), "line is flushed immediately")

	for _, q := range quotes[1:] {
		require.NoError(t, s.Write(context.Background(), q))
	}
	require.NoError(t, s.Close())
	assert.Equal(t, "2 S 20.00\n3 S NA\n4 B 8845.00\n", buf.String())
	assert.True(t, buf.closed)
}

func TestTextSink_Buffered(t *testing.T) {
	var buf bytes.Buffer
	s := NewTextSink(&buf, true)
	require.NoError(t, s.Write(context.Background(), quotes[0]))
	assert.Empty(t, buf.String())
	require.NoError(t, s.Close())
	assert.Equal(t, "2 S 20.00\n", buf.String())
}

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaSink_Publish(t *testing.T) {
	fw := &fakeWriter{}
	s := newKafkaSink(fw, "book.analyzer.quotes", zaptest.NewLogger(t))
	for _, q := range quotes {
		require.NoError(t, s.Write(context.Background(), q))
	}
	require.NoError(t, s.Close())
	require.Len(t, fw.msgs, 3)
	assert.True(t, fw.closed)

	assert.Equal(t, "S", string(fw.msgs[0].Key))
	var msg quoteMessage
	require.NoError(t, json.Unmarshal(fw.msgs[0].Value, &msg))
	require.NotNil(t, msg.Value)
	assert.Equal(t, "20.00", *msg.Value)
	assert.Equal(t, int64(2), msg.Timestamp)

	msg = quoteMessage{}
	require.NoError(t, json.Unmarshal(fw.msgs[1].Value, &msg))
	assert.True(t, msg.NA)
	assert.Nil(t, msg.Value)
}

func TestKafkaSink_Error(t *testing.T) {
	boom := errors.New("broker down")
	s := newKafkaSink(&fakeWriter{err: boom}, "t", zaptest.NewLogger(t))
	err := s.Write(context.Background(), quotes[0])
	assert.ErrorIs(t, err, boom)
}

func TestMulti(t *testing.T) {
	var a, b bytes.Buffer
	fw := &fakeWriter{}
	m := Multi{NewTextSink(&a, false), NewTextSink(&b, true), newKafkaSink(fw, "t", nil)}
	for _, q := range quotes {
		require.NoError(t, m.Write(context.Background(), q))
	}
	require.NoError(t, m.Close())
	assert.Equal(t, a.String(), b.String())
	assert.Len(t, fw.msgs, len(quotes))
}
