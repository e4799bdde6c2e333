// Package sink writes emitted quotes to their destinations.
package sink

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Aidin1998/bookanalyzer/internal/emission"
)

// Sink receives quotes in emission order.
type Sink interface {
	Write(ctx context.Context, q emission.Quote) error
	Close() error
}

// TextSink writes "timestamp label value" lines.
type TextSink struct {
	w        *bufio.Writer
	closer   io.Closer
	buffered bool
}

// NewTextSink writes to w. Unless buffered is set every line is flushed as
// soon as it is written. If w is an io.Closer, Close closes it.
func NewTextSink(w io.Writer, buffered bool) *TextSink {
	s := &TextSink{w: bufio.NewWriter(w), buffered: buffered}
	if c, ok := w.(io.Closer); ok {
		s.closer = c
	}
	return s
}

func (s *TextSink) Write(_ context.Context, q emission.Quote) error {
	if _, err := fmt.Fprintf(s.w, "%d %s %s\n", q.Timestamp, q.Line, q.FormatValue()); err != nil {
		return fmt.Errorf("write quote: %w", err)
	}
	if s.buffered {
		return nil
	}
	return s.w.Flush()
}

func (s *TextSink) Close() error {
	err := s.w.Flush()
	if s.closer != nil {
		err = errors.Join(err, s.closer.Close())
	}
	return err
}

// Multi fans each quote out to every sink in order.
type Multi []Sink

func (m Multi) Write(ctx context.Context, q emission.Quote) error {
	for _, s := range m {
		if err := s.Write(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
