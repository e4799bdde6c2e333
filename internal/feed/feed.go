// Package feed parses the order-flow log read by the analyzer.
//
// Each record is one line of whitespace-separated fields:
//
//	timestamp A order-id side price size   new order, side B (bid) or S (ask)
//	timestamp R order-id size              reduce a resting order
//
// A line whose timestamp or type token cannot be read ends the feed with
// ErrMalformedHeader. A bad body on a known type yields ErrMalformedRecord,
// which callers may skip. Unknown type tokens decode to KindUnknown.
package feed

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Aidin1998/bookanalyzer/internal/orderbook"
)

var (
	ErrMalformedHeader = errors.New("malformed record header")
	ErrMalformedRecord = errors.New("malformed record")
)

// Kind is the event type.
type Kind int

const (
	KindUnknown Kind = iota
	KindAdd
	KindReduce
)

func (k Kind) String() string {
	switch k {
	case KindAdd:
		return "add"
	case KindReduce:
		return "reduce"
	default:
		return "unknown"
	}
}

// Event is one decoded record. Side and Price are only set for KindAdd.
type Event struct {
	Timestamp int64
	Kind      Kind
	Type      string // raw type token
	OrderID   string
	Side      orderbook.Side
	Price     decimal.Decimal
	Size      int64
}

// Parse decodes a single record.
func Parse(line string) (Event, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return Event{}, fmt.Errorf("%w: %q", ErrMalformedHeader, line)
	}
	ts, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return Event{}, fmt.Errorf("%w: timestamp %q", ErrMalformedHeader, fields[0])
	}
	ev := Event{Timestamp: ts, Type: fields[1]}
	body := fields[2:]

	switch fields[1] {
	case "A":
		ev.Kind = KindAdd
		if len(body) < 4 {
			return ev, fmt.Errorf("%w: add needs id side price size, got %d fields", ErrMalformedRecord, len(body))
		}
		ev.OrderID = body[0]
		switch body[1] {
		case "B":
			ev.Side = orderbook.Bid
		case "S":
			ev.Side = orderbook.Ask
		default:
			return ev, fmt.Errorf("%w: side %q", ErrMalformedRecord, body[1])
		}
		if ev.Price, err = decimal.NewFromString(body[2]); err != nil {
			return ev, fmt.Errorf("%w: price %q", ErrMalformedRecord, body[2])
		}
		if ev.Size, err = parseSize(body[3]); err != nil {
			return ev, err
		}
	case "R":
		ev.Kind = KindReduce
		if len(body) < 2 {
			return ev, fmt.Errorf("%w: reduce needs id size, got %d fields", ErrMalformedRecord, len(body))
		}
		ev.OrderID = body[0]
		if ev.Size, err = parseSize(body[1]); err != nil {
			return ev, err
		}
	default:
		ev.Kind = KindUnknown
	}
	return ev, nil
}

func parseSize(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: size %q", ErrMalformedRecord, s)
	}
	return n, nil
}

// Scanner reads events from a stream one line at a time.
type Scanner struct {
	sc   *bufio.Scanner
	line int
	done bool
}

func NewScanner(r io.Reader) *Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Scanner{sc: sc}
}

// Line returns the 1-based number of the last line read.
func (s *Scanner) Line() int { return s.line }

// Next returns the next event. It returns io.EOF at the end of input. After
// an ErrMalformedHeader every later call returns io.EOF, since the rest of
// the stream is not consumed. ErrMalformedRecord leaves the scanner usable.
func (s *Scanner) Next() (Event, error) {
	if s.done {
		return Event{}, io.EOF
	}
	if !s.sc.Scan() {
		s.done = true
		if err := s.sc.Err(); err != nil {
			return Event{}, fmt.Errorf("read line %d: %w", s.line+1, err)
		}
		return Event{}, io.EOF
	}
	s.line++
	ev, err := Parse(s.sc.Text())
	if err != nil {
		if errors.Is(err, ErrMalformedHeader) {
			s.done = true
		}
		return ev, fmt.Errorf("line %d: %w", s.line, err)
	}
	return ev, nil
}
