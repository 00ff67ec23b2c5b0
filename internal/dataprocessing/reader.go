package dataprocessing

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"strings"
	"time"

	"simdash/pkg/contracts/domain"
)

const utf8BOM = "\ufeff"

// Option configures a Stream.
type Option func(*streamOptions)

type streamOptions struct {
	maxRowsToCheck int
	logger         *slog.Logger
	now            func() time.Time
}

// WithMaxRowsToCheck sets the lookback buffer bound.
func WithMaxRowsToCheck(n int) Option {
	return func(o *streamOptions) { o.maxRowsToCheck = n }
}

// WithLogger routes correlation diagnostics to logger at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(o *streamOptions) { o.logger = logger }
}

// WithClock overrides the clock that supplies the calendar date of row timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *streamOptions) { o.now = now }
}

// Stream classifies an action log lazily. It is single-pass and not safe for
// concurrent use; independent streams share no state.
type Stream struct {
	reader    *csv.Reader
	processor *RowProcessor

	index     int
	rowErrors int
	flushed   []domain.PlotPoint
	done      bool
}

// NewStream validates the header row of r and returns a stream over the data
// rows. A header that does not start with ActionColumns yields a *HeaderError
// and no stream.
func NewStream(r io.Reader, opts ...Option) (*Stream, error) {
	o := streamOptions{
		maxRowsToCheck: DefaultMaxRowsToCheck,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	headers, err := reader.Read()
	switch {
	case errors.Is(err, io.EOF):
		return nil, &HeaderError{Expected: ActionColumns}
	case err != nil:
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			return nil, &HeaderError{Expected: ActionColumns, Cause: err}
		}
		return nil, fmt.Errorf("reading header row: %w", err)
	}
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], utf8BOM)
	}
	if err := ValidateHeader(headers, ActionColumns); err != nil {
		return nil, err
	}

	state := NewProcessingState(o.maxRowsToCheck, o.now().UTC())
	return &Stream{
		reader:    reader,
		processor: NewRowProcessor(state, o.logger),
	}, nil
}

// ValidateHeader checks that headers starts with expected, ignoring case.
// Extra trailing columns are allowed.
func ValidateHeader(headers, expected []string) error {
	ok := len(headers) >= len(expected)
	for i := 0; ok && i < len(expected); i++ {
		ok = strings.ToLower(headers[i]) == strings.ToLower(expected[i])
	}
	if !ok {
		return &HeaderError{Expected: expected, Actual: headers}
	}
	return nil
}

// Next returns the next classified point. A *RowError reports a malformed row
// and leaves the stream usable; io.EOF ends it. Any other error is fatal and
// the following call returns io.EOF.
func (s *Stream) Next() (domain.PlotPoint, error) {
	for {
		if len(s.flushed) > 0 {
			point := s.flushed[0]
			s.flushed = s.flushed[1:]
			return point, nil
		}
		if s.done {
			return domain.PlotPoint{}, io.EOF
		}

		record, err := s.reader.Read()
		if errors.Is(err, io.EOF) {
			s.done = true
			s.flushed = s.processor.Flush()
			continue
		}

		index := s.index
		s.index++
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				s.rowErrors++
				return domain.PlotPoint{}, &RowError{Index: index, Line: pe.StartLine, Cause: err}
			}
			s.done = true
			return domain.PlotPoint{}, fmt.Errorf("reading action log: %w", err)
		}

		line, _ := s.reader.FieldPos(0)
		row, err := ParseRecord(record, s.processor.state.day)
		if err != nil {
			s.rowErrors++
			return domain.PlotPoint{}, &RowError{Index: index, Line: line, Cause: err}
		}

		if point, ok := s.processor.Process(index, row); ok {
			return point, nil
		}
	}
}

// All adapts the stream to a range-over-func sequence. Iteration stops after
// io.EOF or a fatal error; row errors are yielded and iteration continues.
func (s *Stream) All() iter.Seq2[domain.PlotPoint, error] {
	return func(yield func(domain.PlotPoint, error) bool) {
		for {
			point, err := s.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(point, err) {
				return
			}
			if err != nil && !IsRowError(err) {
				return
			}
		}
	}
}

// RowsRead is the number of data records read so far, including malformed ones.
func (s *Stream) RowsRead() int {
	return s.index
}

// RowErrors is the number of rows reported as *RowError so far.
func (s *Stream) RowErrors() int {
	return s.rowErrors
}
