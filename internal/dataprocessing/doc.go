// Package dataprocessing classifies simulation action logs into timeline plot points.
// It turns the CSV log written by the training simulator into a lazy sequence of
// actions, missed actions, erroneous actions and periods (scenario stages and CPR
// blocks) that the dashboard draws.
//
// # Architecture
//
// The package is organized into four components:
//
// 1. Parser: maps a CSV record to an ActionRow and derives stage, CPR marker and display name
// 2. Detection: pure predicates over a single row (action, stage boundary, markers)
// 3. Processor: the per-row dispatch pipeline with its bounded lookback buffer
// 4. Stream: header validation and lazy iteration over an io.Reader
//
// # Usage
//
// Classifying a log file:
//
//	f, err := os.Open("actions.csv")
//	if err != nil {
//	    return err
//	}
//	defer f.Close()
//
//	stream, err := dataprocessing.NewStream(f, dataprocessing.WithMaxRowsToCheck(5))
//	if err != nil {
//	    return err // *HeaderError when the header row is wrong
//	}
//	for point, err := range stream.All() {
//	    if dataprocessing.IsRowError(err) {
//	        continue // malformed row, the stream goes on
//	    }
//	    ...
//	}
//
// # Data Flow
//
//	CSV bytes → csv.Reader → ParseRecord → ActionRow → RowProcessor → PlotPoint
//
// Each data row produces at most one point. Action rows are released one row
// late through the lookback buffer, so an error marker written just after an
// action can still turn it into an erroneous action. Buffered actions are
// released when the input ends.
//
// # Error Handling
//
//   - A bad header fails NewStream with a *HeaderError (errors.Is ErrHeaderMismatch)
//   - A malformed data row yields a *RowError (errors.Is ErrRowDeserialization) and leaves
//     the processing state untouched
//   - Read failures of the underlying io.Reader end the stream
package dataprocessing
