package dataprocessing

import (
	"time"

	"simdash/pkg/contracts/domain"
)

// DefaultMaxRowsToCheck bounds the lookback buffer when no limit is configured.
const DefaultMaxRowsToCheck = 5

type pendingMarker struct {
	index int
	row   *ActionRow
}

// ProcessingState is the mutable state of one classified stream. It is owned
// by a single stream and is not safe for concurrent use.
type ProcessingState struct {
	maxRowsToCheck int
	day            time.Time

	// recent holds action points not yet emitted, oldest first.
	recent []*ActionRow
	// stageStart is the location the next stage period starts from.
	stageStart domain.PlotLocation
	// cprStart is set while a CPR block is open.
	cprStart *domain.PlotLocation
	// pending is an error marker waiting for the action it flags.
	pending *pendingMarker
}

// NewProcessingState creates state for a stream with the given lookback bound.
// Negative bounds are treated as zero.
func NewProcessingState(maxRowsToCheck int, day time.Time) *ProcessingState {
	if maxRowsToCheck < 0 {
		maxRowsToCheck = 0
	}
	return &ProcessingState{
		maxRowsToCheck: maxRowsToCheck,
		day:            day,
		recent:         make([]*ActionRow, 0, maxRowsToCheck+1),
		stageStart:     domain.PlotLocation{Timestamp: domain.DefaultRowTime(day)},
	}
}

// MaxRowsToCheck returns the lookback bound.
func (s *ProcessingState) MaxRowsToCheck() int {
	return s.maxRowsToCheck
}

// Buffered returns the number of action rows waiting in the lookback buffer.
func (s *ProcessingState) Buffered() int {
	return len(s.recent)
}

func (s *ProcessingState) pushRecent(r *ActionRow) {
	s.recent = append(s.recent, r)
}

func (s *ProcessingState) popRecent() *ActionRow {
	if len(s.recent) == 0 {
		return nil
	}
	r := s.recent[0]
	s.recent[0] = nil
	s.recent = s.recent[1:]
	return r
}

func (s *ProcessingState) removeRecent(i int) *ActionRow {
	r := s.recent[i]
	s.recent = append(s.recent[:i], s.recent[i+1:]...)
	return r
}
