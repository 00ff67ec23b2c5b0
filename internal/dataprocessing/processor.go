package dataprocessing

import (
	"io"
	"log/slog"

	"simdash/pkg/contracts/domain"
)

// RowProcessor runs the dispatch pipeline over parsed rows, one row at a time.
// Each row yields at most one point. Action rows are held back in a bounded
// lookback buffer so that a later error marker can still flag them.
type RowProcessor struct {
	state  *ProcessingState
	logger *slog.Logger
}

// NewRowProcessor creates a processor over state. A nil logger discards output.
func NewRowProcessor(state *ProcessingState, logger *slog.Logger) *RowProcessor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &RowProcessor{state: state, logger: logger}
}

// State exposes the processing state for inspection.
func (p *RowProcessor) State() *ProcessingState {
	return p.state
}

// Process classifies row, the index-th data row of the stream. Checks run in
// order: stage boundary, CPR marker, error marker or missed action, and
// finally release of the oldest buffered action.
func (p *RowProcessor) Process(index int, row *ActionRow) (domain.PlotPoint, bool) {
	point, ok := p.stageBoundary(row)
	if !ok {
		point, ok = p.cprLine(row)
	}
	if !ok {
		point, ok = p.erroneousAction(index, row)
	}
	if !ok {
		if prev := p.state.popRecent(); prev != nil {
			point, ok = p.actionPoint(prev)
		}
	}

	if ok && point.Kind == domain.PointErroneousAction {
		return point, true
	}

	// An action row that reaches here either released the previous action or
	// found the buffer empty, so the buffer only overflows with a zero lookback
	// and the row has produced no point yet.
	if evicted := p.updateRecent(row); evicted != nil {
		return p.actionPoint(evicted)
	}
	return point, ok
}

// Flush ends the stream: buffered actions are released in order, while an
// unmatched error marker or an open CPR block is dropped.
func (p *RowProcessor) Flush() []domain.PlotPoint {
	var points []domain.PlotPoint
	for row := p.state.popRecent(); row != nil; row = p.state.popRecent() {
		if point, ok := p.actionPoint(row); ok {
			points = append(points, point)
		}
	}

	if p.state.pending != nil {
		p.logger.Debug("error marker never matched an action",
			slog.Int("row", p.state.pending.index+2))
		p.state.pending = nil
	}
	if p.state.cprStart != nil {
		p.logger.Debug("CPR block was never closed",
			slog.String("start", p.state.cprStart.Timestamp.Timestamp))
		p.state.cprStart = nil
	}
	return points
}

func (p *RowProcessor) stageBoundary(row *ActionRow) (domain.PlotPoint, bool) {
	if !IsStageBoundary(row) {
		return domain.PlotPoint{}, false
	}
	current := row.Location(p.state.day)
	start := p.state.stageStart.WithStage(*row.Stage)
	p.state.stageStart = current
	return domain.NewPeriodPoint(domain.PeriodStage, start, current), true
}

func (p *RowProcessor) cprLine(row *ActionRow) (domain.PlotPoint, bool) {
	if row.CPR == CPRNone {
		return domain.PlotPoint{}, false
	}
	current := row.Location(p.state.day)
	if p.state.cprStart == nil {
		p.state.cprStart = &current
		return domain.PlotPoint{}, false
	}
	start := *p.state.cprStart
	p.state.cprStart = nil
	return domain.NewPeriodPoint(domain.PeriodCPR, start, current), true
}

func (p *RowProcessor) erroneousAction(index int, row *ActionRow) (domain.PlotPoint, bool) {
	if point, ok := p.checkPendingMarker(index, row); ok {
		return point, true
	}

	switch {
	case IsErrorActionMarker(row):
		if point, ok := p.seekBackward(index, row); ok {
			return point, true
		}
		p.state.pending = &pendingMarker{index: index, row: row}
		return domain.PlotPoint{}, false
	case IsMissedAction(row):
		return domain.NewMissedActionPoint(domain.MissedAction{
			Location:  row.Location(p.state.day),
			Name:      row.ActionVitalName,
			ErrorInfo: errorInfo(row),
		}), true
	}
	return domain.PlotPoint{}, false
}

func (p *RowProcessor) checkPendingMarker(index int, row *ActionRow) (domain.PlotPoint, bool) {
	pending := p.state.pending
	if pending == nil {
		return domain.PlotPoint{}, false
	}

	if IsErroneousAction(row, pending.row) {
		p.logger.Debug("error marker resolved forward",
			slog.Int("marker_row", pending.index+2),
			slog.Int("action_row", index+2))
		p.state.pending = nil
		return p.erroneousPoint(row, pending.row), true
	}
	if !CanMarkEachOther(row, pending.row) {
		p.logger.Debug("error marker expired without a matching action",
			slog.Int("marker_row", pending.index+2),
			slog.Uint64("threshold_seconds", uint64(ErrorMarkerTimeThreshold)))
		p.state.pending = nil
	}
	return domain.PlotPoint{}, false
}

// seekBackward scans the lookback buffer newest first and claims the first
// action the marker flags.
func (p *RowProcessor) seekBackward(index int, marker *ActionRow) (domain.PlotPoint, bool) {
	for i := len(p.state.recent) - 1; i >= 0; i-- {
		if !IsErroneousAction(p.state.recent[i], marker) {
			continue
		}
		flagged := p.state.removeRecent(i)
		p.logger.Debug("error marker resolved backward",
			slog.Int("marker_row", index+2),
			slog.String("action", flagged.ActionName))
		return p.erroneousPoint(flagged, marker), true
	}
	return domain.PlotPoint{}, false
}

// updateRecent buffers row when it is an action point and returns the row
// evicted when the buffer exceeds its bound.
func (p *RowProcessor) updateRecent(row *ActionRow) *ActionRow {
	if row.ActionPoint {
		p.state.pushRecent(row)
	}
	if len(p.state.recent) > p.state.maxRowsToCheck {
		return p.state.popRecent()
	}
	return nil
}

func (p *RowProcessor) actionPoint(row *ActionRow) (domain.PlotPoint, bool) {
	if !row.ActionPoint {
		return domain.PlotPoint{}, false
	}
	return domain.NewActionPoint(domain.Action{
		Location:   row.Location(p.state.day),
		Name:       row.ActionName,
		Category:   row.ActionCategory,
		ShockValue: row.ShockValue,
	}), true
}

func (p *RowProcessor) erroneousPoint(row, marker *ActionRow) domain.PlotPoint {
	return domain.NewErroneousActionPoint(domain.ErroneousAction{
		Location:   row.Location(p.state.day),
		Name:       row.ActionName,
		Category:   row.ActionCategory,
		ShockValue: row.ShockValue,
		ErrorInfo:  errorInfo(marker),
	})
}

func errorInfo(row *ActionRow) domain.ErrorInfo {
	return domain.ErrorInfo{
		ActionRule: row.SubActionName,
		Violation:  row.Score,
		Advice:     row.SpeechCommand,
	}
}

