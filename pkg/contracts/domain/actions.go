package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// RowTime is the parsed elapsed-time of a simulation log row.
type RowTime struct {
	TotalSeconds uint32 `json:"total_seconds"`
	DateString   string `json:"date_string"` // "YYYY-MM-DD HH:MM:SS" on the processing day (UTC)
	Timestamp    string `json:"timestamp"`   // zero-padded "HH:MM:SS"
}

// DefaultRowTime is the zero elapsed time anchored at the start of day.
func DefaultRowTime(day time.Time) RowTime {
	return RowTime{
		TotalSeconds: 0,
		DateString:   day.UTC().Format("2006-01-02") + " 00:00:00",
		Timestamp:    "00:00:00",
	}
}

// Stage identifies a scenario stage, e.g. (1, "Stage 1").
type Stage struct {
	Number uint32 `json:"number"`
	Name   string `json:"name"`
}

// IsZero reports whether s is the empty stage (0, "").
func (s Stage) IsZero() bool {
	return s.Number == 0 && s.Name == ""
}

// PlotLocation places a point on the timeline.
type PlotLocation struct {
	Timestamp RowTime `json:"timestamp"`
	Stage     Stage   `json:"stage"`
}

// WithStage returns a copy of the location carrying stage s.
func (l PlotLocation) WithStage(s Stage) PlotLocation {
	l.Stage = s
	return l
}

// ErrorInfo describes a rule violation attached to a missed or erroneous action.
type ErrorInfo struct {
	ActionRule string `json:"action_rule"`
	Violation  string `json:"violation"`
	Advice     string `json:"advice"`
}

// PeriodKind distinguishes timeline intervals.
type PeriodKind string

const (
	PeriodStage PeriodKind = "stage"
	PeriodCPR   PeriodKind = "cpr"
)

// PointKind is the discriminator of a PlotPoint.
type PointKind string

const (
	PointAction          PointKind = "action"
	PointMissedAction    PointKind = "missed_action"
	PointErroneousAction PointKind = "erroneous_action"
	PointPeriod          PointKind = "period"
)

// Action is a performed clinical action.
type Action struct {
	Location   PlotLocation `json:"location"`
	Name       string       `json:"name"`
	Category   string       `json:"category,omitempty"`
	ShockValue string       `json:"shock_value,omitempty"`
}

// MissedAction is an expected action the trainee did not perform.
type MissedAction struct {
	Location  PlotLocation `json:"location"`
	Name      string       `json:"name"`
	ErrorInfo ErrorInfo    `json:"error_info"`
}

// ErroneousAction is a performed action flagged by an error marker.
type ErroneousAction struct {
	Location   PlotLocation `json:"location"`
	Name       string       `json:"name"`
	Category   string       `json:"category,omitempty"`
	ShockValue string       `json:"shock_value,omitempty"`
	ErrorInfo  ErrorInfo    `json:"error_info"`
}

// Period is a timeline interval such as a scenario stage or a CPR block.
type Period struct {
	Kind  PeriodKind   `json:"kind"`
	Start PlotLocation `json:"start"`
	End   PlotLocation `json:"end"`
}

// PlotPoint is one classified timeline event. Exactly one of the variant
// fields is set, matching Kind.
type PlotPoint struct {
	Kind            PointKind
	Action          *Action
	MissedAction    *MissedAction
	ErroneousAction *ErroneousAction
	Period          *Period
}

// NewActionPoint wraps an Action.
func NewActionPoint(a Action) PlotPoint {
	return PlotPoint{Kind: PointAction, Action: &a}
}

// NewMissedActionPoint wraps a MissedAction.
func NewMissedActionPoint(m MissedAction) PlotPoint {
	return PlotPoint{Kind: PointMissedAction, MissedAction: &m}
}

// NewErroneousActionPoint wraps an ErroneousAction.
func NewErroneousActionPoint(e ErroneousAction) PlotPoint {
	return PlotPoint{Kind: PointErroneousAction, ErroneousAction: &e}
}

// NewPeriodPoint builds a Period point.
func NewPeriodPoint(kind PeriodKind, start, end PlotLocation) PlotPoint {
	return PlotPoint{Kind: PointPeriod, Period: &Period{Kind: kind, Start: start, End: end}}
}

// Location returns where the point sits on the timeline. Periods report their start.
func (p PlotPoint) Location() PlotLocation {
	switch p.Kind {
	case PointAction:
		return p.Action.Location
	case PointMissedAction:
		return p.MissedAction.Location
	case PointErroneousAction:
		return p.ErroneousAction.Location
	case PointPeriod:
		return p.Period.Start
	}
	return PlotLocation{}
}

// MarshalJSON encodes the point as {"type": kind, ...variant fields}.
func (p PlotPoint) MarshalJSON() ([]byte, error) {
	var body any
	switch p.Kind {
	case PointAction:
		body = p.Action
	case PointMissedAction:
		body = p.MissedAction
	case PointErroneousAction:
		body = p.ErroneousAction
	case PointPeriod:
		body = p.Period
	default:
		return nil, fmt.Errorf("unknown plot point kind %q", p.Kind)
	}
	if body == nil || isNilVariant(p) {
		return nil, fmt.Errorf("plot point %q has no payload", p.Kind)
	}

	fields, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(fields, &obj); err != nil {
		return nil, err
	}
	kind, _ := json.Marshal(p.Kind)
	obj["type"] = kind
	return json.Marshal(obj)
}

// UnmarshalJSON decodes the {"type": kind, ...} encoding.
func (p *PlotPoint) UnmarshalJSON(data []byte) error {
	var head struct {
		Type PointKind `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}

	*p = PlotPoint{Kind: head.Type}
	switch head.Type {
	case PointAction:
		p.Action = &Action{}
		return json.Unmarshal(data, p.Action)
	case PointMissedAction:
		p.MissedAction = &MissedAction{}
		return json.Unmarshal(data, p.MissedAction)
	case PointErroneousAction:
		p.ErroneousAction = &ErroneousAction{}
		return json.Unmarshal(data, p.ErroneousAction)
	case PointPeriod:
		p.Period = &Period{}
		return json.Unmarshal(data, p.Period)
	}
	return fmt.Errorf("unknown plot point type %q", head.Type)
}

func isNilVariant(p PlotPoint) bool {
	switch p.Kind {
	case PointAction:
		return p.Action == nil
	case PointMissedAction:
		return p.MissedAction == nil
	case PointErroneousAction:
		return p.ErroneousAction == nil
	case PointPeriod:
		return p.Period == nil
	}
	return true
}

// ActionsSummary counts the points of one classified stream.
type ActionsSummary struct {
	Source           string        `json:"source"`
	RowsRead         int           `json:"rows_read"`
	RowErrors        int           `json:"row_errors"`
	Actions          int           `json:"actions"`
	MissedActions    int           `json:"missed_actions"`
	ErroneousActions int           `json:"erroneous_actions"`
	StagePeriods     int           `json:"stage_periods"`
	CPRPeriods       int           `json:"cpr_periods"`
	Duration         time.Duration `json:"duration_ns"`
}

// Add counts one point.
func (s *ActionsSummary) Add(p PlotPoint) {
	switch p.Kind {
	case PointAction:
		s.Actions++
	case PointMissedAction:
		s.MissedActions++
	case PointErroneousAction:
		s.ErroneousActions++
	case PointPeriod:
		if p.Period.Kind == PeriodCPR {
			s.CPRPeriods++
		} else {
			s.StagePeriods++
		}
	}
}

// Points is the total number of classified points.
func (s ActionsSummary) Points() int {
	return s.Actions + s.MissedActions + s.ErroneousActions + s.StagePeriods + s.CPRPeriods
}
