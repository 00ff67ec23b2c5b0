package dataprocessing

import (
	"slices"
	"strings"
)

// Sentinel values written by the simulator into the Score and Old Value columns.
const (
	ErrorTriggered        = "Error-Triggered"
	ActionWasPerformed    = "Action-Was-Performed"
	ActionWasNotPerformed = "Action-Was-Not-Performed"
)

// ErrorMarkerTimeThreshold is the largest distance in seconds between an error
// marker and the action it flags.
const ErrorMarkerTimeThreshold uint32 = 2

var (
	cprStartMarkers = []string{"begin cpr", "enter cpr"}
	cprEndMarkers   = []string{"stop cpr", "end cpr"}
)

// CPRMarker tells whether a row opens or closes a CPR block.
type CPRMarker int

const (
	CPRNone CPRMarker = iota
	CPRStart
	CPREnd
)

func (m CPRMarker) String() string {
	switch m {
	case CPRStart:
		return "START"
	case CPREnd:
		return "END"
	}
	return ""
}

// IsActionRow reports whether the row is a performed action that may appear on the timeline.
func IsActionRow(r *ActionRow) bool {
	return r.Stage != nil &&
		strings.TrimSpace(r.SubActionTime) != "" &&
		r.SubActionName != "" &&
		!IsMissedAction(r) &&
		r.CPR == CPRNone
}

// IsStageBoundary reports whether the row only announces a stage.
func IsStageBoundary(r *ActionRow) bool {
	return r.Stage != nil &&
		strings.TrimSpace(r.SubActionTime) == "" &&
		strings.TrimSpace(r.SubActionName) == "" &&
		strings.TrimSpace(r.Score) == "" &&
		strings.TrimSpace(r.OldValue) == "" &&
		strings.TrimSpace(r.NewValue) == ""
}

// DetectCPRMarker matches the SubAction Name against the CPR start and end phrases.
func DetectCPRMarker(r *ActionRow) CPRMarker {
	name := NormalizeWhitespace(strings.ToLower(r.SubActionName))
	switch {
	case slices.Contains(cprStartMarkers, name):
		return CPRStart
	case slices.Contains(cprEndMarkers, name):
		return CPREnd
	}
	return CPRNone
}

// IsErrorActionMarker reports whether the row flags a performed action as an error.
func IsErrorActionMarker(r *ActionRow) bool {
	return strings.TrimSpace(r.OldValue) == ErrorTriggered &&
		strings.TrimSpace(r.Score) == ActionWasPerformed
}

// IsMissedAction reports whether the row records an action that was never performed.
func IsMissedAction(r *ActionRow) bool {
	return strings.TrimSpace(r.OldValue) == ErrorTriggered &&
		strings.TrimSpace(r.Score) == ActionWasNotPerformed
}

// CanMarkEachOther reports whether two rows are close enough in time for one
// to flag the other. A row without a timestamp counts as time zero.
func CanMarkEachOther(a, b *ActionRow) bool {
	var ta, tb uint32
	if a.Timestamp != nil {
		ta = a.Timestamp.TotalSeconds
	}
	if b.Timestamp != nil {
		tb = b.Timestamp.TotalSeconds
	}
	if ta > tb {
		return ta-tb <= ErrorMarkerTimeThreshold
	}
	return tb-ta <= ErrorMarkerTimeThreshold
}

// IsErroneousAction reports whether marker flags row: row must be an action
// point, the marker's Username must name row's Action/Vital Name and both must
// fall inside the time window.
func IsErroneousAction(row, marker *ActionRow) bool {
	return row.ActionPoint &&
		marker.Username == row.ActionVitalName &&
		CanMarkEachOther(row, marker)
}
