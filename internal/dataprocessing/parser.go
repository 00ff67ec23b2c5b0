package dataprocessing

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"simdash/pkg/contracts/domain"
)

// ActionColumns is the required header prefix of an action log, in order.
var ActionColumns = []string{
	"Time Stamp[Hr:Min:Sec]",
	"Action/Vital Name",
	"SubAction Time[Min:Sec]",
	"SubAction Name",
	"Score",
	"Old Value",
	"New Value",
	"Username",
	"Speech Command",
}

const (
	colTimestamp = iota
	colActionVitalName
	colSubActionTime
	colSubActionName
	colScore
	colOldValue
	colNewValue
	colUsername
	colSpeechCommand
)

const medicationCategory = "Medication"

var (
	stagePattern = regexp.MustCompile(`^\s*\((\d+)\)\s*(.+?)\s*\(action\)\s*$`)
	shockPattern = regexp.MustCompile(`(.*?)(\b\d+[Jj]\b)(.*)`)

	actionNameCorrections = map[string]string{
		"Ascultate Lungs":    "Auscultate Lungs",
		"SYNCHRONIZED Shock": "Synchronized Shock",
	}

	medicationActions = map[string]bool{
		"Select Amiodarone":  true,
		"Select Calcium":     true,
		"Select Epinephrine": true,
		"Select Lidocaine":   true,
	}
)

// ActionRow is one data row of an action log together with the values derived from it.
type ActionRow struct {
	Timestamp       *domain.RowTime
	ActionVitalName string
	SubActionTime   string
	SubActionName   string
	Score           string
	OldValue        string
	NewValue        string
	Username        string
	SpeechCommand   string

	Stage          *domain.Stage
	CPR            CPRMarker
	ActionPoint    bool
	ActionName     string
	ActionCategory string
	ShockValue     string
}

// Location places the row on the timeline, defaulting missing parts to zero values.
func (r *ActionRow) Location(day time.Time) domain.PlotLocation {
	loc := domain.PlotLocation{Timestamp: domain.DefaultRowTime(day)}
	if r.Timestamp != nil {
		loc.Timestamp = *r.Timestamp
	}
	if r.Stage != nil {
		loc.Stage = *r.Stage
	}
	return loc
}

// Derive fills the derived fields from the raw columns. Detection order matters:
// the stage depends on the missed-action check and the action flag on both the
// stage and the CPR marker.
func (r *ActionRow) Derive() {
	stageSource := r.ActionVitalName
	if IsMissedAction(r) {
		stageSource = r.Username
	}
	r.Stage = nil
	if stage, ok := ExtractStageName(stageSource); ok {
		r.Stage = &stage
	}
	r.CPR = DetectCPRMarker(r)
	r.ActionPoint = IsActionRow(r)
	r.ActionName, r.ActionCategory, r.ShockValue = ProcessActionName(r.SubActionName)
}

// ParseRecord maps a positional CSV record to an ActionRow. Missing trailing
// columns default to empty strings; extra columns are ignored. day supplies
// the calendar date used for DateString.
func ParseRecord(record []string, day time.Time) (*ActionRow, error) {
	field := func(i int) string {
		if i < len(record) {
			return record[i]
		}
		return ""
	}

	if len(record) <= colActionVitalName {
		return nil, fmt.Errorf("missing field %q", ActionColumns[colActionVitalName])
	}

	ts, err := ParseTime(field(colTimestamp), day)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ActionColumns[colTimestamp], err)
	}

	row := &ActionRow{
		Timestamp:       &ts,
		ActionVitalName: field(colActionVitalName),
		SubActionTime:   field(colSubActionTime),
		SubActionName:   field(colSubActionName),
		Score:           field(colScore),
		OldValue:        field(colOldValue),
		NewValue:        field(colNewValue),
		Username:        field(colUsername),
		SpeechCommand:   field(colSpeechCommand),
	}
	row.Derive()
	return row, nil
}

// ParseTime parses "H:MM:SS" elapsed time. Hours may have any number of digits;
// minutes and seconds must be below 60. Surrounding whitespace is rejected.
// The date part of DateString is day (UTC).
func ParseTime(value string, day time.Time) (domain.RowTime, error) {
	if strings.TrimSpace(value) == "" {
		return domain.RowTime{}, fmt.Errorf("%w: Field cannot be empty", ErrInvalidTimestamp)
	}

	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return domain.RowTime{}, fmt.Errorf("%w: %q is not H:MM:SS", ErrInvalidTimestamp, value)
	}

	var hms [3]uint64
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return domain.RowTime{}, fmt.Errorf("%w: %q is not H:MM:SS", ErrInvalidTimestamp, value)
		}
		hms[i] = n
	}
	hours, minutes, seconds := hms[0], hms[1], hms[2]
	if minutes >= 60 || seconds >= 60 {
		return domain.RowTime{}, fmt.Errorf("%w: %q has minutes or seconds out of range", ErrInvalidTimestamp, value)
	}

	total := hours*3600 + minutes*60 + seconds
	if total > math.MaxUint32 {
		return domain.RowTime{}, fmt.Errorf("%w: %q is out of range", ErrInvalidTimestamp, value)
	}

	clock := fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	return domain.RowTime{
		TotalSeconds: uint32(total),
		DateString:   day.UTC().Format("2006-01-02") + " " + clock,
		Timestamp:    clock,
	}, nil
}

// ExtractStageName parses "(<n>) <name> (action)" into a stage. The name is
// whitespace-normalized.
func ExtractStageName(input string) (domain.Stage, bool) {
	m := stagePattern.FindStringSubmatch(input)
	if m == nil {
		return domain.Stage{}, false
	}
	n, err := strconv.ParseUint(m[1], 10, 32)
	if err != nil {
		return domain.Stage{}, false
	}
	return domain.Stage{Number: uint32(n), Name: NormalizeWhitespace(m[2])}, true
}

// ExtractShockValue pulls the first standalone "<digits>J" token out of input.
// It returns the remaining text and the token; when there is no token the
// input comes back unchanged with an empty value.
func ExtractShockValue(input string) (string, string) {
	m := shockPattern.FindStringSubmatch(input)
	if m == nil {
		return input, ""
	}
	before := strings.TrimSpace(m[1])
	value := strings.TrimSpace(m[2])
	after := strings.TrimSpace(m[3])
	return strings.TrimSpace(before + " " + after), value
}

// ProcessActionName turns a raw SubAction Name into display name, category and
// shock value. The category is the corrected name unless the action is a
// medication selection.
func ProcessActionName(input string) (name, category, shock string) {
	cleaned := strings.TrimSpace(strings.ReplaceAll(CapitalizeWords(input), "UNAVAILABLE", ""))
	base, shock := ExtractShockValue(cleaned)

	if fixed, ok := actionNameCorrections[base]; ok {
		base = fixed
	}
	category = base
	if medicationActions[base] {
		category = medicationCategory
	}

	name = base
	if shock != "" {
		name = base + " " + shock
	}
	return name, category, shock
}
