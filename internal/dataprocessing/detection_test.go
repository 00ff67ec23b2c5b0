package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"simdash/pkg/contracts/domain"
)

func stagePtr(n uint32, name string) *domain.Stage {
	return &domain.Stage{Number: n, Name: name}
}

func timeAt(seconds uint32) *domain.RowTime {
	return &domain.RowTime{TotalSeconds: seconds}
}

func TestIsActionRow(t *testing.T) {
	tests := []struct {
		name string
		row  ActionRow
		want bool
	}{
		{
			name: "action",
			row:  ActionRow{Stage: stagePtr(1, "Action"), SubActionTime: "12:34", SubActionName: "SubAction"},
			want: true,
		},
		{
			name: "no stage",
			row:  ActionRow{SubActionTime: "12:34", SubActionName: "SubAction"},
		},
		{
			name: "blank subaction time",
			row:  ActionRow{Stage: stagePtr(1, "Action"), SubActionTime: "  ", SubActionName: "SubAction"},
		},
		{
			name: "empty subaction name",
			row:  ActionRow{Stage: stagePtr(1, "Action"), SubActionTime: "12:34"},
		},
		{
			name: "missed action",
			row: ActionRow{Stage: stagePtr(1, "Action"), SubActionTime: "12:34", SubActionName: "SubAction",
				OldValue: ErrorTriggered, Score: ActionWasNotPerformed},
		},
		{
			name: "cpr marker",
			row:  ActionRow{Stage: stagePtr(1, "Action"), SubActionTime: "12:34", SubActionName: "Begin CPR", CPR: CPRStart},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsActionRow(&tt.row))
		})
	}
}

func TestIsStageBoundary(t *testing.T) {
	tests := []struct {
		name string
		row  ActionRow
		want bool
	}{
		{name: "empty fields", row: ActionRow{Stage: stagePtr(1, "Stage 1")}, want: true},
		{name: "whitespace only fields", row: ActionRow{Stage: stagePtr(1, "Stage 1"), SubActionTime: " ", Score: "  "}, want: true},
		{name: "no stage", row: ActionRow{}},
		{name: "subaction time", row: ActionRow{Stage: stagePtr(1, "Stage 1"), SubActionTime: "12:34"}},
		{name: "subaction name", row: ActionRow{Stage: stagePtr(1, "Stage 1"), SubActionName: "Pulse Check"}},
		{name: "score", row: ActionRow{Stage: stagePtr(1, "Stage 1"), Score: "10"}},
		{name: "old value", row: ActionRow{Stage: stagePtr(1, "Stage 1"), OldValue: "1"}},
		{name: "new value", row: ActionRow{Stage: stagePtr(1, "Stage 1"), NewValue: "2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsStageBoundary(&tt.row))
		})
	}
}

func TestDetectCPRMarker(t *testing.T) {
	tests := []struct {
		name string
		want CPRMarker
	}{
		{"Begin CPR", CPRStart},
		{"enter   cpr", CPRStart},
		{"  ENTER CPR ", CPRStart},
		{"Stop CPR", CPREnd},
		{"end cpr", CPREnd},
		{"CPR", CPRNone},
		{"Begin CPR now", CPRNone},
		{"", CPRNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectCPRMarker(&ActionRow{SubActionName: tt.name}))
		})
	}

	assert.Equal(t, "START", CPRStart.String())
	assert.Equal(t, "END", CPREnd.String())
	assert.Equal(t, "", CPRNone.String())
}

func TestMarkerPredicates(t *testing.T) {
	marker := &ActionRow{OldValue: " Error-Triggered ", Score: "Action-Was-Performed"}
	missed := &ActionRow{OldValue: "Error-Triggered", Score: " Action-Was-Not-Performed"}
	plain := &ActionRow{OldValue: "Error", Score: "Action-Was-Performed"}

	assert.True(t, IsErrorActionMarker(marker))
	assert.False(t, IsMissedAction(marker))
	assert.True(t, IsMissedAction(missed))
	assert.False(t, IsErrorActionMarker(missed))
	assert.False(t, IsErrorActionMarker(plain))
	assert.False(t, IsMissedAction(plain))
}

func TestCanMarkEachOther(t *testing.T) {
	tests := []struct {
		name string
		a, b *domain.RowTime
		want bool
	}{
		{"same second", timeAt(10), timeAt(10), true},
		{"marker after within window", timeAt(10), timeAt(12), true},
		{"marker before within window", timeAt(12), timeAt(10), true},
		{"outside window", timeAt(10), timeAt(13), false},
		{"outside window reversed", timeAt(13), timeAt(10), false},
		// rows without a timestamp count as time zero
		{"missing timestamp near zero", nil, timeAt(2), true},
		{"missing timestamp far from zero", nil, timeAt(100), false},
		{"both missing", nil, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &ActionRow{Timestamp: tt.a}
			b := &ActionRow{Timestamp: tt.b}
			assert.Equal(t, tt.want, CanMarkEachOther(a, b))
			assert.Equal(t, tt.want, CanMarkEachOther(b, a))
		})
	}
}

func TestIsErroneousAction(t *testing.T) {
	action := &ActionRow{ActionPoint: true, ActionVitalName: "(1) Stage 1 (action)", Timestamp: timeAt(12)}
	marker := &ActionRow{Username: "(1) Stage 1 (action)", Timestamp: timeAt(13)}

	assert.True(t, IsErroneousAction(action, marker))

	other := &ActionRow{Username: "(2) Stage 2 (action)", Timestamp: timeAt(13)}
	assert.False(t, IsErroneousAction(action, other))

	late := &ActionRow{Username: "(1) Stage 1 (action)", Timestamp: timeAt(30)}
	assert.False(t, IsErroneousAction(action, late))

	notAction := *action
	notAction.ActionPoint = false
	assert.False(t, IsErroneousAction(&notAction, marker))
}
