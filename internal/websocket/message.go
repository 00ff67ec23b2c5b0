package websocket

import (
	"errors"

	"simdash/internal/dataprocessing"
	"simdash/pkg/contracts/domain"
)

// Frame types sent alongside plot points. Point frames are the JSON
// encoding of domain.PlotPoint and carry their own type.
const (
	TypeError    = "error"
	TypeComplete = "complete"
)

// ErrorFrame reports a failure to the peer. Row failures are not fatal and
// the stream continues after them.
type ErrorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Fatal   bool   `json:"fatal"`
}

// NewErrorFrame describes err
func NewErrorFrame(err error) ErrorFrame {
	frame := ErrorFrame{
		Type:    TypeError,
		Message: err.Error(),
		Fatal:   true,
	}

	var rowErr *dataprocessing.RowError
	if errors.As(err, &rowErr) {
		frame.Line = rowErr.Line
		frame.Fatal = false
	}
	return frame
}

// CompleteFrame is the last frame of a successful stream
type CompleteFrame struct {
	Type    string                 `json:"type"`
	Summary *domain.ActionsSummary `json:"summary"`
}

// NewCompleteFrame wraps the run summary
func NewCompleteFrame(summary *domain.ActionsSummary) CompleteFrame {
	return CompleteFrame{Type: TypeComplete, Summary: summary}
}
