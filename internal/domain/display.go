package domain

import (
	"fmt"
	"time"
)

// ConcentrationScale converts raw model output into µg/m³.
const ConcentrationScale = 1e6

// FormatConcentration renders a raw prediction for display.
func FormatConcentration(raw float64) string {
	return fmt.Sprintf("%.1f µg/m³", raw*ConcentrationScale)
}

// Phase is the lifecycle position of the active selection.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseLoading   Phase = "loading"
	PhaseSucceeded Phase = "succeeded"
	PhaseFailed    Phase = "failed"
)

// Settled reports whether the phase is a terminal outcome for a request.
func (p Phase) Settled() bool {
	return p == PhaseSucceeded || p == PhaseFailed
}

// DisplayState is what the presentation layer renders for the current
// selection. Value and Concentration are set only when succeeded; Error and
// ErrorKind only when failed.
type DisplayState struct {
	Phase         Phase       `json:"phase"`
	Selection     *Coordinate `json:"selection,omitempty"`
	RequestID     string      `json:"request_id,omitempty"`
	Generation    uint64      `json:"generation"`
	Value         *float64    `json:"value,omitempty"`
	Concentration string      `json:"concentration,omitempty"`
	Error         string      `json:"error,omitempty"`
	ErrorKind     ErrorKind   `json:"error_kind,omitempty"`
	UpdatedAt     time.Time   `json:"updated_at"`
}
