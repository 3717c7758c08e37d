package models

import "time"

// StageStatus is the outcome of one pipeline stage.
type StageStatus string

const (
	// StageOK completed normally.
	StageOK StageStatus = "ok"
	// StageFailed hit a fatal error.
	StageFailed StageStatus = "failed"
	// StageSkipped was disabled or gated off.
	StageSkipped StageStatus = "skipped"
	// StageAborted never ran because an earlier stage failed.
	StageAborted StageStatus = "aborted"
)

// StageResult records how one stage ended.
type StageResult struct {
	Name   string      `json:"name"`
	Status StageStatus `json:"status"`
	Error  string      `json:"error,omitempty"`
}

// EvalError is a per-symbol evaluation failure that did not stop the run.
// It keeps "no action" distinguishable from "prevented by error".
type EvalError struct {
	Symbol string `json:"symbol"`
	Rule   string `json:"rule"`
	Err    string `json:"error"`
}

// RunReport is the complete record of one run: what was proposed, what was
// dropped and why, what was submitted, and every error along the way.
type RunReport struct {
	RunID     string           `json:"run_id"`
	StartedAt time.Time        `json:"started_at"`
	DryRun    bool             `json:"dry_run"`
	Stages    []StageResult    `json:"stages"`
	Proposed  []ProposedAction `json:"proposed"`
	Dropped   []DroppedAction  `json:"dropped"`
	Submitted []OrderResult    `json:"submitted"`
	Errors    []EvalError      `json:"errors"`
	Fatal     string           `json:"fatal,omitempty"`
}

// AddStage appends a stage result.
func (r *RunReport) AddStage(name string, status StageStatus, err error) {
	sr := StageResult{Name: name, Status: status}
	if err != nil {
		sr.Error = err.Error()
	}
	r.Stages = append(r.Stages, sr)
}

// AddError records a per-symbol evaluation failure.
func (r *RunReport) AddError(symbol, rule string, err error) {
	r.Errors = append(r.Errors, EvalError{Symbol: symbol, Rule: rule, Err: err.Error()})
}
