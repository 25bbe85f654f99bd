package entity

import (
	"path/filepath"
	"strings"
	"time"
)

type Stage string

const (
	StageTranscribe  Stage = "transcribe"
	StageSummarize   Stage = "summarize"
	StageActionItems Stage = "action_items"
)

// Stages lists the pipeline stages in display order.
var Stages = []Stage{StageTranscribe, StageSummarize, StageActionItems}

type StageState string

const (
	StateIdle    StageState = "idle"
	StateRunning StageState = "running"
	StateDone    StageState = "done"
	StateFailed  StageState = "failed"
)

type AudioInput struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Format returns the lower-cased file extension without the dot.
func (a AudioInput) Format() string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(a.Filename)), ".")
}

type ActionItem struct {
	Task    string `json:"task" yaml:"task"`
	Owner   string `json:"owner,omitempty" yaml:"owner,omitempty"`
	DueDate string `json:"due_date,omitempty" yaml:"due_date,omitempty"`
}

type OutcomeKind string

const (
	OutcomeSuccess        OutcomeKind = "success"
	OutcomePartialFailure OutcomeKind = "partial_failure"
	OutcomeTotalFailure   OutcomeKind = "total_failure"
)

type StageFailure struct {
	Stage  Stage  `json:"stage" yaml:"stage"`
	Reason string `json:"reason" yaml:"reason"`
	// Message is the user-facing text shown in place of the stage result.
	Message string `json:"message" yaml:"message"`
}

type RunOutcome struct {
	Kind        OutcomeKind    `json:"kind" yaml:"kind"`
	Transcript  string         `json:"transcript,omitempty" yaml:"transcript,omitempty"`
	Summary     *string        `json:"summary,omitempty" yaml:"summary,omitempty"`
	ActionItems []ActionItem   `json:"action_items,omitempty" yaml:"action_items,omitempty"`
	Failures    []StageFailure `json:"failures,omitempty" yaml:"failures,omitempty"`
	Reason      string         `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Failure returns the failure recorded for stage, if any.
func (o RunOutcome) Failure(stage Stage) (StageFailure, bool) {
	for _, f := range o.Failures {
		if f.Stage == stage {
			return f, true
		}
	}
	return StageFailure{}, false
}

type Run struct {
	ID         string               `json:"id"`
	Filename   string               `json:"filename"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt *time.Time           `json:"finished_at,omitempty"`
	Stages     map[Stage]StageState `json:"stages"`
	Outcome    *RunOutcome          `json:"outcome,omitempty"`
}

// Busy reports whether the stage shows a busy indicator.
func (r *Run) Busy(stage Stage) bool {
	return r.Stages[stage] == StateRunning
}
