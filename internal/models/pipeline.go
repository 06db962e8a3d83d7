package models

import (
	"fmt"
	"time"
)

// Pipeline is one CI pipeline run.
type Pipeline struct {
	UUID             string           `json:"uuid,omitempty"`
	BuildNumber      int64            `json:"build_number,omitempty"`
	Creator          *User            `json:"creator,omitempty"`
	Repository       *Repository      `json:"repository,omitempty"`
	Target           *PipelineTarget  `json:"target,omitempty"`
	Trigger          *PipelineTrigger `json:"trigger,omitempty"`
	State            *PipelineState   `json:"state,omitempty"`
	CreatedOn        *time.Time       `json:"created_on,omitempty"`
	CompletedOn      *time.Time       `json:"completed_on,omitempty"`
	BuildSecondsUsed int64            `json:"build_seconds_used,omitempty"`
	Links            *Links           `json:"links,omitempty"`
}

// Status collapses state and result into one display string, e.g.
// "COMPLETED/SUCCESSFUL" or "IN_PROGRESS".
func (p *Pipeline) Status() string {
	if p.State == nil {
		return ""
	}
	if p.State.Result != nil && p.State.Result.Name != "" {
		return fmt.Sprintf("%s/%s", p.State.Name, p.State.Result.Name)
	}
	return p.State.Name
}

// Ref returns the branch or tag the run targeted.
func (p *Pipeline) Ref() string {
	if p.Target == nil {
		return ""
	}
	return p.Target.RefName
}

// PipelineTarget describes what a pipeline ran against.
type PipelineTarget struct {
	Type    string  `json:"type,omitempty"`
	RefType string  `json:"ref_type,omitempty"`
	RefName string  `json:"ref_name,omitempty"`
	Commit  *Commit `json:"commit,omitempty"`
}

// PipelineTrigger describes how a run was started.
type PipelineTrigger struct {
	Type string `json:"type,omitempty"`
}

// PipelineState is the run's lifecycle state plus terminal result.
type PipelineState struct {
	Name   string          `json:"name,omitempty"`
	Type   string          `json:"type,omitempty"`
	Result *PipelineResult `json:"result,omitempty"`
	Stage  *PipelineStage  `json:"stage,omitempty"`
}

// PipelineResult is the terminal outcome of a completed run.
type PipelineResult struct {
	Name string `json:"name,omitempty"`
	Type string `json:"type,omitempty"`
}

// PipelineStage is the current stage of an in-progress run.
type PipelineStage struct {
	Name string `json:"name,omitempty"`
	Type string `json:"type,omitempty"`
}

// PipelineStep is one step within a run, used for log retrieval.
type PipelineStep struct {
	UUID  string         `json:"uuid,omitempty"`
	Name  string         `json:"name,omitempty"`
	State *PipelineState `json:"state,omitempty"`
}
