package models

import (
	"time"
)

// ScopeType identifies which tenant-slice a workflow binding applies to.
type ScopeType string

const (
	ScopeTypeGlobal      ScopeType = "global"
	ScopeTypeClient      ScopeType = "client"
	ScopeTypeJob         ScopeType = "job"
	ScopeTypeRequirement ScopeType = "requirement"
)

// Valid reports whether the scope type is one of the allowed values.
func (t ScopeType) Valid() bool {
	switch t {
	case ScopeTypeGlobal, ScopeTypeClient, ScopeTypeJob, ScopeTypeRequirement:
		return true
	}
	return false
}

// Workflow is a named hiring pipeline definition: an ordered set of stages
// with gating tasks. Exactly one workflow carries the default flag.
type Workflow struct {
	ID          string    `json:"id" db:"id"`
	Key         string    `json:"key" db:"key"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description,omitempty" db:"description"`
	Active      bool      `json:"active" db:"active"`
	IsDefault   bool      `json:"is_default" db:"is_default"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Stage is one ordered step of a workflow. Order indices are unique within a
// workflow and define the only valid forward progression. A terminal stage
// ends the submission lifecycle and stamps the decision timestamp.
type Stage struct {
	ID         string    `json:"id" db:"id"`
	WorkflowID string    `json:"workflow_id" db:"workflow_id"`
	Key        string    `json:"key" db:"key"`
	Name       string    `json:"name" db:"name"`
	Order      int       `json:"order" db:"stage_order"`
	Color      *string   `json:"color,omitempty" db:"color"`
	Terminal   bool      `json:"terminal" db:"terminal"`
	Rejection  bool      `json:"rejection" db:"rejection"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Task is a unit of work attached to a stage. A required task blocks the
// advance out of its stage until completed by the responsible role.
type Task struct {
	ID         string    `json:"id" db:"id"`
	WorkflowID string    `json:"workflow_id" db:"workflow_id"`
	StageID    string    `json:"stage_id" db:"stage_id"`
	Key        string    `json:"key" db:"key"`
	Name       string    `json:"name" db:"name"`
	Role       string    `json:"role" db:"role"`
	ResourceID *string   `json:"resource_id,omitempty" db:"resource_id"`
	ActionID   *string   `json:"action_id,omitempty" db:"action_id"`
	Required   bool      `json:"required" db:"required"`
	HelpURL    *string   `json:"help_url,omitempty" db:"help_url"`
	Order      int       `json:"order" db:"task_order"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Scope binds a workflow to a tenant-slice. Value is nil exactly when the
// type is global. At most one active binding exists per
// (workflow, type, value) tuple.
type Scope struct {
	ID         string    `json:"id" db:"id"`
	WorkflowID string    `json:"workflow_id" db:"workflow_id"`
	Type       ScopeType `json:"scope_type" db:"scope_type"`
	Value      *string   `json:"scope_value,omitempty" db:"scope_value"`
	Active     bool      `json:"active" db:"active"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// TaskCompletion records that a task was satisfied for one submission.
// At most one row exists per (submission, task); re-completing overwrites
// completer, notes and timestamp.
type TaskCompletion struct {
	SubmissionID string    `json:"submission_id" db:"submission_id"`
	TaskID       string    `json:"task_id" db:"task_id"`
	CompletedBy  string    `json:"completed_by" db:"completed_by"`
	Notes        *string   `json:"notes,omitempty" db:"notes"`
	CompletedAt  time.Time `json:"completed_at" db:"completed_at"`
}
