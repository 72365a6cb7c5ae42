// Package models defines the domain models for the hiring pipeline service
package models

import (
	"time"
)

// Default stage keys seeded for the standard hiring ladder.
const (
	StageKeyNew       = "new"
	StageKeyScreening = "screening"
	StageKeySentToAM  = "sent_to_am"
	StageKeyInterview = "interview"
	StageKeyOffer     = "offer"
	StageKeyHired     = "hired"
	StageKeyRejected  = "rejected"
)

// Submission is a candidate matched to a job requirement. The pipeline
// service consumes it from the ATS subsystem and owns only its stage, status
// and decision timestamp.
type Submission struct {
	ID            string     `json:"id" db:"id"`
	CandidateID   string     `json:"candidate_id" db:"candidate_id"`
	JobID         *string    `json:"job_id,omitempty" db:"job_id"`
	RequirementID *string    `json:"requirement_id,omitempty" db:"requirement_id"`
	ClientID      *string    `json:"client_id,omitempty" db:"client_id"` // from the owning job
	Stage         string     `json:"stage" db:"stage"`
	Status        string     `json:"status" db:"status"`
	DecisionAt    *time.Time `json:"decision_at,omitempty" db:"decision_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// ChecklistItem is one task of the submission's current stage joined against
// its completion record, if any.
type ChecklistItem struct {
	Task        Task       `json:"task"`
	Required    bool       `json:"required"`
	Completed   bool       `json:"completed"`
	CompletedBy *string    `json:"completed_by,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
}

// Checklist is the per-submission view of task completion state for the
// submission's current stage. Items is empty when the stored stage key is
// not modeled in the resolved workflow.
type Checklist struct {
	SubmissionID string          `json:"submission_id"`
	WorkflowID   string          `json:"workflow_id"`
	WorkflowKey  string          `json:"workflow_key"`
	StageKey     string          `json:"stage_key"`
	Items        []ChecklistItem `json:"items"`
}

// Identity is the authenticated actor as extracted from OIDC claims.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// HealthStatus represents service health
type HealthStatus struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ProblemDetails represents RFC 7807 Problem Details
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}
