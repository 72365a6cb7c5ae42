package services

import (
	"context"

	"talentpipe/internal/repository"
	"talentpipe/pkg/models"
)

// Resolver picks the one workflow that applies to a submission.
type Resolver struct {
	store repository.Store
}

// NewResolver creates a new Resolver.
func NewResolver(store repository.Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve checks active scope bindings in strict priority order:
// requirement, then job, then client, then global. At the first tier with a
// match, ties break on the default flag and then the earliest creation
// timestamp. With no tier match the active default workflow applies, else
// the earliest active workflow. It fails only when no active workflow
// exists at all.
func (r *Resolver) Resolve(ctx context.Context, requirementID, jobID, clientID *string) (*models.Workflow, error) {
	return ResolveWorkflow(ctx, r.store, requirementID, jobID, clientID)
}

// ResolveForSubmission resolves using the submission's own identifiers.
func (r *Resolver) ResolveForSubmission(ctx context.Context, sub *models.Submission) (*models.Workflow, error) {
	return ResolveWorkflow(ctx, r.store, sub.RequirementID, sub.JobID, sub.ClientID)
}

// ResolveWorkflow is the resolution algorithm bound to an explicit store, so
// the transition engine can run it against a transaction-scoped store.
func ResolveWorkflow(ctx context.Context, store repository.Store, requirementID, jobID, clientID *string) (*models.Workflow, error) {
	type probe struct {
		scopeType models.ScopeType
		value     *string
	}
	var probes []probe
	if requirementID != nil && *requirementID != "" {
		probes = append(probes, probe{models.ScopeTypeRequirement, requirementID})
	}
	if jobID != nil && *jobID != "" {
		probes = append(probes, probe{models.ScopeTypeJob, jobID})
	}
	if clientID != nil && *clientID != "" {
		probes = append(probes, probe{models.ScopeTypeClient, clientID})
	}
	probes = append(probes, probe{models.ScopeTypeGlobal, nil})

	for _, p := range probes {
		scopes, err := store.FindActiveScopes(ctx, p.scopeType, p.value)
		if err != nil {
			return nil, err
		}
		var candidates []*models.Workflow
		for _, sc := range scopes {
			wf, err := store.GetWorkflow(ctx, sc.WorkflowID)
			if err != nil {
				if models.IsNotFound(err) {
					continue
				}
				return nil, err
			}
			if wf.Active {
				candidates = append(candidates, wf)
			}
		}
		if len(candidates) > 0 {
			return pickWorkflow(candidates), nil
		}
	}

	// No binding matched anywhere: the active default applies, else the
	// earliest active workflow.
	active, err := store.ListActiveWorkflows(ctx)
	if err != nil {
		return nil, err
	}
	if len(active) == 0 {
		return nil, models.NotFoundf("no active workflow exists")
	}
	return pickWorkflow(active), nil
}

// pickWorkflow prefers the default-flagged workflow, then the one created
// earliest.
func pickWorkflow(candidates []*models.Workflow) *models.Workflow {
	best := candidates[0]
	for _, wf := range candidates[1:] {
		if wf.IsDefault != best.IsDefault {
			if wf.IsDefault {
				best = wf
			}
			continue
		}
		if wf.CreatedAt.Before(best.CreatedAt) {
			best = wf
		}
	}
	return best
}
