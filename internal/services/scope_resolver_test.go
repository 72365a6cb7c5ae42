package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"talentpipe/pkg/models"
)

func TestResolve_ClientOverridesGlobal(t *testing.T) {
	store := new(MockStore)
	resolver := NewResolver(store)

	defaultWF := &models.Workflow{ID: "wf-1", Key: "standard_hiring", Active: true, IsDefault: true}
	fintechWF := &models.Workflow{ID: "wf-2", Key: "fintech_hiring", Active: true}

	store.On("FindActiveScopes", mock.Anything, models.ScopeTypeClient, strptr("acme")).
		Return([]*models.Scope{{WorkflowID: "wf-2", Type: models.ScopeTypeClient}}, nil)
	store.On("GetWorkflow", mock.Anything, "wf-2").Return(fintechWF, nil)

	wf, err := resolver.Resolve(context.Background(), nil, nil, strptr("acme"))
	assert.NoError(t, err)
	assert.Equal(t, "fintech_hiring", wf.Key)

	// A submission for any other client falls through to the global binding.
	store.On("FindActiveScopes", mock.Anything, models.ScopeTypeClient, strptr("globex")).
		Return([]*models.Scope{}, nil)
	store.On("FindActiveScopes", mock.Anything, models.ScopeTypeGlobal, (*string)(nil)).
		Return([]*models.Scope{{WorkflowID: "wf-1", Type: models.ScopeTypeGlobal}}, nil)
	store.On("GetWorkflow", mock.Anything, "wf-1").Return(defaultWF, nil)

	wf, err = resolver.Resolve(context.Background(), nil, nil, strptr("globex"))
	assert.NoError(t, err)
	assert.Equal(t, "standard_hiring", wf.Key)
}

func TestResolve_NarrowestTierWins(t *testing.T) {
	store := new(MockStore)
	resolver := NewResolver(store)

	reqWF := &models.Workflow{ID: "wf-r", Key: "requirement_special", Active: true}

	store.On("FindActiveScopes", mock.Anything, models.ScopeTypeRequirement, strptr("req-9")).
		Return([]*models.Scope{{WorkflowID: "wf-r"}}, nil)
	store.On("GetWorkflow", mock.Anything, "wf-r").Return(reqWF, nil)

	wf, err := resolver.Resolve(context.Background(), strptr("req-9"), strptr("job-1"), strptr("acme"))
	assert.NoError(t, err)
	assert.Equal(t, "requirement_special", wf.Key)
	// Broader tiers were never consulted.
	store.AssertNotCalled(t, "FindActiveScopes", mock.Anything, models.ScopeTypeJob, mock.Anything)
	store.AssertNotCalled(t, "FindActiveScopes", mock.Anything, models.ScopeTypeClient, mock.Anything)
}

func TestResolve_TieBreak(t *testing.T) {
	store := new(MockStore)
	resolver := NewResolver(store)

	earlier := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	later := earlier.Add(24 * time.Hour)
	older := &models.Workflow{ID: "wf-old", Key: "older", Active: true, CreatedAt: earlier}
	newerDefault := &models.Workflow{ID: "wf-def", Key: "newer_default", Active: true, IsDefault: true, CreatedAt: later}

	store.On("FindActiveScopes", mock.Anything, models.ScopeTypeClient, strptr("acme")).
		Return([]*models.Scope{{WorkflowID: "wf-old"}, {WorkflowID: "wf-def"}}, nil)
	store.On("GetWorkflow", mock.Anything, "wf-old").Return(older, nil)
	store.On("GetWorkflow", mock.Anything, "wf-def").Return(newerDefault, nil)

	wf, err := resolver.Resolve(context.Background(), nil, nil, strptr("acme"))
	assert.NoError(t, err)
	assert.Equal(t, "newer_default", wf.Key, "the default flag outranks creation time")

	// Without a default in the tie, the earliest creation wins.
	store2 := new(MockStore)
	resolver2 := NewResolver(store2)
	newer := &models.Workflow{ID: "wf-new", Key: "newer", Active: true, CreatedAt: later}
	store2.On("FindActiveScopes", mock.Anything, models.ScopeTypeClient, strptr("acme")).
		Return([]*models.Scope{{WorkflowID: "wf-new"}, {WorkflowID: "wf-old"}}, nil)
	store2.On("GetWorkflow", mock.Anything, "wf-new").Return(newer, nil)
	store2.On("GetWorkflow", mock.Anything, "wf-old").Return(older, nil)

	wf, err = resolver2.Resolve(context.Background(), nil, nil, strptr("acme"))
	assert.NoError(t, err)
	assert.Equal(t, "older", wf.Key)
}

func TestResolve_InactiveWorkflowFallsThrough(t *testing.T) {
	store := new(MockStore)
	resolver := NewResolver(store)

	inactive := &models.Workflow{ID: "wf-inactive", Key: "retired", Active: false}
	defaultWF := &models.Workflow{ID: "wf-1", Key: "standard_hiring", Active: true, IsDefault: true}

	// The client binding exists but points at a deactivated workflow, so the
	// tier yields no candidate and resolution moves on.
	store.On("FindActiveScopes", mock.Anything, models.ScopeTypeClient, strptr("acme")).
		Return([]*models.Scope{{WorkflowID: "wf-inactive"}}, nil)
	store.On("GetWorkflow", mock.Anything, "wf-inactive").Return(inactive, nil)
	store.On("FindActiveScopes", mock.Anything, models.ScopeTypeGlobal, (*string)(nil)).
		Return([]*models.Scope{{WorkflowID: "wf-1"}}, nil)
	store.On("GetWorkflow", mock.Anything, "wf-1").Return(defaultWF, nil)

	wf, err := resolver.Resolve(context.Background(), nil, nil, strptr("acme"))
	assert.NoError(t, err)
	assert.Equal(t, "standard_hiring", wf.Key)
}

func TestResolve_FallbackWithoutBindings(t *testing.T) {
	store := new(MockStore)
	resolver := NewResolver(store)

	defaultWF := &models.Workflow{ID: "wf-1", Key: "standard_hiring", Active: true, IsDefault: true}

	store.On("FindActiveScopes", mock.Anything, models.ScopeTypeGlobal, (*string)(nil)).
		Return([]*models.Scope{}, nil)
	store.On("ListActiveWorkflows", mock.Anything).
		Return([]*models.Workflow{defaultWF}, nil)

	wf, err := resolver.Resolve(context.Background(), nil, nil, nil)
	assert.NoError(t, err)
	assert.Equal(t, "standard_hiring", wf.Key)
}

func TestResolve_NoActiveWorkflow(t *testing.T) {
	store := new(MockStore)
	resolver := NewResolver(store)

	store.On("FindActiveScopes", mock.Anything, models.ScopeTypeGlobal, (*string)(nil)).
		Return([]*models.Scope{}, nil)
	store.On("ListActiveWorkflows", mock.Anything).
		Return([]*models.Workflow{}, nil)

	_, err := resolver.Resolve(context.Background(), nil, nil, nil)
	assert.True(t, models.IsNotFound(err))
}

func TestResolveForSubmission(t *testing.T) {
	store := new(MockStore)
	resolver := NewResolver(store)

	defaultWF := &models.Workflow{ID: "wf-1", Key: "standard_hiring", Active: true, IsDefault: true}
	sub := &models.Submission{ID: "sub-1", ClientID: strptr("acme")}

	store.On("FindActiveScopes", mock.Anything, models.ScopeTypeClient, strptr("acme")).
		Return([]*models.Scope{}, nil)
	store.On("FindActiveScopes", mock.Anything, models.ScopeTypeGlobal, (*string)(nil)).
		Return([]*models.Scope{{WorkflowID: "wf-1"}}, nil)
	store.On("GetWorkflow", mock.Anything, "wf-1").Return(defaultWF, nil)

	wf, err := resolver.ResolveForSubmission(context.Background(), sub)
	assert.NoError(t, err)
	assert.Equal(t, "wf-1", wf.ID)
}
