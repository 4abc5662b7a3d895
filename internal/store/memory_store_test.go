package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"model-abtest/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestMemoryStore_ExperimentCRUD(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	exp := &model.Experiment{
		ID:          "exp-1",
		Name:        "cheap vs fast",
		Environment: model.DefaultEnvironment,
		Status:      model.StatusDraft,
		Variants: []model.Variant{
			{ID: "v0", Name: "a", Model: "m-a", Weight: 50},
			{ID: "v1", Name: "b", Model: "m-b", Weight: 50},
		},
		Metrics: map[string]interface{}{"k": "v"},
	}
	require.NoError(t, s.CreateExperiment(ctx, exp))
	require.Error(t, s.CreateExperiment(ctx, exp))

	got, err := s.GetExperiment(ctx, "exp-1")
	require.NoError(t, err)
	assert.Equal(t, exp.Variants, got.Variants)

	// 返回的是副本，修改不影响存储
	got.Variants[0].Name = "mutated"
	got.Metrics["k"] = "changed"
	again, err := s.GetExperiment(ctx, "exp-1")
	require.NoError(t, err)
	assert.Equal(t, "a", again.Variants[0].Name)
	assert.Equal(t, "v", again.Metrics["k"])

	again.Status = model.StatusRunning
	require.NoError(t, s.SaveExperiment(ctx, again))
	saved, err := s.GetExperiment(ctx, "exp-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusRunning, saved.Status)

	require.NoError(t, s.DeleteExperiment(ctx, "exp-1"))
	_, err = s.GetExperiment(ctx, "exp-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteExperiment(ctx, "exp-1"), ErrNotFound)
	assert.ErrorIs(t, s.SaveExperiment(ctx, again), ErrNotFound)
}

func TestMemoryStore_ListExperimentsFilters(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, st := range []model.ExperimentStatus{model.StatusDraft, model.StatusRunning, model.StatusRunning} {
		require.NoError(t, s.CreateExperiment(ctx, &model.Experiment{
			ID:          fmt.Sprintf("exp-%d", i),
			Environment: model.DefaultEnvironment,
			Status:      st,
			CreatedAt:   base.Add(time.Duration(i) * time.Hour),
		}))
	}
	require.NoError(t, s.CreateExperiment(ctx, &model.Experiment{
		ID:          "staging-exp",
		Environment: "staging",
		Status:      model.StatusRunning,
	}))

	all, err := s.ListExperiments(ctx, ListFilter{Environment: model.DefaultEnvironment})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "exp-2", all[0].ID)
	assert.Equal(t, "exp-0", all[2].ID)

	running, err := s.ListExperiments(ctx, ListFilter{Environment: model.DefaultEnvironment, Status: model.StatusRunning})
	require.NoError(t, err)
	assert.Len(t, running, 2)

	staging, err := s.ListExperiments(ctx, ListFilter{Environment: "staging"})
	require.NoError(t, err)
	require.Len(t, staging, 1)
	assert.Equal(t, "staging-exp", staging[0].ID)
}

func TestMemoryStore_AssignmentOrdering(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	s.AddAssignment(model.Assignment{ExperimentID: "e", RequestID: strPtr("r2"), AssignedAt: base.Add(2 * time.Second)})
	s.AddAssignment(model.Assignment{ExperimentID: "e", RequestID: strPtr("r0"), AssignedAt: base})
	s.AddAssignment(model.Assignment{ExperimentID: "e", RequestID: strPtr("r1"), AssignedAt: base.Add(time.Second)})
	s.AddAssignment(model.Assignment{ExperimentID: "other", RequestID: strPtr("x"), AssignedAt: base})

	rows, err := s.GetAssignments(ctx, "e")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "r0", *rows[0].RequestID)
	assert.Equal(t, "r2", *rows[2].RequestID)

	recent, err := s.RecentAssignments(ctx, "e", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "r2", *recent[0].RequestID)
	assert.Equal(t, "r1", *recent[1].RequestID)
}

func TestMemoryStore_GetOutcomes(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.PutOutcome(model.Outcome{RequestID: "a", Cost: 1})
	s.PutOutcome(model.Outcome{RequestID: "b", Cost: 2})

	rows, err := s.GetOutcomes(ctx, []string{"a", "missing", "b", "a"})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	ids := make([]string, MaxOutcomeBatch+1)
	_, err = s.GetOutcomes(ctx, ids)
	assert.ErrorIs(t, err, ErrBatchTooLarge)
}
