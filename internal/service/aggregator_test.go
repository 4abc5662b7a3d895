package service

import (
	"context"
	"testing"
	"time"

	"model-abtest/internal/model"
	"model-abtest/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string { return &s }

func TestGroupRequestIDs(t *testing.T) {
	variants := []model.Variant{{ID: "v0"}, {ID: "v1"}}
	rows := []model.Assignment{
		{VariantID: "v0", RequestID: ptr("r1")},
		{VariantID: "v1", RequestID: ptr("r2")},
		{VariantID: "v0", RequestID: nil},
		{VariantID: "v0", RequestID: ptr("")},
		{VariantIndex: 1, RequestID: ptr("legacy-1")},
		{VariantIndex: 7, RequestID: ptr("out-of-range")},
		{VariantID: "removed", RequestID: ptr("orphan")},
		{VariantID: "v0", RequestID: ptr("r3")},
	}

	grouped := GroupRequestIDs(rows, variants)
	assert.Equal(t, []string{"r1", "r3"}, grouped["v0"])
	assert.Equal(t, []string{"r2", "legacy-1"}, grouped["v1"])
	assert.Len(t, grouped, 2)
}

func TestGroupRequestIDs_ReorderedVariantsKeepJoins(t *testing.T) {
	rows := []model.Assignment{
		{VariantIndex: 0, VariantID: "cheap", RequestID: ptr("r1")},
		{VariantIndex: 1, VariantID: "fast", RequestID: ptr("r2")},
	}
	// 变体顺序在分配之后被调换，按稳定 ID 关联不受影响
	reordered := []model.Variant{{ID: "fast"}, {ID: "cheap"}}

	grouped := GroupRequestIDs(rows, reordered)
	assert.Equal(t, []string{"r1"}, grouped["cheap"])
	assert.Equal(t, []string{"r2"}, grouped["fast"])
}

func TestAssignmentAggregator_ReadsCurrentState(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	exp := &model.Experiment{ID: "exp", Variants: []model.Variant{{ID: "v0"}, {ID: "v1"}}}
	agg := NewAssignmentAggregator(st)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	grouped, err := agg.Aggregate(ctx, exp)
	require.NoError(t, err)
	assert.Empty(t, grouped)

	st.AddAssignment(model.Assignment{ExperimentID: "exp", VariantID: "v1", RequestID: ptr("late"), AssignedAt: base.Add(time.Minute)})
	st.AddAssignment(model.Assignment{ExperimentID: "exp", VariantID: "v1", RequestID: ptr("early"), AssignedAt: base})

	grouped, err = agg.Aggregate(ctx, exp)
	require.NoError(t, err)
	assert.Equal(t, []string{"early", "late"}, grouped["v1"])
}
