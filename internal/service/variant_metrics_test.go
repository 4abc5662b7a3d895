package service

import (
	"context"
	"fmt"
	"testing"

	"model-abtest/internal/model"
	"model-abtest/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCalculator_Averages(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	st.PutOutcome(model.Outcome{RequestID: "r1", Cost: 0.001, DurationMs: 100, Status: "success", SchemaPass: true})
	st.PutOutcome(model.Outcome{RequestID: "r2", Cost: 0.003, DurationMs: 300, Status: "error", SchemaPass: false})
	st.PutOutcome(model.Outcome{RequestID: "r3", Cost: 0.002, DurationMs: 200, Status: "success", SchemaPass: false})
	st.PutOutcome(model.Outcome{RequestID: "r4", Cost: 0.002, DurationMs: 200, Status: "timeout", SchemaPass: true})

	variants := []model.Variant{
		{ID: "v0", Name: "a", Model: "m-a", Weight: 70},
		{ID: "v1", Name: "b", Model: "m-b", Weight: 30},
	}
	grouped := map[string][]string{
		// r-missing 没有结果行，不计入 sample_count
		"v0": {"r1", "r2", "r3", "r4", "r-missing"},
	}

	results, err := NewMetricsCalculator(st).Compute(ctx, variants, grouped)
	require.NoError(t, err)
	require.Len(t, results, 2)

	r := results[0]
	assert.Equal(t, 0, r.VariantIndex)
	assert.Equal(t, "v0", r.VariantID)
	assert.Equal(t, "m-a", r.Model)
	assert.Equal(t, 70.0, r.Weight)
	assert.Equal(t, 5, r.AssignmentCount)
	assert.Equal(t, 4, r.SampleCount)
	assert.InDelta(t, 0.002, r.AvgCost, 1e-12)
	assert.InDelta(t, 200, r.AvgLatency, 1e-9)
	assert.InDelta(t, 50, r.SuccessRate, 1e-9)
	assert.InDelta(t, 50, r.SchemaPassRate, 1e-9)

	empty := results[1]
	assert.Equal(t, 1, empty.VariantIndex)
	assert.Equal(t, 0, empty.SampleCount)
	assert.Zero(t, empty.AvgCost)
	assert.Zero(t, empty.AvgLatency)
	assert.Zero(t, empty.SuccessRate)
	assert.Zero(t, empty.SchemaPassRate)
}

func TestMetricsCalculator_IDsWithoutOutcomesAreZero(t *testing.T) {
	st := store.NewMemoryStore()
	results, err := NewMetricsCalculator(st).Compute(context.Background(),
		[]model.Variant{{ID: "v0"}},
		map[string][]string{"v0": {"x", "y"}})
	require.NoError(t, err)
	assert.Equal(t, 2, results[0].AssignmentCount)
	assert.Equal(t, 0, results[0].SampleCount)
	assert.Zero(t, results[0].SuccessRate)
}

func TestMetricsCalculator_TruncatesToFirst1000(t *testing.T) {
	st := store.NewMemoryStore()
	var ids []string
	for i := 0; i < 1200; i++ {
		id := fmt.Sprintf("r%04d", i)
		ids = append(ids, id)
		cost := 0.001
		// 前 1000 条之后的结果都很贵，被截断后不应影响均值
		if i >= MaxSamplesPerVariant {
			cost = 1
		}
		st.PutOutcome(model.Outcome{RequestID: id, Cost: cost, DurationMs: 10, Status: "success", SchemaPass: true})
	}

	results, err := NewMetricsCalculator(st).Compute(context.Background(),
		[]model.Variant{{ID: "v0"}},
		map[string][]string{"v0": ids})
	require.NoError(t, err)
	assert.Equal(t, 1200, results[0].AssignmentCount)
	assert.Equal(t, MaxSamplesPerVariant, results[0].SampleCount)
	assert.InDelta(t, 0.001, results[0].AvgCost, 1e-12)
}
