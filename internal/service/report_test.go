package service

import (
	"testing"
	"time"

	"model-abtest/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestRenderResultsMarkdown(t *testing.T) {
	res := &ExperimentResults{
		TestID:           "exp-1",
		Status:           model.StatusRunning,
		SampleSizeTarget: 1000,
		TotalSamples:     27,
		Progress:         3,
		Variants: []VariantResult{
			{VariantIndex: 0, Name: "cheap", Model: "small", Weight: 60, AssignmentCount: 12, SampleCount: 12, AvgCost: 0.002, AvgLatency: 800, SuccessRate: 100, SchemaPassRate: 100},
			{VariantIndex: 1, Name: "smart", Model: "large", Weight: 40, AssignmentCount: 15, SampleCount: 15, AvgCost: 0.004, AvgLatency: 1200, SuccessRate: 90, SchemaPassRate: 90},
		},
		EvaluatedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	md := RenderResultsMarkdown(res)
	assert.Contains(t, md, "- test_id: exp-1")
	assert.Contains(t, md, "- samples: 27 / 1000 (3%)")
	assert.Contains(t, md, "| 0 | cheap | small | 60.00 | 12 | 12 | 0.002000 | 800.0 | 100.0% | 100.0% |")
	assert.Contains(t, md, "暂无胜出者")

	res.Winner = &Winner{VariantIndex: 0, VariantName: "cheap", Confidence: 51, CostSavingsPer1000: 2, Reason: winnerReason}
	md = RenderResultsMarkdown(res)
	assert.Contains(t, md, "- winner: #0 cheap")
	assert.Contains(t, md, "- confidence: 51%")
	assert.Contains(t, md, "- cost_savings_per_1000: 2.00")
	assert.NotContains(t, md, "暂无胜出者")
}
