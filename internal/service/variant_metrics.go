package service

import (
	"context"

	"model-abtest/internal/model"
	"model-abtest/internal/store"
)

// MaxSamplesPerVariant 每个变体参与计算的 request_id 上限（按分配顺序取前缀）
const MaxSamplesPerVariant = store.MaxOutcomeBatch

// VariantResult 单个变体的统计结果。
// SampleCount 是实际关联到结果的行数；AssignmentCount 是带 request_id 的分配数。
type VariantResult struct {
	VariantIndex    int     `json:"variant_index"`
	VariantID       string  `json:"variant_id"`
	Name            string  `json:"name"`
	Model           string  `json:"model"`
	Weight          float64 `json:"weight"`
	AssignmentCount int     `json:"assignment_count"`
	SampleCount     int     `json:"sample_count"`
	AvgCost         float64 `json:"avg_cost"`
	AvgLatency      float64 `json:"avg_latency"`
	SuccessRate     float64 `json:"success_rate"`
	SchemaPassRate  float64 `json:"schema_pass_rate"`
}

// MetricsCalculator 把每个变体的 request_id 关联到结果行并求均值/比率
type MetricsCalculator struct {
	store store.Store
}

func NewMetricsCalculator(st store.Store) *MetricsCalculator {
	return &MetricsCalculator{store: st}
}

// Compute 按变体声明顺序输出；任一查询失败则整体失败
func (c *MetricsCalculator) Compute(ctx context.Context, variants []model.Variant, grouped map[string][]string) ([]VariantResult, error) {
	results := make([]VariantResult, 0, len(variants))

	for i, v := range variants {
		ids := grouped[v.ID]
		r := VariantResult{
			VariantIndex:    i,
			VariantID:       v.ID,
			Name:            v.Name,
			Model:           v.Model,
			Weight:          v.Weight,
			AssignmentCount: len(ids),
		}

		if len(ids) > MaxSamplesPerVariant {
			ids = ids[:MaxSamplesPerVariant]
		}
		if len(ids) > 0 {
			rows, err := c.store.GetOutcomes(ctx, ids)
			if err != nil {
				return nil, &StoreError{Op: "get_outcomes", Err: err}
			}
			summarizeOutcomes(&r, rows)
		}

		results = append(results, r)
	}
	return results, nil
}

// summarizeOutcomes 没有结果行时保持全 0
func summarizeOutcomes(r *VariantResult, rows []model.Outcome) {
	n := len(rows)
	r.SampleCount = n
	if n == 0 {
		return
	}

	var costSum, latencySum float64
	var success, schemaPass int
	for _, o := range rows {
		costSum += o.Cost
		latencySum += float64(o.DurationMs)
		if o.Status == model.OutcomeStatusSuccess {
			success++
		}
		if o.SchemaPass {
			schemaPass++
		}
	}

	r.AvgCost = costSum / float64(n)
	r.AvgLatency = latencySum / float64(n)
	r.SuccessRate = 100 * float64(success) / float64(n)
	r.SchemaPassRate = 100 * float64(schemaPass) / float64(n)
}
