package service

import (
	"math"
	"sort"
)

const (
	// EligibilityFloor 参与评选的最小样本数
	EligibilityFloor = 10

	costWeight    = 0.3
	latencyWeight = 0.3
	qualityWeight = 0.4

	baseConfidence  = 50
	confidenceRange = 45
	maxConfidence   = 95

	winnerReason = "Best weighted score across cost, latency and quality among variants with enough samples"
)

type Winner struct {
	VariantIndex       int     `json:"variant_index"`
	VariantID          string  `json:"variant_id"`
	VariantName        string  `json:"variant_name"`
	Reason             string  `json:"reason"`
	Confidence         int     `json:"confidence"`
	CostSavingsPer1000 float64 `json:"cost_savings_per_1000"`
}

// ConfidenceEstimator 根据领先的两个变体给出置信度（整数百分比）
type ConfidenceEstimator interface {
	Confidence(best, second VariantResult, sampleSizeTarget int) int
}

// HeuristicConfidence 50 + 较小样本数占目标样本量的比例 * 45，上限 95。
// 不是显著性检验。
type HeuristicConfidence struct{}

func (HeuristicConfidence) Confidence(best, second VariantResult, sampleSizeTarget int) int {
	if sampleSizeTarget <= 0 {
		return baseConfidence
	}
	n := best.SampleCount
	if second.SampleCount < n {
		n = second.SampleCount
	}
	c := int(math.Round(baseConfidence + float64(n)/float64(sampleSizeTarget)*confidenceRange))
	if c > maxConfidence {
		return maxConfidence
	}
	return c
}

type WinnerSelector struct {
	estimator ConfidenceEstimator
}

func NewWinnerSelector(estimator ConfidenceEstimator) *WinnerSelector {
	if estimator == nil {
		estimator = HeuristicConfidence{}
	}
	return &WinnerSelector{estimator: estimator}
}

// Score 成本、延迟取倒数（未做跨变体归一化），质量取成功率与 schema 通过率的均值
func Score(r VariantResult) float64 {
	var costScore, latencyScore float64
	if r.AvgCost > 0 {
		costScore = 1 / r.AvgCost
	}
	if r.AvgLatency > 0 {
		latencyScore = 1 / r.AvgLatency
	}
	qualityScore := (r.SuccessRate + r.SchemaPassRate) / 200

	return costWeight*costScore + latencyWeight*latencyScore + qualityWeight*qualityScore
}

// Select 合格变体少于 2 个时返回 nil，表示数据还不够
func (s *WinnerSelector) Select(results []VariantResult, sampleSizeTarget int) *Winner {
	type scored struct {
		result VariantResult
		score  float64
	}

	var eligible []scored
	for _, r := range results {
		if r.SampleCount >= EligibilityFloor {
			eligible = append(eligible, scored{result: r, score: Score(r)})
		}
	}
	if len(eligible) < 2 {
		return nil
	}

	// 稳定排序：同分按声明顺序
	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].score > eligible[j].score
	})
	best, second := eligible[0].result, eligible[1].result

	savings := math.Round((second.AvgCost-best.AvgCost)*1000*100) / 100
	if savings <= 0 {
		savings = 0
	}

	return &Winner{
		VariantIndex:       best.VariantIndex,
		VariantID:          best.VariantID,
		VariantName:        best.Name,
		Reason:             winnerReason,
		Confidence:         s.estimator.Confidence(best, second, sampleSizeTarget),
		CostSavingsPer1000: savings,
	}
}
