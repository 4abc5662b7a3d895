package service

import (
	"fmt"
	"strings"
	"time"
)

// RenderResultsMarkdown 把评估结果渲染成 Markdown，供 CLI 输出或贴到评审文档
func RenderResultsMarkdown(res *ExperimentResults) string {
	var b strings.Builder
	b.WriteString("# 实验评估结果\n\n")
	b.WriteString(fmt.Sprintf("- test_id: %s\n", res.TestID))
	b.WriteString(fmt.Sprintf("- status: %s\n", res.Status))
	b.WriteString(fmt.Sprintf("- samples: %d / %d (%d%%)\n", res.TotalSamples, res.SampleSizeTarget, res.Progress))
	b.WriteString(fmt.Sprintf("- evaluated_at: %s\n\n", res.EvaluatedAt.Format(time.RFC3339)))

	b.WriteString("## 变体指标\n\n")
	b.WriteString("| # | 变体 | 模型 | 权重 | 分配 | 样本 | 平均成本 | 平均延迟(ms) | 成功率 | Schema通过率 |\n")
	b.WriteString("| ---: | --- | --- | ---: | ---: | ---: | ---: | ---: | ---: | ---: |\n")
	for _, v := range res.Variants {
		b.WriteString(fmt.Sprintf("| %d | %s | %s | %.2f | %d | %d | %.6f | %.1f | %.1f%% | %.1f%% |\n",
			v.VariantIndex, v.Name, v.Model, v.Weight, v.AssignmentCount, v.SampleCount,
			v.AvgCost, v.AvgLatency, v.SuccessRate, v.SchemaPassRate))
	}
	b.WriteString("\n")

	b.WriteString("## 结论\n\n")
	if res.Winner == nil {
		b.WriteString(fmt.Sprintf("- 暂无胜出者：至少需要 2 个变体各有 >= %d 条样本\n", EligibilityFloor))
		return b.String()
	}
	w := res.Winner
	b.WriteString(fmt.Sprintf("- winner: #%d %s\n", w.VariantIndex, w.VariantName))
	b.WriteString(fmt.Sprintf("- confidence: %d%%\n", w.Confidence))
	b.WriteString(fmt.Sprintf("- cost_savings_per_1000: %.2f\n", w.CostSavingsPer1000))
	b.WriteString(fmt.Sprintf("- reason: %s\n", w.Reason))
	return b.String()
}
