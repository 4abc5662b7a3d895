package service

import (
	"context"

	"model-abtest/internal/model"
	"model-abtest/internal/store"
)

// AssignmentAggregator 把原始分配事件按变体分组
type AssignmentAggregator struct {
	store store.Store
}

func NewAssignmentAggregator(st store.Store) *AssignmentAggregator {
	return &AssignmentAggregator{store: st}
}

// Aggregate 每次调用都重新读取全部分配记录，不做缓存
func (a *AssignmentAggregator) Aggregate(ctx context.Context, exp *model.Experiment) (map[string][]string, error) {
	rows, err := a.store.GetAssignments(ctx, exp.ID)
	if err != nil {
		return nil, &StoreError{Op: "get_assignments", Err: err}
	}
	return GroupRequestIDs(rows, exp.Variants), nil
}

// GroupRequestIDs 返回 variant_id -> request_id 列表，保持输入顺序。
// 带稳定 ID 的记录按 ID 关联；旧记录按下标映射到当前变体列表。
// 没有 request_id 或对不上任何当前变体的记录被丢弃。
func GroupRequestIDs(assignments []model.Assignment, variants []model.Variant) map[string][]string {
	known := make(map[string]struct{}, len(variants))
	for _, v := range variants {
		known[v.ID] = struct{}{}
	}

	grouped := make(map[string][]string, len(variants))
	for _, a := range assignments {
		if a.RequestID == nil || *a.RequestID == "" {
			continue
		}

		variantID := a.VariantID
		if variantID == "" {
			if a.VariantIndex < 0 || a.VariantIndex >= len(variants) {
				continue
			}
			variantID = variants[a.VariantIndex].ID
		} else if _, ok := known[variantID]; !ok {
			continue
		}

		grouped[variantID] = append(grouped[variantID], *a.RequestID)
	}
	return grouped
}
