package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"model-abtest/internal/model"
)

// MemoryStore 进程内实现，用于本地调试和测试
type MemoryStore struct {
	mu           sync.RWMutex
	experiments  map[string]model.Experiment
	assignments  map[string][]model.Assignment
	outcomes     map[string]model.Outcome
	nextAssignID uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		experiments: make(map[string]model.Experiment),
		assignments: make(map[string][]model.Assignment),
		outcomes:    make(map[string]model.Outcome),
	}
}

func (s *MemoryStore) CreateExperiment(_ context.Context, exp *model.Experiment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.experiments[exp.ID]; ok {
		return fmt.Errorf("实验已存在: %s", exp.ID)
	}
	now := time.Now()
	if exp.CreatedAt.IsZero() {
		exp.CreatedAt = now
	}
	exp.UpdatedAt = now
	s.experiments[exp.ID] = cloneExperiment(*exp)
	return nil
}

func (s *MemoryStore) SaveExperiment(_ context.Context, exp *model.Experiment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.experiments[exp.ID]; !ok {
		return ErrNotFound
	}
	exp.UpdatedAt = time.Now()
	s.experiments[exp.ID] = cloneExperiment(*exp)
	return nil
}

func (s *MemoryStore) GetExperiment(_ context.Context, id string) (*model.Experiment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exp, ok := s.experiments[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneExperiment(exp)
	return &out, nil
}

func (s *MemoryStore) ListExperiments(_ context.Context, filter ListFilter) ([]model.Experiment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var list []model.Experiment
	for _, exp := range s.experiments {
		if exp.Environment != filter.Environment {
			continue
		}
		if filter.Status != "" && exp.Status != filter.Status {
			continue
		}
		list = append(list, cloneExperiment(exp))
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID > list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

func (s *MemoryStore) DeleteExperiment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.experiments[id]; !ok {
		return ErrNotFound
	}
	delete(s.experiments, id)
	return nil
}

func (s *MemoryStore) GetAssignments(_ context.Context, experimentID string) ([]model.Assignment, error) {
	s.mu.RLock()
	rows := append([]model.Assignment(nil), s.assignments[experimentID]...)
	s.mu.RUnlock()

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].AssignedAt.Equal(rows[j].AssignedAt) {
			return rows[i].ID < rows[j].ID
		}
		return rows[i].AssignedAt.Before(rows[j].AssignedAt)
	})
	return rows, nil
}

func (s *MemoryStore) RecentAssignments(ctx context.Context, experimentID string, limit int) ([]model.Assignment, error) {
	rows, _ := s.GetAssignments(ctx, experimentID)
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	if limit >= 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (s *MemoryStore) GetOutcomes(_ context.Context, requestIDs []string) ([]model.Outcome, error) {
	if len(requestIDs) > MaxOutcomeBatch {
		return nil, fmt.Errorf("%w: %d", ErrBatchTooLarge, len(requestIDs))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []model.Outcome
	seen := make(map[string]struct{}, len(requestIDs))
	for _, id := range requestIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if o, ok := s.outcomes[id]; ok {
			rows = append(rows, o)
		}
	}
	return rows, nil
}

// AddAssignment 模拟网关写入分配记录
func (s *MemoryStore) AddAssignment(a model.Assignment) model.Assignment {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextAssignID++
	a.ID = s.nextAssignID
	if a.AssignedAt.IsZero() {
		a.AssignedAt = time.Now()
	}
	s.assignments[a.ExperimentID] = append(s.assignments[a.ExperimentID], a)
	return a
}

// PutOutcome 模拟网关写入请求结果，同一 request_id 覆盖
func (s *MemoryStore) PutOutcome(o model.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	s.outcomes[o.RequestID] = o
}

func cloneExperiment(exp model.Experiment) model.Experiment {
	if exp.Variants != nil {
		exp.Variants = append(exp.Variants[:0:0], exp.Variants...)
	}
	if exp.Metrics != nil {
		m := make(map[string]interface{}, len(exp.Metrics))
		for k, v := range exp.Metrics {
			m[k] = v
		}
		exp.Metrics = m
	}
	if exp.StartedAt != nil {
		t := *exp.StartedAt
		exp.StartedAt = &t
	}
	if exp.CompletedAt != nil {
		t := *exp.CompletedAt
		exp.CompletedAt = &t
	}
	return exp
}
