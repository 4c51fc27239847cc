package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/jabowery/deep-river/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	checkpoints map[string]model.Checkpoint
	histories   map[string][]model.MetricPoint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.checkpoints = make(map[string]model.Checkpoint)
	s.histories = make(map[string][]model.MetricPoint)
	return nil
}

func (s *MemoryStore) SaveCheckpoint(_ context.Context, checkpoint model.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.checkpoints[checkpoint.ID] = checkpoint
	return nil
}

func (s *MemoryStore) GetCheckpoint(_ context.Context, id string) (model.Checkpoint, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	checkpoint, ok := s.checkpoints[id]
	return checkpoint, ok, nil
}

func (s *MemoryStore) ListCheckpoints(_ context.Context) ([]model.CheckpointInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]model.CheckpointInfo, 0, len(s.checkpoints))
	for _, checkpoint := range s.checkpoints {
		infos = append(infos, model.CheckpointInfo{
			ID:           checkpoint.ID,
			Kind:         checkpoint.Kind,
			CreatedAtUTC: checkpoint.CreatedAtUTC,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos, nil
}

func (s *MemoryStore) SaveMetricHistory(_ context.Context, runID string, history []model.MetricPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]model.MetricPoint, len(history))
	copy(copied, history)
	s.histories[runID] = copied
	return nil
}

func (s *MemoryStore) GetMetricHistory(_ context.Context, runID string) ([]model.MetricPoint, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.histories[runID]
	if !ok {
		return nil, false, nil
	}
	copied := make([]model.MetricPoint, len(history))
	copy(copied, history)
	return copied, true, nil
}
