package storage

import (
	"context"

	"github.com/jabowery/deep-river/internal/model"
)

// Store defines persistence operations for adapter checkpoints and metric
// histories.
type Store interface {
	Init(ctx context.Context) error
	SaveCheckpoint(ctx context.Context, checkpoint model.Checkpoint) error
	GetCheckpoint(ctx context.Context, id string) (model.Checkpoint, bool, error)
	ListCheckpoints(ctx context.Context) ([]model.CheckpointInfo, error)
	SaveMetricHistory(ctx context.Context, runID string, history []model.MetricPoint) error
	GetMetricHistory(ctx context.Context, runID string) ([]model.MetricPoint, bool, error)
}
