// Package deepriver is the embedding surface for the streaming adapters. It
// wires model snapshots and metric histories to a persistence backend and
// carries the library logger.
package deepriver

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jabowery/deep-river/internal/model"
	"github.com/jabowery/deep-river/internal/storage"
)

const defaultDBPath = "deepriver.db"

// Checkpoint is the serialized state of one adapter. Adapters produce and
// consume these through their Snapshot and RestoreSnapshot methods.
type Checkpoint = model.Checkpoint

// ModelInfo is the listing view of a stored model.
type ModelInfo = model.CheckpointInfo

// MetricPoint is one step of a progressive-validation trajectory.
type MetricPoint = model.MetricPoint

// Snapshotter is any adapter whose state can be captured and restored. The
// regression and classification adapters all implement it.
type Snapshotter interface {
	Snapshot() (Checkpoint, error)
	RestoreSnapshot(Checkpoint) error
}

type Options struct {
	// StoreKind selects the persistence backend, "memory" or "sqlite". Empty
	// picks the best backend the build carries.
	StoreKind string
	// DBPath is the sqlite database file, "deepriver.db" when empty.
	DBPath string
	// Logger receives client-level events. Nil disables logging.
	Logger *zerolog.Logger
}

type Client struct {
	store  storage.Store
	logger zerolog.Logger
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:  store,
		logger: logger,
	}, nil
}

func (c *Client) Init(ctx context.Context) error {
	return c.store.Init(ctx)
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// SaveModel snapshots the adapter and persists it under id. An empty id gets
// a generated one. The stored id is returned either way.
func (c *Client) SaveModel(ctx context.Context, id string, m Snapshotter) (string, error) {
	checkpoint, err := m.Snapshot()
	if err != nil {
		return "", fmt.Errorf("snapshot: %w", err)
	}
	if id == "" {
		id = uuid.NewString()
	}
	checkpoint.ID = id
	checkpoint.SchemaVersion = storage.CurrentSchemaVersion
	checkpoint.CodecVersion = storage.CurrentCodecVersion
	if err := c.store.SaveCheckpoint(ctx, checkpoint); err != nil {
		return "", fmt.Errorf("save checkpoint %s: %w", id, err)
	}
	c.logger.Info().Str("id", id).Str("kind", checkpoint.Kind).Msg("model saved")
	return id, nil
}

// LoadModel restores the adapter from the checkpoint stored under id.
func (c *Client) LoadModel(ctx context.Context, id string, m Snapshotter) error {
	checkpoint, ok, err := c.store.GetCheckpoint(ctx, id)
	if err != nil {
		return fmt.Errorf("get checkpoint %s: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("model %s not found", id)
	}
	if err := m.RestoreSnapshot(checkpoint); err != nil {
		return fmt.Errorf("restore checkpoint %s: %w", id, err)
	}
	c.logger.Info().Str("id", id).Str("kind", checkpoint.Kind).Msg("model loaded")
	return nil
}

// Models lists the stored checkpoints.
func (c *Client) Models(ctx context.Context) ([]ModelInfo, error) {
	return c.store.ListCheckpoints(ctx)
}

// SaveMetricHistory persists a validation trajectory under runID. An empty
// runID gets a generated one; the stored id is returned either way.
func (c *Client) SaveMetricHistory(ctx context.Context, runID string, history []MetricPoint) (string, error) {
	if runID == "" {
		runID = uuid.NewString()
	}
	if err := c.store.SaveMetricHistory(ctx, runID, history); err != nil {
		return "", fmt.Errorf("save metric history %s: %w", runID, err)
	}
	return runID, nil
}

// MetricHistory returns the trajectory stored under runID.
func (c *Client) MetricHistory(ctx context.Context, runID string) ([]MetricPoint, error) {
	history, ok, err := c.store.GetMetricHistory(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("metric history %s not found", runID)
	}
	return history, nil
}
