package model

import "github.com/jabowery/deep-river/nn"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Checkpoint is the serializable state of one adapter: the pinned feature
// order, the rolling window when there is one, and the network layer states.
type Checkpoint struct {
	VersionedRecord
	ID           string          `json:"id"`
	Kind         string          `json:"kind"`
	CreatedAtUTC string          `json:"created_at_utc"`
	FeatureOrder []string        `json:"feature_order"`
	Classes      []string        `json:"classes,omitempty"`
	WindowSize   int             `json:"window_size,omitempty"`
	Window       [][]float64     `json:"window,omitempty"`
	Layers       []nn.LayerState `json:"layers"`
}

// CheckpointInfo is the listing view of a stored checkpoint.
type CheckpointInfo struct {
	ID           string `json:"id"`
	Kind         string `json:"kind"`
	CreatedAtUTC string `json:"created_at_utc"`
}

// MetricPoint is one step of a progressive-validation metric history.
type MetricPoint struct {
	Step   int     `json:"step"`
	Metric string  `json:"metric"`
	Value  float64 `json:"value"`
}
