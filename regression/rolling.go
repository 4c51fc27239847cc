package regression

import (
	"fmt"
	"time"

	"github.com/jabowery/deep-river/internal/model"
	"github.com/jabowery/deep-river/nn"
	"github.com/jabowery/deep-river/optim"
	"github.com/jabowery/deep-river/tensor"
)

// RollingConfig extends Config with the sliding-window parameters.
type RollingConfig struct {
	Config
	// WindowSize is the number of most recent examples kept for training.
	WindowSize int
	// AppendPredict, when set, appends the predicted example to the window so
	// the next train step sees it. The target of the dropped oldest example is
	// never revisited.
	AppendPredict bool
}

// RollingRegressor trains on a bounded sliding window of the most recent
// examples instead of a single one. Until the window fills, LearnOne only
// buffers and PredictOne returns the 0.0 placeholder. Once full, every
// LearnOne trains the network on the whole window against the latest target,
// and each new example evicts the oldest.
type RollingRegressor struct {
	cfg           resolved
	windowSize    int
	appendPredict bool

	order  []string
	net    nn.Network
	opt    optim.Optimizer
	window [][]float64
}

func NewRollingRegressor(cfg RollingConfig) (*RollingRegressor, error) {
	if cfg.WindowSize <= 0 {
		return nil, fmt.Errorf("window size must be > 0: %d", cfg.WindowSize)
	}
	res, err := cfg.resolve()
	if err != nil {
		return nil, err
	}
	return &RollingRegressor{
		cfg:           res,
		windowSize:    cfg.WindowSize,
		appendPredict: cfg.AppendPredict,
		window:        make([][]float64, 0, cfg.WindowSize),
	}, nil
}

func (r *RollingRegressor) ensureReady(features map[string]any) error {
	if r.net != nil {
		if len(features) != len(r.order) {
			return fmt.Errorf("%w: got=%d want=%d", ErrWidthChanged, len(features), len(r.order))
		}
		return nil
	}
	order, net, opt, err := initNetwork(r.cfg, features)
	if err != nil {
		return err
	}
	r.order, r.net, r.opt = order, net, opt
	return nil
}

// push appends a row, evicting the oldest once the window is full.
func (r *RollingRegressor) push(row []float64) {
	if len(r.window) == r.windowSize {
		copy(r.window, r.window[1:])
		r.window[len(r.window)-1] = row
		return
	}
	r.window = append(r.window, row)
}

// LearnOne buffers the example and, once the window is full, trains on the
// whole window as one batch against the newest target.
func (r *RollingRegressor) LearnOne(features map[string]any, target float64) error {
	if err := r.ensureReady(features); err != nil {
		return err
	}
	row, err := tensor.RowFromMap(features, r.order)
	if err != nil {
		return err
	}
	r.push(row)
	if len(r.window) < r.windowSize {
		return nil
	}

	x, err := tensor.FromRows(r.window, r.cfg.device)
	if err != nil {
		return err
	}
	return trainStep(r.net, r.opt, r.cfg, x, tensor.FromScalar(target, r.cfg.device))
}

// PredictOne forwards the window plus the current example in evaluation mode
// and returns the prediction for the current example. Before the window fills
// it returns the 0.0 placeholder without touching the network.
func (r *RollingRegressor) PredictOne(features map[string]any) (float64, error) {
	if err := r.ensureReady(features); err != nil {
		return 0, err
	}
	if len(r.window) < r.windowSize {
		return 0, nil
	}
	row, err := tensor.RowFromMap(features, r.order)
	if err != nil {
		return 0, err
	}

	var rows [][]float64
	if r.appendPredict {
		r.push(row)
		rows = r.window
	} else {
		rows = make([][]float64, 0, len(r.window)+1)
		rows = append(rows, r.window...)
		rows = append(rows, row)
	}

	x, err := tensor.FromRows(rows, r.cfg.device)
	if err != nil {
		return 0, err
	}
	r.net.SetMode(nn.Eval)
	pred, err := r.net.Forward(x)
	if err != nil {
		return 0, fmt.Errorf("forward: %w", err)
	}
	return scalarOutput(pred)
}

// WindowLen reports how many examples are currently buffered.
func (r *RollingRegressor) WindowLen() int {
	return len(r.window)
}

// FeatureOrder returns the pinned column order, nil before the first example.
func (r *RollingRegressor) FeatureOrder() []string {
	return append([]string(nil), r.order...)
}

// Snapshot captures the adapter state, window contents included.
func (r *RollingRegressor) Snapshot() (model.Checkpoint, error) {
	if r.net == nil {
		return model.Checkpoint{}, ErrNotInitialized
	}
	stateful, ok := r.net.(nn.Stateful)
	if !ok {
		return model.Checkpoint{}, ErrNotStateful
	}
	window := make([][]float64, len(r.window))
	for i, row := range r.window {
		window[i] = append([]float64(nil), row...)
	}
	return model.Checkpoint{
		VersionedRecord: model.VersionedRecord{
			SchemaVersion: checkpointSchemaVersion,
			CodecVersion:  checkpointCodecVersion,
		},
		Kind:         KindRollingRegressor,
		CreatedAtUTC: time.Now().UTC().Format(time.RFC3339),
		FeatureOrder: append([]string(nil), r.order...),
		WindowSize:   r.windowSize,
		Window:       window,
		Layers:       stateful.State(),
	}, nil
}

// RestoreSnapshot rebuilds the network and window from a checkpoint.
func (r *RollingRegressor) RestoreSnapshot(cp model.Checkpoint) error {
	if cp.Kind != KindRollingRegressor {
		return fmt.Errorf("checkpoint kind mismatch: got=%s want=%s", cp.Kind, KindRollingRegressor)
	}
	if cp.WindowSize != r.windowSize {
		return fmt.Errorf("window size mismatch: got=%d want=%d", cp.WindowSize, r.windowSize)
	}
	order, net, opt, err := restoreNetwork(r.cfg, cp)
	if err != nil {
		return err
	}
	window := make([][]float64, 0, r.windowSize)
	for _, row := range cp.Window {
		window = append(window, append([]float64(nil), row...))
	}
	r.order, r.net, r.opt, r.window = order, net, opt, window
	return nil
}
