package regression

import (
	"errors"
	"fmt"
	"time"

	"github.com/jabowery/deep-river/internal/model"
	"github.com/jabowery/deep-river/nn"
	"github.com/jabowery/deep-river/optim"
	"github.com/jabowery/deep-river/tensor"
)

var (
	ErrNotInitialized = errors.New("adapter has not observed an example yet")
	ErrWidthChanged   = errors.New("feature width differs from the first observed example")
	ErrNotStateful    = errors.New("network does not expose layer state")
)

const (
	// KindRegressor and KindRollingRegressor tag checkpoints by adapter type.
	KindRegressor        = "regressor"
	KindRollingRegressor = "rolling_regressor"

	checkpointSchemaVersion = 1
	checkpointCodecVersion  = 1
)

// Regressor adapts a batch gradient-descent network to one-example-at-a-time
// streaming. The network is built lazily from the first observed example,
// which pins both the feature width and the column order for the rest of the
// adapter's life.
type Regressor struct {
	cfg   resolved
	order []string
	net   nn.Network
	opt   optim.Optimizer
}

func NewRegressor(cfg Config) (*Regressor, error) {
	res, err := cfg.resolve()
	if err != nil {
		return nil, err
	}
	return &Regressor{cfg: res}, nil
}

// initNetwork pins sorted key order from the first example, builds the
// network, and binds the optimizer. Nothing is retained on failure, so a
// later call with a usable example can still initialize the adapter.
func initNetwork(cfg resolved, features map[string]any) ([]string, nn.Network, optim.Optimizer, error) {
	order := tensor.Order(features)
	if len(order) == 0 {
		return nil, nil, nil, tensor.ErrEmptyFeatures
	}
	net, err := cfg.buildFn(len(order))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("build network: %w", err)
	}
	if net.Device() != cfg.device {
		return nil, nil, nil, fmt.Errorf("network device mismatch: got=%s want=%s", net.Device(), cfg.device)
	}
	opt := cfg.optimizerFn(net.Parameters(), cfg.learningRate)
	return order, net, opt, nil
}

func (r *Regressor) ensureReady(features map[string]any) error {
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

// LearnOne runs one full train cycle on a single example: convert, forward in
// Train mode, loss gradient, backward, optimizer step. The optimizer only
// steps after a successful backward pass, so a failed call leaves the
// parameters untouched.
func (r *Regressor) LearnOne(features map[string]any, target float64) error {
	if err := r.ensureReady(features); err != nil {
		return err
	}
	x, err := tensor.FromMap(features, r.order, r.cfg.device)
	if err != nil {
		return err
	}
	return trainStep(r.net, r.opt, r.cfg, x, tensor.FromScalar(target, r.cfg.device))
}

func trainStep(net nn.Network, opt optim.Optimizer, cfg resolved, x, y *tensor.Tensor) error {
	net.SetMode(nn.Train)
	opt.ZeroGrad()
	pred, err := net.Forward(x)
	if err != nil {
		return fmt.Errorf("forward: %w", err)
	}
	grad, err := cfg.loss.Grad(pred, y)
	if err != nil {
		return fmt.Errorf("loss %s: %w", cfg.loss.Name(), err)
	}
	if err := net.Backward(grad); err != nil {
		return fmt.Errorf("backward: %w", err)
	}
	return opt.Step()
}

// PredictOne converts one example and runs an evaluation-mode forward pass.
// No gradients are produced and no parameters change.
func (r *Regressor) PredictOne(features map[string]any) (float64, error) {
	if err := r.ensureReady(features); err != nil {
		return 0, err
	}
	x, err := tensor.FromMap(features, r.order, r.cfg.device)
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

func scalarOutput(pred *tensor.Tensor) (float64, error) {
	rows, cols := pred.Dims()
	if cols != 1 {
		return 0, fmt.Errorf("network output must have one unit, got %d", cols)
	}
	// A windowed forward pass yields one prediction per buffered row; the
	// last row is the current example.
	return pred.At(rows-1, 0), nil
}

// FeatureOrder returns the pinned column order, nil before the first example.
func (r *Regressor) FeatureOrder() []string {
	return append([]string(nil), r.order...)
}

// Snapshot captures the adapter state for persistence.
func (r *Regressor) Snapshot() (model.Checkpoint, error) {
	if r.net == nil {
		return model.Checkpoint{}, ErrNotInitialized
	}
	stateful, ok := r.net.(nn.Stateful)
	if !ok {
		return model.Checkpoint{}, ErrNotStateful
	}
	return model.Checkpoint{
		VersionedRecord: model.VersionedRecord{
			SchemaVersion: checkpointSchemaVersion,
			CodecVersion:  checkpointCodecVersion,
		},
		Kind:         KindRegressor,
		CreatedAtUTC: time.Now().UTC().Format(time.RFC3339),
		FeatureOrder: append([]string(nil), r.order...),
		Layers:       stateful.State(),
	}, nil
}

// RestoreSnapshot rebuilds the network from a checkpoint. The configured
// build function must produce the same architecture the checkpoint was taken
// from.
func (r *Regressor) RestoreSnapshot(cp model.Checkpoint) error {
	if cp.Kind != KindRegressor {
		return fmt.Errorf("checkpoint kind mismatch: got=%s want=%s", cp.Kind, KindRegressor)
	}
	order, net, opt, err := restoreNetwork(r.cfg, cp)
	if err != nil {
		return err
	}
	r.order, r.net, r.opt = order, net, opt
	return nil
}

func restoreNetwork(cfg resolved, cp model.Checkpoint) ([]string, nn.Network, optim.Optimizer, error) {
	if len(cp.FeatureOrder) == 0 {
		return nil, nil, nil, fmt.Errorf("checkpoint has no feature order")
	}
	net, err := cfg.buildFn(len(cp.FeatureOrder))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("build network: %w", err)
	}
	stateful, ok := net.(nn.Stateful)
	if !ok {
		return nil, nil, nil, ErrNotStateful
	}
	if err := stateful.RestoreState(cp.Layers); err != nil {
		return nil, nil, nil, fmt.Errorf("restore layers: %w", err)
	}
	opt := cfg.optimizerFn(net.Parameters(), cfg.learningRate)
	return append([]string(nil), cp.FeatureOrder...), net, opt, nil
}
