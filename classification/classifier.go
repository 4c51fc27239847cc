package classification

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jabowery/deep-river/internal/model"
	"github.com/jabowery/deep-river/loss"
	"github.com/jabowery/deep-river/nn"
	"github.com/jabowery/deep-river/optim"
	"github.com/jabowery/deep-river/tensor"
)

var (
	ErrNotInitialized = errors.New("adapter has not observed an example yet")
	ErrWidthChanged   = errors.New("feature width differs from the first observed example")
	ErrTooManyClasses = errors.New("observed classes exceed the network output width")
	ErrNotStateful    = errors.New("network does not expose layer state")
)

const (
	KindClassifier = "classifier"

	checkpointSchemaVersion = 1
	checkpointCodecVersion  = 1
)

const defaultLearningRate = 1e-3

// Config mirrors the regression adapter configuration with classifier
// defaults: binary cross entropy loss and optional class-incremental output
// growth.
type Config struct {
	BuildFn     nn.BuilderFunc
	OptimizerFn optim.BuilderFunc
	Loss        loss.Loss
	LossFn      string

	Device       string
	LearningRate float64

	// ClassIncremental lets the adapter widen the network output each time a
	// label outside the known set arrives. The network must implement
	// nn.OutputExpander.
	ClassIncremental bool

	// MLP shape used when BuildFn is nil. OutputSize is the initial number of
	// output units, one when zero.
	HiddenSizes []int
	Activation  string
	DropoutRate float64
	OutputSize  int
	Seed        int64
}

type resolved struct {
	buildFn      nn.BuilderFunc
	optimizerFn  optim.BuilderFunc
	loss         loss.Loss
	device       tensor.Device
	learningRate float64
}

func (c Config) resolve() (resolved, error) {
	device, err := tensor.ParseDevice(c.Device)
	if err != nil {
		return resolved{}, err
	}

	rate := c.LearningRate
	if rate == 0 {
		rate = defaultLearningRate
	}
	if rate < 0 {
		return resolved{}, fmt.Errorf("learning rate must be > 0: %f", rate)
	}

	lossFn := c.Loss
	if lossFn == nil {
		name := c.LossFn
		if name == "" {
			name = "binary_cross_entropy"
		}
		lossFn, err = loss.Get(name)
		if err != nil {
			return resolved{}, err
		}
	}

	buildFn := c.BuildFn
	if buildFn == nil {
		buildFn = nn.MLPBuilder(nn.MLPConfig{
			HiddenSizes: c.HiddenSizes,
			Activation:  c.Activation,
			DropoutRate: c.DropoutRate,
			OutputSize:  c.OutputSize,
			Device:      device,
			Seed:        c.Seed,
		})
	}

	optimizerFn := c.OptimizerFn
	if optimizerFn == nil {
		optimizerFn, err = optim.FromName("sgd")
		if err != nil {
			return resolved{}, err
		}
	}

	return resolved{
		buildFn:      buildFn,
		optimizerFn:  optimizerFn,
		loss:         lossFn,
		device:       device,
		learningRate: rate,
	}, nil
}

// Classifier adapts a batch network to streaming classification. Labels are
// mapped to output columns in observation order; with ClassIncremental set
// the output layer grows to fit each newly observed label.
type Classifier struct {
	cfg              resolved
	classIncremental bool

	order       []string
	net         nn.Network
	opt         optim.Optimizer
	classes     []string
	classIndex  map[string]int
	outputWidth int
}

func NewClassifier(cfg Config) (*Classifier, error) {
	res, err := cfg.resolve()
	if err != nil {
		return nil, err
	}
	return &Classifier{
		cfg:              res,
		classIncremental: cfg.ClassIncremental,
		classIndex:       map[string]int{},
	}, nil
}

func (c *Classifier) ensureReady(features map[string]any) error {
	if c.net != nil {
		if len(features) != len(c.order) {
			return fmt.Errorf("%w: got=%d want=%d", ErrWidthChanged, len(features), len(c.order))
		}
		return nil
	}
	order := tensor.Order(features)
	if len(order) == 0 {
		return tensor.ErrEmptyFeatures
	}
	net, err := c.cfg.buildFn(len(order))
	if err != nil {
		return fmt.Errorf("build network: %w", err)
	}
	if net.Device() != c.cfg.device {
		return fmt.Errorf("network device mismatch: got=%s want=%s", net.Device(), c.cfg.device)
	}
	width, err := probeOutputWidth(net, len(order), c.cfg.device)
	if err != nil {
		return err
	}
	c.order = order
	c.net = net
	c.opt = c.cfg.optimizerFn(net.Parameters(), c.cfg.learningRate)
	c.outputWidth = width
	return nil
}

// probeOutputWidth discovers the network output width with a zero forward
// pass, which works for any Network implementation.
func probeOutputWidth(net nn.Network, numFeatures int, device tensor.Device) (int, error) {
	zero, err := tensor.FromRows([][]float64{make([]float64, numFeatures)}, device)
	if err != nil {
		return 0, err
	}
	net.SetMode(nn.Eval)
	out, err := net.Forward(zero)
	if err != nil {
		return 0, fmt.Errorf("probe forward: %w", err)
	}
	_, cols := out.Dims()
	return cols, nil
}

// observeClass maps a label to an output column, widening the network when
// class-incremental growth is enabled.
func (c *Classifier) observeClass(label string) error {
	if _, ok := c.classIndex[label]; ok {
		return nil
	}
	needed := len(c.classes) + 1
	if needed > c.outputWidth {
		if !c.classIncremental {
			return fmt.Errorf("%w: %d classes, %d outputs", ErrTooManyClasses, needed, c.outputWidth)
		}
		expander, ok := c.net.(nn.OutputExpander)
		if !ok {
			return fmt.Errorf("%w: network cannot expand its output", ErrTooManyClasses)
		}
		if err := expander.ExpandOutput(needed); err != nil {
			return fmt.Errorf("expand output: %w", err)
		}
		c.outputWidth = needed
	}
	c.classIndex[label] = len(c.classes)
	c.classes = append(c.classes, label)
	return nil
}

// LearnOne trains on a single labeled example against a one-hot target row.
func (c *Classifier) LearnOne(features map[string]any, label string) error {
	if err := c.ensureReady(features); err != nil {
		return err
	}
	if err := c.observeClass(label); err != nil {
		return err
	}
	x, err := tensor.FromMap(features, c.order, c.cfg.device)
	if err != nil {
		return err
	}
	target := make([]float64, c.outputWidth)
	target[c.classIndex[label]] = 1
	y, err := tensor.FromRows([][]float64{target}, c.cfg.device)
	if err != nil {
		return err
	}

	c.net.SetMode(nn.Train)
	c.opt.ZeroGrad()
	pred, err := c.net.Forward(x)
	if err != nil {
		return fmt.Errorf("forward: %w", err)
	}
	grad, err := c.cfg.loss.Grad(pred, y)
	if err != nil {
		return fmt.Errorf("loss %s: %w", c.cfg.loss.Name(), err)
	}
	if err := c.net.Backward(grad); err != nil {
		return fmt.Errorf("backward: %w", err)
	}
	return c.opt.Step()
}

// PredictProbaOne returns a softmax distribution over the observed classes.
// Before any label has been observed it returns an empty map.
func (c *Classifier) PredictProbaOne(features map[string]any) (map[string]float64, error) {
	if err := c.ensureReady(features); err != nil {
		return nil, err
	}
	if len(c.classes) == 0 {
		return map[string]float64{}, nil
	}
	x, err := tensor.FromMap(features, c.order, c.cfg.device)
	if err != nil {
		return nil, err
	}
	c.net.SetMode(nn.Eval)
	pred, err := c.net.Forward(x)
	if err != nil {
		return nil, fmt.Errorf("forward: %w", err)
	}
	_, cols := pred.Dims()
	if cols < len(c.classes) {
		return nil, fmt.Errorf("%w: %d classes, %d outputs", ErrTooManyClasses, len(c.classes), cols)
	}

	// Softmax over the observed-class logits only; unassigned output units
	// carry no label and are ignored.
	maxLogit := math.Inf(-1)
	for i := range c.classes {
		if v := pred.At(0, i); v > maxLogit {
			maxLogit = v
		}
	}
	probs := make(map[string]float64, len(c.classes))
	var sum float64
	for i, label := range c.classes {
		p := math.Exp(pred.At(0, i) - maxLogit)
		probs[label] = p
		sum += p
	}
	for label := range probs {
		probs[label] /= sum
	}
	return probs, nil
}

// PredictOne returns the most probable class, or "" before any label has been
// observed.
func (c *Classifier) PredictOne(features map[string]any) (string, error) {
	probs, err := c.PredictProbaOne(features)
	if err != nil {
		return "", err
	}
	best, bestProb := "", math.Inf(-1)
	for _, label := range c.classes {
		if p := probs[label]; p > bestProb {
			best, bestProb = label, p
		}
	}
	return best, nil
}

// Classes returns the labels in observation order.
func (c *Classifier) Classes() []string {
	return append([]string(nil), c.classes...)
}

// Snapshot captures the adapter state, class order included.
func (c *Classifier) Snapshot() (model.Checkpoint, error) {
	if c.net == nil {
		return model.Checkpoint{}, ErrNotInitialized
	}
	stateful, ok := c.net.(nn.Stateful)
	if !ok {
		return model.Checkpoint{}, ErrNotStateful
	}
	return model.Checkpoint{
		VersionedRecord: model.VersionedRecord{
			SchemaVersion: checkpointSchemaVersion,
			CodecVersion:  checkpointCodecVersion,
		},
		Kind:         KindClassifier,
		CreatedAtUTC: time.Now().UTC().Format(time.RFC3339),
		FeatureOrder: append([]string(nil), c.order...),
		Classes:      append([]string(nil), c.classes...),
		Layers:       stateful.State(),
	}, nil
}

// RestoreSnapshot rebuilds the network and class mapping from a checkpoint.
// When the checkpoint holds an expanded output layer the rebuilt network is
// widened before the weights are restored.
func (c *Classifier) RestoreSnapshot(cp model.Checkpoint) error {
	if cp.Kind != KindClassifier {
		return fmt.Errorf("checkpoint kind mismatch: got=%s want=%s", cp.Kind, KindClassifier)
	}
	if len(cp.FeatureOrder) == 0 {
		return fmt.Errorf("checkpoint has no feature order")
	}
	net, err := c.cfg.buildFn(len(cp.FeatureOrder))
	if err != nil {
		return fmt.Errorf("build network: %w", err)
	}
	stateful, ok := net.(nn.Stateful)
	if !ok {
		return ErrNotStateful
	}
	width, err := probeOutputWidth(net, len(cp.FeatureOrder), c.cfg.device)
	if err != nil {
		return err
	}
	if saved := savedOutputWidth(cp.Layers); saved > width {
		expander, ok := net.(nn.OutputExpander)
		if !ok {
			return fmt.Errorf("%w: network cannot expand its output", ErrTooManyClasses)
		}
		if err := expander.ExpandOutput(saved); err != nil {
			return fmt.Errorf("expand output: %w", err)
		}
		width = saved
	}
	if err := stateful.RestoreState(cp.Layers); err != nil {
		return fmt.Errorf("restore layers: %w", err)
	}

	classIndex := make(map[string]int, len(cp.Classes))
	for i, label := range cp.Classes {
		classIndex[label] = i
	}
	c.order = append([]string(nil), cp.FeatureOrder...)
	c.net = net
	c.opt = c.cfg.optimizerFn(net.Parameters(), c.cfg.learningRate)
	c.classes = append([]string(nil), cp.Classes...)
	c.classIndex = classIndex
	c.outputWidth = width
	return nil
}

func savedOutputWidth(layers []nn.LayerState) int {
	for i := len(layers) - 1; i >= 0; i-- {
		if layers[i].Kind == "dense" {
			return len(layers[i].Bias)
		}
	}
	return 0
}
