package nn

import (
	"fmt"
	"math/rand"

	"github.com/jabowery/deep-river/tensor"
)

// MLPConfig configures the reference multilayer perceptron. Zero values take
// defaults: one linear output unit, relu hidden activations, no dropout.
type MLPConfig struct {
	NumFeatures int
	HiddenSizes []int
	Activation  string
	OutputSize  int
	DropoutRate float64
	Device      tensor.Device
	Seed        int64
}

// MLP is a dense feedforward network with manual backpropagation. It
// implements Network, OutputExpander, and Stateful.
type MLP struct {
	layers []Layer
	mode   Mode
	device tensor.Device
	rng    *rand.Rand
}

func NewMLP(cfg MLPConfig) (*MLP, error) {
	if cfg.NumFeatures <= 0 {
		return nil, fmt.Errorf("number of features must be > 0: %d", cfg.NumFeatures)
	}
	if cfg.OutputSize == 0 {
		cfg.OutputSize = 1
	}
	if cfg.OutputSize < 0 {
		return nil, fmt.Errorf("output size must be > 0: %d", cfg.OutputSize)
	}
	if cfg.Activation == "" {
		cfg.Activation = "relu"
	}
	if cfg.Device == "" {
		cfg.Device = tensor.CPU
	}
	for _, size := range cfg.HiddenSizes {
		if size <= 0 {
			return nil, fmt.Errorf("hidden sizes must be > 0: %v", cfg.HiddenSizes)
		}
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	layers := make([]Layer, 0, 3*len(cfg.HiddenSizes)+1)
	width := cfg.NumFeatures
	for _, size := range cfg.HiddenSizes {
		dense, err := NewDense(width, size, rng)
		if err != nil {
			return nil, err
		}
		activation, err := NewActivationLayer(cfg.Activation)
		if err != nil {
			return nil, err
		}
		layers = append(layers, dense, activation)
		if cfg.DropoutRate > 0 {
			dropout, err := NewDropout(cfg.DropoutRate, rng)
			if err != nil {
				return nil, err
			}
			layers = append(layers, dropout)
		}
		width = size
	}
	output, err := NewDense(width, cfg.OutputSize, rng)
	if err != nil {
		return nil, err
	}
	layers = append(layers, output)

	return &MLP{
		layers: layers,
		mode:   Train,
		device: cfg.Device,
		rng:    rng,
	}, nil
}

// MLPBuilder returns a BuilderFunc that fills in the observed feature width.
func MLPBuilder(cfg MLPConfig) BuilderFunc {
	return func(numFeatures int) (Network, error) {
		cfg := cfg
		cfg.NumFeatures = numFeatures
		return NewMLP(cfg)
	}
}

func (m *MLP) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if x.Device() != m.device {
		return nil, fmt.Errorf("input device mismatch: got=%s want=%s", x.Device(), m.device)
	}

	value := x.Matrix()
	for i, layer := range m.layers {
		next, err := layer.Forward(value, m.mode)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		value = next
	}
	return tensor.New(value, m.device)
}

func (m *MLP) Backward(grad *tensor.Tensor) error {
	if grad.Device() != m.device {
		return fmt.Errorf("gradient device mismatch: got=%s want=%s", grad.Device(), m.device)
	}

	value := grad.Matrix()
	for i := len(m.layers) - 1; i >= 0; i-- {
		next, err := m.layers[i].Backward(value)
		if err != nil {
			return fmt.Errorf("layer %d: %w", i, err)
		}
		value = next
	}
	return nil
}

func (m *MLP) Parameters() []*Parameter {
	params := make([]*Parameter, 0, len(m.layers)*2)
	for _, layer := range m.layers {
		params = append(params, layer.Parameters()...)
	}
	return params
}

func (m *MLP) SetMode(mode Mode) {
	m.mode = mode
}

func (m *MLP) Device() tensor.Device {
	return m.device
}

func (m *MLP) OutputWidth() int {
	last := m.layers[len(m.layers)-1].(*Dense)
	return last.OutputWidth()
}

func (m *MLP) ExpandOutput(width int) error {
	last, ok := m.layers[len(m.layers)-1].(*Dense)
	if !ok {
		return fmt.Errorf("final layer is not dense")
	}
	return last.expandOutput(width, m.rng)
}

func (m *MLP) State() []LayerState {
	states := make([]LayerState, 0, len(m.layers))
	for _, layer := range m.layers {
		switch typed := layer.(type) {
		case *Dense:
			in, out := typed.weight.Value.Dims()
			weights := make([][]float64, in)
			for i := 0; i < in; i++ {
				row := make([]float64, out)
				for j := 0; j < out; j++ {
					row[j] = typed.weight.Value.At(i, j)
				}
				weights[i] = row
			}
			bias := make([]float64, out)
			for j := 0; j < out; j++ {
				bias[j] = typed.bias.Value.At(0, j)
			}
			states = append(states, LayerState{Kind: "dense", Weights: weights, Bias: bias})
		case *Activation:
			states = append(states, LayerState{Kind: "activation", Activation: typed.name})
		case *Dropout:
			states = append(states, LayerState{Kind: "dropout", Rate: typed.rate})
		}
	}
	return states
}

func (m *MLP) RestoreState(states []LayerState) error {
	if len(states) != len(m.layers) {
		return fmt.Errorf("layer count mismatch: got=%d want=%d", len(states), len(m.layers))
	}
	for i, state := range states {
		switch typed := m.layers[i].(type) {
		case *Dense:
			if state.Kind != "dense" {
				return fmt.Errorf("layer %d kind mismatch: got=%s want=dense", i, state.Kind)
			}
			if err := typed.setWeights(state.Weights, state.Bias); err != nil {
				return fmt.Errorf("layer %d: %w", i, err)
			}
		case *Activation:
			if state.Kind != "activation" {
				return fmt.Errorf("layer %d kind mismatch: got=%s want=activation", i, state.Kind)
			}
			if state.Activation != typed.name {
				return fmt.Errorf("layer %d activation mismatch: got=%s want=%s", i, state.Activation, typed.name)
			}
		case *Dropout:
			if state.Kind != "dropout" {
				return fmt.Errorf("layer %d kind mismatch: got=%s want=dropout", i, state.Kind)
			}
		}
	}
	return nil
}
