package nn

import (
	"gonum.org/v1/gonum/mat"

	"github.com/jabowery/deep-river/tensor"
)

// Mode selects training or evaluation behavior. Training-only layers such as
// dropout are identity in Eval mode, and Eval forward passes cache nothing.
type Mode int

const (
	Train Mode = iota
	Eval
)

// Parameter is one trainable tensor with its accumulated gradient. Value and
// Grad always share dimensions.
type Parameter struct {
	Name  string
	Value *mat.Dense
	Grad  *mat.Dense
}

func newParameter(name string, rows, cols int, values []float64) *Parameter {
	return &Parameter{
		Name:  name,
		Value: mat.NewDense(rows, cols, values),
		Grad:  mat.NewDense(rows, cols, nil),
	}
}

// ZeroGrad resets the accumulated gradient.
func (p *Parameter) ZeroGrad() {
	p.Grad.Zero()
}

// Network is the opaque differentiable function object the adapters train.
// Forward computes outputs; Backward propagates the loss gradient into the
// parameters' Grad fields. Implementations are not safe for concurrent use.
type Network interface {
	Forward(x *tensor.Tensor) (*tensor.Tensor, error)
	Backward(grad *tensor.Tensor) error
	Parameters() []*Parameter
	SetMode(mode Mode)
	Device() tensor.Device
}

// BuilderFunc lazily constructs a network once the input width is known.
type BuilderFunc func(numFeatures int) (Network, error)

// OutputExpander is an optional network capability used for class-incremental
// learning: it grows the output layer to the requested width, preserving the
// existing units.
type OutputExpander interface {
	ExpandOutput(width int) error
}

// Stateful is an optional network capability for checkpointing.
type Stateful interface {
	State() []LayerState
	RestoreState(states []LayerState) error
}

// LayerState is the serializable form of one layer.
type LayerState struct {
	Kind       string      `json:"kind"`
	Activation string      `json:"activation,omitempty"`
	Rate       float64     `json:"rate,omitempty"`
	Weights    [][]float64 `json:"weights,omitempty"`
	Bias       []float64   `json:"bias,omitempty"`
}
