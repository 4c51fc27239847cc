package optim

import (
	"errors"
	"fmt"

	"github.com/jabowery/deep-river/nn"
)

var ErrOptimizerNotFound = errors.New("optimizer not found")

// Optimizer applies accumulated gradients to the parameters it was bound to
// at construction. ZeroGrad resets the accumulated gradients before a new
// backward pass.
type Optimizer interface {
	Step() error
	ZeroGrad()
}

// BuilderFunc binds an optimizer to a network's trainable parameters with a
// learning rate; adapters call it once, right after the lazy network build.
type BuilderFunc func(params []*nn.Parameter, learningRate float64) Optimizer

// FromName resolves the built-in optimizers for name-based configuration.
func FromName(name string) (BuilderFunc, error) {
	switch name {
	case "", "sgd":
		return func(params []*nn.Parameter, lr float64) Optimizer {
			return NewSGD(params, lr)
		}, nil
	case "adam":
		return func(params []*nn.Parameter, lr float64) Optimizer {
			return NewAdam(params, lr)
		}, nil
	case "rmsprop":
		return func(params []*nn.Parameter, lr float64) Optimizer {
			return NewRMSProp(params, lr)
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrOptimizerNotFound, name)
	}
}

func zeroGrads(params []*nn.Parameter) {
	for _, param := range params {
		param.ZeroGrad()
	}
}
