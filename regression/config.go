package regression

import (
	"fmt"

	"github.com/jabowery/deep-river/loss"
	"github.com/jabowery/deep-river/nn"
	"github.com/jabowery/deep-river/optim"
	"github.com/jabowery/deep-river/tensor"
)

const defaultLearningRate = 1e-3

// Config carries the injected capabilities of a streaming adapter. Every
// field is optional: nil functions and zero values fall back to the default
// MLP builder, plain SGD, mean squared error, and the CPU device.
type Config struct {
	// BuildFn constructs the network once the adapter has seen the first
	// example and therefore knows the feature width.
	BuildFn nn.BuilderFunc
	// OptimizerFn binds an optimizer to the freshly built network.
	OptimizerFn optim.BuilderFunc
	// Loss overrides LossFn with a concrete instance.
	Loss loss.Loss
	// LossFn names a registered loss, "mse" when empty.
	LossFn string

	Device       string
	LearningRate float64

	// MLP shape used when BuildFn is nil.
	HiddenSizes []int
	Activation  string
	DropoutRate float64
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
			name = "mse"
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
