package optim

import (
	"gonum.org/v1/gonum/mat"

	"github.com/jabowery/deep-river/nn"
)

// SGD is plain stochastic gradient descent with optional momentum.
type SGD struct {
	params       []*nn.Parameter
	learningRate float64
	momentum     float64
	velocity     []*mat.Dense
}

func NewSGD(params []*nn.Parameter, learningRate float64) *SGD {
	return &SGD{
		params:       params,
		learningRate: learningRate,
		velocity:     make([]*mat.Dense, len(params)),
	}
}

func NewMomentumSGD(params []*nn.Parameter, learningRate, momentum float64) *SGD {
	opt := NewSGD(params, learningRate)
	opt.momentum = momentum
	return opt
}

func (o *SGD) Step() error {
	for i, param := range o.params {
		rows, cols := param.Value.Dims()
		if o.momentum == 0 {
			for r := 0; r < rows; r++ {
				for c := 0; c < cols; c++ {
					param.Value.Set(r, c, param.Value.At(r, c)-o.learningRate*param.Grad.At(r, c))
				}
			}
			continue
		}

		velocity := o.velocity[i]
		if velocity == nil || !dimsMatch(velocity, rows, cols) {
			velocity = mat.NewDense(rows, cols, nil)
			o.velocity[i] = velocity
		}
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				v := o.momentum*velocity.At(r, c) + param.Grad.At(r, c)
				velocity.Set(r, c, v)
				param.Value.Set(r, c, param.Value.At(r, c)-o.learningRate*v)
			}
		}
	}
	return nil
}

func (o *SGD) ZeroGrad() {
	zeroGrads(o.params)
}

func dimsMatch(m *mat.Dense, rows, cols int) bool {
	r, c := m.Dims()
	return r == rows && c == cols
}
