package optim

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/jabowery/deep-river/nn"
)

// RMSProp scales updates by a decaying average of squared gradients.
type RMSProp struct {
	params       []*nn.Parameter
	learningRate float64
	decay        float64
	epsilon      float64
	cache        []*mat.Dense
}

func NewRMSProp(params []*nn.Parameter, learningRate float64) *RMSProp {
	return &RMSProp{
		params:       params,
		learningRate: learningRate,
		decay:        0.99,
		epsilon:      1e-8,
		cache:        make([]*mat.Dense, len(params)),
	}
}

func (o *RMSProp) Step() error {
	for i, param := range o.params {
		rows, cols := param.Value.Dims()
		if o.cache[i] == nil || !dimsMatch(o.cache[i], rows, cols) {
			o.cache[i] = mat.NewDense(rows, cols, nil)
		}
		cache := o.cache[i]
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				g := param.Grad.At(r, c)
				avg := o.decay*cache.At(r, c) + (1-o.decay)*g*g
				cache.Set(r, c, avg)
				param.Value.Set(r, c, param.Value.At(r, c)-o.learningRate*g/(math.Sqrt(avg)+o.epsilon))
			}
		}
	}
	return nil
}

func (o *RMSProp) ZeroGrad() {
	zeroGrads(o.params)
}
