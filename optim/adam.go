package optim

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/jabowery/deep-river/nn"
)

// Adam keeps bias-corrected first and second moment estimates per parameter.
// Moment state is re-sized whenever a parameter grows, which happens when a
// class-incremental network expands its output layer.
type Adam struct {
	params       []*nn.Parameter
	learningRate float64
	beta1        float64
	beta2        float64
	epsilon      float64
	step         int
	m            []*mat.Dense
	v            []*mat.Dense
}

func NewAdam(params []*nn.Parameter, learningRate float64) *Adam {
	return &Adam{
		params:       params,
		learningRate: learningRate,
		beta1:        0.9,
		beta2:        0.999,
		epsilon:      1e-8,
		m:            make([]*mat.Dense, len(params)),
		v:            make([]*mat.Dense, len(params)),
	}
}

func (o *Adam) Step() error {
	o.step++
	correction1 := 1 - math.Pow(o.beta1, float64(o.step))
	correction2 := 1 - math.Pow(o.beta2, float64(o.step))

	for i, param := range o.params {
		rows, cols := param.Value.Dims()
		if o.m[i] == nil || !dimsMatch(o.m[i], rows, cols) {
			o.m[i] = mat.NewDense(rows, cols, nil)
			o.v[i] = mat.NewDense(rows, cols, nil)
		}
		m, v := o.m[i], o.v[i]
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				g := param.Grad.At(r, c)
				mNew := o.beta1*m.At(r, c) + (1-o.beta1)*g
				vNew := o.beta2*v.At(r, c) + (1-o.beta2)*g*g
				m.Set(r, c, mNew)
				v.Set(r, c, vNew)

				mHat := mNew / correction1
				vHat := vNew / correction2
				param.Value.Set(r, c, param.Value.At(r, c)-o.learningRate*mHat/(math.Sqrt(vHat)+o.epsilon))
			}
		}
	}
	return nil
}

func (o *Adam) ZeroGrad() {
	zeroGrads(o.params)
}
