package nn

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Layer is one differentiable stage of a layered network. Forward in Train
// mode caches whatever Backward needs; Backward consumes the cache, so each
// training-mode forward supports exactly one backward pass.
type Layer interface {
	Forward(x *mat.Dense, mode Mode) (*mat.Dense, error)
	Backward(grad *mat.Dense) (*mat.Dense, error)
	Parameters() []*Parameter
}

type Dense struct {
	weight *Parameter // in x out
	bias   *Parameter // 1 x out
	input  *mat.Dense
}

func NewDense(in, out int, rng *rand.Rand) (*Dense, error) {
	if in <= 0 || out <= 0 {
		return nil, fmt.Errorf("dense dimensions must be > 0: in=%d out=%d", in, out)
	}
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}

	limit := 1.0 / math.Sqrt(float64(in))
	weights := make([]float64, in*out)
	for i := range weights {
		weights[i] = (rng.Float64()*2 - 1) * limit
	}
	biases := make([]float64, out)
	for i := range biases {
		biases[i] = (rng.Float64()*2 - 1) * limit
	}

	return &Dense{
		weight: newParameter("weight", in, out, weights),
		bias:   newParameter("bias", 1, out, biases),
	}, nil
}

func (d *Dense) InputWidth() int {
	in, _ := d.weight.Value.Dims()
	return in
}

func (d *Dense) OutputWidth() int {
	_, out := d.weight.Value.Dims()
	return out
}

func (d *Dense) Forward(x *mat.Dense, mode Mode) (*mat.Dense, error) {
	rows, cols := x.Dims()
	if cols != d.InputWidth() {
		return nil, fmt.Errorf("dense input width mismatch: got=%d want=%d", cols, d.InputWidth())
	}

	var out mat.Dense
	out.Mul(x, d.weight.Value)
	for i := 0; i < rows; i++ {
		for j := 0; j < d.OutputWidth(); j++ {
			out.Set(i, j, out.At(i, j)+d.bias.Value.At(0, j))
		}
	}

	if mode == Train {
		var cached mat.Dense
		cached.CloneFrom(x)
		d.input = &cached
	} else {
		d.input = nil
	}
	return &out, nil
}

func (d *Dense) Backward(grad *mat.Dense) (*mat.Dense, error) {
	if d.input == nil {
		return nil, fmt.Errorf("dense backward without training-mode forward")
	}
	rows, cols := grad.Dims()
	inRows, _ := d.input.Dims()
	if rows != inRows || cols != d.OutputWidth() {
		return nil, fmt.Errorf("dense gradient shape mismatch: got=%dx%d want=%dx%d", rows, cols, inRows, d.OutputWidth())
	}

	var gradWeight mat.Dense
	gradWeight.Mul(d.input.T(), grad)
	d.weight.Grad.Add(d.weight.Grad, &gradWeight)

	for j := 0; j < cols; j++ {
		sum := 0.0
		for i := 0; i < rows; i++ {
			sum += grad.At(i, j)
		}
		d.bias.Grad.Set(0, j, d.bias.Grad.At(0, j)+sum)
	}

	var gradInput mat.Dense
	gradInput.Mul(grad, d.weight.Value.T())

	d.input = nil
	return &gradInput, nil
}

func (d *Dense) Parameters() []*Parameter {
	return []*Parameter{d.weight, d.bias}
}

// expandOutput grows the layer to width output units, keeping existing units
// and initializing the new ones like fresh layer weights. Parameter pointers
// are preserved so optimizers stay bound.
func (d *Dense) expandOutput(width int, rng *rand.Rand) error {
	in, out := d.weight.Value.Dims()
	if width < out {
		return fmt.Errorf("cannot shrink dense output: got=%d have=%d", width, out)
	}
	if width == out {
		return nil
	}

	limit := 1.0 / math.Sqrt(float64(in))
	weight := mat.NewDense(in, width, nil)
	bias := mat.NewDense(1, width, nil)
	for i := 0; i < in; i++ {
		for j := 0; j < out; j++ {
			weight.Set(i, j, d.weight.Value.At(i, j))
		}
		for j := out; j < width; j++ {
			weight.Set(i, j, (rng.Float64()*2-1)*limit)
		}
	}
	for j := 0; j < out; j++ {
		bias.Set(0, j, d.bias.Value.At(0, j))
	}
	for j := out; j < width; j++ {
		bias.Set(0, j, (rng.Float64()*2-1)*limit)
	}

	d.weight.Value = weight
	d.weight.Grad = mat.NewDense(in, width, nil)
	d.bias.Value = bias
	d.bias.Grad = mat.NewDense(1, width, nil)
	d.input = nil
	return nil
}

func (d *Dense) setWeights(weights [][]float64, bias []float64) error {
	if len(weights) == 0 || len(weights[0]) == 0 {
		return fmt.Errorf("dense weights must not be empty")
	}
	in := len(weights)
	out := len(weights[0])
	if len(bias) != out {
		return fmt.Errorf("dense bias width mismatch: got=%d want=%d", len(bias), out)
	}
	weight := mat.NewDense(in, out, nil)
	for i, row := range weights {
		if len(row) != out {
			return fmt.Errorf("dense weight row %d has width %d, want %d", i, len(row), out)
		}
		for j, value := range row {
			weight.Set(i, j, value)
		}
	}
	d.weight.Value = weight
	d.weight.Grad = mat.NewDense(in, out, nil)
	d.bias.Value = mat.NewDense(1, out, append([]float64(nil), bias...))
	d.bias.Grad = mat.NewDense(1, out, nil)
	d.input = nil
	return nil
}

type Activation struct {
	name       string
	fn         ActivationFunc
	derivative ActivationFunc
	input      *mat.Dense
}

func NewActivationLayer(name string) (*Activation, error) {
	fn, err := GetActivation(name)
	if err != nil {
		return nil, err
	}
	derivative, err := GetDerivative(name)
	if err != nil {
		return nil, err
	}
	return &Activation{name: name, fn: fn, derivative: derivative}, nil
}

func (a *Activation) Name() string {
	return a.name
}

func (a *Activation) Forward(x *mat.Dense, mode Mode) (*mat.Dense, error) {
	rows, cols := x.Dims()
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.Set(i, j, a.fn(x.At(i, j)))
		}
	}

	if mode == Train {
		var cached mat.Dense
		cached.CloneFrom(x)
		a.input = &cached
	} else {
		a.input = nil
	}
	return out, nil
}

func (a *Activation) Backward(grad *mat.Dense) (*mat.Dense, error) {
	if a.input == nil {
		return nil, fmt.Errorf("activation backward without training-mode forward")
	}
	rows, cols := grad.Dims()
	inRows, inCols := a.input.Dims()
	if rows != inRows || cols != inCols {
		return nil, fmt.Errorf("activation gradient shape mismatch: got=%dx%d want=%dx%d", rows, cols, inRows, inCols)
	}

	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.Set(i, j, grad.At(i, j)*a.derivative(a.input.At(i, j)))
		}
	}
	a.input = nil
	return out, nil
}

func (a *Activation) Parameters() []*Parameter {
	return nil
}

// Dropout zeroes each value with probability rate during training, scaling
// survivors by 1/(1-rate). Eval mode is identity, which is what makes the
// adapters' train/eval mode switching observable.
type Dropout struct {
	rate float64
	rng  *rand.Rand
	mask *mat.Dense
}

func NewDropout(rate float64, rng *rand.Rand) (*Dropout, error) {
	if rate < 0 || rate >= 1 {
		return nil, fmt.Errorf("dropout rate must be in [0, 1): %f", rate)
	}
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	return &Dropout{rate: rate, rng: rng}, nil
}

func (d *Dropout) Rate() float64 {
	return d.rate
}

func (d *Dropout) Forward(x *mat.Dense, mode Mode) (*mat.Dense, error) {
	rows, cols := x.Dims()
	if mode == Eval {
		d.mask = nil
		var out mat.Dense
		out.CloneFrom(x)
		return &out, nil
	}

	keep := 1 - d.rate
	mask := mat.NewDense(rows, cols, nil)
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			scale := 0.0
			if d.rng.Float64() < keep {
				scale = 1 / keep
			}
			mask.Set(i, j, scale)
			out.Set(i, j, x.At(i, j)*scale)
		}
	}
	d.mask = mask
	return out, nil
}

func (d *Dropout) Backward(grad *mat.Dense) (*mat.Dense, error) {
	if d.mask == nil {
		return nil, fmt.Errorf("dropout backward without training-mode forward")
	}
	rows, cols := grad.Dims()
	maskRows, maskCols := d.mask.Dims()
	if rows != maskRows || cols != maskCols {
		return nil, fmt.Errorf("dropout gradient shape mismatch: got=%dx%d want=%dx%d", rows, cols, maskRows, maskCols)
	}

	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.Set(i, j, grad.At(i, j)*d.mask.At(i, j))
		}
	}
	d.mask = nil
	return out, nil
}

func (d *Dropout) Parameters() []*Parameter {
	return nil
}
