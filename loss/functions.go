package loss

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/jabowery/deep-river/tensor"
)

const probabilityEpsilon = 1e-7

type MSE struct{}

func (MSE) Name() string { return "mse" }

func (MSE) Eval(pred, target *tensor.Tensor) (float64, error) {
	at, err := targetAt(pred, target)
	if err != nil {
		return 0, err
	}
	rows, cols := pred.Dims()
	sum := 0.0
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			d := pred.At(i, j) - at(i, j)
			sum += d * d
		}
	}
	return sum / float64(rows*cols), nil
}

func (MSE) Grad(pred, target *tensor.Tensor) (*tensor.Tensor, error) {
	at, err := targetAt(pred, target)
	if err != nil {
		return nil, err
	}
	rows, cols := pred.Dims()
	count := float64(rows * cols)
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.Set(i, j, 2*(pred.At(i, j)-at(i, j))/count)
		}
	}
	return tensor.New(out, pred.Device())
}

type MAE struct{}

func (MAE) Name() string { return "mae" }

func (MAE) Eval(pred, target *tensor.Tensor) (float64, error) {
	at, err := targetAt(pred, target)
	if err != nil {
		return 0, err
	}
	rows, cols := pred.Dims()
	sum := 0.0
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			sum += math.Abs(pred.At(i, j) - at(i, j))
		}
	}
	return sum / float64(rows*cols), nil
}

func (MAE) Grad(pred, target *tensor.Tensor) (*tensor.Tensor, error) {
	at, err := targetAt(pred, target)
	if err != nil {
		return nil, err
	}
	rows, cols := pred.Dims()
	count := float64(rows * cols)
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			d := pred.At(i, j) - at(i, j)
			switch {
			case d > 0:
				out.Set(i, j, 1/count)
			case d < 0:
				out.Set(i, j, -1/count)
			}
		}
	}
	return tensor.New(out, pred.Device())
}

// Huber behaves like MSE inside delta and like MAE outside it.
type Huber struct {
	Delta float64
}

func (Huber) Name() string { return "huber" }

func (h Huber) delta() float64 {
	if h.Delta <= 0 {
		return 1.0
	}
	return h.Delta
}

func (h Huber) Eval(pred, target *tensor.Tensor) (float64, error) {
	at, err := targetAt(pred, target)
	if err != nil {
		return 0, err
	}
	delta := h.delta()
	rows, cols := pred.Dims()
	sum := 0.0
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			d := pred.At(i, j) - at(i, j)
			if abs := math.Abs(d); abs <= delta {
				sum += 0.5 * d * d
			} else {
				sum += delta * (abs - 0.5*delta)
			}
		}
	}
	return sum / float64(rows*cols), nil
}

func (h Huber) Grad(pred, target *tensor.Tensor) (*tensor.Tensor, error) {
	at, err := targetAt(pred, target)
	if err != nil {
		return nil, err
	}
	delta := h.delta()
	rows, cols := pred.Dims()
	count := float64(rows * cols)
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			d := pred.At(i, j) - at(i, j)
			g := d
			if d > delta {
				g = delta
			} else if d < -delta {
				g = -delta
			}
			out.Set(i, j, g/count)
		}
	}
	return tensor.New(out, pred.Device())
}

// BinaryCrossEntropy expects predictions already mapped to probabilities
// (for example through a sigmoid output); values are clamped away from 0/1.
type BinaryCrossEntropy struct{}

func (BinaryCrossEntropy) Name() string { return "binary_cross_entropy" }

func (BinaryCrossEntropy) Eval(pred, target *tensor.Tensor) (float64, error) {
	at, err := targetAt(pred, target)
	if err != nil {
		return 0, err
	}
	rows, cols := pred.Dims()
	sum := 0.0
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			p := clampProbability(pred.At(i, j))
			t := at(i, j)
			sum += -(t*math.Log(p) + (1-t)*math.Log(1-p))
		}
	}
	return sum / float64(rows*cols), nil
}

func (BinaryCrossEntropy) Grad(pred, target *tensor.Tensor) (*tensor.Tensor, error) {
	at, err := targetAt(pred, target)
	if err != nil {
		return nil, err
	}
	rows, cols := pred.Dims()
	count := float64(rows * cols)
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			p := clampProbability(pred.At(i, j))
			t := at(i, j)
			out.Set(i, j, (p-t)/(p*(1-p))/count)
		}
	}
	return tensor.New(out, pred.Device())
}

// CrossEntropy expects probability rows (for example through a softmax
// output) against one-hot targets.
type CrossEntropy struct{}

func (CrossEntropy) Name() string { return "cross_entropy" }

func (CrossEntropy) Eval(pred, target *tensor.Tensor) (float64, error) {
	at, err := targetAt(pred, target)
	if err != nil {
		return 0, err
	}
	rows, cols := pred.Dims()
	sum := 0.0
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			t := at(i, j)
			if t == 0 {
				continue
			}
			sum += -t * math.Log(clampProbability(pred.At(i, j)))
		}
	}
	return sum / float64(rows), nil
}

func (CrossEntropy) Grad(pred, target *tensor.Tensor) (*tensor.Tensor, error) {
	at, err := targetAt(pred, target)
	if err != nil {
		return nil, err
	}
	rows, cols := pred.Dims()
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			t := at(i, j)
			if t == 0 {
				continue
			}
			out.Set(i, j, -t/clampProbability(pred.At(i, j))/float64(rows))
		}
	}
	return tensor.New(out, pred.Device())
}

func clampProbability(p float64) float64 {
	if p < probabilityEpsilon {
		return probabilityEpsilon
	}
	if p > 1-probabilityEpsilon {
		return 1 - probabilityEpsilon
	}
	return p
}
