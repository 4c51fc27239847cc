package loss

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/jabowery/deep-river/tensor"
)

var (
	ErrLossExists   = errors.New("loss already registered")
	ErrLossNotFound = errors.New("loss not found")
	ErrShape        = errors.New("loss shape mismatch")
)

// Loss scores a prediction batch against a target and provides the gradient
// of the score with respect to the prediction. A single-row target is
// broadcast across every prediction row, which is how the rolling adapter
// trains a whole window against the most recent target.
type Loss interface {
	Name() string
	Eval(pred, target *tensor.Tensor) (float64, error)
	Grad(pred, target *tensor.Tensor) (*tensor.Tensor, error)
}

var lossRegistry = struct {
	mu sync.RWMutex
	m  map[string]Loss
}{
	m: make(map[string]Loss),
}

func init() {
	initializeBuiltInLosses()
}

func initializeBuiltInLosses() {
	MustRegister(MSE{})
	MustRegister(MAE{})
	MustRegister(Huber{Delta: 1.0})
	MustRegister(BinaryCrossEntropy{})
	MustRegister(CrossEntropy{})
}

func Register(l Loss) error {
	if l == nil {
		return errors.New("loss is required")
	}
	if l.Name() == "" {
		return errors.New("loss name is required")
	}

	lossRegistry.mu.Lock()
	defer lossRegistry.mu.Unlock()

	if _, exists := lossRegistry.m[l.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrLossExists, l.Name())
	}
	lossRegistry.m[l.Name()] = l
	return nil
}

func MustRegister(l Loss) {
	if err := Register(l); err != nil {
		panic(err)
	}
}

func Get(name string) (Loss, error) {
	lossRegistry.mu.RLock()
	l, ok := lossRegistry.m[name]
	lossRegistry.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLossNotFound, name)
	}
	return l, nil
}

func List() []string {
	lossRegistry.mu.RLock()
	defer lossRegistry.mu.RUnlock()

	names := make([]string, 0, len(lossRegistry.m))
	for name := range lossRegistry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// targetAt validates pred/target shapes and returns a row-broadcasting
// accessor into the target.
func targetAt(pred, target *tensor.Tensor) (func(i, j int) float64, error) {
	if pred.Device() != target.Device() {
		return nil, fmt.Errorf("%w: device %s vs %s", ErrShape, pred.Device(), target.Device())
	}
	predRows, predCols := pred.Dims()
	targetRows, targetCols := target.Dims()
	if targetCols != predCols {
		return nil, fmt.Errorf("%w: target width %d, prediction width %d", ErrShape, targetCols, predCols)
	}
	if targetRows != predRows && targetRows != 1 {
		return nil, fmt.Errorf("%w: target rows %d, prediction rows %d", ErrShape, targetRows, predRows)
	}
	if targetRows == 1 {
		return func(_, j int) float64 { return target.At(0, j) }, nil
	}
	return target.At, nil
}
