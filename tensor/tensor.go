package tensor

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Tensor is a dense 2-D value matrix tagged with the device it was built for.
type Tensor struct {
	data   *mat.Dense
	device Device
}

func New(data *mat.Dense, device Device) (*Tensor, error) {
	if data == nil {
		return nil, fmt.Errorf("tensor data is required")
	}
	if device == "" {
		device = CPU
	}
	return &Tensor{data: data, device: device}, nil
}

func (t *Tensor) Dims() (rows, cols int) {
	return t.data.Dims()
}

func (t *Tensor) At(i, j int) float64 {
	return t.data.At(i, j)
}

func (t *Tensor) Device() Device {
	return t.device
}

// Matrix exposes the backing matrix. Callers must not resize it.
func (t *Tensor) Matrix() *mat.Dense {
	return t.data
}

// Scalar returns the single element of a 1x1 tensor.
func (t *Tensor) Scalar() (float64, error) {
	r, c := t.data.Dims()
	if r != 1 || c != 1 {
		return 0, fmt.Errorf("tensor is not scalar: %dx%d", r, c)
	}
	return t.data.At(0, 0), nil
}

// Row copies out row i.
func (t *Tensor) Row(i int) []float64 {
	_, c := t.data.Dims()
	out := make([]float64, c)
	mat.Row(out, i, t.data)
	return out
}

func (t *Tensor) Clone() *Tensor {
	var data mat.Dense
	data.CloneFrom(t.data)
	return &Tensor{data: &data, device: t.device}
}
