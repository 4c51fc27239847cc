package tensor

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrNonNumeric     = errors.New("feature value is not numeric")
	ErrMissingFeature = errors.New("feature missing from map")
	ErrEmptyFeatures  = errors.New("feature map is empty")
	ErrRaggedRows     = errors.New("rows have inconsistent width")
)

// Order returns the deterministic column order for a feature map. Go maps
// carry no insertion order, so adapters pin sorted key order at the first
// observed example and convert every later example with the same order.
func Order(features map[string]any) []string {
	keys := make([]string, 0, len(features))
	for key := range features {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// RowFromMap flattens a feature map into a value row following order.
func RowFromMap(features map[string]any, order []string) ([]float64, error) {
	if len(order) == 0 {
		order = Order(features)
	}
	if len(order) == 0 {
		return nil, ErrEmptyFeatures
	}
	row := make([]float64, len(order))
	for i, name := range order {
		raw, ok := features[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingFeature, name)
		}
		value, ok := asFloat64(raw)
		if !ok {
			return nil, fmt.Errorf("%w: %s=%T", ErrNonNumeric, name, raw)
		}
		row[i] = value
	}
	return row, nil
}

// FromMap converts one feature map into a 1xF tensor on device, with column
// order given by order (nil means sorted key order).
func FromMap(features map[string]any, order []string, device Device) (*Tensor, error) {
	row, err := RowFromMap(features, order)
	if err != nil {
		return nil, err
	}
	data := mat.NewDense(1, len(row), row)
	return New(data, device)
}

// FromRows converts an ordered sequence of equal-length value rows into an
// NxF tensor on device.
func FromRows(rows [][]float64, device Device) (*Tensor, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("rows must not be empty")
	}
	width := len(rows[0])
	if width == 0 {
		return nil, fmt.Errorf("rows must not have zero width")
	}
	flat := make([]float64, 0, len(rows)*width)
	for i, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d has width %d, want %d", ErrRaggedRows, i, len(row), width)
		}
		flat = append(flat, row...)
	}
	data := mat.NewDense(len(rows), width, flat)
	return New(data, device)
}

// FromScalar wraps a single value as a 1x1 tensor for loss computation.
func FromScalar(value float64, device Device) *Tensor {
	t, _ := New(mat.NewDense(1, 1, []float64{value}), device)
	return t
}
