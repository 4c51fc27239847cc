// Package metrics provides streaming evaluation metrics updated one
// prediction at a time.
package metrics

import "math"

// Regression is a streaming metric over (truth, prediction) pairs.
type Regression interface {
	Name() string
	Update(truth, prediction float64)
	Value() float64
}

// MAE is the running mean absolute error.
type MAE struct {
	count int
	total float64
}

func NewMAE() *MAE { return &MAE{} }

func (*MAE) Name() string { return "mae" }

func (m *MAE) Update(truth, prediction float64) {
	m.count++
	m.total += math.Abs(truth - prediction)
}

func (m *MAE) Value() float64 {
	if m.count == 0 {
		return 0
	}
	return m.total / float64(m.count)
}

// RMSE is the running root mean squared error.
type RMSE struct {
	count int
	total float64
}

func NewRMSE() *RMSE { return &RMSE{} }

func (*RMSE) Name() string { return "rmse" }

func (m *RMSE) Update(truth, prediction float64) {
	m.count++
	diff := truth - prediction
	m.total += diff * diff
}

func (m *RMSE) Value() float64 {
	if m.count == 0 {
		return 0
	}
	return math.Sqrt(m.total / float64(m.count))
}

// Accuracy is the running fraction of correct label predictions.
type Accuracy struct {
	count   int
	correct int
}

func NewAccuracy() *Accuracy { return &Accuracy{} }

func (*Accuracy) Name() string { return "accuracy" }

func (m *Accuracy) Update(truth, prediction string) {
	m.count++
	if truth == prediction {
		m.correct++
	}
}

func (m *Accuracy) Value() float64 {
	if m.count == 0 {
		return 0
	}
	return float64(m.correct) / float64(m.count)
}
