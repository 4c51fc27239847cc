package preprocessing

import (
	"math"

	"github.com/jabowery/deep-river/tensor"
)

// StandardScaler keeps running per-feature mean and variance using Welford's
// online update and rescales examples to zero mean and unit variance.
// Features it has never seen pass through unscaled until observed.
type StandardScaler struct {
	counts    map[string]int
	means     map[string]float64
	sumSquare map[string]float64
}

func NewStandardScaler() *StandardScaler {
	return &StandardScaler{
		counts:    map[string]int{},
		means:     map[string]float64{},
		sumSquare: map[string]float64{},
	}
}

// LearnOne folds one example into the running statistics. Non-numeric values
// abort the call with no statistics changed.
func (s *StandardScaler) LearnOne(features map[string]any) error {
	order := tensor.Order(features)
	row, err := tensor.RowFromMap(features, order)
	if err != nil {
		return err
	}
	for i, name := range order {
		value := row[i]
		s.counts[name]++
		delta := value - s.means[name]
		s.means[name] += delta / float64(s.counts[name])
		s.sumSquare[name] += delta * (value - s.means[name])
	}
	return nil
}

// TransformOne returns a scaled copy of the example. A feature with fewer
// than two observations, or zero variance, is only centered.
func (s *StandardScaler) TransformOne(features map[string]any) (map[string]float64, error) {
	order := tensor.Order(features)
	row, err := tensor.RowFromMap(features, order)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(order))
	for i, name := range order {
		value := row[i]
		count, ok := s.counts[name]
		if !ok {
			out[name] = value
			continue
		}
		centered := value - s.means[name]
		if count < 2 {
			out[name] = centered
			continue
		}
		std := math.Sqrt(s.sumSquare[name] / float64(count))
		if std == 0 {
			out[name] = centered
			continue
		}
		out[name] = centered / std
	}
	return out, nil
}

// Mean returns the running mean for a feature, zero when unseen.
func (s *StandardScaler) Mean(name string) float64 {
	return s.means[name]
}

// Std returns the running population standard deviation for a feature.
func (s *StandardScaler) Std(name string) float64 {
	count := s.counts[name]
	if count < 2 {
		return 0
	}
	return math.Sqrt(s.sumSquare[name] / float64(count))
}

// Count returns how many times a feature has been observed.
func (s *StandardScaler) Count(name string) int {
	return s.counts[name]
}
