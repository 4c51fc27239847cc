// Package stream provides example sources and progressive validation for the
// streaming adapters.
package stream

import (
	"context"
	"fmt"
	"io"
	"math/rand"
)

// Example is one labeled observation from a stream.
type Example struct {
	Features map[string]any
	Target   float64
}

// Source yields examples until exhausted, signalled by io.EOF.
type Source interface {
	Next(ctx context.Context) (Example, error)
}

// SliceSource replays a fixed set of examples in order.
type SliceSource struct {
	examples []Example
	pos      int
}

func NewSliceSource(examples []Example) *SliceSource {
	return &SliceSource{examples: examples}
}

func (s *SliceSource) Next(ctx context.Context) (Example, error) {
	if err := ctx.Err(); err != nil {
		return Example{}, err
	}
	if s.pos >= len(s.examples) {
		return Example{}, io.EOF
	}
	example := s.examples[s.pos]
	s.pos++
	return example, nil
}

// SyntheticRegression generates a noisy linear stream with a fixed seed. The
// target is the dot product of hidden weights with uniform features plus
// gaussian noise.
type SyntheticRegression struct {
	rng       *rand.Rand
	weights   []float64
	noise     float64
	remaining int
}

// NewSyntheticRegression builds a source of count examples over numFeatures
// features named f0..fN-1. A count of zero or less never runs out.
func NewSyntheticRegression(numFeatures, count int, noise float64, seed int64) (*SyntheticRegression, error) {
	if numFeatures <= 0 {
		return nil, fmt.Errorf("number of features must be > 0: %d", numFeatures)
	}
	rng := rand.New(rand.NewSource(seed))
	weights := make([]float64, numFeatures)
	for i := range weights {
		weights[i] = rng.Float64()*2 - 1
	}
	return &SyntheticRegression{
		rng:       rng,
		weights:   weights,
		noise:     noise,
		remaining: count,
	}, nil
}

func (s *SyntheticRegression) Next(ctx context.Context) (Example, error) {
	if err := ctx.Err(); err != nil {
		return Example{}, err
	}
	if s.remaining == 0 {
		return Example{}, io.EOF
	}
	if s.remaining > 0 {
		s.remaining--
	}

	features := make(map[string]any, len(s.weights))
	var target float64
	for i, w := range s.weights {
		value := s.rng.Float64()*2 - 1
		features[fmt.Sprintf("f%d", i)] = value
		target += w * value
	}
	if s.noise > 0 {
		target += s.rng.NormFloat64() * s.noise
	}
	return Example{Features: features, Target: target}, nil
}
