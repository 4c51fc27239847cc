package stream

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/jabowery/deep-river/internal/model"
	"github.com/jabowery/deep-river/metrics"
)

// Learner is the regression surface progressive validation drives.
type Learner interface {
	LearnOne(features map[string]any, target float64) error
	PredictOne(features map[string]any) (float64, error)
}

// ValidateOptions tunes ProgressiveValidate. Zero values mean a silent run
// with a running MAE.
type ValidateOptions struct {
	Logger   *zerolog.Logger
	LogEvery int
	Metric   metrics.Regression
}

// ProgressiveValidate runs the classic test-then-train loop: each example is
// predicted before the learner sees its target, so every score is out of
// sample. It returns the metric trajectory, one point per example.
func ProgressiveValidate(ctx context.Context, src Source, learner Learner, opts ValidateOptions) ([]model.MetricPoint, error) {
	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	metric := opts.Metric
	if metric == nil {
		metric = metrics.NewMAE()
	}

	var history []model.MetricPoint
	for step := 1; ; step++ {
		example, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return history, nil
		}
		if err != nil {
			return history, fmt.Errorf("step %d: %w", step, err)
		}

		prediction, err := learner.PredictOne(example.Features)
		if err != nil {
			return history, fmt.Errorf("step %d: predict: %w", step, err)
		}
		if err := learner.LearnOne(example.Features, example.Target); err != nil {
			return history, fmt.Errorf("step %d: learn: %w", step, err)
		}

		metric.Update(example.Target, prediction)
		history = append(history, model.MetricPoint{
			Step:   step,
			Metric: metric.Name(),
			Value:  metric.Value(),
		})
		if opts.LogEvery > 0 && step%opts.LogEvery == 0 {
			logger.Info().
				Int("step", step).
				Str("metric", metric.Name()).
				Float64("value", metric.Value()).
				Msg("progressive validation")
		}
	}
}
