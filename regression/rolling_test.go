package regression

import (
	"math"
	"testing"

	"github.com/jabowery/deep-river/nn"
	"github.com/jabowery/deep-river/optim"
)

type countingOptimizer struct {
	inner optim.Optimizer
	steps int
}

func (c *countingOptimizer) Step() error {
	c.steps++
	return c.inner.Step()
}

func (c *countingOptimizer) ZeroGrad() {
	c.inner.ZeroGrad()
}

func TestRollingWindowFillsBeforeTraining(t *testing.T) {
	counter := &countingOptimizer{}
	reg, err := NewRollingRegressor(RollingConfig{
		Config: Config{
			BuildFn: linearBuilder([]float64{2}, 0),
			OptimizerFn: func(params []*nn.Parameter, learningRate float64) optim.Optimizer {
				counter.inner = optim.NewSGD(params, learningRate)
				return counter
			},
		},
		WindowSize: 2,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	// First example only buffers.
	if err := reg.LearnOne(map[string]any{"x": 1.0}, 10); err != nil {
		t.Fatalf("learn: %v", err)
	}
	if counter.steps != 0 {
		t.Fatalf("trained before the window filled: steps=%d", counter.steps)
	}
	if reg.WindowLen() != 1 {
		t.Fatalf("unexpected window length: %d", reg.WindowLen())
	}

	// Placeholder prediction while the window is short.
	got, err := reg.PredictOne(map[string]any{"x": 9.0})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if got != 0 {
		t.Fatalf("expected placeholder 0.0, got %f", got)
	}

	// Second example fills the window and triggers the first train step.
	if err := reg.LearnOne(map[string]any{"x": 2.0}, 20); err != nil {
		t.Fatalf("learn: %v", err)
	}
	if counter.steps != 1 {
		t.Fatalf("expected one train step, got %d", counter.steps)
	}

	// Each later example evicts the oldest and trains again.
	if err := reg.LearnOne(map[string]any{"x": 3.0}, 30); err != nil {
		t.Fatalf("learn: %v", err)
	}
	if counter.steps != 2 {
		t.Fatalf("expected two train steps, got %d", counter.steps)
	}
	if reg.WindowLen() != 2 {
		t.Fatalf("window grew past its size: %d", reg.WindowLen())
	}
}

func TestRollingPredictUsesLastRow(t *testing.T) {
	reg, err := NewRollingRegressor(RollingConfig{
		Config: Config{
			BuildFn: linearBuilder([]float64{2}, 0),
			// Zero-rate optimizer keeps the weights at 2 so the
			// prediction stays exact.
			OptimizerFn: func(params []*nn.Parameter, learningRate float64) optim.Optimizer {
				return optim.NewSGD(params, 0)
			},
		},
		WindowSize: 2,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if err := reg.LearnOne(map[string]any{"x": 1.0}, 2); err != nil {
		t.Fatalf("learn: %v", err)
	}
	if err := reg.LearnOne(map[string]any{"x": 2.0}, 4); err != nil {
		t.Fatalf("learn: %v", err)
	}

	got, err := reg.PredictOne(map[string]any{"x": 3.0})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if math.Abs(got-6) > 1e-9 {
		t.Fatalf("unexpected prediction: got=%f want=6", got)
	}
	// Without AppendPredict the window is untouched by prediction.
	if reg.WindowLen() != 2 {
		t.Fatalf("prediction mutated the window: %d", reg.WindowLen())
	}
	cp, err := reg.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if cp.Window[0][0] != 1 || cp.Window[1][0] != 2 {
		t.Fatalf("window contents changed: %v", cp.Window)
	}
}

func TestRollingAppendPredictPushesExample(t *testing.T) {
	reg, err := NewRollingRegressor(RollingConfig{
		Config: Config{
			BuildFn: linearBuilder([]float64{1}, 0),
			OptimizerFn: func(params []*nn.Parameter, learningRate float64) optim.Optimizer {
				return optim.NewSGD(params, 0)
			},
		},
		WindowSize:    2,
		AppendPredict: true,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if err := reg.LearnOne(map[string]any{"x": 1.0}, 1); err != nil {
		t.Fatalf("learn: %v", err)
	}
	if err := reg.LearnOne(map[string]any{"x": 2.0}, 2); err != nil {
		t.Fatalf("learn: %v", err)
	}
	if _, err := reg.PredictOne(map[string]any{"x": 3.0}); err != nil {
		t.Fatalf("predict: %v", err)
	}

	// The predicted example replaced the oldest buffered one.
	cp, err := reg.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if reg.WindowLen() != 2 || cp.Window[0][0] != 2 || cp.Window[1][0] != 3 {
		t.Fatalf("unexpected window after append predict: %v", cp.Window)
	}
}

func TestRollingWindowSizeValidation(t *testing.T) {
	for _, size := range []int{0, -3} {
		if _, err := NewRollingRegressor(RollingConfig{WindowSize: size}); err == nil {
			t.Fatalf("expected error for window size %d", size)
		}
	}
}

func TestRollingSnapshotRoundTrip(t *testing.T) {
	cfg := RollingConfig{
		Config:     Config{HiddenSizes: []int{3}, Activation: "tanh", Seed: 11, LearningRate: 0.05},
		WindowSize: 3,
	}
	reg, err := NewRollingRegressor(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for i := 1; i <= 5; i++ {
		if err := reg.LearnOne(map[string]any{"x": float64(i)}, float64(2*i)); err != nil {
			t.Fatalf("learn %d: %v", i, err)
		}
	}
	want, err := reg.PredictOne(map[string]any{"x": 6.0})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}

	cp, err := reg.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if cp.Kind != KindRollingRegressor || cp.WindowSize != 3 || len(cp.Window) != 3 {
		t.Fatalf("unexpected checkpoint: %+v", cp)
	}

	restored, err := NewRollingRegressor(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := restored.RestoreSnapshot(cp); err != nil {
		t.Fatalf("restore: %v", err)
	}
	got, err := restored.PredictOne(map[string]any{"x": 6.0})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("restored prediction differs: got=%f want=%f", got, want)
	}
	if restored.WindowLen() != 3 {
		t.Fatalf("window not restored: %d", restored.WindowLen())
	}
}
