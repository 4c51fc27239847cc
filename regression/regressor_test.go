package regression

import (
	"errors"
	"math"
	"testing"

	"github.com/jabowery/deep-river/nn"
	"github.com/jabowery/deep-river/tensor"
)

// linearBuilder builds a single dense layer with fixed weights, one per
// feature column in sorted key order, so predictions are exact.
func linearBuilder(weights []float64, bias float64) nn.BuilderFunc {
	return func(numFeatures int) (nn.Network, error) {
		net, err := nn.NewMLP(nn.MLPConfig{NumFeatures: numFeatures})
		if err != nil {
			return nil, err
		}
		rows := make([][]float64, numFeatures)
		for i := 0; i < numFeatures; i++ {
			rows[i] = []float64{weights[i]}
		}
		if err := net.RestoreState([]nn.LayerState{{Kind: "dense", Weights: rows, Bias: []float64{bias}}}); err != nil {
			return nil, err
		}
		return net, nil
	}
}

func TestRegressorPinsSortedFeatureOrder(t *testing.T) {
	reg, err := NewRegressor(Config{BuildFn: linearBuilder([]float64{1, 10}, 0)})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	// Columns follow sorted key order: a then b.
	got, err := reg.PredictOne(map[string]any{"b": 3.0, "a": 2.0})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if math.Abs(got-32) > 1e-9 {
		t.Fatalf("unexpected prediction: got=%f want=32", got)
	}
	if order := reg.FeatureOrder(); len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("unexpected order: %v", order)
	}
}

func TestRegressorLearnMovesPredictionTowardTarget(t *testing.T) {
	reg, err := NewRegressor(Config{
		BuildFn:      linearBuilder([]float64{0}, 0),
		LearningRate: 0.1,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	features := map[string]any{"x": 1.0}
	before, err := reg.PredictOne(features)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	for i := 0; i < 50; i++ {
		if err := reg.LearnOne(features, 5); err != nil {
			t.Fatalf("learn %d: %v", i, err)
		}
	}
	after, err := reg.PredictOne(features)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if math.Abs(5-after) >= math.Abs(5-before) {
		t.Fatalf("prediction did not approach target: before=%f after=%f", before, after)
	}
	if math.Abs(5-after) > 0.1 {
		t.Fatalf("prediction still far from target: %f", after)
	}
}

func TestRegressorPredictDoesNotChangeParameters(t *testing.T) {
	reg, err := NewRegressor(Config{BuildFn: linearBuilder([]float64{2}, 1)})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	features := map[string]any{"x": 4.0}

	first, err := reg.PredictOne(features)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := reg.PredictOne(features)
		if err != nil {
			t.Fatalf("predict %d: %v", i, err)
		}
		if again != first {
			t.Fatalf("prediction drifted: got=%f want=%f", again, first)
		}
	}
}

func TestRegressorWidthChangeRejected(t *testing.T) {
	reg, err := NewRegressor(Config{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := reg.LearnOne(map[string]any{"x": 1.0, "y": 2.0}, 1); err != nil {
		t.Fatalf("learn: %v", err)
	}
	if err := reg.LearnOne(map[string]any{"x": 1.0}, 1); !errors.Is(err, ErrWidthChanged) {
		t.Fatalf("expected width error, got %v", err)
	}
	if _, err := reg.PredictOne(map[string]any{"x": 1.0, "y": 2.0, "z": 3.0}); !errors.Is(err, ErrWidthChanged) {
		t.Fatalf("expected width error, got %v", err)
	}
}

func TestRegressorInitRetriesAfterBadFirstExample(t *testing.T) {
	reg, err := NewRegressor(Config{BuildFn: linearBuilder([]float64{1}, 0)})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := reg.LearnOne(map[string]any{}, 1); !errors.Is(err, tensor.ErrEmptyFeatures) {
		t.Fatalf("expected empty features error, got %v", err)
	}
	// The failed call must not have pinned anything.
	if err := reg.LearnOne(map[string]any{"x": 1.0}, 1); err != nil {
		t.Fatalf("learn after failed init: %v", err)
	}
}

func TestRegressorNonNumericFeatureLeavesModelUntouched(t *testing.T) {
	reg, err := NewRegressor(Config{BuildFn: linearBuilder([]float64{3}, 0)})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	features := map[string]any{"x": 2.0}
	before, err := reg.PredictOne(features)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}

	if err := reg.LearnOne(map[string]any{"x": "nope"}, 1); !errors.Is(err, tensor.ErrNonNumeric) {
		t.Fatalf("expected non-numeric error, got %v", err)
	}
	after, err := reg.PredictOne(features)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if after != before {
		t.Fatalf("failed learn changed the model: before=%f after=%f", before, after)
	}
}

func TestRegressorConfigErrors(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{name: "unknown loss", cfg: Config{LossFn: "hinge"}},
		{name: "unknown device", cfg: Config{Device: "cuda"}},
		{name: "negative learning rate", cfg: Config{LearningRate: -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewRegressor(tc.cfg); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestRegressorSnapshotRoundTrip(t *testing.T) {
	cfg := Config{HiddenSizes: []int{4}, Activation: "tanh", Seed: 7, LearningRate: 0.05}
	reg, err := NewRegressor(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	features := map[string]any{"x": 1.5, "y": -0.5}
	for i := 0; i < 10; i++ {
		if err := reg.LearnOne(features, 3); err != nil {
			t.Fatalf("learn: %v", err)
		}
	}
	want, err := reg.PredictOne(features)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}

	cp, err := reg.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if cp.Kind != KindRegressor || len(cp.FeatureOrder) != 2 {
		t.Fatalf("unexpected checkpoint: %+v", cp)
	}

	restored, err := NewRegressor(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := restored.RestoreSnapshot(cp); err != nil {
		t.Fatalf("restore: %v", err)
	}
	got, err := restored.PredictOne(features)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("restored prediction differs: got=%f want=%f", got, want)
	}
}

func TestRegressorSnapshotBeforeInit(t *testing.T) {
	reg, err := NewRegressor(Config{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := reg.Snapshot(); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected not-initialized error, got %v", err)
	}
}
