package preprocessing

import (
	"errors"
	"math"
	"testing"

	"github.com/jabowery/deep-river/tensor"
)

func TestScalerRunningStats(t *testing.T) {
	scaler := NewStandardScaler()
	for _, v := range []float64{2, 4, 6} {
		if err := scaler.LearnOne(map[string]any{"x": v}); err != nil {
			t.Fatalf("learn: %v", err)
		}
	}

	if got := scaler.Mean("x"); math.Abs(got-4) > 1e-9 {
		t.Fatalf("unexpected mean: %f", got)
	}
	// Population std of {2,4,6} is sqrt(8/3).
	want := math.Sqrt(8.0 / 3.0)
	if got := scaler.Std("x"); math.Abs(got-want) > 1e-9 {
		t.Fatalf("unexpected std: got=%f want=%f", got, want)
	}
}

func TestScalerTransform(t *testing.T) {
	scaler := NewStandardScaler()
	for _, v := range []float64{2, 4, 6} {
		if err := scaler.LearnOne(map[string]any{"x": v}); err != nil {
			t.Fatalf("learn: %v", err)
		}
	}
	out, err := scaler.TransformOne(map[string]any{"x": 6.0})
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	want := 2 / math.Sqrt(8.0/3.0)
	if math.Abs(out["x"]-want) > 1e-9 {
		t.Fatalf("unexpected scaled value: got=%f want=%f", out["x"], want)
	}
}

func TestScalerUnseenFeaturePassesThrough(t *testing.T) {
	scaler := NewStandardScaler()
	if err := scaler.LearnOne(map[string]any{"x": 1.0}); err != nil {
		t.Fatalf("learn: %v", err)
	}
	out, err := scaler.TransformOne(map[string]any{"y": 7.0})
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	if out["y"] != 7 {
		t.Fatalf("unseen feature was scaled: %f", out["y"])
	}
}

func TestScalerZeroVarianceOnlyCenters(t *testing.T) {
	scaler := NewStandardScaler()
	for i := 0; i < 3; i++ {
		if err := scaler.LearnOne(map[string]any{"x": 5.0}); err != nil {
			t.Fatalf("learn: %v", err)
		}
	}
	out, err := scaler.TransformOne(map[string]any{"x": 8.0})
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	if math.Abs(out["x"]-3) > 1e-9 {
		t.Fatalf("unexpected centered value: %f", out["x"])
	}
}

func TestScalerRejectsNonNumeric(t *testing.T) {
	scaler := NewStandardScaler()
	if err := scaler.LearnOne(map[string]any{"x": "oops"}); !errors.Is(err, tensor.ErrNonNumeric) {
		t.Fatalf("expected non-numeric error, got %v", err)
	}
	if scaler.Count("x") != 0 {
		t.Fatalf("failed learn updated statistics")
	}
}
