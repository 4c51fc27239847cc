package nn

import (
	"errors"
	"math"
	"testing"
)

func TestBuiltInActivations(t *testing.T) {
	tests := []struct {
		name  string
		act   string
		x     float64
		want  float64
		deriv float64
	}{
		{name: "identity", act: "identity", x: 2.5, want: 2.5, deriv: 1},
		{name: "relu-negative", act: "relu", x: -1, want: 0, deriv: 0},
		{name: "relu-positive", act: "relu", x: 3, want: 3, deriv: 1},
		{name: "tanh-zero", act: "tanh", x: 0, want: 0, deriv: 1},
		{name: "sigmoid-zero", act: "sigmoid", x: 0, want: 0.5, deriv: 0.25},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fn, err := GetActivation(tc.act)
			if err != nil {
				t.Fatalf("get activation: %v", err)
			}
			if got := fn(tc.x); math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("unexpected value: got=%f want=%f", got, tc.want)
			}
			derivative, err := GetDerivative(tc.act)
			if err != nil {
				t.Fatalf("get derivative: %v", err)
			}
			if got := derivative(tc.x); math.Abs(got-tc.deriv) > 1e-9 {
				t.Fatalf("unexpected derivative: got=%f want=%f", got, tc.deriv)
			}
		})
	}
}

func TestDerivativesMatchNumericalDifference(t *testing.T) {
	const h = 1e-6
	for _, name := range []string{"identity", "tanh", "sigmoid"} {
		fn, err := GetActivation(name)
		if err != nil {
			t.Fatalf("get activation %s: %v", name, err)
		}
		derivative, err := GetDerivative(name)
		if err != nil {
			t.Fatalf("get derivative %s: %v", name, err)
		}
		for _, x := range []float64{-2, -0.5, 0.1, 1.7} {
			numeric := (fn(x+h) - fn(x-h)) / (2 * h)
			if math.Abs(numeric-derivative(x)) > 1e-5 {
				t.Fatalf("%s derivative mismatch at %f: numeric=%f analytic=%f", name, x, numeric, derivative(x))
			}
		}
	}
}

func TestRegisterActivationDuplicate(t *testing.T) {
	defer resetActivationRegistryForTests()

	err := RegisterActivation("relu", func(x float64) float64 { return x }, func(_ float64) float64 { return 1 })
	if !errors.Is(err, ErrActivationExists) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestRegisterActivationValidation(t *testing.T) {
	defer resetActivationRegistryForTests()

	if err := RegisterActivation("", nil, nil); err == nil {
		t.Fatal("expected error for empty name")
	}
	if err := RegisterActivation("no-fn", nil, func(_ float64) float64 { return 1 }); err == nil {
		t.Fatal("expected error for missing function")
	}
	if err := RegisterActivation("no-deriv", func(x float64) float64 { return x }, nil); err == nil {
		t.Fatal("expected error for missing derivative")
	}
	err := RegisterActivationWithSpec(ActivationSpec{
		Name:          "versioned",
		Func:          func(x float64) float64 { return x },
		Derivative:    func(_ float64) float64 { return 1 },
		SchemaVersion: 99,
		CodecVersion:  SupportedCodecVersion,
	})
	if !errors.Is(err, ErrActivationVersion) {
		t.Fatalf("expected version error, got %v", err)
	}
}

func TestGetActivationNotFound(t *testing.T) {
	_, err := GetActivation("unknown")
	if !errors.Is(err, ErrActivationNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestListActivationsSorted(t *testing.T) {
	names := ListActivations()
	if len(names) < 4 {
		t.Fatalf("expected at least 4 built-ins, got %v", names)
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("names not sorted: %v", names)
		}
	}
}
