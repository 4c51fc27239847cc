package deepriver

import (
	"context"
	"math"
	"testing"

	"github.com/jabowery/deep-river/regression"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(Options{StoreKind: "memory"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := client.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}

func TestSaveAndLoadModel(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	cfg := regression.Config{HiddenSizes: []int{4}, Activation: "tanh", Seed: 5, LearningRate: 0.05}
	reg, err := regression.NewRegressor(cfg)
	if err != nil {
		t.Fatalf("new regressor: %v", err)
	}
	features := map[string]any{"x": 1.0, "y": 2.0}
	for i := 0; i < 10; i++ {
		if err := reg.LearnOne(features, 3); err != nil {
			t.Fatalf("learn: %v", err)
		}
	}
	want, err := reg.PredictOne(features)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}

	id, err := client.SaveModel(ctx, "", reg)
	if err != nil {
		t.Fatalf("save model: %v", err)
	}
	if id == "" {
		t.Fatal("expected generated id")
	}

	restored, err := regression.NewRegressor(cfg)
	if err != nil {
		t.Fatalf("new regressor: %v", err)
	}
	if err := client.LoadModel(ctx, id, restored); err != nil {
		t.Fatalf("load model: %v", err)
	}
	got, err := restored.PredictOne(features)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("restored prediction differs: got=%f want=%f", got, want)
	}

	models, err := client.Models(ctx)
	if err != nil {
		t.Fatalf("models: %v", err)
	}
	if len(models) != 1 || models[0].ID != id || models[0].Kind != regression.KindRegressor {
		t.Fatalf("unexpected listing: %+v", models)
	}
}

func TestLoadModelNotFound(t *testing.T) {
	client := newTestClient(t)
	reg, err := regression.NewRegressor(regression.Config{})
	if err != nil {
		t.Fatalf("new regressor: %v", err)
	}
	if err := client.LoadModel(context.Background(), "missing", reg); err == nil {
		t.Fatal("expected not found error")
	}
}

func TestMetricHistoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	history := []MetricPoint{
		{Step: 1, Metric: "mae", Value: 2},
		{Step: 2, Metric: "mae", Value: 1.5},
	}
	runID, err := client.SaveMetricHistory(ctx, "", history)
	if err != nil {
		t.Fatalf("save history: %v", err)
	}
	if runID == "" {
		t.Fatal("expected generated run id")
	}

	loaded, err := client.MetricHistory(ctx, runID)
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	if len(loaded) != 2 || loaded[1].Value != 1.5 {
		t.Fatalf("unexpected history: %+v", loaded)
	}

	if _, err := client.MetricHistory(ctx, "missing"); err == nil {
		t.Fatal("expected not found error")
	}
}
