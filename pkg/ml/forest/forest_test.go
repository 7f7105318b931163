package forest

import (
	"encoding/json"
	"testing"
)

// separable: positive whenever the second feature exceeds 2.
func separable() ([][]float64, []float64) {
	var samples [][]float64
	var labels []float64
	for i := 0; i < 40; i++ {
		v := float64(i % 5)
		samples = append(samples, []float64{float64(i % 3), v})
		if v > 2 {
			labels = append(labels, 1)
		} else {
			labels = append(labels, 0)
		}
	}
	return samples, labels
}

func TestTrainSeparable(t *testing.T) {
	samples, labels := separable()
	f, err := Train(samples, labels, Options{Trees: 25, MaxDepth: 4, MaxFeatures: 2, Seed: 7})
	if err != nil {
		t.Fatalf("train failed: %v", err)
	}
	if len(f.Trees) != 25 {
		t.Fatalf("expected 25 trees, got %d", len(f.Trees))
	}

	high, err := f.PredictProba([]float64{0, 4})
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}
	low, err := f.PredictProba([]float64{0, 0})
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}
	if high <= 0.5 || low >= 0.5 {
		t.Fatalf("expected positive > 0.5 and negative < 0.5, got %v and %v", high, low)
	}
}

func TestTrainIsDeterministic(t *testing.T) {
	samples, labels := separable()
	opts := Options{Trees: 5, MaxDepth: 3, Seed: 42}
	a, err := Train(samples, labels, opts)
	if err != nil {
		t.Fatalf("train failed: %v", err)
	}
	b, err := Train(samples, labels, opts)
	if err != nil {
		t.Fatalf("train failed: %v", err)
	}
	left, _ := json.Marshal(a)
	right, _ := json.Marshal(b)
	if string(left) != string(right) {
		t.Fatal("expected identical forests for identical seeds")
	}
}

func TestPredictProbaChecksShape(t *testing.T) {
	f := &Forest{Features: 2, Trees: []Tree{{Nodes: []Node{{Feature: leaf, Value: 0.3}}}}}
	if _, err := f.PredictProba([]float64{1}); err == nil {
		t.Fatal("expected error for wrong feature count")
	}
	p, err := f.PredictProba([]float64{1, 2})
	if err != nil || p != 0.3 {
		t.Fatalf("expected 0.3, got %v (%v)", p, err)
	}
	var empty *Forest
	if _, err := empty.PredictProba(nil); err == nil {
		t.Fatal("expected error for empty forest")
	}
}

func TestPredictRejectsBrokenTree(t *testing.T) {
	f := &Forest{Features: 1, Trees: []Tree{{Nodes: []Node{{Feature: 0, Threshold: 1, Left: 0, Right: 0}}}}}
	if _, err := f.PredictProba([]float64{0}); err == nil {
		t.Fatal("expected error for self-referencing node")
	}
}

func TestTrainValidatesInput(t *testing.T) {
	if _, err := Train(nil, nil, Options{}); err == nil {
		t.Fatal("expected error without samples")
	}
	if _, err := Train([][]float64{{1}, {1, 2}}, []float64{0, 1}, Options{}); err == nil {
		t.Fatal("expected error for ragged samples")
	}
}
