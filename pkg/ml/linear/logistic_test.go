package linear

import "testing"

func TestTrainLogisticSeparatesClasses(t *testing.T) {
	var samples [][]float64
	var labels []float64
	for i := 0; i < 50; i++ {
		x := float64(i)
		samples = append(samples, []float64{x, 1.01})
		if x >= 25 {
			labels = append(labels, 1)
		} else {
			labels = append(labels, 0)
		}
	}

	weights, metrics := TrainLogistic(samples, labels, Options{Epochs: 800, LearningRate: 0.5})
	if metrics.Accuracy < 0.9 {
		t.Fatalf("expected accuracy >= 0.9, got %v", metrics.Accuracy)
	}
	high, err := weights.PredictProba([]float64{45, 1.01})
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}
	low, _ := weights.PredictProba([]float64{2, 1.01})
	if high <= 0.5 || low >= 0.5 {
		t.Fatalf("expected %v > 0.5 > %v", high, low)
	}
}

func TestPredictProbaChecksShape(t *testing.T) {
	if _, err := (Weights{}).PredictProba([]float64{1}); err == nil {
		t.Fatal("expected error for empty model")
	}
	w := Weights{Coefficients: []float64{1, 2}}
	if _, err := w.PredictProba([]float64{1}); err == nil {
		t.Fatal("expected error for wrong feature count")
	}
	p, err := w.PredictProba([]float64{0, 0})
	if err != nil || p != 0.5 {
		t.Fatalf("expected 0.5 at origin, got %v (%v)", p, err)
	}
}
