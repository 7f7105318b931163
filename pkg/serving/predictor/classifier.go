package predictor

import (
	"errors"
	"fmt"
	"math"
)

const (
	DiagnosisNegative = "negative"
	DiagnosisPositive = "positive"
)

// Model scores a normalized feature vector with the probability of the
// positive class.
type Model interface {
	PredictProba(features []float64) (float64, error)
}

type Prediction struct {
	Diagnosis   string
	Probability float64
}

// Classifier wraps a frozen model. It is built once at startup and shared
// read-only between requests.
type Classifier struct {
	model    Model
	negative string
	positive string
}

// NewClassifier takes the class labels in [negative, positive] order. Nil or
// empty classes fall back to "negative"/"positive".
func NewClassifier(model Model, classes []string) (*Classifier, error) {
	if model == nil {
		return nil, errors.New("classifier requires a model")
	}
	c := &Classifier{model: model, negative: DiagnosisNegative, positive: DiagnosisPositive}
	switch len(classes) {
	case 0:
	case 2:
		c.negative, c.positive = classes[0], classes[1]
	default:
		return nil, fmt.Errorf("binary classifier needs 2 classes, got %d", len(classes))
	}
	return c, nil
}

// Classify labels the vector positive only when the probability is strictly
// above one half; ties resolve to the negative class.
func (c *Classifier) Classify(features []float64) (Prediction, error) {
	p, err := c.model.PredictProba(features)
	if err != nil {
		return Prediction{}, err
	}
	if math.IsNaN(p) || p < 0 || p > 1 {
		return Prediction{}, fmt.Errorf("model returned probability %v outside [0, 1]", p)
	}
	label := c.negative
	if p > 0.5 {
		label = c.positive
	}
	return Prediction{Diagnosis: label, Probability: p}, nil
}
