package linear

import (
	"errors"
	"fmt"
	"math"
)

type Options struct {
	Epochs       int
	LearningRate float64
	// L2 is the ridge penalty applied to coefficients, not the bias.
	L2 float64
}

// Weights is a trained logistic model. Inputs are standardized with Means and
// Scales before the dot product.
type Weights struct {
	Bias         float64   `json:"bias"`
	Coefficients []float64 `json:"coefficients"`
	Means        []float64 `json:"means,omitempty"`
	Scales       []float64 `json:"scales,omitempty"`
}

type Metrics struct {
	Loss     float64
	Accuracy float64
}

func TrainLogistic(samples [][]float64, labels []float64, opts Options) (Weights, Metrics) {
	if opts.Epochs <= 0 {
		opts.Epochs = 500
	}
	if opts.LearningRate <= 0 {
		opts.LearningRate = 0.1
	}

	n := len(samples)
	if n == 0 {
		return Weights{}, Metrics{}
	}
	featureCount := len(samples[0])
	means, scales := standardization(samples, featureCount)
	scaled := make([][]float64, n)
	for i, sample := range samples {
		scaled[i] = standardize(sample, means, scales)
	}

	weights := make([]float64, featureCount)
	var bias float64

	for epoch := 0; epoch < opts.Epochs; epoch++ {
		grad := make([]float64, featureCount)
		var biasGrad float64
		for i, sample := range scaled {
			residual := sigmoid(dot(weights, sample)+bias) - labels[i]
			for j := 0; j < featureCount; j++ {
				grad[j] += residual * sample[j]
			}
			biasGrad += residual
		}
		for j := 0; j < featureCount; j++ {
			weights[j] -= opts.LearningRate * (grad[j]/float64(n) + opts.L2*weights[j])
		}
		bias -= opts.LearningRate * biasGrad / float64(n)
	}

	trained := Weights{Bias: bias, Coefficients: weights, Means: means, Scales: scales}
	loss, accuracy := evaluate(trained, samples, labels)
	return trained, Metrics{Loss: loss, Accuracy: accuracy}
}

func Predict(weights Weights, sample []float64) float64 {
	x := sample
	if len(weights.Means) == len(sample) && len(weights.Scales) == len(sample) {
		x = standardize(sample, weights.Means, weights.Scales)
	}
	return sigmoid(dot(weights.Coefficients, x) + weights.Bias)
}

// PredictProba is Predict with a shape check.
func (w Weights) PredictProba(sample []float64) (float64, error) {
	if len(w.Coefficients) == 0 {
		return 0, errors.New("logistic model has no coefficients")
	}
	if len(sample) != len(w.Coefficients) {
		return 0, fmt.Errorf("expected %d features, got %d", len(w.Coefficients), len(sample))
	}
	return Predict(w, sample), nil
}

func standardization(samples [][]float64, featureCount int) ([]float64, []float64) {
	means := make([]float64, featureCount)
	scales := make([]float64, featureCount)
	n := float64(len(samples))
	for _, sample := range samples {
		for j := 0; j < featureCount; j++ {
			means[j] += sample[j] / n
		}
	}
	for _, sample := range samples {
		for j := 0; j < featureCount; j++ {
			d := sample[j] - means[j]
			scales[j] += d * d / n
		}
	}
	for j := range scales {
		scales[j] = math.Sqrt(scales[j])
		if scales[j] == 0 {
			scales[j] = 1
		}
	}
	return means, scales
}

func standardize(sample, means, scales []float64) []float64 {
	out := make([]float64, len(sample))
	for j := range sample {
		out[j] = (sample[j] - means[j]) / scales[j]
	}
	return out
}

func dot(weights []float64, sample []float64) float64 {
	var sum float64
	for i := 0; i < len(weights) && i < len(sample); i++ {
		sum += weights[i] * sample[i]
	}
	return sum
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func evaluate(weights Weights, samples [][]float64, labels []float64) (float64, float64) {
	var loss float64
	var correct int
	for i, sample := range samples {
		prediction := Predict(weights, sample)
		loss += -labels[i]*math.Log(prediction+1e-9) - (1-labels[i])*math.Log(1-prediction+1e-9)
		if (prediction >= 0.5 && labels[i] == 1) || (prediction < 0.5 && labels[i] == 0) {
			correct++
		}
	}
	loss /= float64(len(samples))
	accuracy := float64(correct) / float64(len(samples))
	return loss, accuracy
}
