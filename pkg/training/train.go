package training

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urisense/platform/pkg/common/logger"
	"github.com/urisense/platform/pkg/ml/forest"
	"github.com/urisense/platform/pkg/ml/linear"
	"github.com/urisense/platform/pkg/serving/predictor"
)

type Options struct {
	Name         string
	Version      string
	Algorithm    string
	TestFraction float64
	Seed         int64
	Forest       forest.Options
	Logistic     linear.Options
}

func DefaultOptions() Options {
	return Options{
		Name:         "urinalysis-diagnosis",
		Algorithm:    predictor.AlgorithmRandomForest,
		TestFraction: 0.2,
		Seed:         42,
		Forest:       forest.DefaultOptions(),
	}
}

// Report summarises held-out performance for the positive class.
type Report struct {
	TrainSamples int     `json:"train_samples"`
	TestSamples  int     `json:"test_samples"`
	Accuracy     float64 `json:"accuracy"`
	Precision    float64 `json:"precision"`
	Recall       float64 `json:"recall"`
	F1           float64 `json:"f1"`
	TruePos      int     `json:"true_positives"`
	FalsePos     int     `json:"false_positives"`
	TrueNeg      int     `json:"true_negatives"`
	FalseNeg     int     `json:"false_negatives"`
}

func (r Report) Metrics() map[string]float64 {
	return map[string]float64{
		"accuracy":      r.Accuracy,
		"precision":     r.Precision,
		"recall":        r.Recall,
		"f1":            r.F1,
		"train_samples": float64(r.TrainSamples),
		"test_samples":  float64(r.TestSamples),
	}
}

// Train fits a model on a stratified split of ds and evaluates it on the
// remainder. The returned artifact records the schema fingerprint so the
// serving side can refuse a mismatched layout.
func Train(ctx context.Context, ds *Dataset, opts Options) (*predictor.Artifact, Report, error) {
	if ds == nil || ds.Len() == 0 {
		return nil, Report{}, errors.New("empty dataset")
	}
	if opts.TestFraction < 0 || opts.TestFraction >= 1 {
		return nil, Report{}, fmt.Errorf("test fraction %v must be in [0, 1)", opts.TestFraction)
	}
	if opts.Algorithm == "" {
		opts.Algorithm = predictor.AlgorithmRandomForest
	}
	if opts.Version == "" {
		opts.Version = time.Now().UTC().Format("20060102T150405Z")
	}

	train, test := Split(ds, opts.TestFraction, opts.Seed)
	if train.Len() == 0 {
		return nil, Report{}, errors.New("no training rows after split")
	}
	if train.Positives() == 0 || train.Positives() == train.Len() {
		return nil, Report{}, errors.New("training data must contain both diagnoses")
	}

	logger.Log.WithFields(map[string]interface{}{
		"algorithm": opts.Algorithm,
		"train":     train.Len(),
		"test":      test.Len(),
		"features":  len(ds.Names),
	}).Info("Starting model training")

	artifact := &predictor.Artifact{
		Name:              opts.Name,
		Version:           opts.Version,
		Algorithm:         opts.Algorithm,
		Classes:           []string{predictor.DiagnosisNegative, predictor.DiagnosisPositive},
		FeatureNames:      append([]string(nil), ds.Names...),
		SchemaFingerprint: ds.Schema.Fingerprint(),
		CreatedAt:         time.Now().UTC(),
	}

	switch opts.Algorithm {
	case predictor.AlgorithmRandomForest:
		if opts.Forest.Seed == 0 {
			opts.Forest.Seed = opts.Seed
		}
		f, err := forest.Train(train.X, train.Y, opts.Forest)
		if err != nil {
			return nil, Report{}, fmt.Errorf("training random forest: %w", err)
		}
		artifact.Forest = f
	case predictor.AlgorithmLogistic:
		weights, _ := linear.TrainLogistic(train.X, train.Y, opts.Logistic)
		artifact.Logistic = &weights
	default:
		return nil, Report{}, fmt.Errorf("unsupported algorithm %q", opts.Algorithm)
	}

	if err := ctx.Err(); err != nil {
		return nil, Report{}, err
	}

	model, err := artifact.Model()
	if err != nil {
		return nil, Report{}, err
	}
	classifier, err := predictor.NewClassifier(model, artifact.Classes)
	if err != nil {
		return nil, Report{}, err
	}

	eval := test
	if eval.Len() == 0 {
		eval = train
	}
	report, err := Evaluate(classifier, eval)
	if err != nil {
		return nil, Report{}, err
	}
	report.TrainSamples = train.Len()
	report.TestSamples = test.Len()
	artifact.Metrics = report.Metrics()

	logger.Log.WithFields(map[string]interface{}{
		"accuracy":  report.Accuracy,
		"precision": report.Precision,
		"recall":    report.Recall,
		"f1":        report.F1,
	}).Info("Model training completed")

	return artifact, report, nil
}

func Evaluate(classifier *predictor.Classifier, ds *Dataset) (Report, error) {
	var r Report
	for i, x := range ds.X {
		prediction, err := classifier.Classify(x)
		if err != nil {
			return Report{}, fmt.Errorf("row %d: %w", i, err)
		}
		predicted := prediction.Diagnosis == predictor.DiagnosisPositive
		actual := ds.Y[i] == 1
		switch {
		case predicted && actual:
			r.TruePos++
		case predicted && !actual:
			r.FalsePos++
		case !predicted && actual:
			r.FalseNeg++
		default:
			r.TrueNeg++
		}
	}
	total := r.TruePos + r.FalsePos + r.TrueNeg + r.FalseNeg
	if total > 0 {
		r.Accuracy = float64(r.TruePos+r.TrueNeg) / float64(total)
	}
	if r.TruePos+r.FalsePos > 0 {
		r.Precision = float64(r.TruePos) / float64(r.TruePos+r.FalsePos)
	}
	if r.TruePos+r.FalseNeg > 0 {
		r.Recall = float64(r.TruePos) / float64(r.TruePos+r.FalseNeg)
	}
	if r.Precision+r.Recall > 0 {
		r.F1 = 2 * r.Precision * r.Recall / (r.Precision + r.Recall)
	}
	return r, nil
}
