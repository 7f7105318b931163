package predictor

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/urisense/platform/pkg/ml/forest"
	"github.com/urisense/platform/pkg/ml/linear"
	"github.com/urisense/platform/pkg/normalizer"
)

const (
	AlgorithmLogistic     = "logistic"
	AlgorithmRandomForest = "random_forest"
)

var ErrIncompatibleArtifact = errors.New("model artifact incompatible with feature schema")

// Artifact is the serialized output of a training run. Exactly one of
// Logistic or Forest is set, according to Algorithm.
type Artifact struct {
	Name              string             `json:"name"`
	Version           string             `json:"version"`
	Algorithm         string             `json:"algorithm"`
	Classes           []string           `json:"classes"`
	FeatureNames      []string           `json:"feature_names"`
	SchemaFingerprint string             `json:"schema_fingerprint"`
	Metrics           map[string]float64 `json:"metrics,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	Logistic          *linear.Weights    `json:"logistic,omitempty"`
	Forest            *forest.Forest     `json:"forest,omitempty"`
}

func LoadArtifact(path string) (*Artifact, error) {
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("reading model artifact: %w", err)
	}
	var artifact Artifact
	if err := json.Unmarshal(content, &artifact); err != nil {
		return nil, fmt.Errorf("decoding model artifact %s: %w", path, err)
	}
	if _, err := artifact.Model(); err != nil {
		return nil, err
	}
	return &artifact, nil
}

func WriteArtifact(path string, artifact *Artifact) error {
	payload, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, payload, 0o644)
}

// Model returns the scoring function stored in the artifact.
func (a *Artifact) Model() (Model, error) {
	switch a.Algorithm {
	case AlgorithmLogistic:
		if a.Logistic == nil || len(a.Logistic.Coefficients) == 0 {
			return nil, errors.New("logistic artifact has no weights")
		}
		if len(a.Logistic.Coefficients) != len(a.FeatureNames) {
			return nil, fmt.Errorf("logistic artifact has %d coefficients for %d features", len(a.Logistic.Coefficients), len(a.FeatureNames))
		}
		return a.Logistic, nil
	case AlgorithmRandomForest:
		if a.Forest == nil || len(a.Forest.Trees) == 0 {
			return nil, errors.New("random forest artifact has no trees")
		}
		if a.Forest.Features != len(a.FeatureNames) {
			return nil, fmt.Errorf("random forest artifact expects %d features but names %d", a.Forest.Features, len(a.FeatureNames))
		}
		return a.Forest, nil
	default:
		return nil, fmt.Errorf("unsupported model algorithm %q", a.Algorithm)
	}
}

// Validate checks that the artifact was trained on schema: same field names in
// the same order and the same fingerprint. An artifact without a fingerprint is
// rejected.
func (a *Artifact) Validate(schema normalizer.Schema) error {
	names := schema.Names()
	if len(names) != len(a.FeatureNames) {
		return fmt.Errorf("%w: artifact has %d features, schema has %d", ErrIncompatibleArtifact, len(a.FeatureNames), len(names))
	}
	for i := range names {
		if names[i] != a.FeatureNames[i] {
			return fmt.Errorf("%w: feature %d is %q in artifact but %q in schema", ErrIncompatibleArtifact, i, a.FeatureNames[i], names[i])
		}
	}
	if a.SchemaFingerprint == "" {
		return fmt.Errorf("%w: artifact has no schema fingerprint", ErrIncompatibleArtifact)
	}
	if a.SchemaFingerprint != schema.Fingerprint() {
		return fmt.Errorf("%w: category encoding differs from training", ErrIncompatibleArtifact)
	}
	return nil
}
