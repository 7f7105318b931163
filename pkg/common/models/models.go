package models

import "time"

// Assessment is the public result of diagnosing one urinalysis sample.
type Assessment struct {
	Diagnosis       string   `json:"diagnosis"`
	RiskLevel       string   `json:"riskLevel"`
	Confidence      float64  `json:"confidence"`
	Recommendations []string `json:"recommendations"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// ModelInfo describes the loaded model artifact.
type ModelInfo struct {
	Name                string                    `json:"name"`
	Version             string                    `json:"version"`
	Algorithm           string                    `json:"algorithm"`
	Classes             []string                  `json:"classes"`
	FeatureNames        []string                  `json:"feature_names"`
	SchemaFingerprint   string                    `json:"schema_fingerprint"`
	CategoryTable       map[string]map[string]int `json:"category_table"`
	NormalizationPolicy string                    `json:"normalization_policy"`
	Metrics             map[string]float64        `json:"metrics,omitempty"`
	CreatedAt           time.Time                 `json:"created_at"`
}

// Event bus envelope
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

// PredictionRecord is a logged assessment with its raw input.
type PredictionRecord struct {
	ID           string                 `json:"id"`
	RequestID    string                 `json:"request_id,omitempty"`
	ModelVersion string                 `json:"model_version"`
	Input        map[string]interface{} `json:"input"`
	Assessment   Assessment             `json:"assessment"`
	Probability  float64                `json:"probability"`
	Cached       bool                   `json:"cached"`
	LatencyMs    float64                `json:"latency_ms"`
	CreatedAt    time.Time              `json:"created_at"`
}
