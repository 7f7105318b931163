package serving

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/urisense/platform/pkg/common/logger"
	"github.com/urisense/platform/pkg/common/models"
	"github.com/urisense/platform/pkg/normalizer"
	"github.com/urisense/platform/pkg/observability/metrics"
	"github.com/urisense/platform/pkg/serving/predictor"
)

const eventPredictionCompleted = "prediction.completed"

var ErrNoInput = errors.New("no input data provided")

type Cache interface {
	Get(ctx context.Context, key string) (*CachedAssessment, bool, error)
	Set(ctx context.Context, key string, value *CachedAssessment) error
}

// CachedAssessment is what the cache stores: the response plus the raw
// probability so logs and events stay accurate on a hit.
type CachedAssessment struct {
	Assessment  models.Assessment `json:"assessment"`
	Probability float64           `json:"probability"`
}

type Recorder interface {
	RecordPrediction(ctx context.Context, record models.PredictionRecord) error
}

// Redactor scrubs identifiers from the raw input before it is logged or
// published. Detected reports which identifier types were found.
type Redactor interface {
	Redact(data map[string]interface{}) map[string]interface{}
	Detected(data map[string]interface{}) []string
}

type Publisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

// Options carries the optional side channels of the service. Any of them may
// be nil.
type Options struct {
	ModelVersion string
	Cache        Cache
	Recorder     Recorder
	Publisher    Publisher
	Redactor     Redactor
	Metrics      *metrics.Metrics
}

// Service turns feature records into assessments. Normalizer and classifier
// are immutable after construction.
type Service struct {
	normalizer *normalizer.Normalizer
	classifier *predictor.Classifier
	opts       Options
}

func NewService(n *normalizer.Normalizer, c *predictor.Classifier, opts Options) (*Service, error) {
	if n == nil || c == nil {
		return nil, errors.New("serving service requires a normalizer and a classifier")
	}
	return &Service{normalizer: n, classifier: c, opts: opts}, nil
}

type requestIDKey struct{}

func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (s *Service) Assess(ctx context.Context, record normalizer.FeatureRecord) (*models.Assessment, error) {
	start := time.Now()
	if len(record) == 0 {
		return nil, ErrNoInput
	}

	vector, err := s.normalizer.Normalize(record)
	if err != nil {
		return nil, err
	}

	key := cacheKey(s.opts.ModelVersion, vector)
	result, cached := s.lookup(ctx, key)
	if !cached {
		prediction, err := s.classifier.Classify(vector)
		if err != nil {
			return nil, fmt.Errorf("classifying sample: %w", err)
		}
		tier := predictor.DetermineRisk(prediction.Probability)
		result = &CachedAssessment{
			Assessment: models.Assessment{
				Diagnosis:       prediction.Diagnosis,
				RiskLevel:       string(tier),
				Confidence:      predictor.Confidence(prediction.Probability),
				Recommendations: predictor.Recommendations(prediction.Diagnosis, tier),
			},
			Probability: prediction.Probability,
		}
		s.store(ctx, key, result)
	}

	latency := time.Since(start)
	s.opts.Metrics.ObservePrediction(result.Assessment.Diagnosis, result.Assessment.RiskLevel, latency)
	s.emit(ctx, record, result, cached, latency)

	logger.Log.WithFields(map[string]interface{}{
		"request_id": requestIDFrom(ctx),
		"diagnosis":  result.Assessment.Diagnosis,
		"risk_level": result.Assessment.RiskLevel,
		"cached":     cached,
		"latency_ms": float64(latency.Microseconds()) / 1000.0,
	}).Info("Prediction completed")

	assessment := result.Assessment
	return &assessment, nil
}

func (s *Service) lookup(ctx context.Context, key string) (*CachedAssessment, bool) {
	if s.opts.Cache == nil {
		return nil, false
	}
	value, ok, err := s.opts.Cache.Get(ctx, key)
	if err != nil {
		logger.Log.WithError(err).Warn("prediction cache lookup failed")
		return nil, false
	}
	hit := ok && value != nil
	s.opts.Metrics.ObserveCacheLookup(hit)
	return value, hit
}

func (s *Service) store(ctx context.Context, key string, value *CachedAssessment) {
	if s.opts.Cache == nil {
		return
	}
	if err := s.opts.Cache.Set(ctx, key, value); err != nil {
		logger.Log.WithError(err).Warn("prediction cache write failed")
	}
}

// emit records and publishes the outcome. Failures are logged and never fail
// the request.
func (s *Service) emit(ctx context.Context, input normalizer.FeatureRecord, result *CachedAssessment, cached bool, latency time.Duration) {
	if s.opts.Recorder == nil && s.opts.Publisher == nil {
		return
	}
	raw := map[string]interface{}(input)
	if s.opts.Redactor != nil {
		if types := s.opts.Redactor.Detected(raw); len(types) > 0 {
			s.opts.Metrics.ObserveRedaction(types)
			logger.Log.WithFields(map[string]interface{}{
				"request_id":       requestIDFrom(ctx),
				"identifier_types": types,
			}).Warn("identifiers masked in prediction input")
		}
		raw = s.opts.Redactor.Redact(raw)
	}
	record := models.PredictionRecord{
		ID:           uuid.New().String(),
		RequestID:    requestIDFrom(ctx),
		ModelVersion: s.opts.ModelVersion,
		Input:        raw,
		Assessment:   result.Assessment,
		Probability:  result.Probability,
		Cached:       cached,
		LatencyMs:    float64(latency.Microseconds()) / 1000.0,
		CreatedAt:    time.Now().UTC(),
	}

	if s.opts.Recorder != nil {
		if err := s.opts.Recorder.RecordPrediction(ctx, record); err != nil {
			logger.Log.WithError(err).WithField("prediction_id", record.ID).Error("failed to record prediction")
		}
	}
	if s.opts.Publisher != nil {
		payload := map[string]interface{}{
			"prediction_id":   record.ID,
			"request_id":      record.RequestID,
			"model_version":   record.ModelVersion,
			"diagnosis":       record.Assessment.Diagnosis,
			"riskLevel":       record.Assessment.RiskLevel,
			"confidence":      record.Assessment.Confidence,
			"probability":     record.Probability,
			"recommendations": record.Assessment.Recommendations,
		}
		if err := s.opts.Publisher.PublishEvent(ctx, eventPredictionCompleted, "serving-service", payload); err != nil {
			logger.Log.WithError(err).WithField("prediction_id", record.ID).Error("failed to publish prediction event")
		}
	}
}

// cacheKey identifies a normalized vector under a model version. Records that
// normalize identically share an entry.
func cacheKey(modelVersion string, vector []float64) string {
	h := sha256.New()
	h.Write([]byte(modelVersion))
	buf := make([]byte, 8)
	for _, v := range vector {
		binary.BigEndian.PutUint64(buf, math.Float64bits(v))
		h.Write(buf)
	}
	return hex.EncodeToString(h.Sum(nil))
}
