package serving

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/urisense/platform/pkg/common/logger"
	"github.com/urisense/platform/pkg/common/models"
	"github.com/urisense/platform/pkg/normalizer"
	"github.com/urisense/platform/pkg/observability/metrics"
	"github.com/urisense/platform/pkg/serving/predictor"
)

const (
	livenessMessage = "Urinalysis diagnosis API is running"
	noInputMessage  = "No input data provided"
)

type History interface {
	Recent(ctx context.Context, limit int) ([]models.PredictionRecord, error)
}

type HTTPHandler struct {
	service *Service
	info    models.ModelInfo
	history History
	metrics *metrics.Metrics
}

// NewHTTPHandler wires the public routes. history may be nil when the
// prediction log is disabled. Failures are counted on the service's metrics.
func NewHTTPHandler(service *Service, info models.ModelInfo, history History) *HTTPHandler {
	return &HTTPHandler{service: service, info: info, history: history, metrics: service.opts.Metrics}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/", h.handleRoot).Methods(http.MethodGet)
	router.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/predict", h.handlePredict).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/model", h.handleModel).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/predictions", h.handleRecent).Methods(http.MethodGet)
	router.Handle("/metrics", h.metrics.Handler()).Methods(http.MethodGet)
}

func (h *HTTPHandler) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(livenessMessage))
}

func (h *HTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *HTTPHandler) handlePredict(w http.ResponseWriter, r *http.Request) {
	record, err := decodeRecord(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, ErrNoInput):
			h.failWith(w, http.StatusBadRequest, "no_input", noInputMessage)
		case errors.As(err, &tooLarge):
			h.fail(w, http.StatusRequestEntityTooLarge, "too_large", err)
		default:
			h.fail(w, http.StatusBadRequest, "invalid_json", err)
		}
		return
	}

	ctx := ContextWithRequestID(r.Context(), r.Header.Get("X-Request-ID"))
	assessment, err := h.service.Assess(ctx, record)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoInput):
			h.failWith(w, http.StatusBadRequest, "no_input", noInputMessage)
		case normalizer.IsFieldError(err):
			h.fail(w, http.StatusBadRequest, "invalid_field", err)
		default:
			logger.Log.WithError(err).Error("prediction failed")
			h.fail(w, http.StatusInternalServerError, "internal", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, assessment)
}

func (h *HTTPHandler) handleModel(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.info)
}

func (h *HTTPHandler) handleRecent(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "prediction log disabled"})
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 500 {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "limit must be between 1 and 500"})
			return
		}
		limit = parsed
	}

	records, err := h.history.Recent(r.Context(), limit)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list predictions")
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"predictions": records, "count": len(records)})
}

func (h *HTTPHandler) fail(w http.ResponseWriter, status int, reason string, err error) {
	h.failWith(w, status, reason, err.Error())
}

func (h *HTTPHandler) failWith(w http.ResponseWriter, status int, reason, message string) {
	h.metrics.ObserveFailure(reason)
	writeJSON(w, status, models.ErrorResponse{Error: message})
}

var errTrailingData = errors.New("request body must contain a single JSON object")

// decodeRecord reads a JSON object. An absent body, null or {} is ErrNoInput.
func decodeRecord(body io.Reader) (normalizer.FeatureRecord, error) {
	if body == nil {
		return nil, ErrNoInput
	}
	decoder := json.NewDecoder(body)
	decoder.UseNumber()

	var record normalizer.FeatureRecord
	if err := decoder.Decode(&record); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoInput
		}
		return nil, err
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, errTrailingData
	}
	if len(record) == 0 {
		return nil, ErrNoInput
	}
	return record, nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Log.WithError(err).Warn("failed to write response")
	}
}

// DescribeModel builds the metadata served at /api/v1/model.
func DescribeModel(artifact *predictor.Artifact, n *normalizer.Normalizer) models.ModelInfo {
	schema := n.Schema()
	return models.ModelInfo{
		Name:                artifact.Name,
		Version:             artifact.Version,
		Algorithm:           artifact.Algorithm,
		Classes:             artifact.Classes,
		FeatureNames:        artifact.FeatureNames,
		SchemaFingerprint:   schema.Fingerprint(),
		CategoryTable:       schema.CategoryTable(),
		NormalizationPolicy: string(n.Policy()),
		Metrics:             artifact.Metrics,
		CreatedAt:           artifact.CreatedAt,
	}
}
