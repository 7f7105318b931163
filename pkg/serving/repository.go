package serving

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/urisense/platform/pkg/common/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PredictionLog is the persistence model for served assessments.
type PredictionLog struct {
	ID           uuid.UUID         `gorm:"type:uuid;primaryKey;column:id"`
	RequestID    string            `gorm:"column:request_id;index"`
	ModelVersion string            `gorm:"column:model_version"`
	Request      datatypes.JSONMap `gorm:"column:request"`
	Response     datatypes.JSON    `gorm:"column:response"`
	Diagnosis    string            `gorm:"column:diagnosis;index"`
	RiskLevel    string            `gorm:"column:risk_level;index"`
	Probability  float64           `gorm:"column:probability"`
	Cached       bool              `gorm:"column:cached"`
	LatencyMs    float64           `gorm:"column:latency_ms"`
	CreatedAt    time.Time         `gorm:"column:created_at;index"`
}

// TableName overrides gorm naming.
func (PredictionLog) TableName() string {
	return "prediction_logs"
}

// Repository handles prediction log queries.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&PredictionLog{})
}

func (r *Repository) RecordPrediction(ctx context.Context, record models.PredictionRecord) error {
	log, err := toLog(record)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(&log).Error
}

// Recent returns the most recent prediction logs up to limit.
func (r *Repository) Recent(ctx context.Context, limit int) ([]models.PredictionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var logs []PredictionLog
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	records := make([]models.PredictionRecord, 0, len(logs))
	for _, log := range logs {
		record, err := fromLog(log)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func toLog(record models.PredictionRecord) (PredictionLog, error) {
	id, err := uuid.Parse(record.ID)
	if err != nil {
		id = uuid.New()
	}
	response, err := json.Marshal(record.Assessment)
	if err != nil {
		return PredictionLog{}, err
	}
	return PredictionLog{
		ID:           id,
		RequestID:    record.RequestID,
		ModelVersion: record.ModelVersion,
		Request:      datatypes.JSONMap(record.Input),
		Response:     datatypes.JSON(response),
		Diagnosis:    record.Assessment.Diagnosis,
		RiskLevel:    record.Assessment.RiskLevel,
		Probability:  record.Probability,
		Cached:       record.Cached,
		LatencyMs:    record.LatencyMs,
		CreatedAt:    record.CreatedAt,
	}, nil
}

func fromLog(log PredictionLog) (models.PredictionRecord, error) {
	var assessment models.Assessment
	if len(log.Response) > 0 {
		if err := json.Unmarshal(log.Response, &assessment); err != nil {
			return models.PredictionRecord{}, fmt.Errorf("decoding response of prediction %s: %w", log.ID, err)
		}
	}
	return models.PredictionRecord{
		ID:           log.ID.String(),
		RequestID:    log.RequestID,
		ModelVersion: log.ModelVersion,
		Input:        map[string]interface{}(log.Request),
		Assessment:   assessment,
		Probability:  log.Probability,
		Cached:       log.Cached,
		LatencyMs:    log.LatencyMs,
		CreatedAt:    log.CreatedAt,
	}, nil
}
