package serving

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urisense/platform/pkg/common/models"
	"gorm.io/datatypes"
)

func TestPredictionLogConversion(t *testing.T) {
	id := uuid.New()
	record := models.PredictionRecord{
		ID:           id.String(),
		RequestID:    "req-9",
		ModelVersion: "v3",
		Input:        map[string]interface{}{"Protein": "TRACE"},
		Assessment: models.Assessment{
			Diagnosis:       "positive",
			RiskLevel:       "moderate",
			Confidence:      61.5,
			Recommendations: []string{"Monitor symptoms for 48 hours", "Increase fluid intake", "Consult doctor if symptoms worsen"},
		},
		Probability: 0.615,
		LatencyMs:   1.2,
		CreatedAt:   time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC),
	}

	log, err := toLog(record)
	require.NoError(t, err)
	assert.Equal(t, id, log.ID)
	assert.Equal(t, "moderate", log.RiskLevel)
	assert.Equal(t, "prediction_logs", log.TableName())

	back, err := fromLog(log)
	require.NoError(t, err)
	assert.Equal(t, record, back)
}

func TestPredictionLogCorruptResponse(t *testing.T) {
	id := uuid.New()
	_, err := fromLog(PredictionLog{ID: id, Response: datatypes.JSON(`{"diagnosis":`)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), id.String())
}

func TestPredictionLogAssignsIDWhenMissing(t *testing.T) {
	log, err := toLog(models.PredictionRecord{ID: "not-a-uuid"})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, log.ID)
}
