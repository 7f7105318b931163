package serving

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urisense/platform/pkg/common/models"
)

// fakeRedis implements the Get/Set subset of redis.Cmdable the cache uses.
type fakeRedis struct {
	redis.Cmdable
	values  map[string]string
	ttls    map[string]time.Duration
	lastKey string
	getErr  error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.lastKey = key
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.lastKey = key
	data, ok := value.([]byte)
	if !ok {
		return redis.NewStatusResult("", errors.New("unexpected value type"))
	}
	f.values[key] = string(data)
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func TestRedisCacheMiss(t *testing.T) {
	client := newFakeRedis()
	cache := NewRedisCache(client, time.Minute)

	value, ok, err := cache.Get(context.Background(), "abc")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, value)
	assert.Equal(t, "predictions:abc", client.lastKey)
}

func TestRedisCacheRoundTrip(t *testing.T) {
	client := newFakeRedis()
	cache := NewRedisCache(client, 10*time.Minute)
	stored := &CachedAssessment{
		Assessment: models.Assessment{
			Diagnosis:       "positive",
			RiskLevel:       "moderate",
			Confidence:      61.5,
			Recommendations: []string{"Monitor symptoms for 48 hours", "Increase fluid intake", "Consult doctor if symptoms worsen"},
		},
		Probability: 0.615,
	}

	require.NoError(t, cache.Set(context.Background(), "abc", stored))
	assert.Equal(t, 10*time.Minute, client.ttls["predictions:abc"])
	assert.JSONEq(t, `{"assessment":{"diagnosis":"positive","riskLevel":"moderate","confidence":61.5,
		"recommendations":["Monitor symptoms for 48 hours","Increase fluid intake","Consult doctor if symptoms worsen"]},
		"probability":0.615}`, client.values["predictions:abc"])

	got, ok, err := cache.Get(context.Background(), "abc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, stored, got)
}

func TestRedisCacheErrors(t *testing.T) {
	client := newFakeRedis()
	client.getErr = errors.New("connection refused")
	cache := NewRedisCache(client, time.Minute)

	_, ok, err := cache.Get(context.Background(), "abc")
	assert.EqualError(t, err, "connection refused")
	assert.False(t, ok)

	client.getErr = nil
	client.values["predictions:bad"] = "{not json"
	_, ok, err = cache.Get(context.Background(), "bad")
	assert.Error(t, err)
	assert.False(t, ok)
}
