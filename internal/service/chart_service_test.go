package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-lms-api/internal/models"
	appErrors "github.com/noah-isme/campus-lms-api/pkg/errors"
)

type memoryJSONCache struct {
	entries     map[string][]byte
	invalidated []string
}

func newMemoryJSONCache() *memoryJSONCache {
	return &memoryJSONCache{entries: map[string][]byte{}}
}

func (c *memoryJSONCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	raw, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *memoryJSONCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	return nil
}

func (c *memoryJSONCache) Invalidate(ctx context.Context, pattern string) error {
	c.invalidated = append(c.invalidated, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	return nil
}

type chartSourceStub struct {
	buckets []models.ChartBucket
	err     error
	calls   int
}

func (s *chartSourceStub) Buckets(ctx context.Context, chart models.ChartType, filter models.ChartFilter) ([]models.ChartBucket, error) {
	s.calls++
	return s.buckets, s.err
}

func TestPivotBucketsZeroFillsMissingSeries(t *testing.T) {
	series := PivotBuckets(models.ChartAttendance, []models.ChartBucket{
		{Label: "2025-09-01", Series: "present", Value: 18},
		{Label: "2025-09-01", Series: "absent", Value: 2},
		{Label: "2025-09-08", Series: "absent", Value: 20},
	})

	assert.Equal(t, []string{"2025-09-01", "2025-09-08"}, series.Labels)
	require.Len(t, series.Datasets, 2)
	assert.Equal(t, "present", series.Datasets[0].Label)
	assert.Equal(t, []float64{18, 0}, series.Datasets[0].Data)
	assert.Equal(t, []float64{2, 20}, series.Datasets[1].Data)
}

func TestPivotBucketsEmpty(t *testing.T) {
	series := PivotBuckets(models.ChartComplaints, nil)
	assert.NotNil(t, series.Labels)
	assert.Empty(t, series.Datasets)

	pinned := PivotBuckets(models.ChartSubmissions, nil)
	require.Len(t, pinned.Datasets, 2)
	assert.Empty(t, pinned.Datasets[0].Data)
}

func TestChartSeriesReadsThroughCache(t *testing.T) {
	source := &chartSourceStub{buckets: []models.ChartBucket{{Label: "academic", Series: "pending", Value: 3}}}
	cache := newMemoryJSONCache()
	svc := NewChartService(source, cache, nil, time.Minute, zap.NewNop())
	ctx := context.Background()
	filter := models.ChartFilter{CourseID: "c1"}

	first, hit, err := svc.Series(ctx, models.ChartComplaints, filter)
	require.NoError(t, err)
	assert.False(t, hit)

	second, hit, err := svc.Series(ctx, models.ChartComplaints, filter)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first.Labels, second.Labels)
	assert.Equal(t, 1, source.calls)

	_, hit, err = svc.Series(ctx, models.ChartComplaints, models.ChartFilter{CourseID: "c2"})
	require.NoError(t, err)
	assert.False(t, hit)

	svc.InvalidateCharts(ctx)
	assert.Equal(t, []string{"report:*"}, cache.invalidated)
	_, hit, err = svc.Series(ctx, models.ChartComplaints, filter)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 3, source.calls)
}

func TestChartSeriesErrors(t *testing.T) {
	source := &chartSourceStub{err: errors.New("db down")}
	svc := NewChartService(source, nil, nil, 0, zap.NewNop())
	ctx := context.Background()

	_, _, err := svc.Series(ctx, "grades", models.ChartFilter{})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	from := time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC)
	to := from.Add(-time.Hour)
	_, _, err = svc.Series(ctx, models.ChartActivity, models.ChartFilter{From: &from, To: &to})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, _, err = svc.Series(ctx, models.ChartActivity, models.ChartFilter{})
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestChartSeriesAllowsSingleDayRange(t *testing.T) {
	source := &chartSourceStub{buckets: []models.ChartBucket{{Label: "2025-10-31", Series: "present", Value: 12}}}
	svc := NewChartService(source, nil, nil, 0, zap.NewNop())

	day := time.Date(2025, 10, 31, 0, 0, 0, 0, time.UTC)
	series, _, err := svc.Series(context.Background(), models.ChartAttendance, models.ChartFilter{From: &day, To: &day})
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-10-31"}, series.Labels)
	assert.Equal(t, 1, source.calls)
}
