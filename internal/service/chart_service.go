package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-lms-api/internal/models"
	appErrors "github.com/noah-isme/campus-lms-api/pkg/errors"
)

const chartCachePrefix = "report:"

type chartSource interface {
	Buckets(ctx context.Context, chart models.ChartType, filter models.ChartFilter) ([]models.ChartBucket, error)
}

type jsonCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) error
}

// seriesOrder pins the dataset order of charts whose series are known up
// front, so a day with only absences still plots a present series.
var seriesOrder = map[models.ChartType][]string{
	models.ChartAttendance:  {"present", "absent"},
	models.ChartSubmissions: {string(models.SubmissionStatusSubmitted), string(models.SubmissionStatusGraded)},
}

// ChartService serves chart-ready report aggregations through the cache.
type ChartService struct {
	repo    chartSource
	cache   jsonCache
	metrics *MetricsService
	ttl     time.Duration
	logger  *zap.Logger
}

// NewChartService constructs ChartService.
func NewChartService(repo chartSource, cache jsonCache, metrics *MetricsService, ttl time.Duration, logger *zap.Logger) *ChartService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ChartService{repo: repo, cache: cache, metrics: metrics, ttl: ttl, logger: logger}
}

// Series returns the chart for the filter, reading through the cache. The
// boolean reports a cache hit.
func (s *ChartService) Series(ctx context.Context, chart models.ChartType, filter models.ChartFilter) (*models.ChartSeries, bool, error) {
	if !chart.Valid() {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "unknown report type")
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}

	key := chartCacheKey(chart, filter)
	if s.cache != nil {
		var cached models.ChartSeries
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	start := time.Now()
	buckets, err := s.repo.Buckets(ctx, chart, filter)
	s.metrics.ObserveDBQuery("chart_"+string(chart), time.Since(start))
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build report")
	}

	series := PivotBuckets(chart, buckets)
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, series, s.ttl); err != nil {
			s.logger.Warn("failed to cache report", zap.String("key", key), zap.Error(err))
		}
	}
	return &series, false, nil
}

// InvalidateCharts drops every cached report.
func (s *ChartService) InvalidateCharts(ctx context.Context) {
	if s == nil || s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, chartCachePrefix+"*"); err != nil {
		s.logger.Warn("failed to invalidate report cache", zap.Error(err))
	}
}

// PivotBuckets turns label/series counts into aligned datasets. Missing
// combinations are zero.
func PivotBuckets(chart models.ChartType, buckets []models.ChartBucket) models.ChartSeries {
	out := models.ChartSeries{Type: chart, Labels: []string{}, Datasets: []models.ChartDataset{}}

	labelIndex := make(map[string]int)
	seriesIndex := make(map[string]int)
	for _, name := range seriesOrder[chart] {
		seriesIndex[name] = len(out.Datasets)
		out.Datasets = append(out.Datasets, models.ChartDataset{Label: name})
	}
	for _, b := range buckets {
		if _, ok := labelIndex[b.Label]; !ok {
			labelIndex[b.Label] = len(out.Labels)
			out.Labels = append(out.Labels, b.Label)
		}
		if _, ok := seriesIndex[b.Series]; !ok {
			seriesIndex[b.Series] = len(out.Datasets)
			out.Datasets = append(out.Datasets, models.ChartDataset{Label: b.Series})
		}
	}
	for i := range out.Datasets {
		out.Datasets[i].Data = make([]float64, len(out.Labels))
	}
	for _, b := range buckets {
		out.Datasets[seriesIndex[b.Series]].Data[labelIndex[b.Label]] += b.Value
	}
	return out
}

func chartCacheKey(chart models.ChartType, filter models.ChartFilter) string {
	return fmt.Sprintf("%s%s:%s:%s:%s", chartCachePrefix, chart, filter.CourseID, formatKeyTime(filter.From), formatKeyTime(filter.To))
}

func formatKeyTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
