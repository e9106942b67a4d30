package similarity

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/signald/internal/similarity"

// Metrics holds similarity engine metrics.
type Metrics struct {
	meter     metric.Meter
	logger    *zap.Logger
	duration  metric.Float64Histogram
	cacheHits metric.Int64Counter
	errors    metric.Int64Counter
}

// NewMetrics creates a Metrics instance for the similarity engine.
func NewMetrics(logger *zap.Logger) *Metrics {
	m := &Metrics{
		meter:  otel.Meter(instrumentationName),
		logger: logger,
	}
	m.init()
	return m
}

func (m *Metrics) init() {
	var err error

	m.duration, err = m.meter.Float64Histogram(
		"signald.similarity.embed_duration_seconds",
		metric.WithDescription("Duration of embedding generation per text, including chunking"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0),
	)
	if err != nil {
		m.logger.Warn("failed to create duration histogram", zap.Error(err))
	}

	m.cacheHits, err = m.meter.Int64Counter(
		"signald.similarity.cache_lookups_total",
		metric.WithDescription("Vector cache lookups, labeled by result (hit, miss)"),
	)
	if err != nil {
		m.logger.Warn("failed to create cache counter", zap.Error(err))
	}

	m.errors, err = m.meter.Int64Counter(
		"signald.similarity.errors_total",
		metric.WithDescription("Embedding failures during similarity scoring"),
	)
	if err != nil {
		m.logger.Warn("failed to create error counter", zap.Error(err))
	}
}

// RecordCacheHit records a vector cache hit.
func (m *Metrics) RecordCacheHit(ctx context.Context) {
	if m.cacheHits != nil {
		m.cacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "hit")))
	}
}

// RecordCacheMiss records a vector cache miss.
func (m *Metrics) RecordCacheMiss(ctx context.Context) {
	if m.cacheHits != nil {
		m.cacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "miss")))
	}
}

// RecordEmbedding records one embedding computation.
func (m *Metrics) RecordEmbedding(ctx context.Context, d time.Duration, err error) {
	if m.duration != nil {
		m.duration.Record(ctx, d.Seconds())
	}
	if err != nil && m.errors != nil {
		m.errors.Add(ctx, 1)
	}
}
