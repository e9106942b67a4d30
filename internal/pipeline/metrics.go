package pipeline

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/signald/internal/pipeline"

// Metrics holds pipeline run metrics.
type Metrics struct {
	meter    metric.Meter
	logger   *zap.Logger
	items    metric.Int64Counter
	duration metric.Float64Histogram
}

// NewMetrics creates a Metrics instance for the pipeline.
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

	m.items, err = m.meter.Int64Counter(
		"signald.pipeline.items_total",
		metric.WithDescription("Items processed per run, labeled by outcome (passed, dropped_relevance, dropped_novelty, invalid)"),
	)
	if err != nil {
		m.logger.Warn("failed to create items counter", zap.Error(err))
	}

	m.duration, err = m.meter.Float64Histogram(
		"signald.pipeline.run_duration_seconds",
		metric.WithDescription("Duration of one filtering run"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60),
	)
	if err != nil {
		m.logger.Warn("failed to create duration histogram", zap.Error(err))
	}
}

// RecordRun records one completed run's statistics.
func (m *Metrics) RecordRun(ctx context.Context, stats Stats) {
	if m.items != nil {
		record := func(outcome string, n int) {
			m.items.Add(ctx, int64(n), metric.WithAttributes(attribute.String("outcome", outcome)))
		}
		record("passed", stats.Passed)
		record("dropped_relevance", stats.DroppedRelevance)
		record("dropped_novelty", stats.DroppedNovelty)
		record("invalid", stats.Invalid)
	}
	if m.duration != nil {
		m.duration.Record(ctx, stats.Duration.Seconds())
	}
}
