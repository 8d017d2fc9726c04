package bulk

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/mikeblum/graph-bulk-import/version"
)

type PoolMetrics struct {
	elementsQueued    metric.Int64Gauge
	batchesInflight   metric.Int64UpDownCounter
	batchSize         metric.Int64Histogram
	elementsProcessed metric.Int64Counter
}

func NewPoolMetrics(ctx context.Context) (*PoolMetrics, error) {
	build, _ := version.BuildVersion()
	meter := otel.GetMeterProvider().Meter(
		"graph_bulk.writer",
		metric.WithInstrumentationVersion(build.Version),
	)

	elementsQueued, err := meter.Int64Gauge(
		"graph_bulk.writer.elements_queued",
		metric.WithDescription("Number of routed elements waiting for a writer"),
		metric.WithUnit("{elements}"),
	)
	if err != nil {
		return nil, err
	}

	batchesInflight, err := meter.Int64UpDownCounter(
		"graph_bulk.writer.batches_inflight",
		metric.WithDescription("Batches dispatched and not yet acknowledged"),
		metric.WithUnit("{batches}"),
	)
	if err != nil {
		return nil, err
	}

	batchSize, err := meter.Int64Histogram(
		"graph_bulk.writer.batch_size",
		metric.WithDescription("Elements per dispatched batch"),
		metric.WithUnit("{elements}"),
	)
	if err != nil {
		return nil, err
	}

	elementsProcessed, err := meter.Int64Counter(
		"graph_bulk.writer.elements_processed",
		metric.WithDescription("Elements processed by status"),
		metric.WithUnit("{elements}"),
	)
	if err != nil {
		return nil, err
	}

	return &PoolMetrics{
		elementsQueued:    elementsQueued,
		batchesInflight:   batchesInflight,
		batchSize:         batchSize,
		elementsProcessed: elementsProcessed,
	}, nil
}
