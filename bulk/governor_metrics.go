package bulk

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/mikeblum/graph-bulk-import/version"
)

type GovernorFailureType string

const (
	FailureMaxAttempts GovernorFailureType = "max_attempts"
	FailureCancelled   GovernorFailureType = "cancelled"
	FailureStoreError  GovernorFailureType = "store_error"
)

type GovernorMetrics struct {
	retryAttempts metric.Int64Counter
	waitDuration  metric.Float64Histogram
	throttles     metric.Int64Counter
	failures      metric.Int64Counter
	inflight      metric.Int64UpDownCounter
	capacityUnits metric.Float64Counter
}

func NewGovernorMetrics(ctx context.Context) (*GovernorMetrics, error) {
	build, _ := version.BuildVersion()
	meter := otel.GetMeterProvider().Meter(
		"graph_bulk.governor",
		metric.WithInstrumentationVersion(build.Version),
	)

	retryAttempts, err := meter.Int64Counter(
		"graph_bulk.governor.retry_attempts",
		metric.WithDescription("Number of write retries after throttling"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	waitDuration, err := meter.Float64Histogram(
		"graph_bulk.governor.wait_duration",
		metric.WithDescription("Time spent backing off after throttling"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	throttles, err := meter.Int64Counter(
		"graph_bulk.governor.throttles",
		metric.WithDescription("Number of throttling responses from the store"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, err
	}

	failures, err := meter.Int64Counter(
		"graph_bulk.governor.failures",
		metric.WithDescription("Governed writes that did not succeed, by type"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, err
	}

	inflight, err := meter.Int64UpDownCounter(
		"graph_bulk.governor.inflight",
		metric.WithDescription("In-flight write requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	capacityUnits, err := meter.Float64Counter(
		"graph_bulk.governor.capacity_units",
		metric.WithDescription("Capacity units consumed by successful writes"),
		metric.WithUnit("{unit}"),
	)
	if err != nil {
		return nil, err
	}

	return &GovernorMetrics{
		retryAttempts: retryAttempts,
		waitDuration:  waitDuration,
		throttles:     throttles,
		failures:      failures,
		inflight:      inflight,
		capacityUnits: capacityUnits,
	}, nil
}
