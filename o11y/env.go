package o11y

import "time"

const (
	ENV                             = "ENV"
	ENV_OTEL_EXPORTER_OTLP_ENDPOINT = "OTEL_EXPORTER_OTLP_ENDPOINT"
	ENV_OTEL_METRIC_EXPORT_INTERVAL = "OTEL_METRIC_EXPORT_INTERVAL"

	// defaults
	DEFAULT_ENV                  = "local"
	DEFAULT_OTEL_EXPORT_INTERVAL = 10 * time.Second
)
