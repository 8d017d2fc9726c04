package o11y

import (
	"time"

	"github.com/mikeblum/graph-bulk-import/conf"
)

type Conf struct {
	conf.EnvConf
}

func NewConf() *Conf {
	return &Conf{conf.NewEnvConf()}
}

// Enabled reports whether an OTLP collector is configured; without one metrics stay in-process.
func (c *Conf) Enabled() bool {
	return c.o11yEndpoint() != ""
}

func (c *Conf) o11yEndpoint() string {
	return c.GetEnv(ENV_OTEL_EXPORTER_OTLP_ENDPOINT, "")
}

func (c *Conf) env() string {
	return c.GetEnv(ENV, DEFAULT_ENV)
}

func (c *Conf) exportInterval() time.Duration {
	return c.GetDuration(ENV_OTEL_METRIC_EXPORT_INTERVAL, DEFAULT_OTEL_EXPORT_INTERVAL)
}
