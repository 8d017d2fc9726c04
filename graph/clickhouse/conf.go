package clickhouse

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

func (c *Conf) username() string {
	return c.GetEnv(ENV_CLICKHOUSE_USERNAME, CLICKHOUSE_USERNAME)
}

func (c *Conf) dialTimeout() time.Duration {
	return c.GetDuration(ENV_CLICKHOUSE_DIAL_TIMEOUT, CLICKHOUSE_DIAL_TIMEOUT)
}

func (c *Conf) maxExecutionTime() time.Duration {
	return c.GetDuration(ENV_CLICKHOUSE_MAX_EXECUTION_TIME, CLICKHOUSE_MAX_EXECUTION_TIME)
}

func (c *Conf) maxOpenConns() int {
	conns := c.GetInt(ENV_CLICKHOUSE_MAX_OPEN_CONNS, CLICKHOUSE_MAX_OPEN_CONNS)
	if conns < 1 {
		return CLICKHOUSE_MAX_OPEN_CONNS
	}
	return conns
}
