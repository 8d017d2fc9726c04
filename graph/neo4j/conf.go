package neo4j

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
	return c.GetEnv(ENV_NEO4J_USERNAME, NEO4J_USERNAME)
}

func (c *Conf) poolSize() int {
	size := c.GetInt(ENV_NEO4J_POOL_SIZE, NEO4J_CONNECTION_POOL_SIZE)
	if size < 1 {
		return NEO4J_CONNECTION_POOL_SIZE
	}
	return size
}

func (c *Conf) timeout() time.Duration {
	return c.GetDuration(ENV_NEO4J_TIMEOUT, NEO4J_TIMEOUT)
}
