package postgres

import "github.com/mikeblum/graph-bulk-import/conf"

type Conf struct {
	conf.EnvConf
}

func NewConf() *Conf {
	return &Conf{conf.NewEnvConf()}
}

func (c *Conf) username() string {
	return c.GetEnv(ENV_POSTGRES_USERNAME, POSTGRES_USERNAME)
}

func (c *Conf) poolSize() int32 {
	size := c.GetInt(ENV_POSTGRES_POOL_SIZE, POSTGRES_POOL_SIZE)
	if size < 1 {
		return POSTGRES_POOL_SIZE
	}
	return int32(size)
}
