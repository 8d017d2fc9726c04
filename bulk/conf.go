package bulk

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

func (c *Conf) MaxRetryWait() time.Duration {
	return c.GetDuration(ENV_MAX_RETRY_WAIT, DEFAULT_MAX_RETRY_WAIT)
}

func (c *Conf) MaxRetryAttempts() int {
	return c.GetInt(ENV_MAX_RETRY_ATTEMPTS, DEFAULT_MAX_RETRY_ATTEMPTS)
}

func (c *Conf) MaxConcurrencyPerRange() int {
	return c.GetInt(ENV_MAX_CONCURRENCY_PER_RANGE, DEFAULT_MAX_CONCURRENCY_PER_RANGE)
}

func (c *Conf) MaxBatchElements() int {
	return c.GetInt(ENV_MAX_BATCH_ELEMENTS, DEFAULT_MAX_BATCH_ELEMENTS)
}

func (c *Conf) MaxBatchBytes() int {
	return c.GetInt(ENV_MAX_BATCH_BYTES, DEFAULT_MAX_BATCH_BYTES)
}

func (c *Conf) EnableUpsert() bool {
	return c.GetBool(ENV_ENABLE_UPSERT, DEFAULT_ENABLE_UPSERT)
}

func (c *Conf) DisableAutomaticIDGeneration() bool {
	return c.GetBool(ENV_DISABLE_AUTOMATIC_ID_GENERATION, DEFAULT_DISABLE_AUTOMATIC_ID_GENERATION)
}

func (c *Conf) RetryBaseWait() time.Duration {
	return c.GetDuration(ENV_RETRY_BASE_WAIT, DEFAULT_RETRY_BASE_WAIT)
}
