package graph

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

func (c *Conf) Engine() string {
	return c.GetEnv(ENV_STORE_ENGINE, STORE_ENGINE)
}

// PartitionCount is the number of logical ranges exposed by stores without native partitioning.
func (c *Conf) PartitionCount() int {
	count := c.GetInt(ENV_STORE_PARTITION_COUNT, STORE_PARTITION_COUNT)
	if count < 1 {
		return STORE_PARTITION_COUNT
	}
	return count
}

// ThrottleBackoff is the suggested delay attached to throttle errors when the store gives none.
func (c *Conf) ThrottleBackoff() time.Duration {
	return c.GetDuration(ENV_STORE_THROTTLE_BACKOFF, STORE_THROTTLE_BACKOFF)
}
