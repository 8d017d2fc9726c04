package graph

import "time"

const (
	ENV_STORE_ENGINE           = "STORE_ENGINE"
	ENV_STORE_PARTITION_COUNT  = "STORE_PARTITION_COUNT"
	ENV_STORE_THROTTLE_BACKOFF = "STORE_THROTTLE_BACKOFF"

	ENGINE_NEO4J      = "neo4j"
	ENGINE_POSTGRES   = "postgres"
	ENGINE_CLICKHOUSE = "clickhouse"
	ENGINE_MEMORY     = "memory"

	// defaults
	STORE_ENGINE           = ENGINE_NEO4J
	STORE_PARTITION_COUNT  = 4
	STORE_THROTTLE_BACKOFF = time.Second
)
