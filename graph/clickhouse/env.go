package clickhouse

import "time"

const (
	ENV_CLICKHOUSE_DIAL_TIMEOUT       = "CLICKHOUSE_DIAL_TIMEOUT"
	ENV_CLICKHOUSE_MAX_EXECUTION_TIME = "CLICKHOUSE_MAX_EXECUTION_TIME"
	ENV_CLICKHOUSE_MAX_OPEN_CONNS     = "CLICKHOUSE_MAX_OPEN_CONNS"
	ENV_CLICKHOUSE_USERNAME           = "CLICKHOUSE_USERNAME"

	// defaults
	CLICKHOUSE_ADDR               = "127.0.0.1:9000"
	CLICKHOUSE_DIAL_TIMEOUT       = time.Second * 30
	CLICKHOUSE_MAX_EXECUTION_TIME = time.Second * 60
	CLICKHOUSE_MAX_OPEN_CONNS     = 10
	CLICKHOUSE_USERNAME           = "default"

	CLIENT_NAME = "graph-bulk-import"

	// table holding collection metadata inside each database
	COLLECTIONS_TABLE = "_collections"
)
