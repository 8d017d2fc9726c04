package bulk

import "time"

const (
	ENV_MAX_RETRY_WAIT                  = "MAX_RETRY_WAIT"
	ENV_MAX_RETRY_ATTEMPTS              = "MAX_RETRY_ATTEMPTS"
	ENV_MAX_CONCURRENCY_PER_RANGE       = "MAX_CONCURRENCY_PER_RANGE"
	ENV_MAX_BATCH_ELEMENTS              = "MAX_BATCH_ELEMENTS"
	ENV_MAX_BATCH_BYTES                 = "MAX_BATCH_BYTES"
	ENV_ENABLE_UPSERT                   = "ENABLE_UPSERT"
	ENV_DISABLE_AUTOMATIC_ID_GENERATION = "DISABLE_AUTOMATIC_ID_GENERATION"
	ENV_RETRY_BASE_WAIT                 = "RETRY_BASE_WAIT"

	// defaults
	DEFAULT_MAX_RETRY_WAIT                  = 30 * time.Second
	DEFAULT_MAX_RETRY_ATTEMPTS              = 9
	DEFAULT_MAX_CONCURRENCY_PER_RANGE       = 2
	DEFAULT_MAX_BATCH_ELEMENTS              = 100
	DEFAULT_MAX_BATCH_BYTES                 = 2 * 1024 * 1024
	DEFAULT_ENABLE_UPSERT                   = true
	DEFAULT_DISABLE_AUTOMATIC_ID_GENERATION = true
	DEFAULT_RETRY_BASE_WAIT                 = 100 * time.Millisecond

	// upper bound on elements buffered per writer, whatever the batch size
	MAX_WRITER_QUEUE = 8192
)
