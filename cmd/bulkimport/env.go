package main

import "time"

const (
	ENV_AUTHORIZATION_KEY             = "AUTHORIZATION_KEY"
	ENV_COLLECTION_NAME               = "COLLECTION_NAME"
	ENV_COLLECTION_PARTITION_KEY      = "COLLECTION_PARTITION_KEY"
	ENV_COLLECTION_THROUGHPUT         = "COLLECTION_THROUGHPUT"
	ENV_CONNECTION_MODE               = "CONNECTION_MODE"
	ENV_CONNECTION_PROTOCOL           = "CONNECTION_PROTOCOL"
	ENV_DATABASE_NAME                 = "DATABASE_NAME"
	ENV_ENDPOINT_URL                  = "ENDPOINT_URL"
	ENV_NUMBER_OF_DOCUMENTS_TO_IMPORT = "NUMBER_OF_DOCUMENTS_TO_IMPORT"
	ENV_SHOULD_CLEANUP_ON_FINISH      = "SHOULD_CLEANUP_ON_FINISH"
	ENV_SHOULD_CLEANUP_ON_START       = "SHOULD_CLEANUP_ON_START"

	// defaults
	COLLECTION_NAME               = "graphCollection"
	COLLECTION_PARTITION_KEY      = "/pk"
	COLLECTION_THROUGHPUT         = 100000
	DATABASE_NAME                 = "graphdb"
	NUMBER_OF_DOCUMENTS_TO_IMPORT = 1000
	SHOULD_CLEANUP_ON_FINISH      = false
	SHOULD_CLEANUP_ON_START       = false

	// setup calls retry harder than bulk writes
	SETUP_MAX_RETRY_WAIT     = 30 * time.Second
	SETUP_MAX_RETRY_ATTEMPTS = 9
	SETUP_RANGE              = "setup"
)
