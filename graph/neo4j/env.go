package neo4j

import "time"

const (
	ENV_NEO4J_POOL_SIZE = "NEO4J_CONNECTION_POOL_SIZE"
	ENV_NEO4J_TIMEOUT   = "NEO4J_TIMEOUT"
	ENV_NEO4J_USERNAME  = "NEO4J_USERNAME"

	// defaults
	NEO4J_CONNECTION_POOL_SIZE = 50
	NEO4J_SYSTEM_DATABASE      = "system"
	NEO4J_TIMEOUT              = time.Second * 10
	NEO4J_URI                  = "neo4j://localhost:7687"
	NEO4J_USERNAME             = "neo4j"

	// node label holding collection metadata inside each database
	COLLECTION_LABEL = "_Collection"
)
