package postgres

const (
	ENV_POSTGRES_POOL_SIZE = "POSTGRES_POOL_SIZE"
	ENV_POSTGRES_USERNAME  = "POSTGRES_USERNAME"

	// defaults
	POSTGRES_POOL_SIZE = 10
	POSTGRES_URI       = "postgres://localhost:5432/postgres?sslmode=disable"
	POSTGRES_USERNAME  = "postgres"

	// table holding collection metadata inside each schema
	COLLECTIONS_TABLE = "_collections"
)
