package neo4j

import (
	"context"
	"errors"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/mikeblum/graph-bulk-import/graph"
)

const (
	show_database   = `SHOW DATABASES YIELD name WHERE name = $name RETURN name;`
	create_database = `CREATE DATABASE $name IF NOT EXISTS WAIT;`
	drop_database   = `DROP DATABASE $name IF EXISTS WAIT;`

	merge_collection = `
		MERGE (c:` + COLLECTION_LABEL + ` {name: $name})
		ON CREATE
			SET
				c.partitionKeyPath	= $partitionKeyPath,
				c.throughput		= $throughput,
				c.created			= timestamp()
		RETURN c.name AS name, c.partitionKeyPath AS partitionKeyPath, c.throughput AS throughput;`
	match_collection = `
		MATCH (c:` + COLLECTION_LABEL + ` {name: $name})
		RETURN c.name AS name, c.partitionKeyPath AS partitionKeyPath, c.throughput AS throughput;`
)

// system runs an administration command against the system database.
func (e *Engine) system(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error) {
	result, err := neo4j.ExecuteQuery(ctx, e.driver,
		query,
		params, neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(NEO4J_SYSTEM_DATABASE),
		neo4j.ExecuteQueryWithBoltLogger(e.bolt))
	return result, e.classify(err)
}

func (e *Engine) DatabaseExists(ctx context.Context, name string) (bool, error) {
	result, err := e.system(ctx, show_database, map[string]any{"name": name})
	if err != nil {
		return false, err
	}
	return len(result.Records) > 0, nil
}

func (e *Engine) CreateDatabase(ctx context.Context, name string) error {
	if _, err := e.system(ctx, create_database, map[string]any{"name": name}); err != nil {
		e.log.WithErrorMsg(err, "Error creating database", "action", "setup", "database", name)
		return err
	}
	e.log.Info("Created database", "action", "setup", "database", name)
	return nil
}

func (e *Engine) DeleteDatabase(ctx context.Context, name string) error {
	if _, err := e.system(ctx, drop_database, map[string]any{"name": name}); err != nil {
		e.log.WithErrorMsg(err, "Error deleting database", "action", "cleanup", "database", name)
		return err
	}
	e.log.Info("Deleted database", "action", "cleanup", "database", name)
	return nil
}

// CreateCollection registers the collection and its schema. An existing collection is returned
// unchanged.
func (e *Engine) CreateCollection(ctx context.Context, coll *graph.Collection) (*graph.Collection, error) {
	var exists bool
	var err error
	if exists, err = e.DatabaseExists(ctx, coll.Database); err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", graph.ErrDatabaseNotFound, coll.Database)
	}
	if err = errors.Join(e.CreateConstraints(ctx, coll), e.CreateIndexes(ctx, coll)); err != nil {
		return nil, err
	}
	result, err := neo4j.ExecuteQuery(ctx, e.driver,
		merge_collection,
		map[string]any{
			"name":             coll.Name,
			"partitionKeyPath": coll.PartitionKeyPath,
			"throughput":       coll.Throughput,
		}, neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(coll.Database),
		neo4j.ExecuteQueryWithBoltLogger(e.bolt))
	if err != nil {
		return nil, e.classify(err)
	}
	created, err := collectionFrom(coll.Database, coll.Name, result)
	if err != nil {
		return nil, err
	}
	e.log.Info("Created collection", "action", "setup", "collection", created.String(), "partition-key", created.PartitionKeyPath, "throughput", created.Throughput)
	return created, nil
}

func (e *Engine) GetCollection(ctx context.Context, database, name string) (*graph.Collection, error) {
	result, err := neo4j.ExecuteQuery(ctx, e.driver,
		match_collection,
		map[string]any{"name": name}, neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(database),
		neo4j.ExecuteQueryWithReadersRouting(),
		neo4j.ExecuteQueryWithBoltLogger(e.bolt))
	if err != nil {
		return nil, e.classify(err)
	}
	return collectionFrom(database, name, result)
}

func collectionFrom(database, collection string, result *neo4j.EagerResult) (*graph.Collection, error) {
	if result == nil || len(result.Records) == 0 {
		return nil, fmt.Errorf("%w: %s.%s", graph.ErrCollectionNotFound, database, collection)
	}
	record := result.Records[0]
	name, _, err := neo4j.GetRecordValue[string](record, "name")
	if err != nil {
		return nil, err
	}
	path, _, err := neo4j.GetRecordValue[string](record, "partitionKeyPath")
	if err != nil {
		return nil, err
	}
	throughput, _, err := neo4j.GetRecordValue[int64](record, "throughput")
	if err != nil {
		return nil, err
	}
	return &graph.Collection{
		Database:         database,
		Name:             name,
		PartitionKeyPath: path,
		Throughput:       int(throughput),
	}, nil
}
