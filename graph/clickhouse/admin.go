package clickhouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mikeblum/graph-bulk-import/graph"
)

const (
	databaseExists = `SELECT count() FROM system.databases WHERE name = ?`
	createDatabase = `CREATE DATABASE IF NOT EXISTS %s`
	dropDatabase   = `DROP DATABASE IF EXISTS %s`

	createCollections = `
		CREATE TABLE IF NOT EXISTS %s (
			name               String,
			partition_key_path String,
			throughput         Int32,
			created            DateTime64(3) DEFAULT now64(3)
		) ENGINE = ReplacingMergeTree(created)
		ORDER BY name`
	createVertices = `
		CREATE TABLE IF NOT EXISTS %s (
			id         String,
			label      LowCardinality(String),
			pk         String,
			properties String,
			version    DateTime64(9) DEFAULT now64(9)
		) ENGINE = ReplacingMergeTree(version)
		ORDER BY id`
	createEdges = `
		CREATE TABLE IF NOT EXISTS %s (
			id         String,
			label      LowCardinality(String),
			out_id     String,
			in_id      String,
			out_label  LowCardinality(String),
			in_label   LowCardinality(String),
			pk         String,
			properties String,
			version    DateTime64(9) DEFAULT now64(9)
		) ENGINE = ReplacingMergeTree(version)
		ORDER BY id`
	insertCollection = `INSERT INTO %s (name, partition_key_path, throughput) VALUES (?, ?, ?)`
	selectCollection = `SELECT name, partition_key_path, throughput FROM %s FINAL WHERE name = ? LIMIT 1`
)

func (e *Engine) DatabaseExists(ctx context.Context, name string) (bool, error) {
	var count uint64
	if err := e.conn.QueryRow(ctx, databaseExists, name).Scan(&count); err != nil {
		return false, e.classify(err)
	}
	return count > 0, nil
}

func (e *Engine) CreateDatabase(ctx context.Context, name string) error {
	if err := e.ddl(ctx, fmt.Sprintf(createDatabase, quote(name))); err != nil {
		e.log.WithErrorMsg(err, "Error creating database", "action", "setup", "database", name)
		return err
	}
	e.log.Info("Created database", "action", "setup", "database", name)
	return nil
}

func (e *Engine) DeleteDatabase(ctx context.Context, name string) error {
	if err := e.ddl(ctx, fmt.Sprintf(dropDatabase, quote(name))); err != nil {
		e.log.WithErrorMsg(err, "Error deleting database", "action", "cleanup", "database", name)
		return err
	}
	e.log.Info("Deleted database", "action", "cleanup", "database", name)
	return nil
}

func collectionStatements(coll *graph.Collection) []string {
	return []string{
		fmt.Sprintf(createCollections, table(coll.Database, COLLECTIONS_TABLE)),
		fmt.Sprintf(createVertices, vertexTable(coll)),
		fmt.Sprintf(createEdges, edgeTable(coll)),
	}
}

// CreateCollection creates the element tables and registers the collection. An existing
// collection is returned unchanged.
func (e *Engine) CreateCollection(ctx context.Context, coll *graph.Collection) (*graph.Collection, error) {
	var exists bool
	var err error
	if exists, err = e.DatabaseExists(ctx, coll.Database); err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", graph.ErrDatabaseNotFound, coll.Database)
	}
	for _, stmt := range collectionStatements(coll) {
		if err = e.ddl(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to create collection %s: %w", coll, err)
		}
	}
	if existing, err := e.GetCollection(ctx, coll.Database, coll.Name); err == nil {
		return existing, nil
	}
	if err = e.conn.Exec(ctx, fmt.Sprintf(insertCollection, table(coll.Database, COLLECTIONS_TABLE)),
		coll.Name, coll.PartitionKeyPath, int32(coll.Throughput)); err != nil {
		return nil, fmt.Errorf("failed to register collection %s: %w", coll, e.classify(err))
	}
	created, err := e.GetCollection(ctx, coll.Database, coll.Name)
	if err != nil {
		return nil, err
	}
	e.log.Info("Created collection", "action", "setup", "collection", created.String(), "partition-key", created.PartitionKeyPath, "throughput", created.Throughput)
	return created, nil
}

func (e *Engine) GetCollection(ctx context.Context, database, name string) (*graph.Collection, error) {
	coll := &graph.Collection{Database: database}
	var throughput int32
	err := e.conn.QueryRow(ctx, fmt.Sprintf(selectCollection, table(database, COLLECTIONS_TABLE)), name).
		Scan(&coll.Name, &coll.PartitionKeyPath, &throughput)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s.%s", graph.ErrCollectionNotFound, database, name)
	}
	if err != nil {
		return nil, e.classify(err)
	}
	coll.Throughput = int(throughput)
	return coll, nil
}

func (e *Engine) PartitionRanges(ctx context.Context, coll *graph.Collection) ([]graph.KeyRange, error) {
	if _, err := e.GetCollection(ctx, coll.Database, coll.Name); err != nil {
		return nil, err
	}
	return graph.SplitKeySpace(e.graphConf.PartitionCount()), nil
}
