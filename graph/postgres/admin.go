package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mikeblum/graph-bulk-import/graph"
)

const (
	schemaExists = `SELECT EXISTS (SELECT 1 FROM information_schema.schemata WHERE schema_name = $1);`
	createSchema = `CREATE SCHEMA IF NOT EXISTS %s;`
	dropSchema   = `DROP SCHEMA IF EXISTS %s CASCADE;`

	createCollections = `
		CREATE TABLE IF NOT EXISTS %s (
			name               TEXT PRIMARY KEY,
			partition_key_path TEXT NOT NULL,
			throughput         INTEGER NOT NULL DEFAULT 0,
			created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
		);`
	createVertices = `
		CREATE TABLE IF NOT EXISTS %s (
			id         TEXT PRIMARY KEY,
			label      TEXT NOT NULL,
			pk         TEXT NOT NULL,
			properties JSONB NOT NULL DEFAULT '{}'
		);`
	createEdges = `
		CREATE TABLE IF NOT EXISTS %s (
			id         TEXT PRIMARY KEY,
			label      TEXT NOT NULL,
			out_id     TEXT NOT NULL,
			in_id      TEXT NOT NULL,
			out_label  TEXT NOT NULL,
			in_label   TEXT NOT NULL,
			pk         TEXT NOT NULL,
			properties JSONB NOT NULL DEFAULT '{}'
		);`
	insertCollection = `
		INSERT INTO %s (name, partition_key_path, throughput)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO NOTHING;`
	selectCollection = `SELECT name, partition_key_path, throughput FROM %s WHERE name = $1;`
)

func (e *Engine) DatabaseExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	if err := e.pool.QueryRow(ctx, schemaExists, name).Scan(&exists); err != nil {
		return false, e.classify(err)
	}
	return exists, nil
}

func (e *Engine) CreateDatabase(ctx context.Context, name string) error {
	if _, err := e.pool.Exec(ctx, fmt.Sprintf(createSchema, ident(name))); err != nil {
		e.log.WithErrorMsg(err, "Error creating schema", "action", "setup", "database", name)
		return e.classify(err)
	}
	e.log.Info("Created database", "action", "setup", "database", name)
	return nil
}

func (e *Engine) DeleteDatabase(ctx context.Context, name string) error {
	if _, err := e.pool.Exec(ctx, fmt.Sprintf(dropSchema, ident(name))); err != nil {
		e.log.WithErrorMsg(err, "Error dropping schema", "action", "cleanup", "database", name)
		return e.classify(err)
	}
	e.log.Info("Deleted database", "action", "cleanup", "database", name)
	return nil
}

// CreateCollection creates the element tables and registers the collection in one transaction.
// An existing collection is returned unchanged.
func (e *Engine) CreateCollection(ctx context.Context, coll *graph.Collection) (*graph.Collection, error) {
	var exists bool
	var err error
	if exists, err = e.DatabaseExists(ctx, coll.Database); err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", graph.ErrDatabaseNotFound, coll.Database)
	}

	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", e.classify(err))
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			e.log.WithErrorMsg(rollbackErr, "Failed to rollback transaction", "action", "setup")
		}
	}()

	statements := []string{
		fmt.Sprintf(createCollections, ident(coll.Database, COLLECTIONS_TABLE)),
		fmt.Sprintf(createVertices, vertexTable(coll)),
		fmt.Sprintf(createEdges, edgeTable(coll)),
	}
	for _, stmt := range statements {
		if _, err = tx.Exec(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to create collection %s: %w", coll, e.classify(err))
		}
	}
	if _, err = tx.Exec(ctx, fmt.Sprintf(insertCollection, ident(coll.Database, COLLECTIONS_TABLE)),
		coll.Name, coll.PartitionKeyPath, coll.Throughput); err != nil {
		return nil, fmt.Errorf("failed to register collection %s: %w", coll, e.classify(err))
	}
	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", e.classify(err))
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
	err := e.pool.QueryRow(ctx, fmt.Sprintf(selectCollection, ident(database, COLLECTIONS_TABLE)), name).
		Scan(&coll.Name, &coll.PartitionKeyPath, &throughput)
	if errors.Is(err, pgx.ErrNoRows) {
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
