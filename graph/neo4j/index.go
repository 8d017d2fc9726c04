package neo4j

import (
	"context"
	"errors"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/mikeblum/graph-bulk-import/graph"
)

const (
	idx_partition_key = `CREATE INDEX idx_%s_%s IF NOT EXISTS FOR (n:%s) ON (n.%s);`
)

// CreateIndexes indexes the partition key property of the collection's vertices.
func (e *Engine) CreateIndexes(ctx context.Context, coll *graph.Collection) error {
	var err error
	label := identifier(coll.Name)
	property := identifier(coll.PartitionKeyProperty())
	indexes := []string{
		fmt.Sprintf(idx_partition_key, label, property, label, property),
	}
	for _, idx := range indexes {
		_, idxErr := neo4j.ExecuteQuery(ctx, e.driver,
			idx,
			nil, neo4j.EagerResultTransformer,
			neo4j.ExecuteQueryWithDatabase(coll.Database),
			neo4j.ExecuteQueryWithBoltLogger(e.bolt))
		err = errors.Join(err, idxErr)
	}
	return e.classify(err)
}
