package neo4j

import (
	"context"
	"errors"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/mikeblum/graph-bulk-import/graph"
)

const (
	uidx_collection_name = `CREATE CONSTRAINT uidx_collection_name IF NOT EXISTS FOR (n:` + COLLECTION_LABEL + `) REQUIRE (n.name) IS UNIQUE;`
	uidx_element_id      = `CREATE CONSTRAINT uidx_%s_id IF NOT EXISTS FOR (n:%s) REQUIRE (n.id) IS UNIQUE;`
)

// CreateConstraints makes element ids unique within a collection. Ids of edges are kept unique
// by the write statements.
func (e *Engine) CreateConstraints(ctx context.Context, coll *graph.Collection) error {
	var err error
	label := identifier(coll.Name)
	constraints := []string{
		uidx_collection_name,
		fmt.Sprintf(uidx_element_id, label, label),
	}
	for _, constraint := range constraints {
		_, uidxErr := neo4j.ExecuteQuery(ctx, e.driver,
			constraint,
			nil, neo4j.EagerResultTransformer,
			neo4j.ExecuteQueryWithDatabase(coll.Database),
			neo4j.ExecuteQueryWithBoltLogger(e.bolt))
		err = errors.Join(err, uidxErr)
	}
	return e.classify(err)
}
