package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/mikeblum/graph-bulk-import/graph"
)

// groupResult is what a label group wrote.
type groupResult struct {
	written map[string]struct{}
	units   float64
}

func (e *Engine) PartitionRanges(ctx context.Context, coll *graph.Collection) ([]graph.KeyRange, error) {
	if _, err := e.GetCollection(ctx, coll.Database, coll.Name); err != nil {
		return nil, err
	}
	return graph.SplitKeySpace(e.graphConf.PartitionCount()), nil
}

// BulkWrite writes a batch in a single transaction, one UNWIND statement per label.
func (e *Engine) BulkWrite(ctx context.Context, req *graph.WriteRequest) (*graph.WriteResponse, error) {
	groups, failures := groupElements(req.Elements)
	resp := &graph.WriteResponse{Failures: failures}
	if len(groups) == 0 {
		return resp, nil
	}
	collection := identifier(req.Collection.Name)

	session := e.session(ctx, req.Collection.Database, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	out, err := session.ExecuteWrite(ctx,
		func(tx neo4j.ManagedTransaction) (any, error) {
			results := make([]groupResult, len(groups))
			for i, g := range groups {
				query := vertexQuery(collection, g.label, req.Upsert)
				if g.edge {
					query = edgeQuery(collection, g.label, req.Upsert)
				}
				var err error
				if results[i], err = runGroup(ctx, tx, query, g.rows); err != nil {
					return nil, err
				}
			}
			return results, nil
		},
		neo4j.WithTxTimeout(e.conf.timeout()),
		neo4j.WithTxMetadata(map[string]any{"app": APP_BULK_IMPORT, "range": req.Range.ID}))
	if err != nil {
		err = e.classify(err)
		e.log.WithErrorMsg(err, "Error writing batch", "action", "write", "range", req.Range.ID, "count", len(req.Elements))
		return nil, err
	}

	results := out.([]groupResult)
	for i, g := range groups {
		resp.CapacityUnits += results[i].units
		for j, idx := range g.indexes {
			id, _ := g.rows[j]["id"].(string)
			if _, ok := results[i].written[id]; ok {
				continue
			}
			el := req.Elements[idx]
			reason := "conflict: id already exists"
			if el.IsEdge() {
				reason = "endpoint vertex not found or id already exists"
			}
			resp.Failures = append(resp.Failures, graph.ElementFailure{Index: idx, Err: graph.NewValidationError(el.ID, reason)})
		}
	}
	e.log.Debug("Wrote batch", "action", "write", "range", req.Range.ID, "count", len(req.Elements)-len(resp.Failures), "failures", len(resp.Failures), "units", resp.CapacityUnits)
	return resp, nil
}

func runGroup(ctx context.Context, tx neo4j.ManagedTransaction, query string, rows []map[string]any) (groupResult, error) {
	res := groupResult{written: make(map[string]struct{}, len(rows))}
	result, err := tx.Run(ctx, query, map[string]any{"rows": rows})
	if err != nil {
		return res, err
	}
	for result.Next(ctx) {
		if id, ok := result.Record().Get("id"); ok {
			res.written[fmt.Sprint(id)] = struct{}{}
		}
	}
	if err = result.Err(); err != nil {
		return res, err
	}
	var summary neo4j.ResultSummary
	if summary, err = result.Consume(ctx); err != nil {
		return res, err
	}
	res.units = capacityUnits(summary.Counters())
	return res, nil
}

// capacityUnits charges one unit per write operation the server reports.
func capacityUnits(c neo4j.Counters) float64 {
	if c == nil {
		return 0
	}
	return float64(c.NodesCreated() + c.RelationshipsCreated() + c.LabelsAdded() + c.PropertiesSet())
}
