package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mikeblum/graph-bulk-import/graph"
)

const (
	upsertVertices = `
		INSERT INTO %s (id, label, pk, properties)
		SELECT * FROM unnest($1::text[], $2::text[], $3::text[], $4::text[]::jsonb[])
		ON CONFLICT (id) DO UPDATE SET
			label = EXCLUDED.label,
			pk = EXCLUDED.pk,
			properties = EXCLUDED.properties
		RETURNING id;`
	insertVertices = `
		INSERT INTO %s (id, label, pk, properties)
		SELECT * FROM unnest($1::text[], $2::text[], $3::text[], $4::text[]::jsonb[])
		ON CONFLICT (id) DO NOTHING
		RETURNING id;`
	upsertEdges = `
		INSERT INTO %s (id, label, out_id, in_id, out_label, in_label, pk, properties)
		SELECT * FROM unnest($1::text[], $2::text[], $3::text[], $4::text[], $5::text[], $6::text[], $7::text[], $8::text[]::jsonb[])
		ON CONFLICT (id) DO UPDATE SET
			label = EXCLUDED.label,
			out_id = EXCLUDED.out_id,
			in_id = EXCLUDED.in_id,
			out_label = EXCLUDED.out_label,
			in_label = EXCLUDED.in_label,
			pk = EXCLUDED.pk,
			properties = EXCLUDED.properties
		RETURNING id;`
	insertEdges = `
		INSERT INTO %s (id, label, out_id, in_id, out_label, in_label, pk, properties)
		SELECT * FROM unnest($1::text[], $2::text[], $3::text[], $4::text[], $5::text[], $6::text[], $7::text[], $8::text[]::jsonb[])
		ON CONFLICT (id) DO NOTHING
		RETURNING id;`
)

// columns holds a batch in column order for unnest.
type columns struct {
	indexes    []int
	ids        []string
	labels     []string
	outIDs     []string
	inIDs      []string
	outLabels  []string
	inLabels   []string
	pks        []string
	properties []string
}

func (c *columns) args(edges bool) []any {
	if edges {
		return []any{c.ids, c.labels, c.outIDs, c.inIDs, c.outLabels, c.inLabels, c.pks, c.properties}
	}
	return []any{c.ids, c.labels, c.pks, c.properties}
}

// BulkWrite inserts a batch with one statement. Ids the statement did not return conflicted.
func (e *Engine) BulkWrite(ctx context.Context, req *graph.WriteRequest) (*graph.WriteResponse, error) {
	resp := &graph.WriteResponse{}
	pkProperty := req.Collection.PartitionKeyProperty()
	var cols columns
	var edges bool
	for i, el := range req.Elements {
		if err := el.Validate(); err != nil {
			resp.Failures = append(resp.Failures, graph.ElementFailure{Index: i, Err: err})
			continue
		}
		props, err := json.Marshal(el.Properties)
		if err != nil {
			resp.Failures = append(resp.Failures, graph.ElementFailure{Index: i, Err: graph.NewValidationError(el.ID, err.Error())})
			continue
		}
		pk := ""
		if value, ok := el.Property(pkProperty); ok {
			pk = fmt.Sprint(value)
		}
		edges = el.IsEdge()
		cols.indexes = append(cols.indexes, i)
		cols.ids = append(cols.ids, el.ID)
		cols.labels = append(cols.labels, el.Label)
		cols.outIDs = append(cols.outIDs, el.OutVertexID)
		cols.inIDs = append(cols.inIDs, el.InVertexID)
		cols.outLabels = append(cols.outLabels, el.OutVertexLabel)
		cols.inLabels = append(cols.inLabels, el.InVertexLabel)
		cols.pks = append(cols.pks, pk)
		cols.properties = append(cols.properties, string(props))
	}
	if len(cols.ids) == 0 {
		return resp, nil
	}

	query := fmt.Sprintf(insertVertices, vertexTable(req.Collection))
	switch {
	case edges && req.Upsert:
		query = fmt.Sprintf(upsertEdges, edgeTable(req.Collection))
	case edges:
		query = fmt.Sprintf(insertEdges, edgeTable(req.Collection))
	case req.Upsert:
		query = fmt.Sprintf(upsertVertices, vertexTable(req.Collection))
	}

	written, err := e.returning(ctx, query, cols.args(edges)...)
	if err != nil {
		err = e.classify(err)
		e.log.WithErrorMsg(err, "Error writing batch", "action", "write", "range", req.Range.ID, "count", len(req.Elements))
		return nil, err
	}
	for j, idx := range cols.indexes {
		if _, ok := written[cols.ids[j]]; !ok {
			resp.Failures = append(resp.Failures, graph.ElementFailure{
				Index: idx,
				Err:   graph.NewValidationError(cols.ids[j], "conflict: id already exists"),
			})
		}
	}
	resp.CapacityUnits = float64(len(written))
	e.log.Debug("Wrote batch", "action", "write", "range", req.Range.ID, "count", len(written), "failures", len(resp.Failures))
	return resp, nil
}

func (e *Engine) returning(ctx context.Context, query string, args ...any) (map[string]struct{}, error) {
	rows, err := e.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	written := map[string]struct{}{}
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan written id: %w", err)
		}
		written[id] = struct{}{}
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return written, nil
}
