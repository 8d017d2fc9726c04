package clickhouse

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/mikeblum/graph-bulk-import/graph"
)

const (
	insertVertices = `INSERT INTO %s (id, label, pk, properties)`
	insertEdges    = `INSERT INTO %s (id, label, out_id, in_id, out_label, in_label, pk, properties)`
	existingIDs    = `SELECT DISTINCT id FROM %s WHERE id IN ?`
)

// row is one element ready to append, with its batch index.
type row struct {
	index      int
	element    graph.Element
	pk         string
	properties string
}

func (r row) values() []any {
	el := r.element
	if el.IsEdge() {
		return []any{el.ID, el.Label, el.OutVertexID, el.InVertexID, el.OutVertexLabel, el.InVertexLabel, r.pk, r.properties}
	}
	return []any{el.ID, el.Label, r.pk, r.properties}
}

// prepare validates and encodes a batch. Invalid elements become failures.
func prepare(req *graph.WriteRequest) ([]row, []graph.ElementFailure) {
	var failures []graph.ElementFailure
	rows := make([]row, 0, len(req.Elements))
	pkProperty := req.Collection.PartitionKeyProperty()
	for i, el := range req.Elements {
		if err := el.Validate(); err != nil {
			failures = append(failures, graph.ElementFailure{Index: i, Err: err})
			continue
		}
		props, err := json.Marshal(el.Properties)
		if err != nil {
			failures = append(failures, graph.ElementFailure{Index: i, Err: graph.NewValidationError(el.ID, err.Error())})
			continue
		}
		pk := ""
		if value, ok := el.Property(pkProperty); ok {
			pk = fmt.Sprint(value)
		}
		rows = append(rows, row{index: i, element: el, pk: pk, properties: string(props)})
	}
	return rows, failures
}

// BulkWrite appends a batch as one insert block. Without upsert, ids already stored are
// reported as conflicts and not sent.
func (e *Engine) BulkWrite(ctx context.Context, req *graph.WriteRequest) (*graph.WriteResponse, error) {
	rows, failures := prepare(req)
	resp := &graph.WriteResponse{Failures: failures}
	if len(rows) == 0 {
		return resp, nil
	}
	target := vertexTable(req.Collection)
	insert := insertVertices
	if rows[0].element.IsEdge() {
		target = edgeTable(req.Collection)
		insert = insertEdges
	}

	if !req.Upsert {
		existing, err := e.existing(ctx, target, rows)
		if err != nil {
			return nil, err
		}
		kept := rows[:0]
		for _, r := range rows {
			if _, ok := existing[r.element.ID]; ok {
				resp.Failures = append(resp.Failures, graph.ElementFailure{
					Index: r.index,
					Err:   graph.NewValidationError(r.element.ID, "conflict: id already exists"),
				})
				continue
			}
			kept = append(kept, r)
		}
		rows = kept
		if len(rows) == 0 {
			return resp, nil
		}
	}

	var batch driver.Batch
	var err error
	if batch, err = e.conn.PrepareBatch(ctx, fmt.Sprintf(insert, target)); err != nil {
		return nil, e.writeErr(req, err)
	}
	for _, r := range rows {
		if err = batch.Append(r.values()...); err != nil {
			_ = batch.Abort()
			return nil, e.writeErr(req, err)
		}
	}
	if err = batch.Send(); err != nil {
		return nil, e.writeErr(req, err)
	}
	resp.CapacityUnits = float64(len(rows))
	e.log.Debug("Wrote batch", "action", "write", "range", req.Range.ID, "count", len(rows), "failures", len(resp.Failures))
	return resp, nil
}

func (e *Engine) existing(ctx context.Context, target string, rows []row) (map[string]struct{}, error) {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.element.ID
	}
	result, err := e.conn.Query(ctx, fmt.Sprintf(existingIDs, target), ids)
	if err != nil {
		return nil, e.classify(err)
	}
	defer result.Close()
	existing := map[string]struct{}{}
	for result.Next() {
		var id string
		if err = result.Scan(&id); err != nil {
			return nil, err
		}
		existing[id] = struct{}{}
	}
	return existing, e.classify(result.Err())
}

func (e *Engine) writeErr(req *graph.WriteRequest, err error) error {
	err = e.classify(err)
	e.log.WithErrorMsg(err, "Error writing batch", "action", "write", "range", req.Range.ID, "count", len(req.Elements))
	return err
}
