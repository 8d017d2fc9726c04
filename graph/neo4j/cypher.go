package neo4j

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mikeblum/graph-bulk-import/graph"
)

// identifier makes a label, relationship type or schema name safe to splice into Cypher.
func identifier(name string) string {
	if name == "" {
		return "_"
	}
	var b strings.Builder
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteRune('_')
			}
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// vertexQuery writes one label group of vertices. Rows carry id and props; the ids written are
// returned so the caller can report the rest.
func vertexQuery(collection, label string, upsert bool) string {
	var query strings.Builder
	query.WriteString("UNWIND $rows AS row\n")
	if upsert {
		query.WriteString(fmt.Sprintf("MERGE (n:%s {id: row.id})\n", collection))
		query.WriteString(fmt.Sprintf("SET n:%s, n += row.props\n", label))
	} else {
		query.WriteString(fmt.Sprintf("OPTIONAL MATCH (existing:%s {id: row.id})\n", collection))
		query.WriteString("WITH row, existing WHERE existing IS NULL\n")
		query.WriteString(fmt.Sprintf("CREATE (n:%s:%s {id: row.id})\n", collection, label))
		query.WriteString("SET n += row.props\n")
	}
	query.WriteString("RETURN row.id AS id")
	return query.String()
}

// edgeQuery writes one relationship type group. Edges whose endpoints are missing are not
// returned.
func edgeQuery(collection, label string, upsert bool) string {
	var query strings.Builder
	query.WriteString("UNWIND $rows AS row\n")
	query.WriteString(fmt.Sprintf("MATCH (a:%s {id: row.out})\n", collection))
	query.WriteString(fmt.Sprintf("MATCH (b:%s {id: row.in})\n", collection))
	if upsert {
		query.WriteString(fmt.Sprintf("MERGE (a)-[r:%s {id: row.id}]->(b)\n", label))
	} else {
		query.WriteString(fmt.Sprintf("OPTIONAL MATCH (a)-[existing:%s {id: row.id}]->(b)\n", label))
		query.WriteString("WITH row, a, b, existing WHERE existing IS NULL\n")
		query.WriteString(fmt.Sprintf("CREATE (a)-[r:%s {id: row.id}]->(b)\n", label))
	}
	query.WriteString("SET r += row.props\n")
	query.WriteString("RETURN row.id AS id")
	return query.String()
}

// group is the slice of a batch sharing one label, keeping each element's batch index.
type group struct {
	label   string
	edge    bool
	indexes []int
	rows    []map[string]any
}

// groupElements splits valid elements by kind and label, preserving first-seen order. Structurally
// invalid elements are returned as failures and never sent.
func groupElements(elements []graph.Element) ([]*group, []graph.ElementFailure) {
	var failures []graph.ElementFailure
	var groups []*group
	byLabel := map[string]*group{}
	for i, el := range elements {
		if err := el.Validate(); err != nil {
			failures = append(failures, graph.ElementFailure{Index: i, Err: err})
			continue
		}
		label := el.Label
		if label == "" {
			label = el.Kind.String()
		}
		label = identifier(label)
		key := el.Kind.String() + ":" + label
		g, ok := byLabel[key]
		if !ok {
			g = &group{label: label, edge: el.IsEdge()}
			byLabel[key] = g
			groups = append(groups, g)
		}
		g.indexes = append(g.indexes, i)
		g.rows = append(g.rows, row(el))
	}
	return groups, failures
}

func row(el graph.Element) map[string]any {
	props := make(map[string]any, len(el.Properties))
	for k, v := range el.Properties {
		if v == nil {
			continue
		}
		props[k] = propertyValue(v)
	}
	r := map[string]any{
		"id":    el.ID,
		"props": props,
	}
	if el.IsEdge() {
		r["out"] = el.OutVertexID
		r["in"] = el.InVertexID
	}
	return r
}

// propertyValue keeps values Neo4j stores natively. Maps and mixed lists are stored as JSON.
func propertyValue(v any) any {
	switch value := v.(type) {
	case string, bool, int, int8, int16, int32, int64, uint8, uint16, uint32, float32, float64:
		return value
	case []string, []int64, []float64, []bool:
		return value
	case json.Number:
		if i, err := value.Int64(); err == nil {
			return i
		}
		if f, err := value.Float64(); err == nil {
			return f
		}
		return value.String()
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(raw)
}
