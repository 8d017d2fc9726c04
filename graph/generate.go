package graph

import (
	"iter"
	"strconv"
)

const (
	GENERATED_VERTEX_LABEL = "vertex"
	GENERATED_EDGE_LABEL   = "test"
)

// GenerateVertices lazily yields count vertices. Ranging again restarts from the first vertex.
func GenerateVertices(count int64, partitionKey string) iter.Seq[Element] {
	return func(yield func(Element) bool) {
		for i := int64(0); i < count; i++ {
			id := strconv.FormatInt(i, 10)
			v := NewVertex(id, GENERATED_VERTEX_LABEL)
			v.Properties["name"] = "name" + id
			v.Properties[partitionKey] = id
			if !yield(v) {
				return
			}
		}
	}
}

// GenerateEdges lazily yields count edges linking vertex i to vertex i+1.
func GenerateEdges(count int64, partitionKey string) iter.Seq[Element] {
	return func(yield func(Element) bool) {
		for i := int64(0); i < count; i++ {
			out := strconv.FormatInt(i, 10)
			in := strconv.FormatInt(i+1, 10)
			e := NewEdge("e"+out, GENERATED_EDGE_LABEL, out, in)
			e.OutVertexLabel = GENERATED_VERTEX_LABEL
			e.InVertexLabel = GENERATED_VERTEX_LABEL
			e.OutVertexPartitionKey = out
			e.InVertexPartitionKey = in
			e.Properties["duration"] = i
			e.Properties[partitionKey] = out
			if !yield(e) {
				return
			}
		}
	}
}
