package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	t.Run("vertices yields exactly count elements", func(t *testing.T) {
		var n int
		for v := range GenerateVertices(25, pk) {
			assert.Equal(t, KindVertex, v.Kind)
			_, ok := v.Property(pk)
			assert.True(t, ok)
			n++
		}
		assert.Equal(t, 25, n)
	})

	t.Run("edges link consecutive vertices", func(t *testing.T) {
		var edges []Element
		for e := range GenerateEdges(3, pk) {
			edges = append(edges, e)
		}
		require.Len(t, edges, 3)
		assert.Equal(t, "e1", edges[1].ID)
		assert.Equal(t, "1", edges[1].OutVertexID)
		assert.Equal(t, "2", edges[1].InVertexID)
		assert.True(t, edges[1].IsEdge())
	})

	t.Run("zero count yields nothing", func(t *testing.T) {
		for range GenerateVertices(0, pk) {
			t.Fatal("unexpected element")
		}
	})

	t.Run("restartable from the beginning", func(t *testing.T) {
		seq := GenerateVertices(10, pk)
		var first []string
		for v := range seq {
			first = append(first, v.ID)
			if len(first) == 3 {
				break
			}
		}
		var second []string
		for v := range seq {
			second = append(second, v.ID)
		}
		assert.Equal(t, []string{"0", "1", "2"}, first)
		assert.Len(t, second, 10)
		assert.Equal(t, "0", second[0])
	})
}

func TestElementEncode(t *testing.T) {
	e := NewEdge("e1", "knows", "1", "2").WithProperty(pk, "1")
	raw, err := e.Encode()
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"kind":"edge"`)
	assert.Contains(t, string(raw), `"outV":"1"`)
	assert.NotContains(t, string(raw), "\n")

	var kind Kind
	assert.Error(t, kind.UnmarshalText([]byte("hyperedge")))
	require.NoError(t, kind.UnmarshalText([]byte("edge")))
	assert.Equal(t, KindEdge, kind)
}

func TestCollection(t *testing.T) {
	coll := &Collection{Database: "db", Name: "graph", PartitionKeyPath: "/pk"}
	assert.Equal(t, "pk", coll.PartitionKeyProperty())
	assert.Equal(t, "db.graph", coll.String())

	mode, err := ParseConnectionMode("Gateway")
	require.NoError(t, err)
	assert.Equal(t, ConnectionModeGateway, mode)
	_, err = ParseProtocol("udp")
	assert.Error(t, err)
}
