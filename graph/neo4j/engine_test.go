package neo4j

import (
	"errors"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikeblum/graph-bulk-import/graph"
)

func TestEndpointURI(t *testing.T) {
	direct := graph.ConnectionPolicy{Mode: graph.ConnectionModeDirect, Protocol: graph.ProtocolTCP}
	gateway := graph.ConnectionPolicy{Mode: graph.ConnectionModeGateway, Protocol: graph.ProtocolTCP}

	tests := []struct {
		name     string
		endpoint string
		policy   graph.ConnectionPolicy
		expected string
	}{
		{name: "empty endpoint uses default", endpoint: "", policy: direct, expected: NEO4J_URI},
		{name: "bolt scheme kept", endpoint: "bolt://db:7687", policy: gateway, expected: "bolt://db:7687"},
		{name: "routing scheme kept", endpoint: "neo4j+s://db:7687", policy: direct, expected: "neo4j+s://db:7687"},
		{name: "direct mode", endpoint: "db:7687", policy: direct, expected: "bolt://db:7687"},
		{name: "gateway mode", endpoint: "db:7687", policy: gateway, expected: "neo4j://db:7687"},
		{name: "https endpoint keeps tls", endpoint: "https://db.example.com:443/", policy: direct, expected: "bolt+s://db.example.com:443"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			uri, err := endpointURI(tc.endpoint, tc.policy)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, uri)
		})
	}

	t.Run("endpoint without host", func(t *testing.T) {
		_, err := endpointURI("https://", direct)
		assert.Error(t, err)
	})
}

func TestIdentifier(t *testing.T) {
	assert.Equal(t, "graphcollection", identifier("graphcollection"))
	assert.Equal(t, "my_graph_1", identifier("my-graph 1"))
	assert.Equal(t, "_1abc", identifier("1abc"))
	assert.Equal(t, "_", identifier(""))
	assert.Equal(t, "a_b__", identifier("a`b);"))
}

func TestQueries(t *testing.T) {
	t.Run("vertex upsert merges on id", func(t *testing.T) {
		q := vertexQuery("graphcollection", "person", true)
		assert.Contains(t, q, "UNWIND $rows AS row")
		assert.Contains(t, q, "MERGE (n:graphcollection {id: row.id})")
		assert.Contains(t, q, "SET n:person, n += row.props")
		assert.Contains(t, q, "RETURN row.id AS id")
	})

	t.Run("vertex insert skips existing ids", func(t *testing.T) {
		q := vertexQuery("graphcollection", "person", false)
		assert.Contains(t, q, "WHERE existing IS NULL")
		assert.Contains(t, q, "CREATE (n:graphcollection:person {id: row.id})")
		assert.NotContains(t, q, "MERGE")
	})

	t.Run("edges match both endpoints", func(t *testing.T) {
		q := edgeQuery("graphcollection", "knows", true)
		assert.Contains(t, q, "MATCH (a:graphcollection {id: row.out})")
		assert.Contains(t, q, "MATCH (b:graphcollection {id: row.in})")
		assert.Contains(t, q, "MERGE (a)-[r:knows {id: row.id}]->(b)")

		q = edgeQuery("graphcollection", "knows", false)
		assert.Contains(t, q, "CREATE (a)-[r:knows {id: row.id}]->(b)")
	})
}

func TestGroupElements(t *testing.T) {
	elements := []graph.Element{
		graph.NewVertex("1", "person").WithProperty("pk", "1"),
		graph.NewVertex("", "person"),
		graph.NewVertex("2", "place").WithProperty("pk", "2"),
		graph.NewVertex("3", "person").WithProperty("pk", "3"),
		graph.NewEdge("e1", "knows", "1", "3"),
		graph.NewEdge("e2", "knows", "1", ""),
	}
	groups, failures := groupElements(elements)

	require.Len(t, failures, 2)
	assert.Equal(t, 1, failures[0].Index)
	assert.Equal(t, 5, failures[1].Index)
	var verr *graph.ValidationError
	assert.ErrorAs(t, failures[0].Err, &verr)

	require.Len(t, groups, 3)
	assert.Equal(t, "person", groups[0].label)
	assert.Equal(t, []int{0, 3}, groups[0].indexes)
	assert.Equal(t, "place", groups[1].label)
	assert.True(t, groups[2].edge)
	assert.Equal(t, "1", groups[2].rows[0]["out"])
	assert.Equal(t, "3", groups[2].rows[0]["in"])
	assert.Equal(t, map[string]any{"pk": "1"}, groups[0].rows[0]["props"])
}

func TestPropertyValue(t *testing.T) {
	assert.Equal(t, "a", propertyValue("a"))
	assert.Equal(t, int64(3), propertyValue(int64(3)))
	assert.Equal(t, []string{"a", "b"}, propertyValue([]string{"a", "b"}))
	assert.Equal(t, `{"k":"v"}`, propertyValue(map[string]any{"k": "v"}))
	assert.Equal(t, `[1,"a"]`, propertyValue([]any{1, "a"}))
}

func TestClassify(t *testing.T) {
	engine := &Engine{graphConf: graph.NewConf()}

	t.Run("transient errors throttle", func(t *testing.T) {
		err := engine.classify(&neo4j.Neo4jError{Code: "Neo.TransientError.Transaction.DeadlockDetected", Msg: "deadlock"})
		throttle, ok := graph.IsThrottle(err)
		require.True(t, ok)
		assert.Equal(t, graph.STORE_THROTTLE_BACKOFF, throttle.RetryAfter)
	})

	t.Run("missing database", func(t *testing.T) {
		err := engine.classify(&neo4j.Neo4jError{Code: CODE_DATABASE_NOT_FOUND, Msg: "gone"})
		assert.ErrorIs(t, err, graph.ErrCollectionNotFound)
	})

	t.Run("client errors pass through", func(t *testing.T) {
		err := engine.classify(&neo4j.Neo4jError{Code: "Neo.ClientError.Statement.SyntaxError", Msg: "bad"})
		_, ok := graph.IsThrottle(err)
		assert.False(t, ok)
		assert.NotErrorIs(t, err, graph.ErrCollectionNotFound)
	})

	t.Run("other errors pass through", func(t *testing.T) {
		boom := errors.New("boom")
		assert.Equal(t, boom, engine.classify(boom))
		assert.NoError(t, engine.classify(nil))
	})
}
