package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikeblum/graph-bulk-import/graph"
)

func newCollection(t *testing.T, e *Engine) *graph.Collection {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.CreateDatabase(ctx, "db"))
	coll, err := e.CreateCollection(ctx, &graph.Collection{Database: "db", Name: "graph", PartitionKeyPath: "/pk", Throughput: 400})
	require.NoError(t, err)
	return coll
}

func TestLifecycle(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(WithPartitionCount(3))

	exists, err := e.DatabaseExists(ctx, "db")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = e.CreateCollection(ctx, &graph.Collection{Database: "db", Name: "graph"})
	assert.ErrorIs(t, err, graph.ErrDatabaseNotFound)

	coll := newCollection(t, e)
	got, err := e.GetCollection(ctx, "db", "graph")
	require.NoError(t, err)
	assert.Equal(t, coll, got)

	ranges, err := e.PartitionRanges(ctx, coll)
	require.NoError(t, err)
	assert.Len(t, ranges, 3)

	require.NoError(t, e.DeleteDatabase(ctx, "db"))
	_, err = e.GetCollection(ctx, "db", "graph")
	assert.ErrorIs(t, err, graph.ErrCollectionNotFound)
	_, err = e.PartitionRanges(ctx, coll)
	assert.ErrorIs(t, err, graph.ErrCollectionNotFound)
}

func TestBulkWrite(t *testing.T) {
	ctx := context.Background()

	t.Run("per element validation failures", func(t *testing.T) {
		e := NewEngine()
		coll := newCollection(t, e)
		resp, err := e.BulkWrite(ctx, &graph.WriteRequest{
			Collection: coll,
			Elements: []graph.Element{
				graph.NewVertex("1", "vertex"),
				graph.NewVertex("", "vertex"),
				graph.NewEdge("e1", "knows", "1", ""),
			},
			Upsert: true,
		})
		require.NoError(t, err)
		require.Len(t, resp.Failures, 2)
		assert.Equal(t, 1, resp.Failures[0].Index)
		assert.Equal(t, 2, resp.Failures[1].Index)
		assert.Equal(t, DEFAULT_UNITS_PER_ELEMENT, resp.CapacityUnits)
		assert.Equal(t, 1, e.Count("db", "graph", graph.KindVertex))
	})

	t.Run("conflicts without upsert", func(t *testing.T) {
		e := NewEngine()
		coll := newCollection(t, e)
		req := &graph.WriteRequest{Collection: coll, Elements: []graph.Element{graph.NewVertex("1", "vertex")}}
		_, err := e.BulkWrite(ctx, req)
		require.NoError(t, err)
		resp, err := e.BulkWrite(ctx, req)
		require.NoError(t, err)
		require.Len(t, resp.Failures, 1)
		var verr *graph.ValidationError
		assert.True(t, errors.As(resp.Failures[0].Err, &verr))

		req.Upsert = true
		resp, err = e.BulkWrite(ctx, req)
		require.NoError(t, err)
		assert.Empty(t, resp.Failures)
	})

	t.Run("hook errors are returned", func(t *testing.T) {
		throttle := graph.NewThrottleError(0, nil)
		e := NewEngine(WithWriteHook(func(ctx context.Context, req *graph.WriteRequest) error {
			return throttle
		}))
		coll := newCollection(t, e)
		_, err := e.BulkWrite(ctx, &graph.WriteRequest{Collection: coll})
		assert.ErrorIs(t, err, throttle)
		assert.Equal(t, 0, e.Writes())
	})
}
