package bulk

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikeblum/graph-bulk-import/graph"
	"github.com/mikeblum/graph-bulk-import/graph/memory"
)

const (
	testDatabase   = "graphdb"
	testCollection = "graphcollection"
	testPartition  = "pk"
)

func newTestStore(t *testing.T, opts ...memory.Option) (*memory.Engine, *graph.Collection) {
	t.Helper()
	ctx := context.Background()
	store := memory.NewEngine(opts...)
	require.NoError(t, store.CreateDatabase(ctx, testDatabase))
	coll, err := store.CreateCollection(ctx, &graph.Collection{
		Database:         testDatabase,
		Name:             testCollection,
		PartitionKeyPath: "/" + testPartition,
		Throughput:       400,
	})
	require.NoError(t, err)
	return store, coll
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.RetryPolicy = RetryPolicy{MaxRetryWait: 5 * time.Millisecond, MaxAttempts: 9}
	opts.RetryBaseWait = time.Millisecond
	return opts
}

func newTestImporter(t *testing.T, store graph.Writer, coll *graph.Collection, opts Options) *Importer {
	t.Helper()
	importer, err := NewImporter(context.Background(), store, coll, opts)
	require.NoError(t, err)
	return importer
}

func seqOf(elements ...graph.Element) iter.Seq[graph.Element] {
	return slices.Values(elements)
}

func TestImportVertices(t *testing.T) {
	for _, n := range []int64{0, 1, 250, 1000} {
		t.Run(fmt.Sprintf("imports %d vertices", n), func(t *testing.T) {
			store, coll := newTestStore(t)
			importer := newTestImporter(t, store, coll, testOptions())

			result, err := importer.ImportVertices(context.Background(), graph.GenerateVertices(n, testPartition))
			require.NoError(t, err)
			assert.Equal(t, StateCompleted, result.State)
			assert.Equal(t, n, result.NumberOfDocumentsImported)
			assert.Empty(t, result.BadInputDocuments)
			assert.Zero(t, result.NumberOfDocumentsSkipped)
			assert.False(t, result.Cancelled)
			assert.Equal(t, float64(n)*memory.DEFAULT_UNITS_PER_ELEMENT, result.TotalCapacityUnitsConsumed)
			assert.Equal(t, int(n), store.Count(testDatabase, testCollection, graph.KindVertex))
		})
	}
}

func TestImportEdges(t *testing.T) {
	store, coll := newTestStore(t)
	importer := newTestImporter(t, store, coll, testOptions())

	result, err := importer.ImportEdges(context.Background(), graph.GenerateEdges(500, testPartition))
	require.NoError(t, err)
	assert.Equal(t, int64(500), result.NumberOfDocumentsImported)
	assert.Equal(t, graph.KindEdge, result.Kind)
	assert.Equal(t, 500, store.Count(testDatabase, testCollection, graph.KindEdge))
	assert.Zero(t, store.Count(testDatabase, testCollection, graph.KindVertex))
}

func TestImportScenario(t *testing.T) {
	store, coll := newTestStore(t)
	opts := testOptions()
	opts.RetryPolicy = RetryPolicy{MaxRetryWait: 30 * time.Second, MaxAttempts: 9}
	importer := newTestImporter(t, store, coll, opts)
	ctx := context.Background()

	vertices, err := importer.ImportVertices(ctx, graph.GenerateVertices(1000, testPartition))
	require.NoError(t, err)
	edges, err := importer.ImportEdges(ctx, graph.GenerateEdges(2000, testPartition))
	require.NoError(t, err)

	assert.Equal(t, int64(3000), vertices.NumberOfDocumentsImported+edges.NumberOfDocumentsImported)
	assert.Empty(t, vertices.BadInputDocuments)
	assert.Empty(t, edges.BadInputDocuments)
	assert.NotEqual(t, vertices.RunID, edges.RunID)
}

func TestImportQuarantine(t *testing.T) {
	t.Run("missing partition key is never written", func(t *testing.T) {
		var leaked atomic.Int32
		store, coll := newTestStore(t, memory.WithWriteHook(func(ctx context.Context, req *graph.WriteRequest) error {
			for _, el := range req.Elements {
				if _, ok := el.Property(testPartition); !ok {
					leaked.Add(1)
				}
			}
			return nil
		}))
		importer := newTestImporter(t, store, coll, testOptions())

		elements := slices.Collect(graph.GenerateVertices(10, testPartition))
		elements = append(elements, graph.NewVertex("orphan", "vertex").WithProperty("name", "orphan"))
		result, err := importer.ImportVertices(context.Background(), seqOf(elements...))
		require.NoError(t, err)

		assert.Equal(t, int64(10), result.NumberOfDocumentsImported)
		require.Len(t, result.BadInputDocuments, 1)
		assert.Equal(t, "orphan", result.BadInputDocuments[0].Element.ID)
		assert.ErrorIs(t, result.BadInputDocuments[0].Reason, graph.ErrInvalidPartitionKey)
		assert.Zero(t, leaked.Load())
	})

	t.Run("element too large", func(t *testing.T) {
		store, coll := newTestStore(t)
		opts := testOptions()
		opts.MaxBatchBytes = 256
		importer := newTestImporter(t, store, coll, opts)

		big := graph.NewVertex("big", "vertex").
			WithProperty(testPartition, "big").
			WithProperty("blob", string(make([]byte, 512)))
		small := graph.NewVertex("small", "vertex").WithProperty(testPartition, "small")
		result, err := importer.ImportVertices(context.Background(), seqOf(big, small))
		require.NoError(t, err)

		assert.Equal(t, int64(1), result.NumberOfDocumentsImported)
		require.Len(t, result.BadInputDocuments, 1)
		assert.ErrorIs(t, result.BadInputDocuments[0].Reason, graph.ErrElementTooLarge)
	})

	t.Run("kind mismatch", func(t *testing.T) {
		store, coll := newTestStore(t)
		importer := newTestImporter(t, store, coll, testOptions())

		edge := graph.NewEdge("e0", "test", "0", "1").WithProperty(testPartition, "0")
		result, err := importer.ImportVertices(context.Background(), seqOf(edge))
		require.NoError(t, err)
		require.Len(t, result.BadInputDocuments, 1)
		assert.ErrorIs(t, result.BadInputDocuments[0].Reason, ErrKindMismatch)
		assert.Zero(t, store.Writes())
	})

	t.Run("store rejects individual elements", func(t *testing.T) {
		store, coll := newTestStore(t)
		importer := newTestImporter(t, store, coll, testOptions())

		elements := slices.Collect(graph.GenerateVertices(5, testPartition))
		// automatic id generation is disabled, so the store rejects the missing id
		elements = append(elements, graph.NewVertex("", "vertex").WithProperty(testPartition, "x"))
		result, err := importer.ImportVertices(context.Background(), seqOf(elements...))
		require.NoError(t, err)

		assert.Equal(t, int64(5), result.NumberOfDocumentsImported)
		require.Len(t, result.BadInputDocuments, 1)
		var verr *graph.ValidationError
		assert.ErrorAs(t, result.BadInputDocuments[0].Reason, &verr)
	})

	t.Run("automatic id generation", func(t *testing.T) {
		store, coll := newTestStore(t)
		opts := testOptions()
		opts.DisableAutomaticIDGeneration = false
		importer := newTestImporter(t, store, coll, opts)

		result, err := importer.ImportVertices(context.Background(), seqOf(
			graph.NewVertex("", "vertex").WithProperty(testPartition, "x"),
			graph.NewVertex("", "vertex").WithProperty(testPartition, "y"),
		))
		require.NoError(t, err)
		assert.Equal(t, int64(2), result.NumberOfDocumentsImported)
		assert.Empty(t, result.BadInputDocuments)
	})

	t.Run("conflicts without upsert", func(t *testing.T) {
		store, coll := newTestStore(t)
		opts := testOptions()
		opts.EnableUpsert = false
		importer := newTestImporter(t, store, coll, opts)
		ctx := context.Background()

		_, err := importer.ImportVertices(ctx, graph.GenerateVertices(3, testPartition))
		require.NoError(t, err)
		result, err := importer.ImportVertices(ctx, graph.GenerateVertices(3, testPartition))
		require.NoError(t, err)
		assert.Zero(t, result.NumberOfDocumentsImported)
		assert.Len(t, result.BadInputDocuments, 3)
	})

	t.Run("store error quarantines the batch", func(t *testing.T) {
		boom := errors.New("request entity malformed")
		store, coll := newTestStore(t, memory.WithPartitionCount(1), memory.WithWriteHook(func(ctx context.Context, req *graph.WriteRequest) error {
			return boom
		}))
		importer := newTestImporter(t, store, coll, testOptions())

		result, err := importer.ImportVertices(context.Background(), graph.GenerateVertices(20, testPartition))
		require.NoError(t, err)
		assert.Zero(t, result.NumberOfDocumentsImported)
		assert.Len(t, result.BadInputDocuments, 20)
		for _, q := range result.BadInputDocuments {
			assert.ErrorIs(t, q.Reason, boom)
		}
	})
}

func TestImportThrottling(t *testing.T) {
	tests := []struct {
		name        string
		throttles   int32
		maxAttempts int
		attempts    int32
		imported    int64
	}{
		{name: "recovers within attempt budget", throttles: 2, maxAttempts: 5, attempts: 3, imported: 50},
		{name: "succeeds on last attempt", throttles: 3, maxAttempts: 4, attempts: 4, imported: 50},
		{name: "exhausts attempt budget", throttles: 10, maxAttempts: 4, attempts: 4, imported: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var calls atomic.Int32
			store, coll := newTestStore(t, memory.WithPartitionCount(1), memory.WithWriteHook(func(ctx context.Context, req *graph.WriteRequest) error {
				if calls.Add(1) <= tc.throttles {
					return graph.NewThrottleError(time.Millisecond, errors.New("request rate too large"))
				}
				return nil
			}))
			opts := testOptions()
			opts.MaxBatchElements = 1000
			opts.RetryPolicy.MaxAttempts = tc.maxAttempts
			var mu sync.Mutex
			var retries int
			opts.OnOutcome = func(o Outcome) {
				if o.Status == StatusRetrying {
					mu.Lock()
					retries++
					mu.Unlock()
				}
			}
			importer := newTestImporter(t, store, coll, opts)

			result, err := importer.ImportVertices(context.Background(), graph.GenerateVertices(50, testPartition))
			require.NoError(t, err)

			assert.Equal(t, tc.attempts, calls.Load())
			assert.Equal(t, int(tc.attempts)-1, retries)
			assert.Equal(t, tc.imported, result.NumberOfDocumentsImported)
			assert.Equal(t, float64(tc.imported)*memory.DEFAULT_UNITS_PER_ELEMENT, result.TotalCapacityUnitsConsumed)
			if tc.imported == 0 {
				require.Len(t, result.BadInputDocuments, 50)
				assert.ErrorIs(t, result.BadInputDocuments[0].Reason, ErrRetriesExhausted)
			} else {
				assert.Empty(t, result.BadInputDocuments)
			}
			assert.Equal(t, int64(min(tc.throttles, tc.attempts)), importer.Governor().Usage(graph.SplitKeySpace(1)[0].ID).Throttles)
		})
	}

	t.Run("exhausted timeout throttles are quarantined", func(t *testing.T) {
		timeout := fmt.Errorf("failed to connect: timeout: %w", context.DeadlineExceeded)
		store, coll := newTestStore(t, memory.WithPartitionCount(1), memory.WithWriteHook(func(ctx context.Context, req *graph.WriteRequest) error {
			return graph.NewThrottleError(time.Millisecond, timeout)
		}))
		opts := testOptions()
		opts.RetryPolicy.MaxAttempts = 2
		importer := newTestImporter(t, store, coll, opts)

		result, err := importer.ImportVertices(context.Background(), graph.GenerateVertices(20, testPartition))
		require.NoError(t, err)

		assert.Equal(t, StateCompleted, result.State)
		assert.False(t, result.Cancelled)
		assert.Zero(t, result.NumberOfDocumentsImported)
		assert.Zero(t, result.NumberOfDocumentsSkipped)
		require.Len(t, result.BadInputDocuments, 20)
		for _, q := range result.BadInputDocuments {
			assert.ErrorIs(t, q.Reason, ErrRetriesExhausted)
			assert.ErrorIs(t, q.Reason, context.DeadlineExceeded)
		}
	})
}

func TestBackoffAborted(t *testing.T) {
	live := context.Background()
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	timeout := graph.NewThrottleError(time.Millisecond, fmt.Errorf("dial: %w", context.DeadlineExceeded))

	t.Run("store timeout on a live run", func(t *testing.T) {
		assert.False(t, backoffAborted(live, timeout))
	})
	t.Run("exhausted retries on a cancelled run", func(t *testing.T) {
		exhausted := fmt.Errorf("%w: range 0 failed after 2 attempts: %w", ErrRetriesExhausted, timeout)
		assert.False(t, backoffAborted(cancelled, exhausted))
	})
	t.Run("backoff interrupted by cancellation", func(t *testing.T) {
		assert.True(t, backoffAborted(cancelled, fmt.Errorf("context cancelled while waiting for throttle backoff: %w", context.Canceled)))
	})
	t.Run("unrelated store error on a cancelled run", func(t *testing.T) {
		assert.False(t, backoffAborted(cancelled, errors.New("syntax error")))
	})
}

func TestImportCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var once sync.Once
	store, coll := newTestStore(t, memory.WithPartitionCount(1), memory.WithWriteHook(func(_ context.Context, req *graph.WriteRequest) error {
		once.Do(cancel)
		return nil
	}))
	opts := testOptions()
	opts.MaxBatchElements = 10
	opts.MaxConcurrencyPerRange = 1
	importer := newTestImporter(t, store, coll, opts)

	result, err := importer.ImportVertices(ctx, graph.GenerateVertices(1000, testPartition))
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)

	assert.True(t, result.Cancelled)
	assert.Less(t, result.NumberOfDocumentsImported, int64(1000))
	assert.Positive(t, result.NumberOfDocumentsImported)
	// every acknowledged write is counted
	assert.Equal(t, int64(store.Count(testDatabase, testCollection, graph.KindVertex)), result.NumberOfDocumentsImported)
	assert.LessOrEqual(t, store.Writes(), 2)
	assert.Empty(t, result.BadInputDocuments)
}

func TestImportFailures(t *testing.T) {
	t.Run("collection not found before import", func(t *testing.T) {
		store := memory.NewEngine()
		importer := newTestImporter(t, store, &graph.Collection{
			Database:         testDatabase,
			Name:             "missing",
			PartitionKeyPath: "/" + testPartition,
		}, testOptions())

		result, err := importer.ImportVertices(context.Background(), graph.GenerateVertices(10, testPartition))
		require.ErrorIs(t, err, graph.ErrCollectionNotFound)
		assert.Equal(t, StateFailed, result.State)
		assert.Zero(t, result.NumberOfDocumentsImported)
	})

	t.Run("collection dropped during import", func(t *testing.T) {
		store, coll := newTestStore(t, memory.WithWriteHook(func(ctx context.Context, req *graph.WriteRequest) error {
			return fmt.Errorf("%w: %s", graph.ErrCollectionNotFound, req.Collection)
		}))
		importer := newTestImporter(t, store, coll, testOptions())

		result, err := importer.ImportVertices(context.Background(), graph.GenerateVertices(500, testPartition))
		require.ErrorIs(t, err, graph.ErrCollectionNotFound)
		assert.Equal(t, StateFailed, result.State)
		assert.Zero(t, result.NumberOfDocumentsImported)
		assert.Empty(t, result.BadInputDocuments)
	})

	t.Run("collection dropped while draining", func(t *testing.T) {
		var writes atomic.Int32
		store, coll := newTestStore(t, memory.WithPartitionCount(1), memory.WithWriteHook(func(ctx context.Context, req *graph.WriteRequest) error {
			writes.Add(1)
			return fmt.Errorf("%w: %s", graph.ErrCollectionNotFound, req.Collection)
		}))
		opts := testOptions()
		opts.MaxBatchElements = 100
		importer := newTestImporter(t, store, coll, opts)

		// fewer elements than one batch: the only write is the flush after dispatch ends
		result, err := importer.ImportVertices(context.Background(), graph.GenerateVertices(5, testPartition))
		require.ErrorIs(t, err, graph.ErrCollectionNotFound)
		assert.Equal(t, int32(1), writes.Load())
		assert.Equal(t, StateFailed, result.State)
		assert.Equal(t, int64(5), result.NumberOfDocumentsSkipped)
		assert.Empty(t, result.BadInputDocuments)
	})

	t.Run("invalid importer arguments", func(t *testing.T) {
		store, coll := newTestStore(t)
		_, err := NewImporter(context.Background(), nil, coll, testOptions())
		assert.Error(t, err)
		_, err = NewImporter(context.Background(), store, nil, testOptions())
		assert.Error(t, err)
		_, err = NewImporter(context.Background(), store, &graph.Collection{Database: testDatabase, Name: testCollection}, testOptions())
		assert.Error(t, err)
	})
}

func TestImportRuns(t *testing.T) {
	t.Run("concurrent runs keep separate results", func(t *testing.T) {
		store, coll := newTestStore(t)
		importer := newTestImporter(t, store, coll, testOptions())
		ctx := context.Background()

		var wg sync.WaitGroup
		var vertices, edges *ImportResult
		var verr, eerr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			vertices, verr = importer.ImportVertices(ctx, graph.GenerateVertices(300, testPartition))
		}()
		go func() {
			defer wg.Done()
			edges, eerr = importer.ImportEdges(ctx, graph.GenerateEdges(700, testPartition))
		}()
		wg.Wait()

		require.NoError(t, verr)
		require.NoError(t, eerr)
		assert.Equal(t, int64(300), vertices.NumberOfDocumentsImported)
		assert.Equal(t, int64(700), edges.NumberOfDocumentsImported)
		assert.Equal(t, 300*memory.DEFAULT_UNITS_PER_ELEMENT, vertices.TotalCapacityUnitsConsumed)
		assert.Equal(t, 700*memory.DEFAULT_UNITS_PER_ELEMENT, edges.TotalCapacityUnitsConsumed)
	})

	t.Run("a run executes once", func(t *testing.T) {
		store, coll := newTestStore(t)
		importer := newTestImporter(t, store, coll, testOptions())
		run := importer.NewRun(graph.KindVertex)
		assert.Equal(t, StateNotStarted, run.State())

		_, err := run.Execute(context.Background(), graph.GenerateVertices(1, testPartition))
		require.NoError(t, err)
		assert.Equal(t, StateCompleted, run.State())

		_, err = run.Execute(context.Background(), graph.GenerateVertices(1, testPartition))
		assert.ErrorIs(t, err, ErrRunStarted)
	})
}

func TestStateTransitions(t *testing.T) {
	assert.True(t, StateNotStarted.canTransition(StateInitializing))
	assert.True(t, StateInitializing.canTransition(StateFailed))
	assert.True(t, StateImporting.canTransition(StateDraining))
	assert.True(t, StateDraining.canTransition(StateCompleted))
	assert.False(t, StateNotStarted.canTransition(StateImporting))
	assert.False(t, StateCompleted.canTransition(StateImporting))
	assert.False(t, StateFailed.canTransition(StateInitializing))
	assert.True(t, StateCompleted.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateDraining.Terminal())
	assert.Equal(t, "Draining", StateDraining.String())
	// a fatal write can surface while partial batches flush
	assert.True(t, StateDraining.canTransition(StateFailed))
	assert.False(t, StateDraining.canTransition(StateImporting))
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, StatusImportedStr, StatusImported.String())
	assert.Equal(t, StatusQuarantinedStr, StatusQuarantined.String())
	assert.Equal(t, StatusRetryingStr, StatusRetrying.String())
	assert.Equal(t, "Status(42)", Status(42).String())
}

func TestQueueSize(t *testing.T) {
	assert.Equal(t, 200, queueSize(100))
	assert.Equal(t, 1, queueSize(0))
	assert.Equal(t, MAX_WRITER_QUEUE, queueSize(MAX_WRITER_QUEUE))
	assert.Equal(t, MAX_WRITER_QUEUE, queueSize(math.MaxInt))

	t.Run("huge batch bound does not blow up the writer", func(t *testing.T) {
		store, coll := newTestStore(t)
		opts := testOptions()
		opts.MaxBatchElements = math.MaxInt
		importer := newTestImporter(t, store, coll, opts)

		result, err := importer.ImportVertices(context.Background(), graph.GenerateVertices(10, testPartition))
		require.NoError(t, err)
		assert.Equal(t, int64(10), result.NumberOfDocumentsImported)
	})
}

func TestImportResultRates(t *testing.T) {
	result := &ImportResult{
		NumberOfDocumentsImported:  100,
		TotalCapacityUnitsConsumed: 500,
		TotalTimeTaken:             2 * time.Second,
	}
	assert.Equal(t, 50.0, result.WritesPerSecond())
	assert.Equal(t, 250.0, result.CapacityUnitsPerSecond())
	assert.Zero(t, (&ImportResult{}).WritesPerSecond())
}
