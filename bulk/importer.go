package bulk

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mikeblum/graph-bulk-import/conf"
	"github.com/mikeblum/graph-bulk-import/graph"
)

var (
	ErrKindMismatch   = errors.New("element kind does not match import run")
	ErrRunStarted     = errors.New("import run already started")
	ErrNoPartitions   = errors.New("store reported no partition ranges")
	errMissingWriter  = errors.New("importer: missing store writer")
	errMissingColl    = errors.New("importer: missing collection")
	errMissingKeyPath = errors.New("importer: collection has no partition key path")
)

// Importer drives bulk imports into one collection. Vertex and edge imports are
// independent runs and may be executed concurrently.
type Importer struct {
	writer   graph.Writer
	coll     *graph.Collection
	opts     Options
	governor *Governor
	metrics  *PoolMetrics
	log      *conf.Log
}

func NewImporter(ctx context.Context, writer graph.Writer, coll *graph.Collection, opts Options) (*Importer, error) {
	if writer == nil {
		return nil, errMissingWriter
	}
	if coll == nil {
		return nil, errMissingColl
	}
	if coll.PartitionKeyProperty() == "" {
		return nil, errMissingKeyPath
	}
	opts = opts.normalize()
	var governor *Governor
	var metrics *PoolMetrics
	var err error
	if governor, err = NewGovernor(ctx, opts.RetryPolicy, opts.MaxConcurrencyPerRange); err != nil {
		return nil, err
	}
	governor.baseWaitTime = opts.RetryBaseWait
	if metrics, err = NewPoolMetrics(ctx); err != nil {
		return nil, err
	}
	return &Importer{
		writer:   writer,
		coll:     coll,
		opts:     opts,
		governor: governor,
		metrics:  metrics,
		log:      conf.NewLog().With("collection", coll.String()),
	}, nil
}

func (i *Importer) Governor() *Governor {
	return i.governor
}

func (i *Importer) NewRun(kind graph.Kind) *Run {
	id := uuid.NewString()
	return &Run{
		id:       id,
		kind:     kind,
		writer:   i.writer,
		coll:     i.coll,
		opts:     i.opts,
		governor: i.governor,
		metrics:  i.metrics,
		log:      i.log.With("run-id", id, "kind", kind.String()),
	}
}

func (i *Importer) ImportVertices(ctx context.Context, vertices iter.Seq[graph.Element]) (*ImportResult, error) {
	return i.NewRun(graph.KindVertex).Execute(ctx, vertices)
}

func (i *Importer) ImportEdges(ctx context.Context, edges iter.Seq[graph.Element]) (*ImportResult, error) {
	return i.NewRun(graph.KindEdge).Execute(ctx, edges)
}

// Run is a single pass over an element stream. Its result never shares counters with
// other runs.
type Run struct {
	id       string
	kind     graph.Kind
	writer   graph.Writer
	coll     *graph.Collection
	opts     Options
	governor *Governor
	metrics  *PoolMetrics
	log      *conf.Log
	acc      accumulator
	state    atomic.Int32
	cancel   context.CancelCauseFunc
}

func (r *Run) ID() string {
	return r.id
}

func (r *Run) State() State {
	return State(r.state.Load())
}

func (r *Run) transition(to State) bool {
	for {
		from := r.State()
		if !from.canTransition(to) {
			return false
		}
		if r.state.CompareAndSwap(int32(from), int32(to)) {
			r.log.Debug("Run state changed", "from", from.String(), "to", to.String())
			return true
		}
	}
}

// fail aborts the run with an unrecoverable error.
func (r *Run) fail(err error) {
	if r.cancel != nil {
		r.cancel(err)
	}
}

func (r *Run) observe(o Outcome) {
	if r.opts.OnOutcome != nil {
		r.opts.OnOutcome(o)
	}
}

// Execute imports every element of seq. A partial result is returned alongside any error.
func (r *Run) Execute(ctx context.Context, seq iter.Seq[graph.Element]) (*ImportResult, error) {
	if !r.transition(StateInitializing) {
		return nil, ErrRunStarted
	}
	start := time.Now()
	result := &ImportResult{
		RunID: r.id,
		Kind:  r.kind,
	}
	finish := func(state State, err error) (*ImportResult, error) {
		r.transition(state)
		r.acc.mergeInto(result)
		result.TotalTimeTaken = time.Since(start)
		result.State = r.State()
		result.Cancelled = ctx.Err() != nil
		r.log.Info("Import run finished",
			"state", result.State.String(),
			"imported", result.NumberOfDocumentsImported,
			"quarantined", len(result.BadInputDocuments),
			"skipped", result.NumberOfDocumentsSkipped,
			"units", result.TotalCapacityUnitsConsumed,
			"elapsed", result.TotalTimeTaken)
		return result, err
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	r.cancel = cancel
	defer cancel(nil)

	var ranges []graph.KeyRange
	var router *graph.Router
	var err error
	if ranges, err = r.writer.PartitionRanges(runCtx, r.coll); err != nil {
		r.log.WithErrorMsg(err, "Error fetching partition ranges", "action", "initialize")
		return finish(StateFailed, fmt.Errorf("partition ranges for %s: %w", r.coll, err))
	}
	if len(ranges) == 0 {
		return finish(StateFailed, fmt.Errorf("%s: %w", r.coll, ErrNoPartitions))
	}
	if router, err = graph.NewRouter(r.coll.PartitionKeyProperty(), ranges); err != nil {
		return finish(StateFailed, err)
	}

	pool := newWriterPool(r, router.Ranges()).Start(runCtx).StartMonitor(runCtx)
	r.transition(StateImporting)
	r.log.Info("Importing", "action", "import", "ranges", pool.Size())

	r.dispatch(runCtx, seq, router, pool)

	// a writer hit an unrecoverable error while the stream was still being dispatched
	if cause := context.Cause(runCtx); cause != nil && ctx.Err() == nil {
		pool.Close()
		_ = pool.Wait()
		return finish(StateFailed, cause)
	}

	r.transition(StateDraining)
	pool.Close()
	if err = pool.Wait(); err != nil {
		return finish(StateFailed, err)
	}
	if ctx.Err() != nil {
		return finish(StateCompleted, ctx.Err())
	}
	return finish(StateCompleted, nil)
}

func (r *Run) dispatch(ctx context.Context, seq iter.Seq[graph.Element], router *graph.Router, pool *writerPool) {
	for el := range seq {
		if ctx.Err() != nil {
			return
		}
		if el.Kind != r.kind {
			r.quarantine(el, fmt.Errorf("%w: got %s, want %s", ErrKindMismatch, el.Kind, r.kind))
			continue
		}
		if el.ID == "" && !r.opts.DisableAutomaticIDGeneration {
			el.ID = uuid.NewString()
		}
		idx, _, err := router.Route(el)
		if err != nil {
			r.quarantine(el, err)
			continue
		}
		if err = pool.Submit(ctx, idx, el); err != nil {
			r.acc.addSkipped(1)
			return
		}
	}
}

// quarantine records an element that never reached a writer.
func (r *Run) quarantine(el graph.Element, reason error) {
	r.acc.addQuarantined(Quarantined{Element: el, Reason: reason})
	r.log.Warn("Quarantined element", "action", "route", "id", el.ID, "reason", reason)
	r.observe(Outcome{Status: StatusQuarantined, Count: 1, Reason: reason})
}
