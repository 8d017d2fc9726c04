package bulk

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/mikeblum/graph-bulk-import/conf"
	"github.com/mikeblum/graph-bulk-import/graph"
)

// writer owns one partition range: it batches the elements routed to it and writes them
// through the governor.
type writer struct {
	id       int
	rng      graph.KeyRange
	in       chan graph.Element
	run      *Run
	log      *conf.Log
	batch    []graph.Element
	batchLen int
}

func newWriter(id int, rng graph.KeyRange, run *Run) *writer {
	return &writer{
		id:  id,
		rng: rng,
		in:  make(chan graph.Element, queueSize(run.opts.MaxBatchElements)),
		run: run,
		log: run.log.With("range", rng.ID, "worker-id", id),
	}
}

// queueSize buffers two batches per writer, capped at MAX_WRITER_QUEUE.
func queueSize(maxBatchElements int) int {
	if maxBatchElements < 1 {
		return 1
	}
	return min(maxBatchElements, MAX_WRITER_QUEUE/2) * 2
}

// start consumes routed elements until the input channel closes. Each batch boundary checks
// ctx; once cancelled no further batch is dispatched.
func (w *writer) start(ctx context.Context) error {
	w.log.Debug("Writer started", "type", "writer")
	defer w.log.Debug("Writer shutting down", "type", "writer")

	var inflight errgroup.Group
	for el := range w.in {
		if ctx.Err() != nil {
			w.run.acc.addSkipped(1)
			continue
		}
		w.add(ctx, &inflight, el)
	}

	// flush the partial batch
	if len(w.batch) > 0 {
		w.dispatch(ctx, &inflight)
	}
	return inflight.Wait()
}

func (w *writer) add(ctx context.Context, inflight *errgroup.Group, el graph.Element) {
	opts := w.run.opts
	var raw []byte
	var err error
	if raw, err = el.Encode(); err != nil {
		w.quarantine(Quarantined{Element: el, Reason: fmt.Errorf("encode: %w", err)})
		return
	}
	size := len(raw)
	if size > opts.MaxBatchBytes {
		w.quarantine(Quarantined{Element: el, Reason: fmt.Errorf("%w: %d > %d bytes", graph.ErrElementTooLarge, size, opts.MaxBatchBytes)})
		return
	}
	if len(w.batch) > 0 && w.batchLen+size > opts.MaxBatchBytes {
		w.dispatch(ctx, inflight)
	}
	w.batch = append(w.batch, el)
	w.batchLen += size
	if len(w.batch) >= opts.MaxBatchElements {
		w.dispatch(ctx, inflight)
	}
}

func (w *writer) quarantine(entries ...Quarantined) {
	w.run.acc.addQuarantined(entries...)
	w.run.metrics.elementsProcessed.Add(context.Background(), int64(len(entries)), metric.WithAttributes(
		attribute.String("range", w.rng.ID),
		attribute.String("status", StatusQuarantined.String()),
	))
	for _, q := range entries {
		w.log.Warn("Quarantined element", "action", "quarantine", "id", q.Element.ID, "reason", q.Reason)
	}
}

// dispatch hands the current batch to a write goroutine once the governor grants a slot.
func (w *writer) dispatch(ctx context.Context, inflight *errgroup.Group) {
	batch := w.batch
	w.batch = nil
	w.batchLen = 0

	if ctx.Err() != nil {
		w.run.acc.addSkipped(len(batch))
		return
	}
	release, err := w.run.governor.Acquire(ctx, w.rng.ID)
	if err != nil {
		w.run.acc.addSkipped(len(batch))
		return
	}
	attrs := metric.WithAttributes(attribute.String("range", w.rng.ID))
	w.run.metrics.batchSize.Record(ctx, int64(len(batch)), attrs)
	w.run.metrics.batchesInflight.Add(ctx, 1, attrs)
	inflight.Go(func() error {
		defer release()
		defer w.run.metrics.batchesInflight.Add(context.Background(), -1, attrs)
		return w.write(ctx, batch)
	})
}

// write issues one batch. Only errors that must stop the whole run are returned.
func (w *writer) write(ctx context.Context, batch []graph.Element) error {
	req := &graph.WriteRequest{
		Collection: w.run.coll,
		Range:      w.rng,
		Elements:   batch,
		Upsert:     w.run.opts.EnableUpsert,
	}
	// acknowledged writes must be counted, so an in-flight request is never aborted
	writeCtx := context.WithoutCancel(ctx)

	var resp *graph.WriteResponse
	units, attempts, err := w.run.governor.WithRetry(ctx, w.rng.ID, func(attempt int) (float64, error) {
		var err error
		if resp, err = w.run.writer.BulkWrite(writeCtx, req); err != nil {
			return 0, err
		}
		return resp.CapacityUnits, nil
	}, w.run.opts.OnOutcome)

	switch {
	case err == nil:
		quarantined := w.failures(batch, resp.Failures)
		imported := len(batch) - len(quarantined)
		w.run.acc.addImported(imported, units)
		w.quarantine(quarantined...)
		w.run.metrics.elementsProcessed.Add(ctx, int64(imported), metric.WithAttributes(
			attribute.String("range", w.rng.ID),
			attribute.String("status", StatusImported.String()),
		))
		w.run.observe(Outcome{Status: StatusImported, RangeID: w.rng.ID, Attempt: attempts, Count: imported})
		if len(quarantined) > 0 {
			w.run.observe(Outcome{Status: StatusQuarantined, RangeID: w.rng.ID, Attempt: attempts, Count: len(quarantined)})
		}
		w.log.Debug("Wrote batch", "action", "write", "count", imported, "quarantined", len(quarantined), "units", units, "attempts", attempts)
		return nil

	case errors.Is(err, graph.ErrCollectionNotFound):
		w.run.acc.addSkipped(len(batch))
		w.log.WithErrorMsg(err, "Collection missing, aborting run", "action", "write")
		w.run.fail(err)
		return err

	case backoffAborted(ctx, err):
		// cancelled during backoff: never acknowledged, never quarantined
		w.run.acc.addSkipped(len(batch))
		return nil

	default:
		entries := make([]Quarantined, len(batch))
		for i, el := range batch {
			entries[i] = Quarantined{Element: el, Reason: err}
		}
		w.quarantine(entries...)
		w.run.observe(Outcome{Status: StatusQuarantined, RangeID: w.rng.ID, Attempt: attempts, Count: len(batch), Reason: err})
		return nil
	}
}

// backoffAborted reports whether the run's own cancellation ended the retry loop. Store errors
// that merely wrap a context error, such as connect timeouts, are not cancellations.
func backoffAborted(ctx context.Context, err error) bool {
	if ctx.Err() == nil || errors.Is(err, ErrRetriesExhausted) {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// failures maps per element store failures back onto the batch, ignoring bogus indexes.
func (w *writer) failures(batch []graph.Element, failures []graph.ElementFailure) []Quarantined {
	if len(failures) == 0 {
		return nil
	}
	seen := make(map[int]struct{}, len(failures))
	out := make([]Quarantined, 0, len(failures))
	for _, f := range failures {
		if f.Index < 0 || f.Index >= len(batch) {
			w.log.Warn("Store reported failure for unknown element", "index", f.Index, "batch-size", len(batch))
			continue
		}
		if _, dup := seen[f.Index]; dup {
			continue
		}
		seen[f.Index] = struct{}{}
		out = append(out, Quarantined{Element: batch[f.Index], Reason: f.Err})
	}
	return out
}
