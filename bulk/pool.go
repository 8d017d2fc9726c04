package bulk

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/mikeblum/graph-bulk-import/graph"
)

const monitorInterval = 5 * time.Second

// writerPool runs one writer per partition range.
type writerPool struct {
	run     *Run
	writers []*writer
	group   *errgroup.Group
	done    chan struct{}
}

func newWriterPool(run *Run, ranges []graph.KeyRange) *writerPool {
	writers := make([]*writer, len(ranges))
	for i, rng := range ranges {
		writers[i] = newWriter(i+1, rng, run)
	}
	return &writerPool{
		run:     run,
		writers: writers,
		done:    make(chan struct{}),
	}
}

func (p *writerPool) Size() int {
	return len(p.writers)
}

// Start launches the writers. ctx cancellation stops new batches but the writers keep
// draining their channels until Close.
func (p *writerPool) Start(ctx context.Context) *writerPool {
	var ctxGroup context.Context
	p.group, ctxGroup = errgroup.WithContext(ctx)
	p.run.log.Info("Starting writer pool", "writer-count", len(p.writers))
	for _, w := range p.writers {
		next := w
		p.group.Go(func() error {
			return next.start(ctxGroup)
		})
	}
	return p
}

func (p *writerPool) StartMonitor(ctx context.Context) *writerPool {
	go func() {
		ticker := time.NewTicker(monitorInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-p.done:
				return
			case <-ticker.C:
				for _, w := range p.writers {
					p.run.metrics.elementsQueued.Record(ctx, int64(len(w.in)), metric.WithAttributes(
						attribute.String("range", w.rng.ID),
					))
				}
			}
		}
	}()
	return p
}

// Submit blocks until the writer for range idx accepts the element.
func (p *writerPool) Submit(ctx context.Context, idx int, el graph.Element) error {
	if idx < 0 || idx >= len(p.writers) {
		return fmt.Errorf("error submitting element: no writer for range index %d", idx)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.writers[idx].in <- el: // block until the writer catches up
		return nil
	}
}

// Close signals the writers to flush partial batches and exit.
func (p *writerPool) Close() {
	for _, w := range p.writers {
		close(w.in)
	}
}

// Wait blocks until every writer drained. It returns the first fatal error.
func (p *writerPool) Wait() error {
	defer close(p.done)
	return p.group.Wait()
}
